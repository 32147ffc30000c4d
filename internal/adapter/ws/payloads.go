package ws

import "time"

// Error codes sent to clients.
const (
	CodeNotFound   = "not_found"
	CodeBadRequest = "bad_request"
)

// Receipt acknowledges an accepted inbound message to its sender only.
type Receipt struct {
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReceipt builds the acknowledgment payload for one accepted message.
func NewReceipt(now time.Time) Receipt {
	return Receipt{Type: "receipt", Status: "received", Timestamp: now}
}

// ErrorPayload is sent once, immediately before closing a connection.
type ErrorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds a structured error payload.
func NewError(code, message string) ErrorPayload {
	return ErrorPayload{Type: "error", Code: code, Message: message}
}
