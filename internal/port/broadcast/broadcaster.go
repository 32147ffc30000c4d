// Package broadcast defines the port for fanning payloads out to the live
// connections of one project.
package broadcast

import "context"

// Broadcaster delivers a serialized payload to every connection currently
// registered for a project. Delivery failures are absorbed by the
// implementation and never surface to the caller.
type Broadcaster interface {
	Broadcast(ctx context.Context, projectID string, payload []byte)
}
