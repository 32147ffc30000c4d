package chat

import (
	"fmt"
	"time"
)

// AssistantView returns the provider-facing view of a message's content.
//
// User-authored content is wrapped in a metadata envelope carrying the
// sender's display name and timestamp so the model can tell speakers apart;
// assistant-authored content passes through unmodified:
//
//	<metadata><from>kevin</from><timestamp>2025-03-28T15:00:00Z</timestamp></metadata>
//	 hi
func AssistantView(role, name, content string, ts time.Time) string {
	if role != RoleUser {
		return content
	}
	return fmt.Sprintf("<metadata><from>%s</from><timestamp>%s</timestamp></metadata>\n %s",
		name, ts.Format(time.RFC3339), content)
}
