// Package sse reads and writes Server-Sent Events.
//
// The Reader parses upstream model streams and the chat stream consumed by
// the CLI. The Writer emits the chat stream served by the API: a sequence of
// "data:" frames carrying JSON, terminated by a "data: [DONE]" frame.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Done is the data payload of the frame that ends a chat stream. It can
// never collide with a content frame, which always carries a JSON object.
const Done = "[DONE]"

// Event represents a single parsed SSE event, delimited by a blank line
// in the byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n".
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}

// IsDone reports whether e is the stream terminator.
func (e *Event) IsDone() bool {
	return e != nil && e.Data == Done
}
