package domain

import "encoding/json"

type EventKind string

const (
	EventTaskCreated        EventKind = "task_created"
	EventMessage            EventKind = "message"
	EventClientDisconnected EventKind = "client_disconnected"

	// EventError is only ever sent to a single connection.
	EventError EventKind = "error"
)

// Event is what the bus fans out. It is encoded once per publish.
type Event struct {
	Kind    EventKind `json:"type"`
	Task    *Task     `json:"task,omitempty"`
	Message string    `json:"message,omitempty"`
}

// TaskCreatedEvent carries its own copy of t.
func TaskCreatedEvent(t Task) Event {
	return Event{Kind: EventTaskCreated, Task: &t}
}

func MessageEvent(text string) Event {
	return Event{Kind: EventMessage, Message: text}
}

func ClientDisconnectedEvent() Event {
	return Event{Kind: EventClientDisconnected, Message: "A client disconnected"}
}

func ErrorEvent(message string) Event {
	return Event{Kind: EventError, Message: message}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
