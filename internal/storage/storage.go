package storage

import "time"

// Event represents a single interaction inside a chat session: the user's
// message and the assistant's response. Events are appended in chronological
// order and kept for auditing; they are not read back into model context.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	SessionID         string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
}

// Recorder abstracts persistence of interaction events.
// AppendInteraction must atomically append a new event; LoadInteractions
// returns events in chronological order. Implementations must be safe for
// concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}
