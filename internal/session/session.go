package session

import (
	"context"
	"errors"
)

var (
	// ErrSessionNotFound is returned when an operation targets a session id
	// that no backend has seen. Callers are expected to treat it as ignorable.
	ErrSessionNotFound = errors.New("chat session not found")

	// ErrCorruptRecord wraps decode failures of stored records.
	ErrCorruptRecord = errors.New("malformed session record")

	// ErrEnumerationUnsupported signals that a backend cannot list sessions.
	// Distinct from an empty result on purpose.
	ErrEnumerationUnsupported = errors.New("session enumeration not supported")
)

// DefaultSystemPrompt seeds sessions created without an explicit prompt.
const DefaultSystemPrompt = "You're a versatile helper, assisting me with a wide range of questions."

// ChatSession is a snapshot of one conversation: an opaque id (the platform
// thread id) and its history, oldest record first. Snapshots are copies;
// callers must re-fetch to observe concurrent updates.
type ChatSession struct {
	ID      string
	History []Record
}

// Storage persists chat sessions. Implementations must be safe for
// concurrent use; every method returns a snapshot, never a live view.
type Storage interface {
	// CreateSession is idempotent: if the session already exists it is
	// returned unchanged, otherwise a new one is created seeded with a
	// single system-role record built from systemPrompt (or the default
	// prompt when empty).
	CreateSession(ctx context.Context, id, systemPrompt string) (*ChatSession, error)

	// AddMessage appends rec to the session history and returns the full
	// resulting session. Fails with ErrSessionNotFound for unknown ids.
	AddMessage(ctx context.Context, id string, rec Record) (*ChatSession, error)

	// GetSession returns the session snapshot, or (nil, nil) for unknown ids.
	GetSession(ctx context.Context, id string) (*ChatSession, error)

	// AllSessions enumerates every known session. Backends that cannot
	// enumerate return ErrEnumerationUnsupported.
	AllSessions(ctx context.Context) (map[string]*ChatSession, error)
}

func seedRecord(systemPrompt string) Record {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return Record{UserID: "developer", Role: RoleSystem, Message: systemPrompt}
}
