package session

import (
	"encoding/json"
	"fmt"
)

// Role identifies who produced a record.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleDeveloper:
		return true
	}
	return false
}

// Record is a single turn of a conversation. Records are value types and are
// never mutated after they have been stored.
type Record struct {
	UserID  string `json:"user_id"`
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// Encode serializes the record to its stored JSON form.
func (r Record) Encode() ([]byte, error) {
	if !r.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrCorruptRecord, r.Role)
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

// DecodeRecord parses one stored list element back into a Record.
func DecodeRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if !r.Role.Valid() {
		return Record{}, fmt.Errorf("%w: unknown role %q", ErrCorruptRecord, r.Role)
	}
	return r, nil
}
