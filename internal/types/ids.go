package types

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ID is a UUID-backed identifier used for engine-owned records such as
// checkpoints. Work-item ids are owned by the tracker and stay plain strings.
type ID string

// NewID generates a new random ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// ParseID validates s as a UUID and returns it as an ID.
func ParseID(s string) (ID, error) {
	if s == "" {
		return "", fmt.Errorf("ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid ID format: %w", err)
	}
	return ID(parsed.String()), nil
}

// String returns the string form of the ID.
func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool { return id == "" }

// Validate checks that the ID is a well-formed UUID.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("ID cannot be empty")
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("invalid ID format: %w", err)
	}
	return nil
}

// MarshalJSON serializes the ID as a JSON string, null when zero.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON deserializes and validates a JSON string into an ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal ID: %w", err)
	}
	if s == "" {
		*id = ""
		return nil
	}
	parsed, err := ParseID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
