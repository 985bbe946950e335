package id

import "github.com/google/uuid"

// NewSessionID returns a unique test session identifier of the form
// "session_<uuid>".
func NewSessionID() string {
	return "session_" + uuid.NewString()
}
