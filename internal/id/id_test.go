package id_test

import (
	"strings"
	"testing"

	"github.com/secplus-trainer/backend/internal/id"
)

func TestNewSessionID_Prefix(t *testing.T) {
	got := id.NewSessionID()

	if !strings.HasPrefix(got, "session_") {
		t.Errorf("expected session_ prefix, got %q", got)
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	a := id.NewSessionID()
	b := id.NewSessionID()

	if a == b {
		t.Error("expected different IDs for different sessions")
	}
}
