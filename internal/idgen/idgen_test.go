package idgen

import (
	"regexp"
	"strings"
	"testing"
)

func TestNewSessionID_Shape(t *testing.T) {
	id, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID() error: %v", err)
	}
	wantLen := len(SessionPrefix) + Length
	if len(id) != wantLen {
		t.Errorf("NewSessionID() length = %d, want %d (id=%q)", len(id), wantLen, id)
	}
	if !strings.HasPrefix(id, SessionPrefix) {
		t.Errorf("NewSessionID() = %q, want prefix %q", id, SessionPrefix)
	}
}

func TestNewVerificationID_Charset(t *testing.T) {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(VerificationPrefix) + `[a-zA-Z0-9]+$`)
	for i := 0; i < 100; i++ {
		id, err := NewVerificationID()
		if err != nil {
			t.Fatalf("NewVerificationID() error on iteration %d: %v", i, err)
		}
		if !pattern.MatchString(id) {
			t.Fatalf("NewVerificationID() = %q, does not match expected charset pattern", id)
		}
	}
}

func TestGenerate_Uniqueness(t *testing.T) {
	const count = 10_000
	seen := make(map[string]struct{}, count)
	for i := 0; i < count; i++ {
		id, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID() error on iteration %d: %v", i, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate ID generated: %q", id)
		}
		seen[id] = struct{}{}
	}
}
