package gallery

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestUUIDGenerator(t *testing.T) {
	gen := UUIDGenerator{}
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id := gen.New()
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("New() = %q, not a UUID: %v", id, err)
		}
		if parsed.Version() != 4 {
			t.Errorf("New() version = %d, want 4", parsed.Version())
		}
		if seen[id] {
			t.Fatalf("New() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestNewID_Fallback(t *testing.T) {
	failing := func() (uuid.UUID, error) { return uuid.Nil, errors.New("entropy exhausted") }
	now := func() time.Time { return time.Unix(0, 1714554000000000000) }

	a := newID(failing, now)
	b := newID(failing, now)

	if a == "" {
		t.Fatal("newID() returned empty string")
	}
	if _, err := uuid.Parse(a); err == nil {
		t.Errorf("fallback id %q unexpectedly parses as a UUID", a)
	}
	if !strings.HasSuffix(a, strconv.FormatInt(now().UnixNano(), 36)) {
		t.Errorf("fallback id %q does not end with the base-36 timestamp", a)
	}
	for _, r := range a {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
			t.Errorf("fallback id %q contains non base-36 rune %q", a, r)
		}
	}
	if a == b {
		t.Errorf("fallback ids collided: %q", a)
	}
}

func TestRealClock(t *testing.T) {
	if loc := (RealClock{}).Now().Location(); loc != time.UTC {
		t.Errorf("Now() location = %v, want UTC", loc)
	}
}
