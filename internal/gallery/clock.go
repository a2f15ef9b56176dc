package gallery

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// UUIDGenerator produces random (v4) UUIDs. If the secure random source
// fails it falls back to a pseudo-random string joined with a nanosecond
// timestamp, so New always returns a value.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return newID(uuid.NewRandom, time.Now) }

func newID(random func() (uuid.UUID, error), now func() time.Time) string {
	if id, err := random(); err == nil {
		return id.String()
	}
	return strconv.FormatUint(rand.Uint64(), 36) + strconv.FormatInt(now().UnixNano(), 36)
}
