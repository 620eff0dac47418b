package idgen

import (
	"crypto/rand"
	"time"

	ulid "github.com/oklog/ulid/v2"
)

// -------------- Clock & ID --------------

type Clock interface{ Now() time.Time }
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }
type ULIDGen struct{}

func (ULIDGen) NewULID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// IsULID reports whether s parses as a ULID. Handlers use it to tell
// public keys apart from numeric ids.
func IsULID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
