// Package id generates run identifiers.
package id

import (
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out ULIDs that increase strictly, including ids stamped
// with the same millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewGenerator draws randomness from r and timestamps from now. A nil now
// uses the wall clock.
func NewGenerator(r io.Reader, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{entropy: ulid.Monotonic(r, 0), now: now}
}

// New returns an id stamped with the generator clock.
func (g *Generator) New() string {
	return g.NewAt(g.now())
}

// NewAt returns an id stamped with t.
func (g *Generator) NewAt(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t.UTC()), g.entropy).String()
}

// New returns a ULID string from the process-wide generator. Run ids sort
// by creation time.
func New() string {
	return ulid.MustNewDefault(time.Now().UTC()).String()
}

// Time extracts the creation time from an id.
func Time(s string) (time.Time, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()).UTC(), nil
}
