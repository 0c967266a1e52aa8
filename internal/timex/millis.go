package timex

import "time"

// Trunc drops sub-millisecond precision and normalises to UTC. Both stores
// keep milliseconds, so every timestamp that is compared goes through here.
func Trunc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Ptr returns a pointer to a truncated copy of t.
func Ptr(t time.Time) *time.Time {
	t = Trunc(t)
	return &t
}
