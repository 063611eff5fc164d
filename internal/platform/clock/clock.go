package clock

import "time"

// Clock abstracts time so cache and limiter decisions stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Fixed is a manually advanced clock.
type Fixed struct {
	Current time.Time
}

func NewFixed(t time.Time) *Fixed {
	return &Fixed{Current: t}
}

func (f *Fixed) Now() time.Time {
	return f.Current
}

func (f *Fixed) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
