package dates

import "time"

// Clock supplies the current instant; tests swap in a MockClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock, optionally in a configured location.
type SystemClock struct {
	Location *time.Location
}

func (s SystemClock) Now() time.Time {
	if s.Location != nil {
		return time.Now().In(s.Location)
	}
	return time.Now()
}

type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}

// Today returns the civil date of c's current instant.
func Today(c Clock) time.Time {
	return Civil(c.Now())
}
