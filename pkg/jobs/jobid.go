package jobs

import (
	"sync"
	"time"
)

// JobIdFormat is the layout of job ids minted by the client.
//
// ISO-8601 in UTC with milliseconds, like "2024-05-01T12:34:56.789Z".
const JobIdFormat = "2006-01-02T15:04:05.000Z"

// IDMinter mints job ids from the clock.
//
// Ids from one IDMinter are unique and increasing: when the clock does not
// advance (or goes back), the next id is one millisecond after the last one.
type IDMinter struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewIDMinter() *IDMinter {
	return &IDMinter{now: time.Now}
}

// NewIDMinterWithClock is NewIDMinter with a custom clock.
func NewIDMinterWithClock(now func() time.Time) *IDMinter {
	return &IDMinter{now: now}
}

func (m *IDMinter) Mint() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.now().UTC().Truncate(time.Millisecond)
	if !m.last.IsZero() && !t.After(m.last) {
		t = m.last.Add(time.Millisecond)
	}
	m.last = t
	return t.Format(JobIdFormat)
}
