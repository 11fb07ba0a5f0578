package worker

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Names of the built-in counters
const (
	CounterPending = "pending"
	CounterDone    = "done"
	CounterErrors  = "errors"
)

// Status is the mutable state of a pool run.
// All counters are changed through Count, which is safe for concurrent use.
type Status struct {
	mu          sync.Mutex
	name        string
	counters    map[string]int64
	started     time.Time
	stopped     time.Time
	lastUpdated time.Time
	running     bool
	exc         string
	meter       gometrics.Meter
}

func newStatus(name string) *Status {
	return &Status{
		name:     name,
		counters: map[string]int64{CounterPending: 0, CounterDone: 0, CounterErrors: 0},
		meter:    gometrics.NilMeter{},
	}
}

// Count adds delta to the named counter, unknown names create a custom counter
func (s *Status) Count(name string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += delta
	s.lastUpdated = time.Now()
	if name == CounterDone && delta > 0 {
		s.meter.Mark(delta)
	}
}

func (s *Status) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exc = err.Error()
}

func (s *Status) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = time.Now()
	s.lastUpdated = s.started
	s.running = true
	s.meter = gometrics.NewMeter()
}

func (s *Status) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.stopped = time.Now()
	s.lastUpdated = s.stopped
	s.running = false
	s.meter.Stop()
}

// Snapshot returns an immutable copy of the status
func (s *Status) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		counters[k] = v
	}
	end := s.stopped
	if s.running {
		end = time.Now()
	}
	var took time.Duration
	if !s.started.IsZero() {
		took = end.Sub(s.started)
	}
	return Snapshot{
		Name:        s.name,
		Pending:     counters[CounterPending],
		Done:        counters[CounterDone],
		Errors:      counters[CounterErrors],
		Counters:    counters,
		Started:     s.started,
		Stopped:     s.stopped,
		LastUpdated: s.lastUpdated,
		Running:     s.running,
		Exc:         s.exc,
		Took:        took,
		Rate:        s.meter.RateMean(),
	}
}

// Snapshot is a copy of the status at one point in time
type Snapshot struct {
	Name        string           `json:"name"`
	Pending     int64            `json:"pending"`
	Done        int64            `json:"done"`
	Errors      int64            `json:"errors"`
	Counters    map[string]int64 `json:"counters"` // all counters, including the built-in ones
	Started     time.Time        `json:"started"`
	Stopped     time.Time        `json:"stopped"`
	LastUpdated time.Time        `json:"last_updated"`
	Running     bool             `json:"running"`
	Exc         string           `json:"exc,omitempty"` // text of the last task error
	Took        time.Duration    `json:"took"`
	Rate        float64          `json:"rate"` // mean done tasks per second
}

// Get returns the value of a counter
func (s Snapshot) Get(name string) int64 {
	return s.Counters[name]
}

func (s Snapshot) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s: pending=%d done=%d errors=%d", s.Name, s.Pending, s.Done, s.Errors))

	custom := make([]string, 0, len(s.Counters))
	for name := range s.Counters {
		switch name {
		case CounterPending, CounterDone, CounterErrors:
		default:
			custom = append(custom, name)
		}
	}
	sort.Strings(custom)
	for _, name := range custom {
		sb.WriteString(fmt.Sprintf(" %s=%d", name, s.Counters[name]))
	}
	sb.WriteString(fmt.Sprintf(" took=%s rate=%.1f/s", s.Took.Round(time.Millisecond), s.Rate))
	return sb.String()
}
