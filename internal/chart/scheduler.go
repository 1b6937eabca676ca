package chart

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs per-tick callbacks. A callback stays registered until it
// returns false or its cancel func is called.
type Scheduler interface {
	Now() time.Time
	Every(fn func(now time.Time) bool) (cancel func())
}

// TickerScheduler drives callbacks from a time.Ticker, one goroutine per
// registration.
type TickerScheduler struct {
	Interval time.Duration
}

// NewTickerScheduler returns a scheduler ticking every interval. A
// non-positive interval defaults to ~60 frames per second.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TickerScheduler{Interval: interval}
}

func (s *TickerScheduler) Now() time.Time { return time.Now() }

func (s *TickerScheduler) Every(fn func(now time.Time) bool) func() {
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				if !fn(now) {
					return
				}
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

// ManualScheduler is advanced explicitly. Tests and renderers that only
// want the settled frame use it.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	fns    map[int]func(time.Time) bool
}

func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start, fns: make(map[int]func(time.Time) bool)}
}

func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *ManualScheduler) Every(fn func(now time.Time) bool) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.fns[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.fns, id)
		s.mu.Unlock()
	}
}

// Advance moves the clock by d and runs one tick.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	now := s.now
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Ints(ids)

	for _, id := range ids {
		s.mu.Lock()
		fn, ok := s.fns[id]
		s.mu.Unlock()
		if !ok {
			continue
		}
		if !fn(now) {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		}
	}
}

// Pending returns the number of registered callbacks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
