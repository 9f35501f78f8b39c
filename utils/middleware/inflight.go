package middleware

import (
	"sync"

	"github.com/gofiber/fiber/v2"
)

// InFlightTracker counts generation requests in progress per user and
// pushes every change to subscribers.
type InFlightTracker struct {
	mu     sync.Mutex
	counts map[string]int
	subs   map[string]map[chan int]struct{}
}

// NewInFlightTracker creates an empty tracker
func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{
		counts: make(map[string]int),
		subs:   make(map[string]map[chan int]struct{}),
	}
}

// Begin records one operation for key. The returned func ends it and is
// safe to call more than once.
func (t *InFlightTracker) Begin(key string) (end func()) {
	t.mu.Lock()
	t.counts[key]++
	t.publishLocked(key)
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.counts[key] > 0 {
				t.counts[key]--
			}
			if t.counts[key] == 0 {
				delete(t.counts, key)
			}
			t.publishLocked(key)
		})
	}
}

// Count returns the number of operations in progress for key
func (t *InFlightTracker) Count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[key]
}

// Reset forces key back to zero, e.g. when a client navigates away and
// abandons its requests.
func (t *InFlightTracker) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, key)
	t.publishLocked(key)
}

// Subscribe returns a channel carrying the latest count for key, starting
// with the current value. Slow readers only see the newest value.
func (t *InFlightTracker) Subscribe(key string) (<-chan int, func()) {
	ch := make(chan int, 1)

	t.mu.Lock()
	if t.subs[key] == nil {
		t.subs[key] = make(map[chan int]struct{})
	}
	t.subs[key][ch] = struct{}{}
	ch <- t.counts[key]
	t.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs[key], ch)
			if len(t.subs[key]) == 0 {
				delete(t.subs, key)
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (t *InFlightTracker) publishLocked(key string) {
	n := t.counts[key]
	for ch := range t.subs[key] {
		select {
		case <-ch:
		default:
		}
		ch <- n
	}
}

// Track wraps a route so the caller's count covers the request's lifetime.
// It must run after the auth middleware.
func (t *InFlightTracker) Track() fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, ok := GetUserEmail(c)
		if !ok {
			return c.Next()
		}
		end := t.Begin(email)
		defer end()
		return c.Next()
	}
}
