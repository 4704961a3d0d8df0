// Package ratelimit throttles unauthenticated routes per client IP with a
// sliding window, in process or shared through Redis.
package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Policy names a limit: at most Limit requests per Window for one client.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot,
// never less than one.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

type window struct {
	hits []time.Time
}

// trim drops hits at or before cutoff. Hits are appended in time order.
func (w *window) trim(cutoff time.Time) {
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	w.hits = w.hits[i:]
}

// InMemory keeps one sliding window per key. Idle windows expire with the
// go-cache janitor.
type InMemory struct {
	mu      sync.Mutex
	windows *gocache.Cache
	now     func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		windows: gocache.New(10*time.Minute, time.Minute),
		now:     time.Now,
	}
}

func (l *InMemory) Allow(_ context.Context, key string, limit int, win time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var w *window
	if v, ok := l.windows.Get(key); ok {
		w = v.(*window)
	} else {
		w = &window{}
	}
	w.trim(now.Add(-win))

	res := Result{Limit: limit}
	if len(w.hits) < limit {
		w.hits = append(w.hits, now)
		res.Allowed = true
	}
	res.Remaining = limit - len(w.hits)
	res.ResetAt = now.Add(win)
	if len(w.hits) > 0 {
		res.ResetAt = w.hits[0].Add(win)
	}
	l.windows.Set(key, w, win)
	return res, nil
}
