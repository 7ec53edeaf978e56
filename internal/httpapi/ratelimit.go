// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package httpapi

import (
	"sync"
	"time"
)

// rateLimiter counts requests per client in fixed windows. State is held in
// process memory, so each replica enforces its own budget.
type rateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	now       func() time.Time
	clients   map[string]*rateWindow
	lastSweep time.Time
}

type rateWindow struct {
	start time.Time
	count int
}

type rateResult struct {
	allowed    bool
	limit      int
	remaining  int
	retryAfter time.Duration
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *rateLimiter {
	return &rateLimiter{
		limit:     limit,
		window:    window,
		now:       now,
		clients:   make(map[string]*rateWindow),
		lastSweep: now(),
	}
}

// allow records one request for key and reports whether it fits the budget.
func (l *rateLimiter) allow(key string) rateResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &rateWindow{start: now}
		l.clients[key] = w
	}

	if w.count >= l.limit {
		return rateResult{
			limit:      l.limit,
			retryAfter: w.start.Add(l.window).Sub(now),
		}
	}
	w.count++
	return rateResult{allowed: true, limit: l.limit, remaining: l.limit - w.count}
}

// sweep drops expired windows at most once per window.
func (l *rateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
