// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit gates calls to external sources so that two grants for
// the same key are separated by at least the key's configured interval.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a registry of per-key minimum-interval gates. The zero value
// is not usable; call New.
type Limiter struct {
	mu           sync.Mutex
	defaultDelay time.Duration
	delays       map[string]time.Duration
	gates        map[string]*gate
}

// gate pairs a token bucket with the time of its last grant. The bucket
// queues callers in reservation order; the grant time keeps returns at
// least every apart even when a reservation wakes early.
type gate struct {
	lim   *rate.Limiter
	every time.Duration

	mu   sync.Mutex
	last time.Time
}

// New returns a Limiter that applies defaultDelay to keys without an
// explicit interval. A zero delay leaves those keys unthrottled.
func New(defaultDelay time.Duration) *Limiter {
	return &Limiter{
		defaultDelay: defaultDelay,
		delays:       make(map[string]time.Duration),
		gates:        make(map[string]*gate),
	}
}

// DownloadKey returns the key used to throttle downloads of candidates from
// source, kept apart from the source's search key.
func DownloadKey(source string) string {
	return "download:" + source
}

// SetDelay configures the minimum interval for key. It replaces any
// existing gate, so it should be called before the key is first used.
func (l *Limiter) SetDelay(key string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delays[key] = d
	delete(l.gates, key)
}

// Delay returns the interval in effect for key.
func (l *Limiter) Delay(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if d, ok := l.delays[key]; ok {
		return d
	}
	return l.defaultDelay
}

// Acquire blocks until key may be used again. The first call for a key is
// granted immediately, and two grants for a key return at least its
// interval apart. It returns the context error if ctx ends first.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	g := l.gate(key)
	if g == nil {
		return ctx.Err()
	}
	if err := g.lim.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("rate limit %s: %w", key, err)
	}
	return g.settle(ctx)
}

// settle holds a reserved grant until the interval since the previous
// grant has elapsed, then records it.
func (g *gate) settle(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.last.IsZero() {
		if wait := g.every - time.Since(g.last); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	g.last = time.Now()
	return nil
}

func (l *Limiter) gate(key string) *gate {
	l.mu.Lock()
	defer l.mu.Unlock()
	if g, ok := l.gates[key]; ok {
		return g
	}
	d, ok := l.delays[key]
	if !ok {
		d = l.defaultDelay
	}
	if d <= 0 {
		return nil
	}
	g := &gate{lim: rate.NewLimiter(rate.Every(d), 1), every: d}
	l.gates[key] = g
	return g
}
