// Package budget implements a token-bucket rate limiter with incremental
// refill, gating how many pipeline.Decide calls a caller may make per
// unit time.
package budget

import (
	"sync"
	"time"
)

// Bucket is a token bucket refilled incrementally as time elapses,
// rather than reset to full on a fixed tick. Safe for concurrent use.
type Bucket struct {
	mu         sync.Mutex
	capacity   float64
	rate       float64 // tokens added per second
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// NewBucket builds a Bucket with the given capacity and refill rate
// (tokens/second). startFull seeds the bucket at capacity; otherwise it
// starts empty.
func NewBucket(capacity int, rate float64, startFull bool) *Bucket {
	b := &Bucket{
		capacity: float64(capacity),
		rate:     rate,
		now:      time.Now,
	}
	if startFull {
		b.tokens = b.capacity
	}
	b.lastRefill = b.now()
	return b
}

// Allow attempts to take one token, refilling first for the elapsed
// time. Returns false if no token is available.
func (b *Bucket) Allow() bool {
	return b.AllowN(1)
}

// AllowN attempts to take n tokens atomically: either all n are taken or
// none are.
func (b *Bucket) AllowN(n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// Remaining reports the current token count after refilling for elapsed
// time, without consuming any.
func (b *Bucket) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

func (b *Bucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}
