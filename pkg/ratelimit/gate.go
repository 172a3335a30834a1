// Package ratelimit bounds how many upstream requests may be in flight
// at once.
//
// The SGS API tolerates a small number of parallel requests before it
// starts throttling, so every top-level fetch call creates one Gate and
// shares it across all of its sub-range and per-series workers. The
// gate is a counting semaphore over a buffered channel: a slot is
// acquired before a request is issued and released unconditionally on
// every exit path.
package ratelimit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultMaxConcurrent is the default in-flight request bound.
const DefaultMaxConcurrent = 5

var gateWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "sgs_gate_wait_seconds",
	Help:    "Time spent waiting for a concurrency gate slot",
	Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
})

// Gate is a counting semaphore limiting simultaneous upstream requests.
type Gate struct {
	slots chan struct{}
}

// NewGate creates a gate with the given capacity. Non-positive values
// fall back to DefaultMaxConcurrent.
func NewGate(max int) *Gate {
	if max <= 0 {
		max = DefaultMaxConcurrent
	}
	return &Gate{slots: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free or the context is cancelled.
// Every successful Acquire must be paired with exactly one Release,
// typically via defer so failure paths cannot leak the slot.
func (g *Gate) Acquire(ctx context.Context) error {
	timer := prometheus.NewTimer(gateWaitSeconds)
	defer timer.ObserveDuration()

	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. Releasing without a matching Acquire panics,
// which surfaces slot-accounting bugs immediately instead of silently
// widening the bound.
func (g *Gate) Release() {
	select {
	case <-g.slots:
	default:
		panic("ratelimit: Release without matching Acquire")
	}
}

// InFlight returns the number of currently held slots.
func (g *Gate) InFlight() int {
	return len(g.slots)
}

// Cap returns the gate capacity.
func (g *Gate) Cap() int {
	return cap(g.slots)
}
