package kcheck

import (
	"log/slog"
	"time"

	"github.com/birdayz/kflow"
	"github.com/birdayz/kflow/kblock"
)

// Defaults of a Harness.
const (
	DefaultSourceWait     = 5 * time.Millisecond
	DefaultLongSourceWait = 10 * time.Millisecond
	DefaultIdleInterval   = 10 * time.Millisecond
	DefaultDrainTimeout   = time.Second
	DefaultChannels       = 3
)

// Option is a function that configures a Harness
type Option func(*Harness)

// WithLog sets the logger for the harness and the topologies it runs
var WithLog = func(log *slog.Logger) Option {
	return func(h *Harness) {
		h.log = log
	}
}

// WithRegistry sets the registry blocks are made from
var WithRegistry = func(r *kblock.Registry) Option {
	return func(h *Harness) {
		h.registry = r
	}
}

// WithSourceWait sets how long a pure source runs before teardown
var WithSourceWait = func(d time.Duration) Option {
	return func(h *Harness) {
		h.sourceWait = d
	}
}

// WithLongSourceWait sets how long a pure source with a long timeout runs
// before teardown
var WithLongSourceWait = func(d time.Duration) Option {
	return func(h *Harness) {
		h.longSourceWait = d
	}
}

// WithIdleInterval sets for how long no data may move before a topology
// counts as inactive
var WithIdleInterval = func(d time.Duration) Option {
	return func(h *Harness) {
		h.idleInterval = d
	}
}

// WithDrainTimeout caps the wait for inactivity. Blocks with a long timeout
// are waited for without a cap.
var WithDrainTimeout = func(d time.Duration) Option {
	return func(h *Harness) {
		h.drainTimeout = d
	}
}

// WithEpsilon sets the tolerance of float and complex comparisons
var WithEpsilon = func(eps float64) Option {
	return func(h *Harness) {
		h.epsilon = eps
	}
}

// WithChannels sets the channel count N-to-one blocks are constructed with
var WithChannels = func(n int) Option {
	return func(h *Harness) {
		if n > 0 {
			h.nchans = n
		}
	}
}

// WithTopologyOptions passes options to every topology the harness creates
var WithTopologyOptions = func(opts ...kflow.Option) Option {
	return func(h *Harness) {
		h.topologyOpts = append(h.topologyOpts, opts...)
	}
}
