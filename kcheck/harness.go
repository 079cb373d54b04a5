// Package kcheck runs blocks through a topology with synthetic sources and
// sinks and checks that data flows through them.
//
// A case makes one block for one element type, round trips its parameters,
// feeds every input port the test vector of the port's type and checks that
// every output port produced something. A Matrix lists which blocks run for
// which types; RunMatrix runs all of its cases sequentially and collects a
// Report.
package kcheck

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/birdayz/kflow"
	"github.com/birdayz/kflow/kblock"
)

// Harness runs cases. It holds no state between cases.
type Harness struct {
	log      *slog.Logger
	registry *kblock.Registry

	sourceWait     time.Duration
	longSourceWait time.Duration
	idleInterval   time.Duration
	drainTimeout   time.Duration
	epsilon        float64
	nchans         int

	topologyOpts []kflow.Option
}

// New creates a harness that makes blocks from kblock.DefaultRegistry.
func New(opts ...Option) *Harness {
	h := &Harness{
		log:            kflow.NullLogger(),
		registry:       kblock.DefaultRegistry,
		sourceWait:     DefaultSourceWait,
		longSourceWait: DefaultLongSourceWait,
		idleInterval:   DefaultIdleInterval,
		drainTimeout:   DefaultDrainTimeout,
		epsilon:        DefaultEpsilon,
		nchans:         DefaultChannels,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// abort unwinds a case after a fatal failure was recorded.
type abort struct{}

// Check runs fn as the case name. Failures recorded through the Checker make
// the case fail; a fatal failure or a panic stops fn. Topologies started by
// fn are torn down before Check returns.
func (h *Harness) Check(name string, fn func(*Checker)) (res Result) {
	c := &Checker{
		h:      h,
		log:    h.log.With("case", name),
		result: &Result{Name: name},
	}
	start := time.Now()
	c.log.Debug("Case started")

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abort); !ok {
				c.result.Failures = append(c.result.Failures, Failure{
					Kind:    KindContract,
					Message: fmt.Sprintf("panic: %v", r),
				})
			}
		}
		c.result.Elapsed = time.Since(start)
		if c.result.Passed() {
			c.log.Info("Case passed", "elapsed", c.result.Elapsed)
		} else {
			c.log.Warn("Case failed", "elapsed", c.result.Elapsed, "failures", len(c.result.Failures))
		}
		res = *c.result
	}()

	fn(c)
	return res
}
