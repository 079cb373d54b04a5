package kcheck

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kbuffer"
)

// Topology is the part of kflow.Topology the driver runs.
type Topology interface {
	Commit() error
	WaitInactive(idle, timeout time.Duration) bool
	Err() error
	Close() error
}

// Execute runs b in a topology that feeds every input port the test vector
// of its type and collects every output port. It returns what each output
// port produced, keyed by port name. An output that produced nothing is an
// assertion failure.
func (c *Checker) Execute(b kblock.Block) map[string]kbuffer.Chunk {
	a, fail := c.h.assemble(b)
	if fail != nil {
		c.fatal(*fail)
	}
	c.drive(a.topology, b.String(), a.pureSource())
	return c.verify(a)
}

// drive commits topo and waits for it: a fixed time for pure sources, until
// it goes inactive otherwise. topo is closed on every path. target names the
// block under test in engine failures.
func (c *Checker) drive(topo Topology, target string, pureSource bool) {
	defer c.teardown(topo)

	if err := topo.Commit(); err != nil {
		c.Fatalf(KindEngine, "commit %s: %v", target, err)
	}

	if pureSource {
		wait := c.h.sourceWait
		if c.long {
			wait = c.h.longSourceWait
		}
		c.log.Debug("Waiting for source", "duration", wait)
		time.Sleep(wait)
	} else {
		timeout := c.h.drainTimeout
		if c.long {
			timeout = 0
		}
		c.log.Debug("Draining", "idle", c.h.idleInterval, "timeout", timeout)
		if !topo.WaitInactive(c.h.idleInterval, timeout) {
			c.fail(Failure{Kind: KindAssertion, Message: fmt.Sprintf("topology still active after %s", timeout)})
		}
	}

	if err := topo.Err(); err != nil {
		c.fail(Failure{Kind: KindAssertion, Message: fmt.Sprintf("block error: %v", err)})
	}
}

// teardown closes topo. Errors are kept on the result without failing the
// case.
func (c *Checker) teardown(topo Topology) {
	if err := topo.Close(); err != nil {
		c.log.Warn("Teardown failed", "error", err)
		c.result.TeardownErr = multierr.Append(c.result.TeardownErr, err)
	}
}
