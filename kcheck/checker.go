package kcheck

import (
	"fmt"
	"log/slog"

	"github.com/google/go-cmp/cmp"

	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kbuffer"
	"github.com/birdayz/kflow/kdtype"
)

// Checker records the failures of one case. It is only valid inside the
// function passed to Harness.Check and must not be used concurrently.
type Checker struct {
	h      *Harness
	log    *slog.Logger
	result *Result
	long   bool
}

// Name returns the case name.
func (c *Checker) Name() string {
	return c.result.Name
}

// Log returns the case logger.
func (c *Checker) Log() *slog.Logger {
	return c.log
}

// SetLongTimeout makes Execute wait longer for pure sources and without a
// cap for everything else.
func (c *Checker) SetLongTimeout(long bool) {
	c.long = long
}

// Failed reports whether a failure was recorded.
func (c *Checker) Failed() bool {
	return len(c.result.Failures) > 0
}

func (c *Checker) fail(f Failure) {
	if f.Location == "" {
		f.Location = location()
	}
	c.log.Warn("Check failed", "kind", f.Kind, "message", f.Message, "location", f.Location)
	c.result.Failures = append(c.result.Failures, f)
}

func (c *Checker) fatal(f Failure) {
	if f.Location == "" {
		f.Location = location()
	}
	c.fail(f)
	panic(abort{})
}

// Errorf records an assertion failure and continues.
func (c *Checker) Errorf(format string, args ...any) {
	c.fail(Failure{Kind: KindAssertion, Message: fmt.Sprintf(format, args...)})
}

// Fatalf records a failure of the given kind and stops the case.
func (c *Checker) Fatalf(kind FailureKind, format string, args ...any) {
	c.fatal(Failure{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Equal records an assertion failure unless expected and actual are equal,
// including their types.
func (c *Checker) Equal(expected, actual any, what string) bool {
	if cmp.Equal(expected, actual) {
		return true
	}
	c.fail(Failure{Kind: KindAssertion, Message: what, Expected: expected, Actual: actual})
	return false
}

// Compare records an assertion failure unless the scalars of chunk match
// expected within the harness epsilon. See CompareChunk.
func (c *Checker) Compare(chunk kbuffer.Chunk, expected any) bool {
	err := CompareChunk(chunk, expected, c.h.epsilon)
	if err == nil {
		return true
	}
	f := Failure{Kind: KindAssertion, Message: err.Error()}
	if m, ok := err.(*MismatchError); ok {
		f.Message = fmt.Sprintf("scalar %d differs", m.Index)
		f.Expected, f.Actual = m.Expected, m.Actual
	}
	c.fail(f)
	return false
}

// Make makes a block from the harness registry. Failing to make it stops the
// case.
func (c *Checker) Make(path string, dt kdtype.DType, args ...any) kblock.Block {
	b, err := c.h.registry.Make(path, dt, args...)
	if err != nil {
		c.Fatalf(KindContract, "make %s(%s) with %v: %v", path, dt, args, err)
	}
	return b
}

// RoundTrip checks the accessors "get"+name and "set"+name of b: the
// getter must return first, and second after the setter was called with
// it. first must be the value b was made with.
func (c *Checker) RoundTrip(b kblock.Block, name string, first, second any) {
	get := func() any {
		v, err := b.Call("get" + name)
		if err != nil {
			c.Fatalf(KindContract, "%s.get%s: %v", b.Path(), name, err)
		}
		return v
	}

	c.Equal(first, get(), fmt.Sprintf("%s.get%s after construction", b.Path(), name))
	if _, err := b.Call("set"+name, second); err != nil {
		c.Fatalf(KindContract, "%s.set%s(%v): %v", b.Path(), name, second, err)
	}
	c.Equal(second, get(), fmt.Sprintf("%s.get%s after set%s", b.Path(), name, name))
}

// CheckChannels checks that b reports want input channels.
func (c *Checker) CheckChannels(b kblock.Block, want int) {
	n, err := kblock.CallAs[int](b, "getNumChannels")
	if err != nil {
		c.Fatalf(KindContract, "%s.getNumChannels: %v", b.Path(), err)
	}
	c.Equal(want, n, fmt.Sprintf("%s.getNumChannels", b.Path()))
}
