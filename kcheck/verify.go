package kcheck

import (
	"fmt"
	"sort"

	"github.com/birdayz/kflow/kblock"
	"github.com/birdayz/kflow/kbuffer"
)

// verify checks that every collector received at least one element and
// returns their contents.
func (c *Checker) verify(a *assembly) map[string]kbuffer.Chunk {
	names := make([]string, 0, len(a.collectors))
	for name := range a.collectors {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]kbuffer.Chunk, len(names))
	for _, name := range names {
		collector := a.collectors[name]
		n, err := kblock.CallAs[int](collector, "elements")
		if err != nil {
			c.Fatalf(KindContract, "collector %q: %v", name, err)
		}
		if n == 0 {
			c.fail(Failure{
				Kind:     KindAssertion,
				Message:  fmt.Sprintf("%s output %q produced no elements", a.block.Path(), name),
				Expected: "> 0",
				Actual:   n,
			})
		}
		buf, err := kblock.CallAs[kbuffer.Chunk](collector, "getBuffer")
		if err != nil {
			c.Fatalf(KindContract, "collector %q: %v", name, err)
		}
		out[name] = buf
	}
	return out
}
