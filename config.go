package kflow

import (
	"log/slog"

	"github.com/birdayz/kflow/kblock"
)

// Option is a function that configures a Topology
type Option func(*Topology)

// WithLog sets the logger for the topology
var WithLog = func(log *slog.Logger) Option {
	return func(t *Topology) {
		t.log = log
	}
}

// WithQueueCapacity sets how many elements each input port queues before
// upstream blocks see back-pressure
var WithQueueCapacity = func(elements int) Option {
	return func(t *Topology) {
		if elements > 0 {
			t.capacity = elements
		}
	}
}

// DefaultQueueCapacity is the queue capacity used without WithQueueCapacity.
const DefaultQueueCapacity = kblock.DefaultCapacity

// NullWriter is a writer that discards all data
type NullWriter struct{}

func (NullWriter) Write(p []byte) (int, error) { return len(p), nil }

// NullLogger creates a logger that discards all output
func NullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(NullWriter{}, nil))
}
