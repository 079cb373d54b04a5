package kcheck

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// FailureKind classifies why a case failed.
type FailureKind int

const (
	// KindContract is a harness or test definition bug: a buffer that does
	// not fit its port, a bad parameter value, an unknown block or a panic.
	// It aborts the case.
	KindContract FailureKind = iota + 1
	// KindEngine is a topology the engine refused to connect or commit. It
	// aborts the case.
	KindEngine
	// KindAssertion is a block that misbehaved. The case keeps running.
	KindAssertion
)

func (k FailureKind) String() string {
	switch k {
	case KindContract:
		return "contract"
	case KindEngine:
		return "engine"
	case KindAssertion:
		return "assertion"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Failure is one failed check of a case.
type Failure struct {
	Kind     FailureKind
	Message  string
	Expected any
	Actual   any
	// Location is the file:line of the failed check.
	Location string
}

func (f Failure) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", f.Kind, f.Message)
	if f.Expected != nil || f.Actual != nil {
		fmt.Fprintf(&sb, " (expected %v, actual %v)", f.Expected, f.Actual)
	}
	if f.Location != "" {
		fmt.Fprintf(&sb, " at %s", f.Location)
	}
	return sb.String()
}

// Result is the outcome of one case.
type Result struct {
	Name     string
	Skipped  bool
	Failures []Failure
	// TeardownErr holds errors from closing the topology. It does not make
	// the case fail.
	TeardownErr error
	Elapsed     time.Duration
}

// Passed reports whether the case ran without failures.
func (r Result) Passed() bool {
	return !r.Skipped && len(r.Failures) == 0
}

// Err returns the failures of the case as one error, or nil.
func (r Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f)
	}
	return fmt.Errorf("%s: %w", r.Name, err)
}

// Report collects the results of a matrix run in execution order.
type Report struct {
	Results []Result
}

// Failed returns the number of failed cases.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Skipped && !res.Passed() {
			n++
		}
	}
	return n
}

// Skipped returns the number of skipped cases.
func (r *Report) Skipped() int {
	n := 0
	for _, res := range r.Results {
		if res.Skipped {
			n++
		}
	}
	return n
}

// Err returns every failure of the run as one error, or nil if all cases
// passed.
func (r *Report) Err() error {
	var err error
	for _, res := range r.Results {
		err = multierr.Append(err, res.Err())
	}
	return err
}

// WriteTo writes one line per case, the failures of failed cases and a
// summary line.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	for _, res := range r.Results {
		switch {
		case res.Skipped:
			fmt.Fprintf(&sb, "SKIP %s\n", res.Name)
		case res.Passed():
			fmt.Fprintf(&sb, "PASS %s (%s)\n", res.Name, res.Elapsed.Round(time.Millisecond))
		default:
			fmt.Fprintf(&sb, "FAIL %s (%s)\n", res.Name, res.Elapsed.Round(time.Millisecond))
			for _, f := range res.Failures {
				fmt.Fprintf(&sb, "    %s\n", f.Error())
			}
		}
		if res.TeardownErr != nil {
			fmt.Fprintf(&sb, "    teardown: %v\n", res.TeardownErr)
		}
	}
	fmt.Fprintf(&sb, "%d cases, %d failed, %d skipped\n", len(r.Results), r.Failed(), r.Skipped())

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

const pkgPrefix = "github.com/birdayz/kflow/kcheck."

// location returns file:line of the innermost caller outside this package,
// counting test files of this package as outside.
func location() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, pkgPrefix) || strings.HasSuffix(frame.File, "_test.go") {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			return ""
		}
	}
}
