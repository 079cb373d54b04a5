package kcheck

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/birdayz/kflow/kdtype"
)

// ErrInvalidMatrix is returned for matrices that cannot be run.
var ErrInvalidMatrix = errors.New("kcheck: invalid matrix")

// Param types besides element type names.
const (
	// ParamBlockType is a value of the element type the block is made for.
	ParamBlockType = "blockType"
	ParamInt       = "int"
	ParamBool      = "bool"
)

// Matrix lists the blocks to check.
type Matrix struct {
	Blocks []BlockSpec `yaml:"blocks"`
}

// BlockSpec describes how to check one block.
type BlockSpec struct {
	// Path is the registry path of the block.
	Path string `yaml:"path"`
	// Types are the element types the block is checked for.
	Types TypeSet `yaml:"types"`
	// NChans makes the block with the harness channel count as first
	// argument and checks getNumChannels.
	NChans bool `yaml:"nchans"`
	// Params are passed to the constructor after the channel count, with
	// their first test value, and round tripped in order.
	Params      []Param `yaml:"params"`
	LongTimeout bool    `yaml:"longTimeout"`
	Skip        bool    `yaml:"skip"`
}

// Param is a constructor argument with get/set accessors "get"+Name and
// "set"+Name.
type Param struct {
	Name string `yaml:"name"`
	// Type is ParamBlockType (the default), ParamInt, ParamBool or an
	// element type name.
	Type       string `yaml:"type"`
	TestValue1 any    `yaml:"testValue1"`
	TestValue2 any    `yaml:"testValue2"`
}

// Value converts v to the Go type of the parameter for blocks of element
// type t. Values out of range of the type are rejected.
func (p Param) Value(t kdtype.ElementType, v any) (any, error) {
	switch p.Type {
	case "", ParamBlockType:
		return kdtype.Convert(t, v)
	case ParamInt:
		i, err := kdtype.Convert(kdtype.Int64, v)
		if err != nil {
			return nil, err
		}
		return int(i.(int64)), nil
	case ParamBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %v (%T) is not a bool", kdtype.ErrIncompatibleValue, v, v)
		}
		return b, nil
	}
	pt, err := kdtype.ParseElementType(p.Type)
	if err != nil {
		return nil, err
	}
	return kdtype.Convert(pt, v)
}

// Case is one block checked for one element type.
type Case struct {
	Spec BlockSpec
	Type kdtype.ElementType
}

// Name is the block path without its leading slash, followed by the type,
// e.g. "numeric/add/int8".
func (c Case) Name() string {
	return strings.TrimPrefix(c.Spec.Path, "/") + "/" + c.Type.String()
}

// Cases returns the cases of m: for every element type in kdtype.All order,
// every block that supports it, in matrix order.
func (m Matrix) Cases() []Case {
	var cases []Case
	for _, t := range kdtype.All {
		for _, spec := range m.Blocks {
			if slices.Contains(spec.Types, t) {
				cases = append(cases, Case{Spec: spec, Type: t})
			}
		}
	}
	return cases
}

// Validate checks that every block has a path and types, and that every
// parameter has a name, a known type and two distinct test values.
func (m Matrix) Validate() error {
	seen := make(map[string]bool)
	for i, spec := range m.Blocks {
		if spec.Path == "" {
			return fmt.Errorf("%w: block %d has no path", ErrInvalidMatrix, i)
		}
		if seen[spec.Path] {
			return fmt.Errorf("%w: block %s listed twice", ErrInvalidMatrix, spec.Path)
		}
		seen[spec.Path] = true
		if len(spec.Types) == 0 {
			return fmt.Errorf("%w: block %s has no types", ErrInvalidMatrix, spec.Path)
		}
		for _, p := range spec.Params {
			if p.Name == "" {
				return fmt.Errorf("%w: block %s has a parameter without name", ErrInvalidMatrix, spec.Path)
			}
			switch p.Type {
			case "", ParamBlockType, ParamInt, ParamBool:
			default:
				if _, err := kdtype.ParseElementType(p.Type); err != nil {
					return fmt.Errorf("%w: block %s parameter %s: %w", ErrInvalidMatrix, spec.Path, p.Name, err)
				}
			}
			if p.TestValue1 == nil || p.TestValue2 == nil {
				return fmt.Errorf("%w: block %s parameter %s needs two test values", ErrInvalidMatrix, spec.Path, p.Name)
			}
			if fmt.Sprint(p.TestValue1) == fmt.Sprint(p.TestValue2) {
				return fmt.Errorf("%w: block %s parameter %s test values are equal", ErrInvalidMatrix, spec.Path, p.Name)
			}
		}
	}
	return nil
}

// RunCase makes the block of tc, checks its channel count and parameters,
// and executes it.
func (h *Harness) RunCase(tc Case) Result {
	if tc.Spec.Skip {
		h.log.Info("Case skipped", "case", tc.Name())
		return Result{Name: tc.Name(), Skipped: true}
	}
	return h.Check(tc.Name(), func(c *Checker) {
		c.SetLongTimeout(tc.Spec.LongTimeout)

		var args []any
		if tc.Spec.NChans {
			args = append(args, h.nchans)
		}
		seconds := make([]any, len(tc.Spec.Params))
		for i, p := range tc.Spec.Params {
			first, err := p.Value(tc.Type, p.TestValue1)
			if err != nil {
				c.Fatalf(KindContract, "parameter %s value %v: %v", p.Name, p.TestValue1, err)
			}
			second, err := p.Value(tc.Type, p.TestValue2)
			if err != nil {
				c.Fatalf(KindContract, "parameter %s value %v: %v", p.Name, p.TestValue2, err)
			}
			args = append(args, first)
			seconds[i] = second
		}

		b := c.Make(tc.Spec.Path, kdtype.Scalar(tc.Type), args...)
		if tc.Spec.NChans {
			c.CheckChannels(b, h.nchans)
		}
		offset := len(args) - len(tc.Spec.Params)
		for i, p := range tc.Spec.Params {
			c.RoundTrip(b, p.Name, args[offset+i], seconds[i])
		}
		c.Execute(b)
	})
}

// RunMatrix runs every case of m sequentially. A failing case does not stop
// the run.
func (h *Harness) RunMatrix(m Matrix) *Report {
	report := &Report{}
	if err := m.Validate(); err != nil {
		report.Results = append(report.Results, Result{
			Name:     "matrix",
			Failures: []Failure{{Kind: KindContract, Message: err.Error()}},
		})
		return report
	}
	for _, tc := range m.Cases() {
		report.Results = append(report.Results, h.RunCase(tc))
	}
	h.log.Info("Matrix done", "cases", len(report.Results), "failed", report.Failed(), "skipped", report.Skipped())
	return report
}
