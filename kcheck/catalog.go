package kcheck

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/birdayz/kflow/kdtype"
)

// AllTypes is the YAML spelling of every element type.
const AllTypes = "all"

// TypeSet is a list of element types. In YAML it is either a list of type
// names or the string "all".
type TypeSet []kdtype.ElementType

func (s *TypeSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value != AllTypes {
			return fmt.Errorf("line %d: types must be %q or a list, got %q", value.Line, AllTypes, value.Value)
		}
		*s = append(TypeSet(nil), kdtype.All...)
		return nil
	}

	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	set := make(TypeSet, 0, len(names))
	for _, name := range names {
		t, err := kdtype.ParseElementType(name)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		set = append(set, t)
	}
	*s = set
	return nil
}

// ParseMatrix parses and validates a YAML matrix. Unknown fields are
// rejected.
func ParseMatrix(data []byte) (Matrix, error) {
	var m Matrix
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return Matrix{}, fmt.Errorf("%w: %w", ErrInvalidMatrix, err)
	}
	if err := m.Validate(); err != nil {
		return Matrix{}, err
	}
	return m, nil
}

// MustParseMatrix is like ParseMatrix but panics on error.
func MustParseMatrix(data []byte) Matrix {
	m, err := ParseMatrix(data)
	if err != nil {
		panic(err)
	}
	return m
}

// LoadMatrix reads and parses a YAML matrix file.
func LoadMatrix(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Matrix{}, fmt.Errorf("failed to read matrix: %w", err)
	}
	return ParseMatrix(data)
}
