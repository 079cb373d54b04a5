package kblock

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/birdayz/kflow/kdtype"
)

// Factory creates a block of the given dtype. args are the block specific
// constructor arguments, such as a channel count or a fill value.
type Factory func(dt kdtype.DType, args ...any) (Block, error)

// Registry maps logical block paths such as "/numeric/add" to factories.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// DefaultRegistry is the registry used by Register and Make.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") || len(path) < 2 {
		return fmt.Errorf("%w: %q must start with '/'", ErrInvalidPath, path)
	}
	if strings.ContainsAny(path, " \t\n\r") {
		return fmt.Errorf("%w: %q cannot contain whitespace", ErrInvalidPath, path)
	}
	return nil
}

// Register adds a factory under path.
func (r *Registry) Register(path string, f Factory) error {
	if err := validatePath(path); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[path]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}
	r.factories[path] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(path string, f Factory) {
	if err := r.Register(path, f); err != nil {
		panic(err)
	}
}

// Make creates a block from the factory registered under path.
func (r *Registry) Make(path string, dt kdtype.DType, args ...any) (Block, error) {
	r.mu.RLock()
	f, ok := r.factories[path]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, path)
	}

	b, err := f(dt, args...)
	if err != nil {
		return nil, fmt.Errorf("make %s(%s): %w", path, dt, err)
	}
	b.base().SetPath(path)
	b.base().dtype = dt
	return b, nil
}

// Paths returns all registered paths, sorted.
func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.factories))
	for p := range r.factories {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Register adds a factory to DefaultRegistry.
func Register(path string, f Factory) error {
	return DefaultRegistry.Register(path, f)
}

// Make creates a block from DefaultRegistry.
func Make(path string, dt kdtype.DType, args ...any) (Block, error) {
	return DefaultRegistry.Make(path, dt, args...)
}

// Arg returns constructor argument i as a T, or def if fewer arguments were
// given.
func Arg[T any](args []any, i int, def T) (T, error) {
	if i >= len(args) {
		return def, nil
	}
	v, ok := args[i].(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: argument %d is %T, want %T", ErrBadArgument, i, args[i], zero)
	}
	return v, nil
}

// RequireType returns ErrUnsupportedType unless dt's element type satisfies
// one of the predicates.
func RequireType(dt kdtype.DType, allowed ...func(kdtype.ElementType) bool) error {
	if !dt.Type.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, ok := range allowed {
		if ok(dt.Type) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedType, dt)
}
