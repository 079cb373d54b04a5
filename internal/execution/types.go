package execution

import (
	"fmt"
)

// Stage indicates in which part of a block's lifecycle an error occurred
type Stage string

const (
	StageActivate   Stage = "activate"
	StageWork       Stage = "work"
	StageDeactivate Stage = "deactivate"
)

// BlockError wraps an error with block attribution for debugging.
// It identifies which block failed and at what stage.
type BlockError struct {
	// Cause is the underlying error
	Cause error

	// Stage identifies where in the block lifecycle the error occurred
	Stage Stage

	// Block is the node ID of the failing block
	Block string

	// Path is the logical registry path of the failing block
	Path string
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("%s error in block %q (%s): %v", e.Stage, e.Block, e.Path, e.Cause)
}

func (e *BlockError) Unwrap() error {
	return e.Cause
}

// PanicError is the cause of a BlockError raised by a panicking block.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
