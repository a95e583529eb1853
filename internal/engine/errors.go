package engine

import (
	"errors"
	"fmt"
)

// ErrCheckpointNotFound is returned by Checkpointer implementations when no
// checkpoint exists for a key, and by Resume when a workflow cannot be
// reconstructed.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ContractViolationError reports that a node produced a value outside its
// declared enum. This means the AI collaborator itself is non-compliant, so
// the workflow is dropped without retry.
type ContractViolationError struct {
	Node  string
	Value string
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("node %s: contract violation: unexpected value %q", e.Node, e.Value)
}

// IsContractViolation reports whether err wraps a ContractViolationError.
func IsContractViolation(err error) bool {
	var cv *ContractViolationError
	return errors.As(err, &cv)
}

// StepError wraps any error raised inside a node. It is fatal for that
// workflow only; other workflows are unaffected.
type StepError struct {
	Workflow string
	Node     string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow %s: node %s: %v", e.Workflow, e.Node, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
