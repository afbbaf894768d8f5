// Package workflow provides the workflow graph executor: topological ordering
// of a user-authored node/edge graph and sequential execution through a
// pluggable executor registry.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors are fatal to the single execution and never retried.
var (
	// ErrCyclicGraph indicates the edge list contains a cycle.
	ErrCyclicGraph = errors.New("workflow graph contains a cycle")

	// ErrUnknownNodeType indicates no executor is registered for a node type.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrInvalidNodeConfig indicates a node's configuration failed schema validation.
	ErrInvalidNodeConfig = errors.New("invalid node configuration")
)

// CycleError names the nodes left unresolved by the topological sort.
type CycleError struct {
	Remaining []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("workflow graph contains a cycle among nodes: %s", strings.Join(e.Remaining, ", "))
}

func (e *CycleError) Unwrap() error {
	return ErrCyclicGraph
}

// UnknownNodeTypeError identifies the offending node and type.
type UnknownNodeTypeError struct {
	NodeID string
	Type   string
}

func (e *UnknownNodeTypeError) Error() string {
	return fmt.Sprintf("node %s references unknown node type %q", e.NodeID, e.Type)
}

func (e *UnknownNodeTypeError) Unwrap() error {
	return ErrUnknownNodeType
}

// ConfigError reports schema validation failure for one node.
type ConfigError struct {
	NodeID string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("node %s configuration invalid: %s", e.NodeID, e.Detail)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidNodeConfig
}

// NodeExecutionError wraps an executor failure, attributing it to the node.
type NodeExecutionError struct {
	NodeID string
	Err    error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s failed: %v", e.NodeID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}

// PauseError is returned by a node executor to suspend the execution pending
// an external event. It is a control signal, not a failure.
type PauseError struct {
	Reason string
}

func (e *PauseError) Error() string {
	return fmt.Sprintf("execution paused: %s", e.Reason)
}

// IsPause reports whether an error is a pause signal.
func IsPause(err error) bool {
	var pause *PauseError

	return errors.As(err, &pause)
}

// IsCyclicGraph checks if an error indicates a cyclic graph.
func IsCyclicGraph(err error) bool {
	return errors.Is(err, ErrCyclicGraph)
}

// IsUnknownNodeType checks if an error indicates a missing executor.
func IsUnknownNodeType(err error) bool {
	return errors.Is(err, ErrUnknownNodeType)
}
