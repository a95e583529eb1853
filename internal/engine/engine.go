// Package engine implements the per-email state machine: named nodes,
// transition rules, and the two suspend points where control returns to the
// caller until a human answers.
//
// Each node is a function of the current state that selects a successor and
// patches the state. The two interrupt nodes instead expose a prompt for
// the human and a resolver that injects the answer; the suspending node is
// never re-entered on resume, only an explicit loop-back transition
// (rewrite) re-enters an earlier node. State plus a next-node pointer is
// checkpointed after every step, so a suspended workflow survives process
// restarts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// End is the terminal pseudo-node.
const End = "__end__"

// Command is a node's routing decision: which node runs next. State
// changes are applied directly to the State the node received.
type Command struct {
	Goto string
}

// Prompt is the opaque question payload surfaced to the human at a suspend
// point.
type Prompt map[string]any

// Answer is the human's decision injected on resume. Flag routes the
// workflow; Feedback, when present, becomes drafting context.
type Answer struct {
	Flag     bool
	Feedback string
}

// NodeFunc advances the state and picks the next node.
type NodeFunc func(ctx context.Context, st *State) (Command, error)

// PromptFunc builds the question payload shown while suspended.
type PromptFunc func(st *State) Prompt

// ResolveFunc injects the human's answer and picks the next node.
type ResolveFunc func(ctx context.Context, st *State, ans Answer) (Command, error)

// NodeDef describes one node. Run is set for regular nodes; interrupt
// nodes set Prompt and Resolve instead.
type NodeDef struct {
	Name    string
	Run     NodeFunc
	Prompt  PromptFunc
	Resolve ResolveFunc
}

func (n NodeDef) interrupt() bool { return n.Run == nil }

// Definition is a workflow topology: an entry node and a closed node set.
type Definition struct {
	Topology Topology
	Entry    string
	nodes    map[string]NodeDef
}

// NewDefinition validates and builds a Definition.
func NewDefinition(topology Topology, entry string, nodes ...NodeDef) (Definition, error) {
	if entry == "" {
		return Definition{}, errors.New("engine: entry node is required")
	}
	m := make(map[string]NodeDef, len(nodes))
	for _, n := range nodes {
		if n.Name == "" {
			return Definition{}, errors.New("engine: node name is required")
		}
		if n.Run == nil && (n.Prompt == nil || n.Resolve == nil) {
			return Definition{}, fmt.Errorf("engine: node %s needs Run or Prompt+Resolve", n.Name)
		}
		if n.Run != nil && (n.Prompt != nil || n.Resolve != nil) {
			return Definition{}, fmt.Errorf("engine: node %s cannot be both regular and interrupt", n.Name)
		}
		if _, dup := m[n.Name]; dup {
			return Definition{}, fmt.Errorf("engine: duplicate node %s", n.Name)
		}
		m[n.Name] = n
	}
	if _, ok := m[entry]; !ok {
		return Definition{}, fmt.Errorf("engine: entry node %s not defined", entry)
	}
	return Definition{Topology: topology, Entry: entry, nodes: m}, nil
}

// MustDefinition is NewDefinition that panics on error; topology wiring
// errors are programming mistakes.
func MustDefinition(topology Topology, entry string, nodes ...NodeDef) Definition {
	def, err := NewDefinition(topology, entry, nodes...)
	if err != nil {
		panic(err)
	}
	return def
}

// Outcome classifies how an advance ended.
type Outcome string

const (
	OutcomeSuspended Outcome = "suspended"
	OutcomeCompleted Outcome = "completed"
)

// Result is what an advance hands back to the runner.
type Result struct {
	Outcome Outcome
	// Node is the interrupt node the workflow is parked at (suspended only).
	Node string
	// Prompt is the question payload for the human (suspended only).
	Prompt Prompt
	// State is the state after the advance.
	State *State
}

// Checkpoint is the snapshot taken at every step boundary: the node to run
// next plus the serialized state.
type Checkpoint struct {
	Node    string    `json:"node"`
	State   State     `json:"state"`
	SavedAt time.Time `json:"saved_at"`
}

// Checkpointer durably stores one checkpoint per key. Keys are never
// shared across workflows. Implementations live in internal/checkpoint.
type Checkpointer interface {
	Save(ctx context.Context, key string, cp Checkpoint) error
	Load(ctx context.Context, key string) (Checkpoint, error)
	Delete(ctx context.Context, key string) error
}

// Engine advances workflow executions until completion or a suspend point.
type Engine struct {
	checkpoints Checkpointer
	logger      *slog.Logger
}

// New creates an Engine. logger may be nil.
func New(checkpoints Checkpointer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{checkpoints: checkpoints, logger: logger}
}

// Start runs a fresh workflow from the definition's entry node. key is the
// checkpointer session key for this workflow.
func (e *Engine) Start(ctx context.Context, def Definition, key string, st *State) (Result, error) {
	return e.advance(ctx, def, key, def.Entry, st)
}

// Resume reconstructs a suspended workflow from its checkpoint, injects the
// human's answer through the parked interrupt node's resolver, and
// continues from the node the resolver selects.
func (e *Engine) Resume(ctx context.Context, def Definition, key string, ans Answer) (Result, error) {
	cp, err := e.checkpoints.Load(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("engine: loading checkpoint %s: %w", key, err)
	}

	node, ok := def.nodes[cp.Node]
	if !ok || !node.interrupt() {
		return Result{}, fmt.Errorf("engine: checkpoint %s parked at non-interrupt node %q", key, cp.Node)
	}

	st := cp.State
	cmd, err := node.Resolve(ctx, &st, ans)
	if err != nil {
		_ = e.checkpoints.Delete(ctx, key)
		return Result{State: &st}, e.stepError(st.WorkflowID, node.Name, err)
	}

	return e.advance(ctx, def, key, cmd.Goto, &st)
}

// advance executes nodes until End or an interrupt node, checkpointing
// after every step.
func (e *Engine) advance(ctx context.Context, def Definition, key, from string, st *State) (Result, error) {
	current := from
	for {
		if current == End {
			_ = e.checkpoints.Delete(ctx, key)
			return Result{Outcome: OutcomeCompleted, State: st}, nil
		}

		node, ok := def.nodes[current]
		if !ok {
			_ = e.checkpoints.Delete(ctx, key)
			return Result{State: st}, e.stepError(st.WorkflowID, current, fmt.Errorf("unknown node %q", current))
		}

		if node.interrupt() {
			if err := e.saveCheckpoint(ctx, key, current, st); err != nil {
				return Result{State: st}, err
			}
			return Result{
				Outcome: OutcomeSuspended,
				Node:    current,
				Prompt:  node.Prompt(st),
				State:   st,
			}, nil
		}

		select {
		case <-ctx.Done():
			_ = e.checkpoints.Delete(ctx, key)
			return Result{State: st}, e.stepError(st.WorkflowID, current, ctx.Err())
		default:
		}

		start := time.Now()
		cmd, err := node.Run(ctx, st)
		e.logger.DebugContext(ctx, "node_completed",
			slog.String("workflow_id", st.WorkflowID),
			slog.String("node", current),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("failed", err != nil),
		)
		if err != nil {
			_ = e.checkpoints.Delete(ctx, key)
			return Result{State: st}, e.stepError(st.WorkflowID, current, err)
		}

		if err := e.saveCheckpoint(ctx, key, cmd.Goto, st); err != nil {
			return Result{State: st}, err
		}
		current = cmd.Goto
	}
}

func (e *Engine) saveCheckpoint(ctx context.Context, key, node string, st *State) error {
	cp := Checkpoint{Node: node, State: *st, SavedAt: time.Now()}
	if err := e.checkpoints.Save(ctx, key, cp); err != nil {
		return fmt.Errorf("engine: saving checkpoint %s: %w", key, err)
	}
	return nil
}

// stepError wraps node failures, keeping contract violations recognizable.
func (e *Engine) stepError(workflowID, node string, err error) error {
	var cv *ContractViolationError
	if errors.As(err, &cv) {
		return err
	}
	return &StepError{Workflow: workflowID, Node: node, Err: err}
}
