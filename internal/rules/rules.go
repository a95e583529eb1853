// Package rules evaluates user-configured triage rules before the AI
// classifier runs. A rule that matches short-circuits the model call.
package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Rule maps a boolean expression over the email to a classification.
// Expressions see `sender`, `subject` and `body` as lowercase strings.
type Rule struct {
	Name   string `mapstructure:"name" json:"name"`
	When   string `mapstructure:"when" json:"when"`
	Action string `mapstructure:"action" json:"action"`
}

// Engine compiles rule expressions once and evaluates them in order.
// First match wins.
type Engine struct {
	rules []Rule

	mu       sync.RWMutex
	programs map[string]*vm.Program
}

// NewEngine validates the rules and returns an Engine. Actions must be
// "ignore" or "notify".
func NewEngine(rules []Rule) (*Engine, error) {
	for _, r := range rules {
		if r.Action != "ignore" && r.Action != "notify" {
			return nil, fmt.Errorf("rule %q: invalid action %q", r.Name, r.Action)
		}
		if strings.TrimSpace(r.When) == "" {
			return nil, fmt.Errorf("rule %q: empty expression", r.Name)
		}
	}
	return &Engine{
		rules:    rules,
		programs: make(map[string]*vm.Program),
	}, nil
}

// Match returns the action of the first matching rule, or ok=false when no
// rule matches. Expressions that fail to compile or do not evaluate to a
// boolean return an error; the caller decides whether to fall through to
// the model.
func (e *Engine) Match(sender, subject, body string) (action string, ok bool, err error) {
	env := map[string]any{
		"sender":  strings.ToLower(sender),
		"subject": strings.ToLower(subject),
		"body":    strings.ToLower(body),
	}

	for _, r := range e.rules {
		prog, err := e.program(r.When, env)
		if err != nil {
			return "", false, fmt.Errorf("rule %q: %w", r.Name, err)
		}

		out, err := expr.Run(prog, env)
		if err != nil {
			return "", false, fmt.Errorf("rule %q: %w", r.Name, err)
		}

		matched, isBool := out.(bool)
		if !isBool {
			return "", false, fmt.Errorf("rule %q: expression evaluated to %T, want bool", r.Name, out)
		}
		if matched {
			return r.Action, true, nil
		}
	}
	return "", false, nil
}

func (e *Engine) program(expression string, env map[string]any) (*vm.Program, error) {
	e.mu.RLock()
	prog, cached := e.programs[expression]
	e.mu.RUnlock()
	if cached {
		return prog, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prog, cached = e.programs[expression]; cached {
		return prog, nil
	}

	prog, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return nil, err
	}
	e.programs[expression] = prog
	return prog, nil
}
