package step

import (
	"fmt"
	"strings"
)

// Registry holds the fixed, ordered list of steps for one provisioning run.
type Registry struct {
	steps []Step
}

// NewRegistry validates and copies steps into a registry. The order of steps
// is the execution order.
func NewRegistry(steps ...Step) (*Registry, error) {
	if len(steps) == 0 {
		return nil, &ConfigError{Reason: "at least one step is required"}
	}
	for idx, s := range steps {
		if strings.TrimSpace(s.Name) == "" {
			return nil, &ConfigError{Reason: fmt.Sprintf("step[%d]: name is required", idx)}
		}
		if s.Run == nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("step[%d] %s: operation is required", idx, s.Name)}
		}
		if s.Options.Attempts < 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("step[%d] %s: attempts must be >= 0", idx, s.Name)}
		}
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return &Registry{steps: out}, nil
}

// MustRegistry panics if the registry cannot be built.
func MustRegistry(steps ...Step) *Registry {
	reg, err := NewRegistry(steps...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Len reports the number of steps.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.steps)
}

// Steps returns a copy of the ordered steps.
func (r *Registry) Steps() []Step {
	if r == nil {
		return nil
	}
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Names returns step names in execution order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.Name
	}
	return names
}
