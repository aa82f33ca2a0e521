package spec

import (
	"errors"
	"fmt"
)

// Validation errors. Each maps to a ConfigError at load time per spec.md §7.
var (
	// ErrNoServices indicates no services were loaded.
	ErrNoServices error = errors.New("no services configured")
	// ErrEmptyServiceName indicates a service has no resolvable name.
	ErrEmptyServiceName error = errors.New("service name is required")
	// ErrEmptyCommand indicates a service has no command.
	ErrEmptyCommand error = errors.New("service command is required")
	// ErrDuplicateServiceName indicates two services share a name.
	ErrDuplicateServiceName error = errors.New("duplicate service name")
	// ErrUnresolvedDependency indicates a start_after name does not resolve.
	ErrUnresolvedDependency error = errors.New("unresolved start_after dependency")
	// ErrDependencyCycle indicates a cycle in start_after.
	ErrDependencyCycle error = errors.New("cyclic start_after dependency")
	// ErrNegativeMaxAttempts indicates a negative max_attempts, which is
	// always invalid (zero means unlimited; see SPEC_FULL.md).
	ErrNegativeMaxAttempts error = errors.New("max_attempts must not be negative")
)

// Validate checks invariants 1 and 2 of spec.md §3 across a whole service
// set: unique names, resolvable start_after references, and acyclicity.
// It does not mutate specs.
func Validate(specs []ServiceSpec) error {
	if len(specs) == 0 {
		return ErrNoServices
	}

	byName := make(map[string]*ServiceSpec, len(specs))
	for i := range specs {
		s := &specs[i]
		if s.Name == "" {
			return ErrEmptyServiceName
		}
		if s.Command == "" {
			return fmt.Errorf("service %q: %w", s.Name, ErrEmptyCommand)
		}
		if s.Restart.MaxAttempts < 0 {
			return fmt.Errorf("service %q: %w", s.Name, ErrNegativeMaxAttempts)
		}
		if _, dup := byName[s.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateServiceName, s.Name)
		}
		byName[s.Name] = s
	}

	for _, s := range specs {
		for _, dep := range s.StartAfter {
			if _, ok := byName[dep]; !ok {
				return fmt.Errorf("service %q: %w: %s", s.Name, ErrUnresolvedDependency, dep)
			}
		}
	}

	return detectCycles(byName)
}

// detectCycles runs a DFS with a three-color mark over the start_after
// graph. An edge from A to B means "A starts after B" (B must be visited
// first), matching spec.md invariant 2.
func detectCycles(byName map[string]*ServiceSpec) error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(byName))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("%w: %v -> %s", ErrDependencyCycle, path, name)
		}
		color[name] = gray
		for _, dep := range byName[name].StartAfter {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	for name := range byName {
		if color[name] == white {
			if err := visit(name, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
