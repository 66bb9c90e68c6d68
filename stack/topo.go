package stack

import (
	"fmt"
	"sort"
)

// ValidateGraph checks a set of descriptors as a whole without touching
// an engine: per-descriptor validity, duplicate names, unresolved
// depends_on targets, and dependency cycles. Up runs the same checks
// before deploying; this is the standalone form for pre-flight
// validation of a stack definition.
func ValidateGraph(services []*Service) error {
	deps := make(map[string][]string, len(services))
	for _, svc := range services {
		if err := svc.Validate(); err != nil {
			return err
		}
		if _, exists := deps[svc.name]; exists {
			return &DuplicateServiceError{Service: svc.name}
		}
		deps[svc.name] = svc.dependsOn
	}
	for _, svc := range services {
		for _, dep := range svc.dependsOn {
			if _, ok := deps[dep]; !ok {
				return &ValidationError{
					Service: svc.name,
					Reason:  fmt.Sprintf("depends on %q, which is not defined", dep),
				}
			}
		}
	}
	_, err := startupWaves(deps)
	return err
}

// startupWaves computes the dependency-respecting startup order for the
// given services using Kahn's algorithm. Instead of a flat order it
// returns "waves": each wave holds the services whose dependencies are
// all satisfied by earlier waves, so members of one wave are eligible to
// start concurrently.
//
// deps maps service name to its depends_on targets; every target must be
// a key of deps (callers resolve references beforehand). Within a wave,
// names are sorted so scheduling and diagnostics are deterministic.
//
// Returns a *CyclicDependencyError naming the participating services when
// the relation contains a cycle.
func startupWaves(deps map[string][]string) ([][]string, error) {
	if len(deps) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(deps))
	dependants := make(map[string][]string, len(deps))
	for name, targets := range deps {
		inDegree[name] += 0
		for _, dep := range targets {
			inDegree[name]++
			dependants[dep] = append(dependants[dep], name)
		}
	}

	// Seed the first wave with every service that has no dependencies.
	wave := make([]string, 0, len(deps))
	for name, degree := range inDegree {
		if degree == 0 {
			wave = append(wave, name)
		}
	}

	var waves [][]string
	resolved := 0
	for len(wave) > 0 {
		sort.Strings(wave)
		waves = append(waves, wave)
		resolved += len(wave)

		var next []string
		for _, name := range wave {
			for _, dependant := range dependants[name] {
				inDegree[dependant]--
				if inDegree[dependant] == 0 {
					next = append(next, dependant)
				}
			}
		}
		wave = next
	}

	// Any service never reaching in-degree zero sits on a cycle (or
	// depends, transitively, on one). Name them all for the error.
	if resolved != len(deps) {
		var remaining []string
		for name, degree := range inDegree {
			if degree > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, &CyclicDependencyError{Services: remaining}
	}

	return waves, nil
}
