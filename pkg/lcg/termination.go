// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// termination.go: cancellation for the search loop. Termination is
// consulted only at safe points — the top of each propagation iteration and
// before each decision — so no intermediate structure is ever left
// inconsistent by stopping.
package lcg

import "time"

// TerminationCondition tells the search loop when to give up.
type TerminationCondition interface {
	ShouldStop() bool
}

// Indefinite never stops the search.
type Indefinite struct{}

// ShouldStop implements TerminationCondition.
func (Indefinite) ShouldStop() bool { return false }

// TimeBudget stops the search once its deadline passes.
type TimeBudget struct {
	deadline time.Time
}

// NewTimeBudget creates a budget expiring after the given duration.
func NewTimeBudget(budget time.Duration) *TimeBudget {
	return &TimeBudget{deadline: time.Now().Add(budget)}
}

// ShouldStop implements TerminationCondition.
func (t *TimeBudget) ShouldStop() bool { return !time.Now().Before(t.deadline) }
