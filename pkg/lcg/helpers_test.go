package lcg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testSolver is a narrow harness for exercising engine internals and
// individual propagators in isolation: it posts bound changes as if they
// were decisions, delivers the resulting notifications, and digs reasons
// back out of the trail.
type testSolver struct {
	t      *testing.T
	solver *Solver
}

func newTestSolver(t *testing.T) *testSolver {
	t.Helper()
	return &testSolver{t: t, solver: NewSolver()}
}

func (ts *testSolver) newVariable(lowerBound, upperBound int) DomainID {
	return ts.solver.NewVariable(lowerBound, upperBound)
}

// nogoodContext builds a mutable context on behalf of the nogood
// propagator.
func (ts *testSolver) nogoodContext() *PropagationContextMut {
	return NewPropagationContextMut(ts.solver.assignments, ts.solver.reasons, 0)
}

// increaseLowerBound tightens the bound without a reason (like a decision)
// and delivers the resulting notifications.
func (ts *testSolver) increaseLowerBound(d DomainID, value int) {
	ts.t.Helper()
	require.NoError(ts.t, ts.solver.assignments.TightenLowerBound(d, value, NoReason))
	ts.solver.deliverPendingEvents()
}

func (ts *testSolver) propagate() error {
	return ts.solver.propagateToFixedPoint(nil)
}

// reasonFor materialises the reason of a predicate found on the trail.
func (ts *testSolver) reasonFor(p Predicate) Conjunction {
	ts.t.Helper()
	for i := 0; i < ts.solver.assignments.NumTrailEntries(); i++ {
		entry := ts.solver.assignments.TrailEntry(i)
		if entry.Predicate == p {
			require.NotEqual(ts.t, NoReason, entry.Reason, "predicate has no reason")
			return ts.solver.reasons.Materialise(entry.Reason, ts.solver.assignments, &ts.solver.propagators)
		}
	}
	ts.t.Fatalf("predicate %v not found on the trail", p)
	return nil
}

func (ts *testSolver) assertBounds(d DomainID, lowerBound, upperBound int) {
	ts.t.Helper()
	require.Equal(ts.t, lowerBound, ts.solver.assignments.LowerBound(d), "lower bound")
	require.Equal(ts.t, upperBound, ts.solver.assignments.UpperBound(d), "upper bound")
}

// drainedEvents collects the pending event sink content of the assignments.
func drainedEvents(a *Assignments) map[EventOccurrence]bool {
	out := make(map[EventOccurrence]bool)
	for _, occurrence := range a.DrainDomainEvents() {
		out[occurrence] = true
	}
	return out
}
