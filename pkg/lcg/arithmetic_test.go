package lcg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearLessEqualFiltersUpperBounds(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(0, 10)
	y := ts.newVariable(0, 10)

	// x + 2y <= 11
	require.NoError(t, ts.solver.AddPropagator(LinearLessEqual([]DomainID{x, y}, []int{1, 2}, 11)))

	// Root filtering: minima are 0, so x <= 11 (vacuous) and 2y <= 11,
	// i.e. y <= 5.
	ts.assertBounds(x, 0, 10)
	ts.assertBounds(y, 0, 5)

	ts.increaseLowerBound(y, 4)
	require.NoError(t, ts.propagate())

	// With 2y >= 8, x <= 3.
	ts.assertBounds(x, 0, 3)

	reason := ts.reasonFor(Leq(x, 3))
	assert.True(t, reason.Equal(Conjunction{Geq(y, 4)}),
		"the cap on x is justified by y's minimum, got %v", reason)
}

func TestLinearLessEqualConflict(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(0, 10)
	y := ts.newVariable(0, 10)

	require.NoError(t, ts.solver.AddPropagator(LinearLessEqual([]DomainID{x, y}, []int{1, 1}, 6)))

	ts.increaseLowerBound(x, 4)
	require.NoError(t, ts.propagate())
	ts.assertBounds(y, 0, 2)

	ts.increaseLowerBound(y, 1)
	ts.increaseLowerBound(x, 6)

	err := ts.propagate()
	require.Error(t, err)
}

func TestLinearLessEqualDetectInconsistency(t *testing.T) {
	a := NewAssignments()
	x := a.Grow(3, 10)
	y := a.Grow(5, 10)

	p := &LinearLessEqualPropagator{
		terms: []PropagatorVar{identityView(x), identityView(y)},
		bound: 7,
	}

	conflict := p.DetectInconsistency(NewPropagationContext(a))
	require.NotNil(t, conflict)
	assert.True(t, Conjunction(conflict).Equal(Conjunction{Geq(x, 3), Geq(y, 5)}))

	p.bound = 8
	assert.Nil(t, p.DetectInconsistency(NewPropagationContext(a)))
}

func TestLinearLessEqualRootInfeasible(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(5, 10)
	y := ts.newVariable(5, 10)

	err := ts.solver.AddPropagator(LinearLessEqual([]DomainID{x, y}, []int{1, 1}, 4))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfeasibleState)

	// The infeasible state is sticky.
	result := ts.solver.Solve(nil, nil)
	assert.Equal(t, StatusInfeasible, result.Status)
}

func TestNotEqualRemovesAssignedValue(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(1, 5)
	y := ts.newVariable(1, 5)

	require.NoError(t, ts.solver.AddPropagator(NotEqual(x, y, 0)))

	require.NoError(t, ts.solver.assignments.MakeAssignment(x, 3, NoReason))
	ts.solver.deliverPendingEvents()
	require.NoError(t, ts.propagate())

	assert.False(t, ts.solver.assignments.IsValueInDomain(y, 3))
	reason := ts.reasonFor(Neq(y, 3))
	assert.True(t, reason.Equal(Conjunction{Eq(x, 3)}))
}

func TestNotEqualWithOffset(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(1, 5)
	y := ts.newVariable(1, 5)

	// x + 2 != y
	require.NoError(t, ts.solver.AddPropagator(NotEqual(x, y, 2)))

	require.NoError(t, ts.solver.assignments.MakeAssignment(x, 1, NoReason))
	ts.solver.deliverPendingEvents()
	require.NoError(t, ts.propagate())

	assert.False(t, ts.solver.assignments.IsValueInDomain(y, 3))
	assert.True(t, ts.solver.assignments.IsValueInDomain(y, 1))
}
