package lcg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNogoodTernaryPropagation: with nogood {a>=2, b>=1, c>=10} and two of
// the three predicates satisfied, the propagator must falsify the third,
// and the lazy reason must be exactly the other two.
func TestNogoodTernaryPropagation(t *testing.T) {
	ts := newTestSolver(t)
	a := ts.newVariable(1, 3)
	b := ts.newVariable(-4, 4)
	c := ts.newVariable(-10, 20)

	require.NoError(t, ts.solver.nogoods.AddNogood(
		[]Predicate{Geq(a, 2), Geq(b, 1), Geq(c, 10)}, ts.nogoodContext()))

	ts.increaseLowerBound(a, 3)
	ts.increaseLowerBound(b, 0)
	require.NoError(t, ts.propagate())

	ts.increaseLowerBound(c, 15)
	require.NoError(t, ts.propagate())

	assert.Equal(t, 0, ts.solver.assignments.UpperBound(b))

	reason := ts.reasonFor(Leq(b, 0))
	assert.True(t, reason.Equal(Conjunction{Geq(a, 2), Geq(c, 10)}),
		"lazy reason must be the nogood tail, got %v", reason)
}

// TestNogoodConflict: all three predicates satisfied surfaces a conflict.
func TestNogoodConflict(t *testing.T) {
	ts := newTestSolver(t)
	a := ts.newVariable(1, 3)
	b := ts.newVariable(-4, 4)
	c := ts.newVariable(-10, 20)

	require.NoError(t, ts.solver.nogoods.AddNogood(
		[]Predicate{Geq(a, 2), Geq(b, 1), Geq(c, 10)}, ts.nogoodContext()))

	ts.increaseLowerBound(a, 3)
	ts.increaseLowerBound(b, 1)
	ts.increaseLowerBound(c, 15)

	err := ts.propagate()
	require.Error(t, err)
	conflict, ok := AsConflict(err)
	require.True(t, ok)
	assert.True(t, conflict.Conjunction.Equal(Conjunction{Geq(a, 2), Geq(b, 1), Geq(c, 10)}))
}

// TestUnitNogoodPostsRootFact: a unit nogood is not stored; its negation
// becomes a root fact.
func TestUnitNogoodPostsRootFact(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(1, 10)

	require.NoError(t, ts.solver.nogoods.AddNogood([]Predicate{Geq(x, 6)}, ts.nogoodContext()))

	assert.Equal(t, 5, ts.solver.assignments.UpperBound(x))
	assert.Zero(t, ts.solver.nogoods.NumNogoods())
}

// TestRootFalsifiedUnitNogoodIsInfeasible: adding a unit nogood whose
// predicate already holds at the root, so the nogood is violated there,
// drives the propagator into its sticky infeasible state.
func TestRootFalsifiedUnitNogoodIsInfeasible(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(1, 10)

	require.NoError(t, ts.solver.nogoods.AddNogood([]Predicate{Geq(x, 6)}, ts.nogoodContext()))
	// x <= 5 now holds, so the nogood {x <= 5} is already violated.
	err := ts.solver.nogoods.AddNogood([]Predicate{Leq(x, 5)}, ts.nogoodContext())
	assert.ErrorIs(t, err, ErrInfeasibleNogood)
	assert.True(t, ts.solver.nogoods.IsInfeasible())

	// Any further addition fails with the sticky state.
	err = ts.solver.nogoods.AddNogood([]Predicate{Geq(x, 2)}, ts.nogoodContext())
	assert.ErrorIs(t, err, ErrInfeasibleState)
}

// TestNogoodPreprocessing: root-satisfied predicates are dropped and
// dominated bounds merged before the nogood is stored.
func TestNogoodPreprocessing(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(3, 10)
	y := ts.newVariable(0, 5)

	// [x >= 2] already holds at the root, so only {y >= 4, y <= 4} remains,
	// which merges into the unit {y == 4}; its negation becomes a root
	// fact.
	require.NoError(t, ts.solver.nogoods.AddNogood(
		[]Predicate{Geq(x, 2), Geq(y, 4), Leq(y, 4)}, ts.nogoodContext()))

	assert.Zero(t, ts.solver.nogoods.NumNogoods())
	assert.False(t, ts.solver.assignments.IsValueInDomain(y, 4))
}

// TestNogoodWatchInvariant: after the propagator settles, the first two
// predicates of every live nogood are watched.
func TestNogoodWatchInvariant(t *testing.T) {
	ts := newTestSolver(t)
	a := ts.newVariable(1, 3)
	b := ts.newVariable(-4, 4)
	c := ts.newVariable(-10, 20)

	require.NoError(t, ts.solver.nogoods.AddNogood(
		[]Predicate{Geq(a, 2), Geq(b, 1), Geq(c, 10)}, ts.nogoodContext()))
	require.NoError(t, ts.solver.nogoods.AddNogood(
		[]Predicate{Neq(a, 1), Leq(b, -2), Geq(c, 0)}, ts.nogoodContext()))
	require.True(t, ts.solver.nogoods.debugIsProperlyWatched())

	ts.increaseLowerBound(a, 2)
	require.NoError(t, ts.propagate())
	require.True(t, ts.solver.nogoods.debugIsProperlyWatched())

	ts.increaseLowerBound(c, 12)
	require.NoError(t, ts.propagate())
	assert.True(t, ts.solver.nogoods.debugIsProperlyWatched())
}

// TestAddAssertingNogood: installing a learned nogood propagates the
// negation of its first predicate with the nogood as lazy reason.
func TestAddAssertingNogood(t *testing.T) {
	ts := newTestSolver(t)
	a := ts.newVariable(1, 3)
	b := ts.newVariable(-4, 4)

	ts.solver.assignments.IncreaseDecisionLevel()
	ts.solver.reasons.IncreaseDecisionLevel()
	ts.increaseLowerBound(b, 2)
	require.NoError(t, ts.propagate())

	learned := []Predicate{Geq(a, 2), Geq(b, 2)}
	ts.solver.nogoods.AddAssertingNogood(learned, ts.nogoodContext())

	// The asserting predicate is falsified by propagation.
	assert.True(t, ts.solver.assignments.IsPredicateFalsified(Geq(a, 2)))
	assert.Equal(t, 1, ts.solver.assignments.UpperBound(a))

	// The lazy explanation is the tail of the nogood.
	reason := ts.reasonFor(Leq(a, 1))
	assert.True(t, reason.Equal(Conjunction{Geq(b, 2)}))

	assert.Equal(t, 1, ts.solver.nogoods.NumLearnedNogoods())
	assert.True(t, ts.solver.nogoods.debugIsProperlyWatched())
}

// TestNogoodHoleWatcher: a disequality watcher triggered by a removal event
// keeps its list slot, with an updated right-hand side, when the
// replacement watch is another disequality on the same domain.
func TestNogoodHoleWatcher(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(1, 10)

	require.NoError(t, ts.solver.nogoods.AddNogood(
		[]Predicate{Neq(x, 3), Neq(x, 5), Neq(x, 7)}, ts.nogoodContext()))

	// Removing 3 satisfies the first watched predicate; the replacement
	// watch [x != 7] reuses the triggered watcher's slot in the hole list.
	require.NoError(t, ts.solver.assignments.RemoveValue(x, 3, NoReason))
	ts.solver.deliverPendingEvents()
	require.NoError(t, ts.propagate())

	require.True(t, ts.solver.nogoods.debugIsProperlyWatched())

	// Removing 7 as well leaves {x != 5} as the only free predicate: it is
	// falsified, fixing x to 5.
	require.NoError(t, ts.solver.assignments.RemoveValue(x, 7, NoReason))
	ts.solver.deliverPendingEvents()
	require.NoError(t, ts.propagate())

	value, ok := ts.solver.assignments.AssignedValue(x)
	require.True(t, ok)
	assert.Equal(t, 5, value)

	reason := ts.reasonFor(Geq(x, 5))
	assert.True(t, reason.Equal(Conjunction{Neq(x, 3), Neq(x, 7)}))
}

// TestNogoodCleanup: exceeding the high-LBD limit halves the group,
// skipping protected nogoods and recycling the deleted ids.
func TestNogoodCleanup(t *testing.T) {
	options := DefaultLearningOptions()
	options.LimitNumHighLBDNogoods = 2
	solver := NewSolver(WithLearningOptions(options))
	ng := solver.nogoods

	variables := make([]DomainID, 8)
	for i := range variables {
		variables[i] = solver.NewVariable(0, 100)
	}

	ctx := NewPropagationContextMut(solver.assignments, solver.reasons, 0)

	// Three learned nogoods over distinct variables, artificially rated
	// with high LBD so they land in the high group.
	for i := 0; i < 3; i++ {
		first, second := variables[2*i], variables[2*i+1]
		solver.assignments.IncreaseDecisionLevel()
		solver.reasons.IncreaseDecisionLevel()
		require.NoError(t, solver.assignments.TightenLowerBound(second, 10, NoReason))
		ng.AddAssertingNogood([]Predicate{Geq(first, 50), Geq(second, 10)}, ctx)
		solver.assignments.Synchronise(0)
		solver.reasons.Synchronise(0)
		solver.assignments.DrainDomainEvents()
	}
	// Rate them manually: id 0 is the poorest but protected.
	ng.highLBD = append(ng.highLBD[:0], 0, 1, 2)
	ng.lowLBD = ng.lowLBD[:0]
	ng.nogoods[0].lbd = 9
	ng.nogoods[0].isProtected = true
	ng.nogoods[1].lbd = 8
	ng.nogoods[2].lbd = 7

	read := NewPropagationContext(solver.assignments)
	ng.cleanUpLearnedNogoodsIfNeeded(read)

	// The protected nogood is spared but loses its protection; deletion
	// moves on to the next-poorest two.
	assert.False(t, ng.nogoods[0].isDeleted)
	assert.False(t, ng.nogoods[0].isProtected)
	assert.True(t, ng.nogoods[1].isDeleted)
	assert.True(t, ng.nogoods[2].isDeleted)
	assert.ElementsMatch(t, []NogoodID{1, 2}, ng.deleteIDs)
	assert.Len(t, ng.highLBD, 1)
	assert.True(t, ng.debugIsProperlyWatched())

	// A recycled id is reused for the next nogood.
	solver.assignments.IncreaseDecisionLevel()
	solver.reasons.IncreaseDecisionLevel()
	require.NoError(t, solver.assignments.TightenLowerBound(variables[7], 10, NoReason))
	ng.AddAssertingNogood([]Predicate{Geq(variables[6], 50), Geq(variables[7], 10)}, ctx)
	assert.Len(t, ng.deleteIDs, 1)
}

// TestNogoodPromotion: a high-LBD nogood whose LBD has improved to the
// threshold or below is promoted instead of deleted.
func TestNogoodPromotion(t *testing.T) {
	options := DefaultLearningOptions()
	options.LimitNumHighLBDNogoods = 1
	solver := NewSolver(WithLearningOptions(options))
	ng := solver.nogoods

	x := solver.NewVariable(0, 100)
	y := solver.NewVariable(0, 100)
	z := solver.NewVariable(0, 100)
	w := solver.NewVariable(0, 100)

	ctx := NewPropagationContextMut(solver.assignments, solver.reasons, 0)
	for _, pair := range [][2]DomainID{{x, y}, {z, w}} {
		solver.assignments.IncreaseDecisionLevel()
		solver.reasons.IncreaseDecisionLevel()
		require.NoError(t, solver.assignments.TightenLowerBound(pair[1], 10, NoReason))
		ng.AddAssertingNogood([]Predicate{Geq(pair[0], 50), Geq(pair[1], 10)}, ctx)
		solver.assignments.Synchronise(0)
		solver.reasons.Synchronise(0)
		solver.assignments.DrainDomainEvents()
	}
	ng.highLBD = append(ng.highLBD[:0], 0, 1)
	ng.lowLBD = ng.lowLBD[:0]
	ng.nogoods[0].lbd = ng.options.LBDThreshold // improved: promote
	ng.nogoods[1].lbd = 9

	read := NewPropagationContext(solver.assignments)
	ng.cleanUpLearnedNogoodsIfNeeded(read)

	assert.False(t, ng.nogoods[0].isDeleted)
	assert.Contains(t, ng.lowLBD, NogoodID(0))
	assert.NotContains(t, ng.highLBD, NogoodID(0))
}

// TestPreprocessIdempotence: preprocessing a preprocessed nogood is the
// identity.
func TestPreprocessIdempotence(t *testing.T) {
	ts := newTestSolver(t)
	x := ts.newVariable(1, 10)
	y := ts.newVariable(0, 5)

	ctx := ts.nogoodContext()
	input := []Predicate{Geq(x, 3), Geq(x, 5), Neq(y, 2), Geq(x, 0)}
	once := ts.solver.nogoods.preprocessNogood(append([]Predicate(nil), input...), ctx)
	twice := ts.solver.nogoods.preprocessNogood(append([]Predicate(nil), once...), ctx)
	assert.Equal(t, once, twice)
}
