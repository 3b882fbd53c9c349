package lcg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// analysisFixture builds trails by hand: decisions through the assignments,
// propagations through a context so their reasons land in the store.
type analysisFixture struct {
	t      *testing.T
	solver *Solver
	ctx    *PropagationContextMut
}

func newAnalysisFixture(t *testing.T) *analysisFixture {
	solver := NewSolver()
	return &analysisFixture{
		t:      t,
		solver: solver,
		ctx:    NewPropagationContextMut(solver.assignments, solver.reasons, 0),
	}
}

func (f *analysisFixture) decide(p Predicate) {
	f.t.Helper()
	f.solver.assignments.IncreaseDecisionLevel()
	f.solver.reasons.IncreaseDecisionLevel()
	require.NoError(f.t, f.solver.assignments.PostPredicate(p, NoReason))
}

func (f *analysisFixture) propagate(p Predicate, reason Conjunction) {
	f.t.Helper()
	require.NoError(f.t, f.ctx.PostPredicate(p, EagerReason(reason)))
}

func (f *analysisFixture) analyse(conflict Conjunction) LearnedNogood {
	return f.solver.analyser.Analyse(conflict, f.solver.assignments, f.solver.reasons, &f.solver.propagators)
}

// TestAnalyseResolvesToDecision: resolving the only current-level
// propagation leaves the decision as the UIP.
func TestAnalyseResolvesToDecision(t *testing.T) {
	f := newAnalysisFixture(t)
	x := f.solver.NewVariable(0, 10)
	y := f.solver.NewVariable(0, 10)
	z := f.solver.NewVariable(0, 10)

	f.decide(Geq(x, 5))
	f.propagate(Geq(y, 3), Conjunction{Geq(x, 5)})
	f.decide(Geq(z, 4))
	f.propagate(Geq(y, 6), Conjunction{Geq(z, 4), Geq(x, 5)})

	learned := f.analyse(Conjunction{Geq(y, 6), Geq(z, 4)})

	require.Len(t, learned.Predicates, 2)
	assert.Equal(t, Geq(z, 4), learned.Predicates[0])
	assert.Equal(t, Geq(x, 5), learned.Predicates[1])
	assert.Equal(t, 1, learned.BackjumpLevel)
}

// TestAnalyseFindsIntermediateUIP: the first unique implication point can
// be a propagated predicate rather than the decision.
func TestAnalyseFindsIntermediateUIP(t *testing.T) {
	f := newAnalysisFixture(t)
	x := f.solver.NewVariable(0, 10)
	y := f.solver.NewVariable(0, 10)
	z := f.solver.NewVariable(0, 10)
	w := f.solver.NewVariable(0, 10)

	f.decide(Geq(x, 5))
	f.decide(Geq(z, 4))
	f.propagate(Geq(w, 2), Conjunction{Geq(z, 4)})
	f.propagate(Geq(y, 6), Conjunction{Geq(w, 2), Geq(x, 5)})

	learned := f.analyse(Conjunction{Geq(y, 6), Geq(w, 2)})

	require.Len(t, learned.Predicates, 2)
	assert.Equal(t, Geq(w, 2), learned.Predicates[0])
	assert.Equal(t, Geq(x, 5), learned.Predicates[1])
	assert.Equal(t, 1, learned.BackjumpLevel)
}

// TestAnalyseDropsRootPredicates: predicates true at the root never appear
// in a learned nogood.
func TestAnalyseDropsRootPredicates(t *testing.T) {
	f := newAnalysisFixture(t)
	q := f.solver.NewVariable(0, 10)
	x := f.solver.NewVariable(0, 10)
	y := f.solver.NewVariable(0, 10)

	// A root fact.
	require.NoError(t, f.solver.assignments.PostPredicate(Geq(q, 1), NoReason))

	f.decide(Geq(x, 5))
	f.propagate(Geq(y, 6), Conjunction{Geq(x, 5), Geq(q, 1)})

	learned := f.analyse(Conjunction{Geq(y, 6), Geq(q, 1)})

	require.Len(t, learned.Predicates, 1)
	assert.Equal(t, Geq(y, 6), learned.Predicates[0])
	assert.Equal(t, 0, learned.BackjumpLevel)
}

// TestAnalyseDeduplicatesAndSubsumes: a weaker bound is subsumed by the
// dominant bound of the same kind.
func TestAnalyseDeduplicatesAndSubsumes(t *testing.T) {
	f := newAnalysisFixture(t)
	x := f.solver.NewVariable(0, 10)
	y := f.solver.NewVariable(0, 10)
	z := f.solver.NewVariable(0, 10)

	f.decide(Geq(x, 7))
	f.decide(Geq(z, 4))
	// Both propagations blame x, once strongly and once weakly.
	f.propagate(Geq(y, 3), Conjunction{Geq(x, 7), Geq(z, 4)})
	f.propagate(Geq(y, 6), Conjunction{Geq(x, 4), Geq(z, 4), Geq(y, 3)})

	learned := f.analyse(Conjunction{Geq(y, 6), Geq(z, 4)})

	// x must appear once, with the dominant bound.
	require.Len(t, learned.Predicates, 2)
	assert.Equal(t, Geq(z, 4), learned.Predicates[0])
	assert.Equal(t, Geq(x, 7), learned.Predicates[1])
	assert.Equal(t, 1, learned.BackjumpLevel)
}

// TestAnalyseUnitNogood: a conflict explained entirely at the current level
// learns a unit nogood with backjump to the root.
func TestAnalyseUnitNogood(t *testing.T) {
	f := newAnalysisFixture(t)
	x := f.solver.NewVariable(0, 10)
	y := f.solver.NewVariable(0, 10)

	f.decide(Geq(x, 5))
	f.propagate(Geq(y, 3), Conjunction{Geq(x, 5)})

	learned := f.analyse(Conjunction{Geq(y, 3)})

	require.Len(t, learned.Predicates, 1)
	assert.Equal(t, Geq(y, 3), learned.Predicates[0])
	assert.Equal(t, 0, learned.BackjumpLevel)
}
