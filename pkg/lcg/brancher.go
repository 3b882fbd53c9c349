// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// brancher.go: the branching contract the search loop consumes, and the
// default implementations shipped with the engine. The engine treats
// decisions as opaque predicates; everything about how they are chosen
// lives behind the Brancher interface.
package lcg

// SelectionContext gives selectors read access to the current domains.
type SelectionContext struct {
	assignments *Assignments
}

// NewSelectionContext wraps the assignments for selection queries.
func NewSelectionContext(assignments *Assignments) *SelectionContext {
	return &SelectionContext{assignments: assignments}
}

// LowerBound returns the variable's current lower bound.
func (c *SelectionContext) LowerBound(d DomainID) int { return c.assignments.LowerBound(d) }

// UpperBound returns the variable's current upper bound.
func (c *SelectionContext) UpperBound(d DomainID) int { return c.assignments.UpperBound(d) }

// IsFixed reports whether the variable's domain is a singleton.
func (c *SelectionContext) IsFixed(d DomainID) bool { return c.assignments.IsAssigned(d) }

// DomainSize returns the width of the variable's interval, disregarding
// holes.
func (c *SelectionContext) DomainSize(d DomainID) int {
	return c.assignments.UpperBound(d) - c.assignments.LowerBound(d) + 1
}

// Brancher chooses the next decision predicate and observes search events
// for its own bookkeeping.
type Brancher interface {
	// NextDecision returns the next decision predicate, or false when every
	// variable the brancher tracks is fixed.
	NextDecision(ctx *SelectionContext) (Predicate, bool)
	// OnConflict is called once per analysed conflict.
	OnConflict()
	// OnUnassign is called for every variable unfixed by backtracking,
	// with the value it lost.
	OnUnassign(d DomainID, value int)
	// OnSolution is called with every solution found.
	OnSolution(solution Solution)
}

// VariableSelector picks the next unfixed variable to branch on.
type VariableSelector interface {
	SelectVariable(ctx *SelectionContext) (DomainID, bool)
}

// ValueSelector picks the decision predicate for a chosen variable.
type ValueSelector interface {
	SelectValue(ctx *SelectionContext, d DomainID) Predicate
}

// InputOrder selects the first unfixed variable in the given order.
type InputOrder struct {
	Variables []DomainID
}

// SelectVariable implements VariableSelector.
func (s *InputOrder) SelectVariable(ctx *SelectionContext) (DomainID, bool) {
	for _, d := range s.Variables {
		if !ctx.IsFixed(d) {
			return d, true
		}
	}
	return 0, false
}

// InDomainMin branches on the variable's smallest remaining value.
type InDomainMin struct{}

// SelectValue implements ValueSelector.
func (InDomainMin) SelectValue(ctx *SelectionContext, d DomainID) Predicate {
	return Eq(d, ctx.LowerBound(d))
}

// InDomainMax branches on the variable's largest remaining value.
type InDomainMax struct{}

// SelectValue implements ValueSelector.
func (InDomainMax) SelectValue(ctx *SelectionContext, d DomainID) Predicate {
	return Eq(d, ctx.UpperBound(d))
}

// ReverseInDomainSplit splits the domain in half, based on the bounds and
// disregarding holes, and removes the lower half. The split is therefore
// not necessarily equal when the domain has holes.
type ReverseInDomainSplit struct{}

// SelectValue implements ValueSelector. The selected variable always has at
// least two values, so the bound strictly exceeds the lower bound.
func (ReverseInDomainSplit) SelectValue(ctx *SelectionContext, d DomainID) Predicate {
	bound := ctx.LowerBound(d) + (ctx.DomainSize(d)+1)/2
	debugAssert(bound > ctx.LowerBound(d) && bound <= ctx.UpperBound(d),
		"split bound must fall inside the domain")
	return Geq(d, bound)
}

// IndependentVariableValueBrancher combines a variable selector and a value
// selector that operate independently of one another.
type IndependentVariableValueBrancher struct {
	VariableSelector VariableSelector
	ValueSelector    ValueSelector
}

// NewIndependentVariableValueBrancher pairs the two selectors.
func NewIndependentVariableValueBrancher(variables VariableSelector, values ValueSelector) *IndependentVariableValueBrancher {
	return &IndependentVariableValueBrancher{VariableSelector: variables, ValueSelector: values}
}

// NextDecision implements Brancher: select a variable, then a value for it.
func (b *IndependentVariableValueBrancher) NextDecision(ctx *SelectionContext) (Predicate, bool) {
	d, ok := b.VariableSelector.SelectVariable(ctx)
	if !ok {
		return Predicate{}, false
	}
	return b.ValueSelector.SelectValue(ctx, d), true
}

// OnConflict implements Brancher.
func (b *IndependentVariableValueBrancher) OnConflict() {}

// OnUnassign implements Brancher.
func (b *IndependentVariableValueBrancher) OnUnassign(DomainID, int) {}

// OnSolution implements Brancher.
func (b *IndependentVariableValueBrancher) OnSolution(Solution) {}
