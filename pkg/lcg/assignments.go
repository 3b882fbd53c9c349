// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// assignments.go: the aggregate of all integer domains, the trail, and the
// event sink. Assignments is the single authority on variable state:
// propagators and the search loop change domains exclusively by posting
// predicates here, and every change lands on the trail with its provenance.
//
// By convention domain id 0 is a dummy variable fixed to 1; it backs the
// trivially true and trivially false predicates so that constant truth
// values need no special casing anywhere else in the engine.
package lcg

// UnfixedVariable reports a variable that was fixed before a backtrack and
// is no longer fixed after it, together with the value it had. The
// branching layer uses these for its own bookkeeping.
type UnfixedVariable struct {
	Domain DomainID
	Value  int
}

// Assignments owns every domain, the trail, and the event sink.
type Assignments struct {
	trail   trail
	domains []*integerDomain
	events  *EventSink
}

// NewAssignments creates an empty store holding only the dummy variable.
func NewAssignments() *Assignments {
	a := &Assignments{events: NewEventSink(0)}
	dummy := a.Grow(1, 1)
	debugAssert(dummy == 0, "dummy variable must have id 0")
	return a
}

// Grow registers a new integer variable with the given initial closed
// interval and returns its id.
func (a *Assignments) Grow(lowerBound, upperBound int) DomainID {
	id := DomainID(len(a.domains))
	a.domains = append(a.domains, newIntegerDomain(lowerBound, upperBound, id))
	a.events.Grow()
	return id
}

// NumDomains returns the number of registered domains, the dummy included.
func (a *Assignments) NumDomains() int { return len(a.domains) }

// Domains calls fn for every real (non-dummy) domain id in creation order.
func (a *Assignments) Domains(fn func(DomainID)) {
	for id := 1; id < len(a.domains); id++ {
		fn(DomainID(id))
	}
}

// DecisionLevel returns the current depth in the search tree.
func (a *Assignments) DecisionLevel() int { return a.trail.decisionLevel() }

// IncreaseDecisionLevel opens a new decision level.
func (a *Assignments) IncreaseDecisionLevel() { a.trail.increaseDecisionLevel() }

// NumTrailEntries returns the length of the trail.
func (a *Assignments) NumTrailEntries() int { return a.trail.len() }

// TrailEntry returns the entry at the given trail position.
func (a *Assignments) TrailEntry(position int) TrailEntry { return a.trail.entry(position) }

// LastTrailEntry returns the most recent trail entry.
func (a *Assignments) LastTrailEntry() TrailEntry { return a.trail.last() }

// DrainDomainEvents yields every (event, domain) pair accumulated since the
// last drain, each exactly once, and clears the sink.
func (a *Assignments) DrainDomainEvents() []EventOccurrence { return a.events.Drain() }

// LowerBound returns the current lower bound of the domain.
func (a *Assignments) LowerBound(d DomainID) int { return a.domains[d].lowerBound() }

// UpperBound returns the current upper bound of the domain.
func (a *Assignments) UpperBound(d DomainID) int { return a.domains[d].upperBound() }

// InitialLowerBound returns the lower bound the domain was created with.
func (a *Assignments) InitialLowerBound(d DomainID) int { return a.domains[d].initialLowerBound() }

// InitialUpperBound returns the upper bound the domain was created with.
func (a *Assignments) InitialUpperBound(d DomainID) int { return a.domains[d].initialUpperBound() }

// LowerBoundAtTrailPosition returns the lower bound as it was at tp.
func (a *Assignments) LowerBoundAtTrailPosition(d DomainID, tp int) int {
	return a.domains[d].lowerBoundAtTrailPosition(tp)
}

// UpperBoundAtTrailPosition returns the upper bound as it was at tp.
func (a *Assignments) UpperBoundAtTrailPosition(d DomainID, tp int) int {
	return a.domains[d].upperBoundAtTrailPosition(tp)
}

// IsValueInDomain reports whether the value is currently in the domain.
func (a *Assignments) IsValueInDomain(d DomainID, value int) bool {
	return a.domains[d].contains(value)
}

// IsValueInDomainAtTrailPosition reports membership as it was at tp.
func (a *Assignments) IsValueInDomainAtTrailPosition(d DomainID, value, tp int) bool {
	return a.domains[d].containsAtTrailPosition(value, tp)
}

// IsAssigned reports whether the domain holds a single value.
func (a *Assignments) IsAssigned(d DomainID) bool {
	return a.LowerBound(d) == a.UpperBound(d)
}

// AssignedValue returns the domain's value when it is fixed.
func (a *Assignments) AssignedValue(d DomainID) (int, bool) {
	if a.IsAssigned(d) {
		return a.LowerBound(d), true
	}
	return 0, false
}

// IterateDomain calls fn for each value currently in the domain, ascending.
func (a *Assignments) IterateDomain(d DomainID, fn func(value int)) {
	a.domains[d].iterate(fn)
}

// InitialHoles returns the values removed from the domain at the root.
func (a *Assignments) InitialHoles(d DomainID) []int { return a.domains[d].initialHoles() }

// TrailPosition returns the trail position at which the predicate became
// true. The predicate need not be explicitly on the trail: if [x >= 10] is
// on the trail, the same position answers for [x >= 6].
func (a *Assignments) TrailPosition(p Predicate) (int, bool) {
	info, ok := a.domains[p.Domain].getUpdateInfo(p)
	return info.trailPosition, ok
}

// DecisionLevelForPredicate returns the decision level at which the
// predicate became true.
func (a *Assignments) DecisionLevelForPredicate(p Predicate) (int, bool) {
	info, ok := a.domains[p.Domain].getUpdateInfo(p)
	return info.decisionLevel, ok
}

// UpdateInfoForPredicate returns both the decision level and trail position
// at which the predicate became true.
func (a *Assignments) UpdateInfoForPredicate(p Predicate) (decisionLevel, trailPosition int, ok bool) {
	info, ok := a.domains[p.Domain].getUpdateInfo(p)
	return info.decisionLevel, info.trailPosition, ok
}

// TightenLowerBound posts [d >= newLowerBound]. Weaker bounds are ignored.
// Old bounds are captured before the trail push; the trail position is the
// pre-push length.
func (a *Assignments) TightenLowerBound(d DomainID, newLowerBound int, reason ReasonRef) error {
	if newLowerBound <= a.LowerBound(d) {
		return a.domains[d].verifyConsistency()
	}

	entry := TrailEntry{
		Predicate:     Geq(d, newLowerBound),
		OldLowerBound: a.LowerBound(d),
		OldUpperBound: a.UpperBound(d),
		Reason:        reason,
	}
	trailPosition := a.trail.len()
	a.trail.push(entry)

	a.domains[d].setLowerBound(newLowerBound, a.DecisionLevel(), trailPosition, a.events)
	return a.domains[d].verifyConsistency()
}

// TightenUpperBound posts [d <= newUpperBound]; symmetric to
// TightenLowerBound.
func (a *Assignments) TightenUpperBound(d DomainID, newUpperBound int, reason ReasonRef) error {
	if newUpperBound >= a.UpperBound(d) {
		return a.domains[d].verifyConsistency()
	}

	entry := TrailEntry{
		Predicate:     Leq(d, newUpperBound),
		OldLowerBound: a.LowerBound(d),
		OldUpperBound: a.UpperBound(d),
		Reason:        reason,
	}
	trailPosition := a.trail.len()
	a.trail.push(entry)

	a.domains[d].setUpperBound(newUpperBound, a.DecisionLevel(), trailPosition, a.events)
	return a.domains[d].verifyConsistency()
}

// RemoveValue posts [d != value]. Values already outside the domain are
// ignored.
func (a *Assignments) RemoveValue(d DomainID, value int, reason ReasonRef) error {
	if !a.domains[d].contains(value) {
		return a.domains[d].verifyConsistency()
	}

	entry := TrailEntry{
		Predicate:     Neq(d, value),
		OldLowerBound: a.LowerBound(d),
		OldUpperBound: a.UpperBound(d),
		Reason:        reason,
	}
	trailPosition := a.trail.len()
	a.trail.push(entry)

	a.domains[d].removeValue(value, a.DecisionLevel(), trailPosition, a.events)
	return a.domains[d].verifyConsistency()
}

// MakeAssignment posts [d == value] as its two bound components. Equality
// is never stored on the trail.
func (a *Assignments) MakeAssignment(d DomainID, value int, reason ReasonRef) error {
	if a.LowerBound(d) < value {
		if err := a.TightenLowerBound(d, value, reason); err != nil {
			return err
		}
	}
	if a.UpperBound(d) > value {
		if err := a.TightenUpperBound(d, value, reason); err != nil {
			return err
		}
	}
	return a.domains[d].verifyConsistency()
}

// PostPredicate applies the predicate to the domains. A predicate that
// already holds does nothing; a predicate that empties a domain returns an
// EmptyDomainError.
func (a *Assignments) PostPredicate(p Predicate, reason ReasonRef) error {
	switch p.Kind {
	case GreaterEqual:
		return a.TightenLowerBound(p.Domain, p.Value, reason)
	case LessEqual:
		return a.TightenUpperBound(p.Domain, p.Value, reason)
	case NotEqualTo:
		return a.RemoveValue(p.Domain, p.Value, reason)
	case EqualTo:
		return a.MakeAssignment(p.Domain, p.Value, reason)
	}
	panic("lcg: unknown predicate kind")
}

// EvaluatePredicate returns the predicate's truth value in the current
// state: (true, true) when it holds, (false, true) when its negation holds,
// and (_, false) when it is not yet decided. Evaluation is monotonic: once
// decided, the value cannot change except through backtracking.
func (a *Assignments) EvaluatePredicate(p Predicate) (value, known bool) {
	switch p.Kind {
	case GreaterEqual:
		if a.LowerBound(p.Domain) >= p.Value {
			return true, true
		}
		if a.UpperBound(p.Domain) < p.Value {
			return false, true
		}
	case LessEqual:
		if a.UpperBound(p.Domain) <= p.Value {
			return true, true
		}
		if a.LowerBound(p.Domain) > p.Value {
			return false, true
		}
	case NotEqualTo:
		if !a.IsValueInDomain(p.Domain, p.Value) {
			return true, true
		}
		if assigned, ok := a.AssignedValue(p.Domain); ok {
			// The value is in the domain and the domain is a singleton, so
			// the variable is assigned to exactly the disallowed value.
			debugAssert(assigned == p.Value, "assigned value must match")
			return false, true
		}
	case EqualTo:
		if !a.IsValueInDomain(p.Domain, p.Value) {
			return false, true
		}
		if assigned, ok := a.AssignedValue(p.Domain); ok {
			debugAssert(assigned == p.Value, "assigned value must match")
			return true, true
		}
	}
	return false, false
}

// EvaluatePredicateAtTrailPosition evaluates the predicate against the
// state as it was at tp.
func (a *Assignments) EvaluatePredicateAtTrailPosition(p Predicate, tp int) (value, known bool) {
	lb := a.LowerBoundAtTrailPosition(p.Domain, tp)
	ub := a.UpperBoundAtTrailPosition(p.Domain, tp)
	switch p.Kind {
	case GreaterEqual:
		if lb >= p.Value {
			return true, true
		}
		if ub < p.Value {
			return false, true
		}
	case LessEqual:
		if ub <= p.Value {
			return true, true
		}
		if lb > p.Value {
			return false, true
		}
	case NotEqualTo:
		if !a.IsValueInDomainAtTrailPosition(p.Domain, p.Value, tp) {
			return true, true
		}
		if lb == ub {
			return false, true
		}
	case EqualTo:
		if !a.IsValueInDomainAtTrailPosition(p.Domain, p.Value, tp) {
			return false, true
		}
		if lb == ub {
			return true, true
		}
	}
	return false, false
}

// IsPredicateSatisfied reports whether the predicate is known to hold.
func (a *Assignments) IsPredicateSatisfied(p Predicate) bool {
	value, known := a.EvaluatePredicate(p)
	return known && value
}

// IsPredicateFalsified reports whether the predicate is known not to hold.
func (a *Assignments) IsPredicateFalsified(p Predicate) bool {
	value, known := a.EvaluatePredicate(p)
	return known && !value
}

// Synchronise backtracks to newLevel: trail entries above the level's
// boundary are undone in reverse order and dropped, pending events are
// discarded, and the variables that were fixed before but are unfixed after
// are reported for the branching layer.
func (a *Assignments) Synchronise(newLevel int) []UnfixedVariable {
	var unfixed []UnfixedVariable
	a.trail.synchronise(newLevel, func(entry TrailEntry) {
		debugAssert(!entry.Predicate.IsEquality(),
			"equality predicates are decomposed before reaching the trail")
		d := entry.Predicate.Domain
		fixedBefore := a.IsAssigned(d)
		valueBefore := a.LowerBound(d)
		a.domains[d].undoTrailEntry(entry)
		if fixedBefore && !a.IsAssigned(d) {
			unfixed = append(unfixed, UnfixedVariable{Domain: d, Value: valueBefore})
		}
	})
	// Propagators resynchronise through their own bookkeeping; stale events
	// must not leak across the backtrack.
	a.events.Drain()
	return unfixed
}

// DomainDescription returns the predicates that exactly describe the
// current domain: a single equality when fixed, otherwise both bounds plus
// one disequality per interior hole.
func (a *Assignments) DomainDescription(d DomainID) Conjunction {
	dom := a.domains[d]
	if dom.lowerBound() == dom.upperBound() {
		return Conjunction{Eq(d, dom.lowerBound())}
	}
	description := Conjunction{Geq(d, dom.lowerBound()), Leq(d, dom.upperBound())}
	for value := range dom.holes {
		if dom.lowerBound() < value && value < dom.upperBound() {
			description = append(description, Neq(d, value))
		}
	}
	return description
}
