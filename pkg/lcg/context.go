// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// context.go: the transient, borrowed contexts handed to propagators for
// the duration of a call. The read-only PropagationContext exposes domain
// queries; PropagationContextMut additionally allows posting predicates
// with reasons. Scoping every propagator call to a context keeps the trail,
// reason store, and event sink consistent on return regardless of errors.
package lcg

// PropagationContext is a read-only snapshot of the assignments. It must
// not be used to mutate any engine state.
type PropagationContext struct {
	assignments *Assignments
}

// NewPropagationContext wraps the assignments in a read-only context.
func NewPropagationContext(assignments *Assignments) *PropagationContext {
	return &PropagationContext{assignments: assignments}
}

// Assignments exposes the underlying store for read-only queries.
func (c *PropagationContext) Assignments() *Assignments { return c.assignments }

// DecisionLevel returns the current decision level.
func (c *PropagationContext) DecisionLevel() int { return c.assignments.DecisionLevel() }

// IsLiteralTrue reports whether the literal is known to hold.
func (c *PropagationContext) IsLiteralTrue(l Literal) bool { return l.IsTrue(c.assignments) }

// IsLiteralFalse reports whether the literal is known not to hold.
func (c *PropagationContext) IsLiteralFalse(l Literal) bool { return l.IsFalse(c.assignments) }

// IsLiteralFixed reports whether the literal has a known truth value.
func (c *PropagationContext) IsLiteralFixed(l Literal) bool { return l.IsFixed(c.assignments) }

// PropagationContextMut is the mutable propagation context: a read context
// plus the ability to post predicates on behalf of one propagator. When a
// reification literal is installed, eager reasons of every post are
// augmented with it.
type PropagationContextMut struct {
	PropagationContext
	reasons     *ReasonStore
	propagator  PropagatorID
	reification *Literal
}

// NewPropagationContextMut builds a mutable context for the propagator.
func NewPropagationContextMut(assignments *Assignments, reasons *ReasonStore, propagator PropagatorID) *PropagationContextMut {
	return &PropagationContextMut{
		PropagationContext: PropagationContext{assignments: assignments},
		reasons:            reasons,
		propagator:         propagator,
	}
}

// AsReadonly returns the read-only view of this context.
func (c *PropagationContextMut) AsReadonly() *PropagationContext {
	return &c.PropagationContext
}

// WithReification installs the guard literal; every subsequent eager reason
// is extended with it until the guard is removed again.
func (c *PropagationContextMut) WithReification(l Literal) {
	c.reification = &l
}

// ClearReification removes the installed guard literal.
func (c *PropagationContextMut) ClearReification() {
	c.reification = nil
}

// PostPredicate applies the predicate with the given reason. The reason is
// recorded against the posting propagator so that lazy codes can be
// resolved later.
func (c *PropagationContextMut) PostPredicate(p Predicate, reason Reason) error {
	if c.reification != nil {
		debugAssert(!reason.lazy, "lazy reasons cannot be reified")
		augmented := make(Conjunction, 0, len(reason.eager)+1)
		augmented = append(augmented, reason.eager...)
		augmented = append(augmented, c.reification.TruePredicate())
		reason = EagerReason(augmented)
	}
	ref := c.reasons.Push(c.propagator, reason)
	return c.assignments.PostPredicate(p, ref)
}

// AssignLiteral fixes the literal to the given value with the reason.
func (c *PropagationContextMut) AssignLiteral(l Literal, value bool, reason Reason) error {
	predicate := l.TruePredicate()
	if !value {
		predicate = l.FalsePredicate()
	}
	return c.PostPredicate(predicate, reason)
}

// RegistrationContext is handed to a propagator constructor. It allocates
// local ids, creates variable views, and records event subscriptions with
// the scheduler.
type RegistrationContext struct {
	solver     *Solver
	propagator PropagatorID
	nextLocal  LocalID
}

// NextLocalID returns the next free local id without registering anything.
func (c *RegistrationContext) NextLocalID() LocalID { return c.nextLocal }

// Register subscribes the propagator to events on the variable and returns
// the identity view.
func (c *RegistrationContext) Register(d DomainID, events DomainEvents) PropagatorVar {
	return c.RegisterAffine(d, 1, 0, events)
}

// RegisterAffine subscribes to events on the transformed variable
// scale*x + offset and returns the corresponding view. The subscription is
// expressed in view space: subscribing to the view's lower bound wakes the
// propagator on the underlying upper bound when the scale is negative.
func (c *RegistrationContext) RegisterAffine(d DomainID, scale, offset int, events DomainEvents) PropagatorVar {
	debugAssert(scale != 0, "affine view requires a non-zero scale")
	v := PropagatorVar{domain: d, scale: scale, offset: offset, local: c.nextLocal}
	c.nextLocal++
	for e := DomainEvent(0); e < numDomainEvents; e++ {
		if !events.Includes(e) {
			continue
		}
		c.solver.subscribe(v.underlyingEvent(e), d, c.propagator, v.local, e)
	}
	return v
}

// RegisterLiteral subscribes to literal events (assigned true/false/either)
// and returns a view over the literal's 0-1 domain. A negated literal is
// registered through a negative-scale view so that, for example,
// OnAssignedTrue fires when the underlying variable reaches 0.
func (c *RegistrationContext) RegisterLiteral(l Literal, events DomainEvents) PropagatorVar {
	if l.Negated {
		// View value = 1 - x: true in view space means x == 0.
		return c.RegisterAffine(l.Domain, -1, 1, events)
	}
	return c.Register(l.Domain, events)
}
