// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// view.go: per-propagator variable views. A view presents a registered
// variable through an affine transformation scale*x + offset, so a
// propagator over, say, a weighted sum can treat every term as a plain
// variable. Views translate bounds, predicates, and events between view
// space and domain space; all trail and reason bookkeeping stays in domain
// space.
package lcg

// PropagatorVar is an affine view of a registered variable, bound to the
// propagator-local id handed out at registration.
type PropagatorVar struct {
	domain DomainID
	scale  int
	offset int
	local  LocalID
}

// LocalID returns the propagator-local id of the view.
func (v PropagatorVar) LocalID() LocalID { return v.local }

// DomainID returns the underlying domain.
func (v PropagatorVar) DomainID() DomainID { return v.domain }

// floorDiv returns a/b rounded toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ceilDiv returns a/b rounded toward positive infinity.
func ceilDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}

// LowerBound returns the view's current lower bound.
func (v PropagatorVar) LowerBound(ctx *PropagationContext) int {
	if v.scale >= 0 {
		return v.scale*ctx.assignments.LowerBound(v.domain) + v.offset
	}
	return v.scale*ctx.assignments.UpperBound(v.domain) + v.offset
}

// UpperBound returns the view's current upper bound.
func (v PropagatorVar) UpperBound(ctx *PropagationContext) int {
	if v.scale >= 0 {
		return v.scale*ctx.assignments.UpperBound(v.domain) + v.offset
	}
	return v.scale*ctx.assignments.LowerBound(v.domain) + v.offset
}

// Contains reports whether the view value is in the transformed domain.
func (v PropagatorVar) Contains(ctx *PropagationContext, value int) bool {
	if (value-v.offset)%v.scale != 0 {
		return false
	}
	return ctx.assignments.IsValueInDomain(v.domain, (value-v.offset)/v.scale)
}

// AssignedValue returns the view's value when the variable is fixed.
func (v PropagatorVar) AssignedValue(ctx *PropagationContext) (int, bool) {
	underlying, ok := ctx.assignments.AssignedValue(v.domain)
	if !ok {
		return 0, false
	}
	return v.scale*underlying + v.offset, true
}

// GreaterEqual returns the domain-space predicate equivalent to
// [view >= value].
func (v PropagatorVar) GreaterEqual(value int) Predicate {
	if v.scale > 0 {
		return Geq(v.domain, ceilDiv(value-v.offset, v.scale))
	}
	return Leq(v.domain, floorDiv(value-v.offset, v.scale))
}

// LessEqual returns the domain-space predicate equivalent to
// [view <= value].
func (v PropagatorVar) LessEqual(value int) Predicate {
	if v.scale > 0 {
		return Leq(v.domain, floorDiv(value-v.offset, v.scale))
	}
	return Geq(v.domain, ceilDiv(value-v.offset, v.scale))
}

// Equal returns the domain-space predicate equivalent to [view == value].
// A value the transformation cannot produce yields the trivially false
// predicate.
func (v PropagatorVar) Equal(value int) Predicate {
	if (value-v.offset)%v.scale != 0 {
		return TriviallyFalse()
	}
	return Eq(v.domain, (value-v.offset)/v.scale)
}

// NotEqual returns the domain-space predicate equivalent to
// [view != value]. A value the transformation cannot produce yields the
// trivially true predicate.
func (v PropagatorVar) NotEqual(value int) Predicate {
	if (value-v.offset)%v.scale != 0 {
		return TriviallyTrue()
	}
	return Neq(v.domain, (value-v.offset)/v.scale)
}

// SetLowerBound posts [view >= value] with the reason.
func (v PropagatorVar) SetLowerBound(ctx *PropagationContextMut, value int, reason Reason) error {
	return ctx.PostPredicate(v.GreaterEqual(value), reason)
}

// SetUpperBound posts [view <= value] with the reason.
func (v PropagatorVar) SetUpperBound(ctx *PropagationContextMut, value int, reason Reason) error {
	return ctx.PostPredicate(v.LessEqual(value), reason)
}

// RemoveValue posts [view != value] with the reason.
func (v PropagatorVar) RemoveValue(ctx *PropagationContextMut, value int, reason Reason) error {
	p := v.NotEqual(value)
	if p == TriviallyTrue() {
		return nil
	}
	return ctx.PostPredicate(p, reason)
}

// underlyingEvent translates a view-space event into the domain-space event
// that produces it. A negative scale swaps the bound events.
func (v PropagatorVar) underlyingEvent(e DomainEvent) DomainEvent {
	if v.scale >= 0 {
		return e
	}
	switch e {
	case EventLowerBound:
		return EventUpperBound
	case EventUpperBound:
		return EventLowerBound
	default:
		return e
	}
}
