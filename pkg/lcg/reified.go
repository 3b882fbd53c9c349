// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// reified.go: half-reification of an arbitrary propagator behind a guard
// literal r, enforcing r -> constraint. The wrapper is a decorator over the
// inner propagator's handle:
//
//  1. While r is true, notifications and propagation are delegated; while r
//     is unassigned or false, inner propagation is suppressed.
//  2. A root conflict reported by the inner propagator's initialisation is
//     stashed and, on the next propagation, becomes the reason for fixing
//     r to false.
//  3. While r is unassigned, the inner propagator's inconsistency detector
//     (when implemented) may fix r to false with the detected conjunction
//     as reason.
//  4. Inner conflicts are augmented with r before being surfaced.
//  5. Inner propagations performed under the guard carry r in their reason,
//     via the context's implicit reification.
package lcg

// ReifiedPropagator enforces r -> inner.
type ReifiedPropagator struct {
	inner                Propagator
	reification          Literal
	reificationLocal     LocalID
	rootInconsistency    Conjunction
	hasRootInconsistency bool
}

// Reified wraps an inner propagator constructor with a reification literal.
// The literal is registered after the inner propagator's variables, with an
// assigned-true subscription so the wrapper wakes up when the guard fires.
func Reified(inner func(*RegistrationContext) Propagator, reification Literal) func(*RegistrationContext) Propagator {
	return func(ctx *RegistrationContext) Propagator {
		innerPropagator := inner(ctx)
		view := ctx.RegisterLiteral(reification, OnAssignedTrue)
		return &ReifiedPropagator{
			inner:            innerPropagator,
			reification:      reification,
			reificationLocal: view.LocalID(),
		}
	}
}

// Name implements Propagator.
func (r *ReifiedPropagator) Name() string { return "Reified(" + r.inner.Name() + ")" }

// Priority implements Propagator, delegating to the inner propagator.
func (r *ReifiedPropagator) Priority() int { return r.inner.Priority() }

// InitialiseAtRoot implements Propagator. The wrapper itself can never fail
// at the root: an inner root conflict only means r must become false, which
// happens on the first propagation.
func (r *ReifiedPropagator) InitialiseAtRoot(ctx *PropagationContextMut) Conjunction {
	if conflict := r.inner.InitialiseAtRoot(ctx); conflict != nil {
		r.rootInconsistency = conflict
		r.hasRootInconsistency = true
	}
	return nil
}

// Notify implements Propagator. The guard literal becoming true always
// schedules the wrapper; other events are forwarded only while the guard
// holds.
func (r *ReifiedPropagator) Notify(ctx *PropagationContext, id LocalID, event DomainEvent) EnqueueDecision {
	if id == r.reificationLocal {
		return Enqueue
	}
	if ctx.IsLiteralTrue(r.reification) {
		return r.inner.Notify(ctx, id, event)
	}
	return Skip
}

// Propagate implements Propagator.
func (r *ReifiedPropagator) Propagate(ctx *PropagationContextMut) error {
	if r.hasRootInconsistency {
		conflict := r.rootInconsistency
		r.rootInconsistency = nil
		r.hasRootInconsistency = false
		if err := ctx.AssignLiteral(r.reification, false, EagerReason(conflict)); err != nil {
			return err
		}
	}

	if ctx.IsLiteralTrue(r.reification) {
		ctx.WithReification(r.reification)
		err := r.inner.Propagate(ctx)
		ctx.ClearReification()
		if err != nil {
			return r.augmentConflict(err)
		}
	}

	return r.propagateReification(ctx)
}

// DebugPropagateFromScratch implements Propagator with the same guard
// handling as Propagate.
func (r *ReifiedPropagator) DebugPropagateFromScratch(ctx *PropagationContextMut) error {
	if ctx.IsLiteralTrue(r.reification) {
		ctx.WithReification(r.reification)
		err := r.inner.DebugPropagateFromScratch(ctx)
		ctx.ClearReification()
		if err != nil {
			return r.augmentConflict(err)
		}
	}
	return r.propagateReification(ctx)
}

// Synchronise forwards backtrack notifications when the inner propagator
// keeps trail-dependent state.
func (r *ReifiedPropagator) Synchronise(ctx *PropagationContext) {
	if synchroniser, ok := r.inner.(Synchroniser); ok {
		synchroniser.Synchronise(ctx)
	}
}

// augmentConflict extends an inner conflict with the guard literal: the
// inner constraint is only violated because the guard holds.
func (r *ReifiedPropagator) augmentConflict(err error) error {
	if conflict, ok := AsConflict(err); ok {
		augmented := conflict.Conjunction.Copy()
		augmented = append(augmented, r.reification.TruePredicate())
		return &ConflictError{Conjunction: augmented}
	}
	return err
}

// propagateReification fixes the guard to false when the inner constraint
// is already inconsistent with the current domains.
func (r *ReifiedPropagator) propagateReification(ctx *PropagationContextMut) error {
	if ctx.IsLiteralFixed(r.reification) {
		return nil
	}
	detector, ok := r.inner.(InconsistencyDetector)
	if !ok {
		return nil
	}
	if conflict := detector.DetectInconsistency(ctx.AsReadonly()); conflict != nil {
		return ctx.AssignLiteral(r.reification, false, EagerReason(conflict))
	}
	return nil
}
