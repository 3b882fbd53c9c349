// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// propagator.go: the uniform contract every propagator implements, plus the
// optional capability interfaces discovered by type assertion. The engine
// stores propagators behind this contract in a PropagatorStore indexed by
// PropagatorID; the reified wrapper is a decorator over another handle.
package lcg

// PropagatorID identifies a registered propagator. ID 0 is always the
// nogood propagator.
type PropagatorID int

// LocalID is a propagator-local variable index, handed out during
// registration. Notifications identify the affected variable by its
// LocalID so the propagator can use dense local storage.
type LocalID int

// EnqueueDecision is a propagator's answer to a notification: whether it
// wants to be scheduled for propagation.
type EnqueueDecision uint8

const (
	// Skip declines scheduling; the event needs no work.
	Skip EnqueueDecision = iota
	// Enqueue requests that the propagator be placed on the ready queue.
	Enqueue
)

// Propagator is the core contract. Implementations tighten domains through
// the mutable context, justify every change with a Reason, and report
// failure either as an EmptyDomainError (surfaced unchanged from a post) or
// as a ConflictError carrying the violated conjunction.
type Propagator interface {
	// Name identifies the propagator in logs and diagnostics.
	Name() string

	// Priority orders ready propagators; lower runs earlier.
	Priority() int

	// InitialiseAtRoot performs root propagation after registration. A
	// returned conflict conjunction means the constraint is violated at the
	// root; the caller converts it to infeasibility.
	InitialiseAtRoot(ctx *PropagationContextMut) Conjunction

	// Notify delivers a domain event for the registered variable with the
	// given local id and decides whether to enqueue.
	Notify(ctx *PropagationContext, id LocalID, event DomainEvent) EnqueueDecision

	// Propagate runs the incremental filtering algorithm to a local fixed
	// point.
	Propagate(ctx *PropagationContextMut) error

	// DebugPropagateFromScratch reruns the filtering ignoring all
	// incremental state. The search loop does not call it, and lazy
	// explanations are materialised through LazyExplainer, not by replaying
	// it.
	DebugPropagateFromScratch(ctx *PropagationContextMut) error
}

// InconsistencyDetector is an optional capability: a propagator that can
// cheaply detect that its constraint cannot be satisfied in the current
// state, returning the witnessing conjunction. The reified wrapper uses it
// to propagate the guard literal to false.
type InconsistencyDetector interface {
	DetectInconsistency(ctx *PropagationContext) Conjunction
}

// LazyExplainer is an optional capability: a propagator that posts lazy
// reasons must be able to materialise them from the code it supplied.
type LazyExplainer interface {
	LazyExplanation(code uint64, assignments *Assignments) []Predicate
}

// Synchroniser is an optional capability: a propagator with incremental
// state keyed to the trail is told when search backtracks so it can reset
// its bookkeeping.
type Synchroniser interface {
	Synchronise(ctx *PropagationContext)
}

// PropagatorStore owns all registered propagators, indexed densely by
// PropagatorID.
type PropagatorStore struct {
	propagators []Propagator
}

// Add stores a propagator and returns its id.
func (s *PropagatorStore) Add(p Propagator) PropagatorID {
	s.propagators = append(s.propagators, p)
	return PropagatorID(len(s.propagators) - 1)
}

// Get returns the propagator with the given id.
func (s *PropagatorStore) Get(id PropagatorID) Propagator { return s.propagators[id] }

// Len returns the number of registered propagators.
func (s *PropagatorStore) Len() int { return len(s.propagators) }

// Each calls fn for every registered propagator in id order.
func (s *PropagatorStore) Each(fn func(PropagatorID, Propagator)) {
	for i, p := range s.propagators {
		fn(PropagatorID(i), p)
	}
}
