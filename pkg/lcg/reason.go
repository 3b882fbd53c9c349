// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// reason.go: reasons justify propagations. A reason is either an eager
// conjunction of predicates, materialised at propagation time, or a lazy
// code resolved later by calling back into the originating propagator. The
// nogood propagator relies on lazy reasons, packing the nogood id into the
// code; materialising one therefore also updates that nogood's LBD and
// activity.
package lcg

// ReasonRef indexes into the ReasonStore. Trail entries carry a ReasonRef
// rather than the reason itself.
type ReasonRef int

// NoReason marks a trail entry without a reason: a decision or a root fact.
const NoReason ReasonRef = -1

// Reason is the justification a propagator supplies for a domain change.
type Reason struct {
	eager Conjunction
	lazy  bool
	code  uint64
}

// EagerReason builds a reason from an explicit conjunction of predicates.
func EagerReason(conjunction Conjunction) Reason {
	return Reason{eager: conjunction}
}

// LazyReason builds a reason that is materialised on demand. The code is
// handed back to the propagator's LazyExplanation together with the
// assignments; the propagator that posted the reason is recorded by the
// store.
func LazyReason(code uint64) Reason {
	return Reason{lazy: true, code: code}
}

// storedReason couples a reason with the propagator that posted it, which is
// needed to resolve lazy codes.
type storedReason struct {
	reason     Reason
	propagator PropagatorID
}

// ReasonStore owns all reasons posted during search. It is synchronised
// with the trail: reasons are appended as propagations happen and truncated
// on backtrack, level by level.
type ReasonStore struct {
	reasons         []storedReason
	levelBoundaries []int
}

// Push records a reason posted by the given propagator and returns its
// reference.
func (s *ReasonStore) Push(propagator PropagatorID, reason Reason) ReasonRef {
	s.reasons = append(s.reasons, storedReason{reason: reason, propagator: propagator})
	return ReasonRef(len(s.reasons) - 1)
}

// Len returns the number of stored reasons.
func (s *ReasonStore) Len() int { return len(s.reasons) }

// IncreaseDecisionLevel mirrors the trail's decision-level bookkeeping.
func (s *ReasonStore) IncreaseDecisionLevel() {
	s.levelBoundaries = append(s.levelBoundaries, len(s.reasons))
}

// Synchronise discards reasons recorded above newLevel.
func (s *ReasonStore) Synchronise(newLevel int) {
	if newLevel >= len(s.levelBoundaries) {
		return
	}
	boundary := s.levelBoundaries[newLevel]
	s.reasons = s.reasons[:boundary]
	s.levelBoundaries = s.levelBoundaries[:newLevel]
}

// Materialise resolves a reason reference into its conjunction of
// predicates. Lazy reasons dispatch to the originating propagator, which
// must implement LazyExplainer.
func (s *ReasonStore) Materialise(ref ReasonRef, assignments *Assignments, propagators *PropagatorStore) Conjunction {
	debugAssert(ref != NoReason, "cannot materialise the absent reason")
	stored := s.reasons[ref]
	if !stored.reason.lazy {
		return stored.reason.eager
	}
	explainer, ok := propagators.Get(stored.propagator).(LazyExplainer)
	debugAssert(ok, "lazy reason posted by a propagator without LazyExplanation")
	if !ok {
		return nil
	}
	return Conjunction(explainer.LazyExplanation(stored.reason.code, assignments))
}
