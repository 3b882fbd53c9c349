// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// domain.go: the trailed representation of a single integer domain. The
// domain stores its bounds alongside holes (removed interior values). Every
// change is recorded in chronological update histories, so the domain can be
// queried at any past trail position; this is what makes lazy explanations
// possible. When the domain is empty, lowerBound > upperBound.
//
// Invariants:
//  1. lowerBound <= upperBound, or the domain is empty and the caller has
//     been handed an EmptyDomainError by verifyConsistency.
//  2. No recorded hole ever equals the current lower or upper bound; bounds
//     are advanced past holes as part of every update.
//  3. Update histories are ordered by trail position (strictly increasing)
//     and decision level (non-decreasing).
//  4. The initial bound entries at trail position 0, decision level 0 are
//     never popped.
package lcg

import "sort"

// boundHistoryBinarySearchThreshold is the history length above which
// point-in-time bound queries switch from a linear scan to binary search.
const boundHistoryBinarySearchThreshold = 16

// boundUpdate records a single bound change with its provenance.
type boundUpdate struct {
	bound         int
	decisionLevel int
	trailPosition int
}

// holeUpdate records a removed value with its provenance. The triggered
// flags note whether recording the hole also advanced a bound, so that undo
// can pop the induced bound update as well.
type holeUpdate struct {
	removedValue              int
	decisionLevel             int
	trailPosition             int
	triggeredLowerBoundUpdate bool
	triggeredUpperBoundUpdate bool
}

// updateInfo is the (decision level, trail position) pair at which a
// predicate became true.
type updateInfo struct {
	decisionLevel int
	trailPosition int
}

// integerDomain is the trailed store for one variable.
type integerDomain struct {
	id DomainID

	// The update histories chronologically record every change.
	lowerBoundUpdates []boundUpdate
	upperBoundUpdates []boundUpdate
	holeUpdates       []holeUpdate

	// holes maps a removed value to the moment of its removal, to avoid
	// scanning holeUpdates on membership queries.
	holes map[int]updateInfo
}

func newIntegerDomain(lowerBound, upperBound int, id DomainID) *integerDomain {
	debugAssert(lowerBound <= upperBound, "cannot create an empty domain")
	return &integerDomain{
		id:                id,
		lowerBoundUpdates: []boundUpdate{{bound: lowerBound}},
		upperBoundUpdates: []boundUpdate{{bound: upperBound}},
		holeUpdates:       []holeUpdate{},
		holes:             make(map[int]updateInfo),
	}
}

// lowerBound returns the current lower bound; the last history entry.
func (d *integerDomain) lowerBound() int {
	return d.lowerBoundUpdates[len(d.lowerBoundUpdates)-1].bound
}

// upperBound returns the current upper bound; the last history entry.
func (d *integerDomain) upperBound() int {
	return d.upperBoundUpdates[len(d.upperBoundUpdates)-1].bound
}

// initialLowerBound returns the bound assigned at creation. The first
// history entry is never removed.
func (d *integerDomain) initialLowerBound() int {
	return d.lowerBoundUpdates[0].bound
}

// initialUpperBound returns the bound assigned at creation.
func (d *integerDomain) initialUpperBound() int {
	return d.upperBoundUpdates[0].bound
}

// boundAtTrailPosition finds the bound from the last update in the history
// whose trail position is at most tp. Histories are ordered by trail
// position, so long histories can use binary search.
func boundAtTrailPosition(history []boundUpdate, tp int) int {
	if tp < 0 {
		// Before the first trail entry only the initial bound is visible.
		return history[0].bound
	}
	if len(history) > boundHistoryBinarySearchThreshold {
		// First index whose trail position exceeds tp; the entry before it
		// is the latest update visible at tp.
		idx := sort.Search(len(history), func(i int) bool {
			return history[i].trailPosition > tp
		})
		debugAssert(idx > 0, "initial bound entry is at trail position 0")
		return history[idx-1].bound
	}
	result := history[0].bound
	for _, u := range history {
		if u.trailPosition > tp {
			break
		}
		result = u.bound
	}
	return result
}

// lowerBoundAtTrailPosition returns the lower bound as it was at tp.
func (d *integerDomain) lowerBoundAtTrailPosition(tp int) int {
	return boundAtTrailPosition(d.lowerBoundUpdates, tp)
}

// upperBoundAtTrailPosition returns the upper bound as it was at tp.
func (d *integerDomain) upperBoundAtTrailPosition(tp int) int {
	return boundAtTrailPosition(d.upperBoundUpdates, tp)
}

// contains reports whether the value is currently in the domain.
func (d *integerDomain) contains(value int) bool {
	if value < d.lowerBound() || value > d.upperBound() {
		return false
	}
	_, isHole := d.holes[value]
	return !isHole
}

// containsAtTrailPosition reports whether the value was in the domain at tp.
func (d *integerDomain) containsAtTrailPosition(value, tp int) bool {
	if d.lowerBoundAtTrailPosition(tp) > value || d.upperBoundAtTrailPosition(tp) < value {
		return false
	}
	// A hole removes the value only from its recording moment onward.
	if hole, ok := d.holes[value]; ok && hole.trailPosition <= tp {
		return false
	}
	return true
}

// setLowerBound tightens the lower bound, advancing the new bound past any
// holes, and emits LowerBound (and possibly Assign) events. Weaker bounds
// are ignored.
func (d *integerDomain) setLowerBound(newLowerBound, decisionLevel, trailPosition int, events *EventSink) {
	if newLowerBound <= d.lowerBound() {
		return
	}

	events.EventOccurred(EventLowerBound, d.id)

	d.lowerBoundUpdates = append(d.lowerBoundUpdates, boundUpdate{
		bound:         newLowerBound,
		decisionLevel: decisionLevel,
		trailPosition: trailPosition,
	})
	d.advanceLowerBoundPastHoles()

	if d.lowerBound() == d.upperBound() {
		events.EventOccurred(EventAssign, d.id)
	}
}

// advanceLowerBoundPastHoles moves the freshly pushed lower bound upward
// while it coincides with a hole. The adjustment mutates the history tip in
// place: the whole advance is a single update.
func (d *integerDomain) advanceLowerBoundPastHoles() {
	tip := &d.lowerBoundUpdates[len(d.lowerBoundUpdates)-1]
	for {
		if _, isHole := d.holes[tip.bound]; !isHole || tip.bound > d.upperBound() {
			break
		}
		tip.bound++
	}
}

// setUpperBound tightens the upper bound; symmetric to setLowerBound.
func (d *integerDomain) setUpperBound(newUpperBound, decisionLevel, trailPosition int, events *EventSink) {
	if newUpperBound >= d.upperBound() {
		return
	}

	events.EventOccurred(EventUpperBound, d.id)

	d.upperBoundUpdates = append(d.upperBoundUpdates, boundUpdate{
		bound:         newUpperBound,
		decisionLevel: decisionLevel,
		trailPosition: trailPosition,
	})
	d.advanceUpperBoundPastHoles()

	if d.lowerBound() == d.upperBound() {
		events.EventOccurred(EventAssign, d.id)
	}
}

func (d *integerDomain) advanceUpperBoundPastHoles() {
	tip := &d.upperBoundUpdates[len(d.upperBoundUpdates)-1]
	for {
		if _, isHole := d.holes[tip.bound]; !isHole || tip.bound < d.lowerBound() {
			break
		}
		tip.bound--
	}
}

// removeValue records a hole. Values outside the bounds or already removed
// are ignored. Removing a value equal to a bound degenerates into a bound
// update, flagged on the hole entry so undo can reverse both.
func (d *integerDomain) removeValue(removedValue, decisionLevel, trailPosition int, events *EventSink) {
	if removedValue < d.lowerBound() || removedValue > d.upperBound() {
		return
	}
	if _, isHole := d.holes[removedValue]; isHole {
		return
	}

	events.EventOccurred(EventRemoval, d.id)

	d.holeUpdates = append(d.holeUpdates, holeUpdate{
		removedValue:  removedValue,
		decisionLevel: decisionLevel,
		trailPosition: trailPosition,
	})
	// Record the hole before the bound checks below; they consult holes.
	d.holes[removedValue] = updateInfo{decisionLevel: decisionLevel, trailPosition: trailPosition}

	if d.lowerBound() == removedValue {
		d.setLowerBound(removedValue+1, decisionLevel, trailPosition, events)
		d.holeUpdates[len(d.holeUpdates)-1].triggeredLowerBoundUpdate = true
	}
	if d.upperBound() == removedValue {
		d.setUpperBound(removedValue-1, decisionLevel, trailPosition, events)
		d.holeUpdates[len(d.holeUpdates)-1].triggeredUpperBoundUpdate = true
	}

	if d.lowerBound() == d.upperBound() {
		events.EventOccurred(EventAssign, d.id)
	}
}

// verifyConsistency returns an EmptyDomainError when the domain is empty.
func (d *integerDomain) verifyConsistency() error {
	if d.lowerBound() > d.upperBound() {
		return &EmptyDomainError{Domain: d.id}
	}
	return nil
}

// undoTrailEntry is the exact inverse of the last applied change described
// by the entry. Hole entries that triggered a bound update pop that update
// as well. The restored bounds must equal the bounds recorded on the entry.
func (d *integerDomain) undoTrailEntry(entry TrailEntry) {
	switch entry.Predicate.Kind {
	case GreaterEqual:
		debugAssert(entry.Predicate.Domain == d.id, "entry for wrong domain")
		d.lowerBoundUpdates = d.lowerBoundUpdates[:len(d.lowerBoundUpdates)-1]
		debugAssert(len(d.lowerBoundUpdates) > 0, "initial lower bound must remain")

	case LessEqual:
		debugAssert(entry.Predicate.Domain == d.id, "entry for wrong domain")
		d.upperBoundUpdates = d.upperBoundUpdates[:len(d.upperBoundUpdates)-1]
		debugAssert(len(d.upperBoundUpdates) > 0, "initial upper bound must remain")

	case NotEqualTo:
		debugAssert(entry.Predicate.Domain == d.id, "entry for wrong domain")
		hole := d.holeUpdates[len(d.holeUpdates)-1]
		d.holeUpdates = d.holeUpdates[:len(d.holeUpdates)-1]
		debugAssert(hole.removedValue == entry.Predicate.Value, "hole undo mismatch")
		delete(d.holes, entry.Predicate.Value)

		if hole.triggeredLowerBoundUpdate {
			d.lowerBoundUpdates = d.lowerBoundUpdates[:len(d.lowerBoundUpdates)-1]
		}
		if hole.triggeredUpperBoundUpdate {
			d.upperBoundUpdates = d.upperBoundUpdates[:len(d.upperBoundUpdates)-1]
		}

	case EqualTo:
		// Equality predicates are decomposed into bound updates before they
		// reach the trail, so they can never be undone here.
		panic("lcg: equality predicate on the trail")
	}

	debugAssert(d.lowerBound() == entry.OldLowerBound, "undo restored wrong lower bound")
	debugAssert(d.upperBound() == entry.OldUpperBound, "undo restored wrong upper bound")
}

// getUpdateInfo returns the earliest moment at which the given predicate
// became true, or false when the predicate does not (yet) hold.
//
// The four cases:
//   - [x >= k]: the first lower-bound update with bound >= k. Lower-bound
//     histories are ordered by increasing bound.
//   - [x <= k]: the first upper-bound update with bound <= k.
//   - [x != k]: the hole's own record if the value was removed explicitly,
//     otherwise the bound crossing that removed it ([x >= k+1] or
//     [x <= k-1]; at most one of the two can exist).
//   - [x == k]: the later of the two matching bound records; both must
//     exist.
func (d *integerDomain) getUpdateInfo(p Predicate) (updateInfo, bool) {
	switch p.Kind {
	case GreaterEqual:
		for _, u := range d.lowerBoundUpdates {
			if u.bound >= p.Value {
				return updateInfo{decisionLevel: u.decisionLevel, trailPosition: u.trailPosition}, true
			}
		}
		return updateInfo{}, false

	case LessEqual:
		for _, u := range d.upperBoundUpdates {
			if u.bound <= p.Value {
				return updateInfo{decisionLevel: u.decisionLevel, trailPosition: u.trailPosition}, true
			}
		}
		return updateInfo{}, false

	case NotEqualTo:
		// An explicit hole record is the first time the value was removed.
		if hole, ok := d.holes[p.Value]; ok {
			return hole, true
		}
		// Otherwise a bound crossing removed it, if anything did.
		if info, ok := d.getUpdateInfo(Geq(p.Domain, p.Value+1)); ok {
			return info, true
		}
		return d.getUpdateInfo(Leq(p.Domain, p.Value-1))

	case EqualTo:
		lb, ok := d.getUpdateInfo(Geq(p.Domain, p.Value))
		if !ok {
			return updateInfo{}, false
		}
		ub, ok := d.getUpdateInfo(Leq(p.Domain, p.Value))
		if !ok {
			return updateInfo{}, false
		}
		if lb.trailPosition > ub.trailPosition {
			return lb, true
		}
		return ub, true
	}
	return updateInfo{}, false
}

// initialHoles returns the values removed at decision level 0, in removal
// order.
func (d *integerDomain) initialHoles() []int {
	var out []int
	for _, h := range d.holeUpdates {
		if h.decisionLevel != 0 {
			break
		}
		out = append(out, h.removedValue)
	}
	return out
}

// iterate calls fn for every value currently in the domain, in increasing
// order. Iterating an empty domain visits nothing.
func (d *integerDomain) iterate(fn func(value int)) {
	for v := d.lowerBound(); v <= d.upperBound(); v++ {
		if d.contains(v) {
			fn(v)
		}
	}
}
