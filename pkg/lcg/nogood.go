// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// nogood.go: the nogood propagator. A nogood is a conjunction of predicates
// forbidden to hold simultaneously; the propagator enforces every stored
// nogood with a two-watched-predicate scheme over integer predicates
// (rather than Boolean literals), explains its propagations lazily, and
// manages the learned-nogood database by LBD.
//
// Storage is a dense, index-keyed vector of nogoods; deleted ids are
// recycled from a free-list, so ids remain stable for the reason store.
// Learned nogoods are partitioned into a low-LBD group that is kept
// permanently and a high-LBD group that is periodically halved.
package lcg

import "sort"

// NogoodID indexes the nogood store.
type NogoodID int

// nogood couples the forbidden conjunction with its management metadata.
type nogood struct {
	predicates  Conjunction
	isLearned   bool
	lbd         int
	isProtected bool
	isDeleted   bool
	blockBumps  bool
	activity    float64
}

// nogoodWatcher files a nogood under the watch list of one of its first two
// predicates. The right-hand side is the watched predicate's constant; it
// gates whether the nogood needs inspecting at all.
type nogoodWatcher struct {
	rightHandSide int
	nogood        NogoodID
}

// nogoodWatchList holds the watchers of a single domain, split by watched
// predicate kind.
type nogoodWatchList struct {
	lowerBound []nogoodWatcher // watched predicate [x >= k]
	upperBound []nogoodWatcher // watched predicate [x <= k]
	hole       []nogoodWatcher // watched predicate [x != k]
	equals     []nogoodWatcher // watched predicate [x == k]
}

// NogoodSortingStrategy selects how high-LBD nogoods are ranked before
// clean-up.
type NogoodSortingStrategy uint8

const (
	// SortByLBD ranks by LBD ascending, ties by activity descending.
	SortByLBD NogoodSortingStrategy = iota
	// SortByActivity ranks by activity descending.
	SortByActivity
)

// LearningOptions tunes the learned-nogood database.
type LearningOptions struct {
	// MaxActivity caps nogood activities; exceeding it rescales all of them.
	MaxActivity float64
	// ActivityDecayFactor controls the multiplicative bump-increment decay.
	ActivityDecayFactor float64
	// LimitNumHighLBDNogoods triggers clean-up when the high-LBD group
	// grows beyond it.
	LimitNumHighLBDNogoods int
	// LBDThreshold separates the low-LBD group (kept permanently) from the
	// high-LBD group (subject to deletion).
	LBDThreshold int
	// SortingStrategy ranks high-LBD nogoods for deletion.
	SortingStrategy NogoodSortingStrategy
}

// DefaultLearningOptions returns the standard database configuration.
func DefaultLearningOptions() LearningOptions {
	return LearningOptions{
		MaxActivity:            1e20,
		ActivityDecayFactor:    0.99,
		LimitNumHighLBDNogoods: 4000,
		LBDThreshold:           5,
		SortingStrategy:        SortByLBD,
	}
}

// lbdProtectionThreshold: a nogood whose recomputed LBD drops to this value
// or below is protected from the next clean-up sweep.
const lbdProtectionThreshold = 30

// NogoodPropagator stores and propagates all nogoods. It is always
// registered as propagator 0 and receives every domain event.
type NogoodPropagator struct {
	nogoods          []nogood
	permanentNogoods []NogoodID
	lowLBD           []NogoodID
	highLBD          []NogoodID
	deleteIDs        []NogoodID

	// lastIndexOnTrail is the trail position up to which domain state has
	// been accounted for; "just became true" tests compare against it.
	lastIndexOnTrail int

	infeasible bool

	watchLists      []nogoodWatchList
	enqueuedUpdates *EventSink
	lbd             lbdHelper
	minimiser       semanticMinimiser

	activityBumpIncrement float64
	options               LearningOptions
	bumpedNogoods         []NogoodID
}

// NewNogoodPropagator creates an empty nogood store with the given options.
func NewNogoodPropagator(options LearningOptions) *NogoodPropagator {
	return &NogoodPropagator{
		enqueuedUpdates:       NewEventSink(0),
		activityBumpIncrement: 1.0,
		options:               options,
		// Before the first trail entry everything is unseen.
		lastIndexOnTrail: -1,
	}
}

// Name implements Propagator.
func (p *NogoodPropagator) Name() string { return "NogoodPropagator" }

// Priority implements Propagator; nogoods always propagate first.
func (p *NogoodPropagator) Priority() int { return 0 }

// InitialiseAtRoot implements Propagator. The store must still be empty.
func (p *NogoodPropagator) InitialiseAtRoot(_ *PropagationContextMut) Conjunction {
	debugAssert(len(p.nogoods) == 0, "nogood store must be empty at initialisation")
	return nil
}

// Notify implements Propagator: the update is buffered in the private sink
// and the propagator asks to be scheduled. Bound events additionally
// enqueue a removal event, since a bound change also removes values watched
// by disequality predicates.
func (p *NogoodPropagator) Notify(_ *PropagationContext, id LocalID, event DomainEvent) EnqueueDecision {
	for int(id) >= p.enqueuedUpdates.NumDomains() {
		p.enqueuedUpdates.Grow()
	}
	p.enqueuedUpdates.EventOccurred(event, DomainID(id))
	if event == EventLowerBound || event == EventUpperBound {
		p.enqueuedUpdates.EventOccurred(EventRemoval, DomainID(id))
	}
	return Enqueue
}

// Synchronise implements the Synchroniser capability: on backtrack the
// buffered events are stale and the trail watermark is reset. At the root,
// the learned database is cleaned up if it has grown too large.
func (p *NogoodPropagator) Synchronise(ctx *PropagationContext) {
	p.lastIndexOnTrail = ctx.Assignments().NumTrailEntries() - 1
	p.enqueuedUpdates.Drain()
	if ctx.DecisionLevel() == 0 {
		p.cleanUpLearnedNogoodsIfNeeded(ctx)
	}
}

// watchList returns the list for (domain, event): the event kind determines
// which watched-predicate kind can have just become true.
func (p *NogoodPropagator) watchList(d DomainID, event DomainEvent) *[]nogoodWatcher {
	wl := &p.watchLists[d]
	switch event {
	case EventLowerBound:
		return &wl.lowerBound
	case EventUpperBound:
		return &wl.upperBound
	case EventRemoval:
		return &wl.hole
	case EventAssign:
		return &wl.equals
	}
	panic("lcg: unknown domain event")
}

// growWatchLists makes room for the given number of domains.
func (p *NogoodPropagator) growWatchLists(numDomains int) {
	for len(p.watchLists) < numDomains {
		p.watchLists = append(p.watchLists, nogoodWatchList{})
	}
}

// addWatcher files the nogood under the watch list matching the predicate.
func (p *NogoodPropagator) addWatcher(predicate Predicate, id NogoodID) {
	p.growWatchLists(int(predicate.Domain) + 1)
	wl := &p.watchLists[predicate.Domain]
	watcher := nogoodWatcher{rightHandSide: predicate.Value, nogood: id}
	switch predicate.Kind {
	case GreaterEqual:
		wl.lowerBound = append(wl.lowerBound, watcher)
	case LessEqual:
		wl.upperBound = append(wl.upperBound, watcher)
	case NotEqualTo:
		wl.hole = append(wl.hole, watcher)
	case EqualTo:
		wl.equals = append(wl.equals, watcher)
	}
}

// removeWatcher unfiles the nogood from the list matching the predicate.
func (p *NogoodPropagator) removeWatcher(predicate Predicate, id NogoodID) {
	var list *[]nogoodWatcher
	wl := &p.watchLists[predicate.Domain]
	switch predicate.Kind {
	case GreaterEqual:
		list = &wl.lowerBound
	case LessEqual:
		list = &wl.upperBound
	case NotEqualTo:
		list = &wl.hole
	case EqualTo:
		list = &wl.equals
	}
	for i, w := range *list {
		if w.rightHandSide == predicate.Value && w.nogood == id {
			// Watcher order within a list is not observable; swap-remove.
			(*list)[i] = (*list)[len(*list)-1]
			*list = (*list)[:len(*list)-1]
			return
		}
	}
	debugAssert(false, "watcher to remove must be present")
}

// allocate stores the nogood, reusing a recycled id when available.
func (p *NogoodPropagator) allocate(n nogood) NogoodID {
	if len(p.deleteIDs) > 0 {
		id := p.deleteIDs[len(p.deleteIDs)-1]
		p.deleteIDs = p.deleteIDs[:len(p.deleteIDs)-1]
		p.nogoods[id] = n
		return id
	}
	p.nogoods = append(p.nogoods, n)
	return NogoodID(len(p.nogoods) - 1)
}

// preprocessNogood simplifies a nogood at the root: semantic minimisation
// with equality merging, dropping root-satisfied predicates, and collapsing
// to the single trivially false predicate when the nogood cannot be
// violated, or to the trivially true predicate when it is already violated.
// Must only be called at decision level 0.
func (p *NogoodPropagator) preprocessNogood(predicates []Predicate, ctx *PropagationContextMut) []Predicate {
	debugAssert(ctx.DecisionLevel() == 0, "preprocessing is a root-only operation")

	// Minimising upfront guarantees the result carries no assigned
	// predicates whose root truth the minimiser would not know about.
	predicates = p.minimiser.Minimise(predicates, true)

	if len(predicates) == 0 {
		return []Predicate{TriviallyFalse()}
	}
	for _, predicate := range predicates {
		if ctx.Assignments().IsPredicateFalsified(predicate) {
			return []Predicate{TriviallyFalse()}
		}
	}

	kept := predicates[:0]
	for _, predicate := range predicates {
		if !ctx.Assignments().IsPredicateSatisfied(predicate) {
			kept = append(kept, predicate)
		}
	}
	if len(kept) == 0 {
		// Every predicate holds at the root: the nogood is violated.
		return []Predicate{TriviallyTrue()}
	}
	return kept
}

// AddNogood stores a permanent nogood, at the root only. A nogood that
// falsifies the root puts the propagator into its sticky infeasible state.
func (p *NogoodPropagator) AddNogood(predicates []Predicate, ctx *PropagationContextMut) error {
	if err := p.addPermanentNogood(predicates, ctx); err != nil {
		p.infeasible = true
		return err
	}
	return nil
}

func (p *NogoodPropagator) addPermanentNogood(predicates []Predicate, ctx *PropagationContextMut) error {
	debugAssert(ctx.DecisionLevel() == 0, "permanent nogoods can only be added at the root")

	if p.infeasible {
		return ErrInfeasibleState
	}
	if len(predicates) == 0 {
		// An empty conjunction holds vacuously, so an empty nogood would be
		// violated in every state; it is treated as trivially satisfied to
		// match the convention that the caller meant "no constraint".
		return nil
	}

	predicates = p.preprocessNogood(predicates, ctx)

	if len(predicates) == 1 {
		single := predicates[0]
		if ctx.Assignments().IsPredicateSatisfied(single) {
			return ErrInfeasibleNogood
		}
		if ctx.Assignments().IsPredicateFalsified(single) {
			return nil
		}
		// Post the negation at the root to respect the nogood.
		if err := ctx.PostPredicate(single.Negate(), EagerReason(nil)); err != nil {
			return ErrInfeasibleNogood
		}
		return nil
	}

	// Standard case: at least two unassigned predicates survive.
	id := p.allocate(nogood{predicates: Conjunction(predicates)})
	p.permanentNogoods = append(p.permanentNogoods, id)
	p.addWatcher(p.nogoods[id].predicates[0], id)
	p.addWatcher(p.nogoods[id].predicates[1], id)
	return nil
}

// AddAssertingNogood installs a nogood learned by conflict analysis.
// Preconditions: search has backjumped so that predicate 0 is unassigned,
// and predicate 1 was the most recently assigned of the rest. The asserting
// negation is posted immediately with the new nogood id as lazy reason.
func (p *NogoodPropagator) AddAssertingNogood(predicates []Predicate, ctx *PropagationContextMut) {
	if len(predicates) == 1 {
		debugAssert(ctx.DecisionLevel() == 0, "a unit nogood backjumps to the root")
		err := p.addPermanentNogood(predicates, ctx)
		debugAssert(err == nil, "unit learned nogoods cannot fail")
		return
	}

	// Predicate 0 is unassigned, so it contributes no decision level; it
	// will share a level with predicate 1 once propagated.
	lbd := p.lbd.compute(predicates[1:], ctx.Assignments())

	id := p.allocate(nogood{predicates: Conjunction(predicates), isLearned: true, lbd: lbd})

	p.addWatcher(p.nogoods[id].predicates[0], id)
	p.addWatcher(p.nogoods[id].predicates[1], id)

	err := ctx.PostPredicate(p.nogoods[id].predicates[0].Negate(), LazyReason(uint64(id)))
	debugAssert(err == nil, "the asserting predicate cannot fail to post")

	if lbd <= p.options.LBDThreshold {
		p.lowLBD = append(p.lowLBD, id)
	} else {
		p.highLBD = append(p.highLBD, id)
	}
}

// LazyExplanation implements LazyExplainer. The code is the nogood id; the
// reason for the propagated predicate is the nogood's tail. Materialising
// an explanation also refreshes the nogood's quality metadata: its LBD is
// recomputed (and kept if improved), very good nogoods are protected from
// the next clean-up, and the activity is bumped once per decay period.
func (p *NogoodPropagator) LazyExplanation(code uint64, assignments *Assignments) []Predicate {
	id := NogoodID(code)
	n := &p.nogoods[id]

	// Low-LBD nogoods are kept permanently; their metadata no longer
	// matters.
	if !n.blockBumps && n.isLearned && n.lbd > p.options.LBDThreshold {
		n.blockBumps = true
		p.bumpedNogoods = append(p.bumpedNogoods, id)

		currentLBD := p.lbd.compute(n.predicates[1:], assignments)
		if currentLBD < n.lbd {
			n.lbd = currentLBD
			if currentLBD <= lbdProtectionThreshold {
				n.isProtected = true
			}
		}

		if n.activity+p.activityBumpIncrement > p.options.MaxActivity {
			for _, other := range p.highLBD {
				p.nogoods[other].activity /= p.options.MaxActivity
			}
			p.activityBumpIncrement /= p.options.MaxActivity
		}
		n.activity += p.activityBumpIncrement
	}

	return n.predicates[1:]
}

// DecayNogoodActivities applies one multiplicative decay step to the bump
// increment and re-enables bumping for the nogoods bumped since the last
// decay.
func (p *NogoodPropagator) DecayNogoodActivities() {
	p.activityBumpIncrement /= p.options.ActivityDecayFactor
	for _, id := range p.bumpedNogoods {
		p.nogoods[id].blockBumps = false
	}
	p.bumpedNogoods = p.bumpedNogoods[:0]
}

// Propagate implements Propagator: every buffered event is replayed against
// the watch lists, moving watches or propagating unit nogoods.
func (p *NogoodPropagator) Propagate(ctx *PropagationContextMut) error {
	p.growWatchLists(ctx.Assignments().NumDomains())

	oldTrailPosition := ctx.Assignments().NumTrailEntries() - 1

	for _, occurrence := range p.enqueuedUpdates.Drain() {
		if err := p.propagateOrFindNewWatcher(occurrence.Event, occurrence.Domain, ctx); err != nil {
			return err
		}
	}

	p.lastIndexOnTrail = oldTrailPosition
	return nil
}

// hasBeenUpdated tests whether a watched predicate with the given
// right-hand side just became true, i.e. since lastIndexOnTrail. The test
// depends on the event kind. For Removal the test is a conservative
// over-approximation: any removal that now excludes the right-hand side is
// considered a trigger, and the exact nogood check filters false positives.
func (p *NogoodPropagator) hasBeenUpdated(event DomainEvent, rightHandSide int, d DomainID, ctx *PropagationContextMut) bool {
	a := ctx.Assignments()
	switch event {
	case EventAssign:
		debugAssert(a.IsAssigned(d), "assign event on an unfixed domain")
		return rightHandSide == a.LowerBound(d)

	case EventLowerBound:
		oldLowerBound := a.LowerBoundAtTrailPosition(d, p.lastIndexOnTrail)
		newLowerBound := a.LowerBound(d)
		return oldLowerBound < rightHandSide && rightHandSide <= newLowerBound

	case EventUpperBound:
		oldUpperBound := a.UpperBoundAtTrailPosition(d, p.lastIndexOnTrail)
		newUpperBound := a.UpperBound(d)
		return oldUpperBound > rightHandSide && rightHandSide >= newUpperBound

	case EventRemoval:
		oldLowerBound := a.LowerBoundAtTrailPosition(d, p.lastIndexOnTrail)
		newLowerBound := a.LowerBound(d)
		oldUpperBound := a.UpperBoundAtTrailPosition(d, p.lastIndexOnTrail)
		newUpperBound := a.UpperBound(d)

		removedByUpperBound := oldUpperBound >= rightHandSide && rightHandSide > newUpperBound
		removedByLowerBound := oldLowerBound <= rightHandSide && rightHandSide < newLowerBound
		removedExplicitly := newLowerBound < rightHandSide && rightHandSide < newUpperBound &&
			a.IsPredicateSatisfied(Neq(d, rightHandSide))
		return removedByUpperBound || removedByLowerBound || removedExplicitly
	}
	return false
}

// isWatchedPredicate reports whether the predicate is the watched one that
// the (event, domain, rhs) update refers to.
func isWatchedPredicate(predicate Predicate, event DomainEvent, d DomainID, rightHandSide int, a *Assignments) bool {
	if predicate.Domain != d {
		return false
	}
	switch event {
	case EventAssign:
		return predicate.IsEquality() && predicate.Value == rightHandSide &&
			rightHandSide == a.LowerBound(d)
	case EventLowerBound:
		return predicate.IsLowerBound()
	case EventUpperBound:
		return predicate.IsUpperBound()
	case EventRemoval:
		return predicate.IsNotEqual() && predicate.Value == rightHandSide
	}
	return false
}

// propagateOrFindNewWatcher is the heart of the two-watched-predicate
// scheme. For every watcher in the (domain, event) list whose predicate
// just became true, the nogood is inspected:
//
//  1. The freshly satisfied watched predicate is placed at index 1.
//  2. If the other watched predicate (index 0) is falsified, both watches
//     stay; the nogood is inactive.
//  3. Otherwise positions 2..n are scanned for a predicate that is not
//     satisfied; if found it becomes the new watch at index 1 and the old
//     watch is dropped — unless the new watch is a disequality over the
//     same domain during a removal event, in which case the existing list
//     slot is kept and only its right-hand side is updated.
//  4. With no replacement the nogood is unit: the negation of predicate 0
//     is posted with the nogood id as lazy reason; if predicate 0 was
//     already satisfied, the whole nogood holds and a conflict is
//     surfaced.
//
// The list is compacted in place with a kept-prefix index; watchers added
// to this same list while it is traversed are preserved.
func (p *NogoodPropagator) propagateOrFindNewWatcher(event DomainEvent, d DomainID, ctx *PropagationContextMut) error {
	a := ctx.Assignments()
	list := p.watchList(d, event)
	numWatchers := len(*list)
	currentIndex, endIndex := 0, 0

	// keepTail copies every untraversed and freshly added watcher into the
	// kept prefix and truncates; used on every exit path.
	keepTail := func(from int) {
		for i := from; i < len(*list); i++ {
			(*list)[endIndex] = (*list)[i]
			endIndex++
		}
		*list = (*list)[:endIndex]
	}

	for currentIndex < numWatchers {
		watcher := (*list)[currentIndex]

		if !p.hasBeenUpdated(event, watcher.rightHandSide, d, ctx) {
			(*list)[endIndex] = (*list)[currentIndex]
			endIndex++
			currentIndex++
			continue
		}

		predicates := &p.nogoods[watcher.nogood].predicates

		// Place the watched predicate at position 1 for uniformity.
		if isWatchedPredicate((*predicates)[0], event, d, watcher.rightHandSide, a) {
			(*predicates)[0], (*predicates)[1] = (*predicates)[1], (*predicates)[0]
		}
		debugAssert(a.IsPredicateSatisfied((*predicates)[1]), "watched predicate must have become true")

		// The other watched predicate being falsified keeps the nogood
		// inactive; both watches stay.
		if a.IsPredicateFalsified((*predicates)[0]) {
			(*list)[endIndex] = (*list)[currentIndex]
			endIndex++
			currentIndex++
			continue
		}

		// Look for a replacement watch among the non-watched predicates.
		foundNewWatch := false
		keptWatcherNewRHS := 0
		keptWatcher := false
		for i := 2; i < len(*predicates); i++ {
			if a.IsPredicateSatisfied((*predicates)[i]) {
				continue
			}
			foundNewWatch = true
			(*predicates)[1], (*predicates)[i] = (*predicates)[i], (*predicates)[1]
			debugAssert((*predicates)[i].Domain == d, "old watch must be on the updated domain")

			newWatch := (*predicates)[1]
			if event == EventRemoval && newWatch.IsNotEqual() && newWatch.Domain == d {
				// Same domain, same kind: keep the list slot, only update
				// its right-hand side.
				keptWatcher = true
				keptWatcherNewRHS = newWatch.Value
			} else {
				p.addWatcher(newWatch, watcher.nogood)
			}
			break
		}

		if foundNewWatch {
			if keptWatcher {
				(*list)[endIndex] = (*list)[currentIndex]
				(*list)[endIndex].rightHandSide = keptWatcherNewRHS
				endIndex++
			}
			// Without a kept slot the nogood simply leaves this list.
			currentIndex++
			continue
		}

		// No replacement: the nogood is unit. Everything but predicate 0 is
		// satisfied; keep the watch and propagate.
		(*list)[endIndex] = (*list)[currentIndex]
		endIndex++
		currentIndex++

		if a.IsPredicateSatisfied((*predicates)[0]) {
			// The whole nogood holds: conflict.
			keepTail(currentIndex)
			return &ConflictError{Conjunction: predicates.Copy()}
		}
		if err := ctx.PostPredicate((*predicates)[0].Negate(), LazyReason(uint64(watcher.nogood))); err != nil {
			keepTail(currentIndex)
			return err
		}
	}

	keepTail(numWatchers)
	return nil
}

// DebugPropagateFromScratch implements Propagator: every nogood is checked
// explicitly, ignoring watches and incremental state.
func (p *NogoodPropagator) DebugPropagateFromScratch(ctx *PropagationContextMut) error {
	for id := range p.nogoods {
		if p.nogoods[id].isDeleted {
			continue
		}
		if err := p.debugPropagateNogoodFromScratch(NogoodID(id), ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *NogoodPropagator) debugPropagateNogoodFromScratch(id NogoodID, ctx *PropagationContextMut) error {
	n := &p.nogoods[id]
	a := ctx.Assignments()

	numSatisfied := 0
	for _, predicate := range n.predicates {
		if a.IsPredicateFalsified(predicate) {
			// A single falsified predicate deactivates the nogood.
			return nil
		}
		if a.IsPredicateSatisfied(predicate) {
			numSatisfied++
		}
	}

	if numSatisfied == len(n.predicates) {
		return &ConflictError{Conjunction: n.predicates.Copy()}
	}

	if numSatisfied == len(n.predicates)-1 {
		// Exactly one predicate undecided: negate and propagate it. The
		// propagated predicate may not sit at position 0, so the reason is
		// constructed eagerly.
		for _, predicate := range n.predicates {
			if _, known := a.EvaluatePredicate(predicate); known {
				continue
			}
			reason := make(Conjunction, 0, len(n.predicates)-1)
			for _, other := range n.predicates {
				if other != predicate {
					reason = append(reason, other)
				}
			}
			return ctx.PostPredicate(predicate.Negate(), EagerReason(reason))
		}
	}
	return nil
}

// cleanUpLearnedNogoodsIfNeeded shrinks the high-LBD group when it exceeds
// the configured limit: first nogoods whose LBD has improved are promoted
// to the low group, then the worst half of the remainder is deleted.
func (p *NogoodPropagator) cleanUpLearnedNogoodsIfNeeded(ctx *PropagationContext) {
	if len(p.highLBD) <= p.options.LimitNumHighLBDNogoods {
		return
	}
	p.promoteHighLBDNogoods()
	p.removeHighLBDNogoods(ctx)
}

// promoteHighLBDNogoods moves nogoods whose LBD has dropped to the
// threshold into the permanently kept low-LBD group.
func (p *NogoodPropagator) promoteHighLBDNogoods() {
	kept := p.highLBD[:0]
	for _, id := range p.highLBD {
		if p.nogoods[id].lbd > p.options.LBDThreshold {
			kept = append(kept, id)
		} else {
			p.lowLBD = append(p.lowLBD, id)
		}
	}
	p.highLBD = kept
}

// removeHighLBDNogoods deletes roughly the worst half of the high-LBD
// group. Protected nogoods survive one sweep, losing their protection.
// Deletion drops both watches and recycles the id; the slot itself stays so
// that other ids remain stable.
func (p *NogoodPropagator) removeHighLBDNogoods(ctx *PropagationContext) {
	debugAssert(ctx.DecisionLevel() == 0, "clean-up is a root-only operation")

	p.sortHighLBDNogoodsBestFirst()

	numToRemove := len(p.highLBD) - p.options.LimitNumHighLBDNogoods/2

	// Walk from the back: the worst nogoods have deletion priority.
	for i := len(p.highLBD) - 1; i >= 0 && numToRemove > 0; i-- {
		id := p.highLBD[i]
		if p.nogoods[id].isProtected {
			p.nogoods[id].isProtected = false
			continue
		}

		p.removeWatcher(p.nogoods[id].predicates[0], id)
		p.removeWatcher(p.nogoods[id].predicates[1], id)
		p.nogoods[id].isDeleted = true
		p.deleteIDs = append(p.deleteIDs, id)
		numToRemove--
	}

	kept := p.highLBD[:0]
	for _, id := range p.highLBD {
		if !p.nogoods[id].isDeleted {
			kept = append(kept, id)
		}
	}
	p.highLBD = kept
}

// sortHighLBDNogoodsBestFirst orders the high-LBD group so better nogoods
// come first, according to the configured strategy.
func (p *NogoodPropagator) sortHighLBDNogoodsBestFirst() {
	sort.SliceStable(p.highLBD, func(i, j int) bool {
		a, b := &p.nogoods[p.highLBD[i]], &p.nogoods[p.highLBD[j]]
		switch p.options.SortingStrategy {
		case SortByActivity:
			return a.activity > b.activity
		default:
			if a.lbd != b.lbd {
				return a.lbd < b.lbd
			}
			return a.activity > b.activity
		}
	})
}

// NumNogoods returns the number of live (non-deleted) nogoods.
func (p *NogoodPropagator) NumNogoods() int {
	count := 0
	for i := range p.nogoods {
		if !p.nogoods[i].isDeleted {
			count++
		}
	}
	return count
}

// NumLearnedNogoods returns the number of live learned nogoods.
func (p *NogoodPropagator) NumLearnedNogoods() int {
	return len(p.lowLBD) + len(p.highLBD)
}

// IsInfeasible reports whether the propagator reached its sticky infeasible
// state.
func (p *NogoodPropagator) IsInfeasible() bool { return p.infeasible }

// debugIsProperlyWatched checks that for every live non-unit nogood the
// predicates at positions 0 and 1 are filed in their watch lists.
func (p *NogoodPropagator) debugIsProperlyWatched() bool {
	isWatching := func(predicate Predicate, id NogoodID) bool {
		if int(predicate.Domain) >= len(p.watchLists) {
			return false
		}
		var list []nogoodWatcher
		wl := &p.watchLists[predicate.Domain]
		switch predicate.Kind {
		case GreaterEqual:
			list = wl.lowerBound
		case LessEqual:
			list = wl.upperBound
		case NotEqualTo:
			list = wl.hole
		case EqualTo:
			list = wl.equals
		}
		for _, w := range list {
			if w.rightHandSide == predicate.Value && w.nogood == id {
				return true
			}
		}
		return false
	}

	for i := range p.nogoods {
		if p.nogoods[i].isDeleted {
			continue
		}
		id := NogoodID(i)
		if !isWatching(p.nogoods[i].predicates[0], id) || !isWatching(p.nogoods[i].predicates[1], id) {
			return false
		}
	}
	return true
}
