// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// analysis.go: resolution-based conflict analysis. Starting from the
// conflicting conjunction, predicates at the current decision level are
// resolved against their reasons, most recent first, until exactly one
// remains: the first unique implication point. The result is an asserting
// nogood — after backjumping, posting the negation of its first predicate
// immediately prunes the conflicting subtree.
package lcg

import "sort"

// LearnedNogood is the product of conflict analysis. Predicate 0 is the
// 1-UIP; predicate 1, when present, is the most recently assigned of the
// rest, and BackjumpLevel is its decision level (0 for unit nogoods).
type LearnedNogood struct {
	Predicates    []Predicate
	BackjumpLevel int
}

// workingKey identifies a slot in the analysis working set. Bound
// predicates share one slot per (domain, kind) so that the dominant bound
// subsumes weaker ones; disequalities are keyed by value.
type workingKey struct {
	domain DomainID
	kind   PredicateKind
	value  int
}

// workingEntry is a predicate in the working set with its provenance.
type workingEntry struct {
	predicate     Predicate
	decisionLevel int
	trailPosition int
}

// conflictAnalyser performs 1-UIP resolution. The zero value is ready for
// use.
type conflictAnalyser struct {
	working           map[workingKey]workingEntry
	numAtCurrentLevel int
	currentLevel      int
	assignments       *Assignments
}

// add inserts a predicate into the working set. Root-level predicates are
// dropped, duplicates are deduplicated, and a bound predicate replaces a
// weaker bound of the same kind (or is discarded when dominated). Equality
// predicates are decomposed into their bound components, mirroring the
// trail convention.
func (c *conflictAnalyser) add(p Predicate) {
	if p.IsEquality() {
		c.add(Geq(p.Domain, p.Value))
		c.add(Leq(p.Domain, p.Value))
		return
	}

	decisionLevel, trailPosition, ok := c.assignments.UpdateInfoForPredicate(p)
	debugAssert(ok, "working-set predicates must hold in the current state")
	if decisionLevel == 0 {
		return
	}

	key := workingKey{domain: p.Domain, kind: p.Kind}
	if p.IsNotEqual() {
		key.value = p.Value
	}

	if existing, present := c.working[key]; present {
		dominated := false
		switch p.Kind {
		case GreaterEqual:
			dominated = existing.predicate.Value >= p.Value
		case LessEqual:
			dominated = existing.predicate.Value <= p.Value
		case NotEqualTo:
			dominated = true
		}
		if dominated {
			return
		}
		if existing.decisionLevel == c.currentLevel {
			c.numAtCurrentLevel--
		}
	}

	c.working[key] = workingEntry{predicate: p, decisionLevel: decisionLevel, trailPosition: trailPosition}
	if decisionLevel == c.currentLevel {
		c.numAtCurrentLevel++
	}
}

// remove deletes the entry from the working set.
func (c *conflictAnalyser) remove(key workingKey, entry workingEntry) {
	delete(c.working, key)
	if entry.decisionLevel == c.currentLevel {
		c.numAtCurrentLevel--
	}
}

// pickCurrentLevelEntry returns the working-set entry at the current level
// with the highest trail position: the most recent, hence the next to
// resolve. The decision predicate itself is never picked — it cannot be
// resolved further and, when predicates remain beside it, they are the
// ones that must give way.
func (c *conflictAnalyser) pickCurrentLevelEntry(assignments *Assignments) (workingKey, workingEntry) {
	var bestKey workingKey
	var best workingEntry
	found := false
	for key, entry := range c.working {
		if entry.decisionLevel != c.currentLevel {
			continue
		}
		trailEntry := assignments.TrailEntry(entry.trailPosition)
		if trailEntry.Reason == NoReason && trailEntry.Predicate == entry.predicate {
			// The decision itself; at most one such entry exists per level.
			continue
		}
		if !found || entry.trailPosition > best.trailPosition {
			bestKey, best, found = key, entry, true
		}
	}
	debugAssert(found, "a resolvable current-level predicate must exist")
	return bestKey, best
}

// resolve replaces the picked predicate by predicates that together imply
// it, all of which became true no later than it did.
func (c *conflictAnalyser) resolve(entry workingEntry, assignments *Assignments, reasons *ReasonStore, propagators *PropagatorStore) {
	p := entry.predicate
	trailEntry := assignments.TrailEntry(entry.trailPosition)

	// A bound predicate whose trail entry is a hole removal was induced by
	// the removal: the bound advanced past one or more holes. The entry's
	// reason explains only the hole, so the predicate is decomposed into
	// the bound before the entry plus every hole the advance stepped over;
	// each resolves on its own.
	if trailEntry.Predicate.IsNotEqual() && !p.IsNotEqual() {
		if p.IsLowerBound() {
			c.add(Geq(p.Domain, trailEntry.OldLowerBound))
			for value := trailEntry.OldLowerBound; value < p.Value; value++ {
				c.add(Neq(p.Domain, value))
			}
		} else {
			debugAssert(p.IsUpperBound(), "equality predicates are decomposed on entry")
			c.add(Leq(p.Domain, trailEntry.OldUpperBound))
			for value := p.Value + 1; value <= trailEntry.OldUpperBound; value++ {
				c.add(Neq(p.Domain, value))
			}
		}
		return
	}

	if trailEntry.Reason == NoReason {
		// Implied directly by the decision predicate, which subsumes it.
		c.add(trailEntry.Predicate)
		return
	}

	for _, q := range reasons.Materialise(trailEntry.Reason, assignments, propagators) {
		c.add(q)
	}
}

// Analyse derives the asserting 1-UIP nogood from the conflicting
// conjunction. Must not be called at the root.
func (c *conflictAnalyser) Analyse(conflict Conjunction, assignments *Assignments, reasons *ReasonStore, propagators *PropagatorStore) LearnedNogood {
	debugAssert(assignments.DecisionLevel() > 0, "root conflicts are not analysed")

	c.assignments = assignments
	c.currentLevel = assignments.DecisionLevel()
	c.numAtCurrentLevel = 0
	c.working = make(map[workingKey]workingEntry)

	for _, p := range conflict {
		c.add(p)
	}
	debugAssert(c.numAtCurrentLevel > 0, "conflict must involve the current level")

	for c.numAtCurrentLevel > 1 {
		key, entry := c.pickCurrentLevelEntry(assignments)
		c.remove(key, entry)
		c.resolve(entry, assignments, reasons, propagators)
	}

	// Exactly one predicate at the current level remains: the 1-UIP.
	var uip workingEntry
	rest := make([]workingEntry, 0, len(c.working))
	for _, entry := range c.working {
		if entry.decisionLevel == c.currentLevel {
			uip = entry
		} else {
			rest = append(rest, entry)
		}
	}

	// Position 1 must hold the most recently assigned of the rest; the
	// backjump level is its decision level.
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].decisionLevel != rest[j].decisionLevel {
			return rest[i].decisionLevel > rest[j].decisionLevel
		}
		return rest[i].trailPosition > rest[j].trailPosition
	})

	learned := LearnedNogood{Predicates: make([]Predicate, 0, len(rest)+1)}
	learned.Predicates = append(learned.Predicates, uip.predicate)
	for _, entry := range rest {
		learned.Predicates = append(learned.Predicates, entry.predicate)
	}
	if len(rest) > 0 {
		learned.BackjumpLevel = rest[0].decisionLevel
	}
	return learned
}
