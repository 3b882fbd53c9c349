// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// solver.go: the constraint-satisfaction solver that owns all engine state
// and runs the decide-propagate-analyse-learn-backjump loop.
//
// # Architecture Overview
//
// The solver is strictly single-threaded and cooperative. It owns:
//
//	Assignments:     every domain, the trail, and the event sink
//	ReasonStore:     the justification of every propagation, trail-synced
//	PropagatorStore: all propagators behind the uniform contract;
//	                 propagator 0 is always the nogood propagator
//	Ready queue:     propagators waiting to run, keyed by priority
//
// Propagators receive transient contexts for the duration of a call and
// never hold engine state across calls. The search loop is the only place
// that backtracks, so the trail, reason store, and every propagator's
// bookkeeping move in lockstep.
//
// # Data Flow
//
// A decision predicate is posted to the trail; the event sink collects the
// resulting domain events; the scheduler wakes subscribed propagators,
// which post further predicates with reasons; on an empty domain or an
// explicit conflict the analyser walks the trail in reverse, resolving
// reasons into a 1-UIP nogood; the nogood propagator learns it, search
// backjumps, and the asserting propagation restarts the cycle.
package lcg

import (
	"go.uber.org/zap"
)

// Statistics counts search work. They are reset only with the solver.
type Statistics struct {
	Decisions      int64
	Conflicts      int64
	Propagations   int64
	LearnedNogoods int64
}

// subscriber is one propagator's registration for a (domain, event) pair.
// The deliver field is the event in view space, which differs from the
// underlying event for negative-scale views.
type subscriber struct {
	propagator PropagatorID
	local      LocalID
	deliver    DomainEvent
}

// solverOptions collects construction options.
type solverOptions struct {
	logger   *zap.Logger
	learning LearningOptions
}

// Option configures a Solver at construction.
type Option func(*solverOptions)

// WithLogger installs a structured logger for search statistics. The
// default logger discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *solverOptions) { o.logger = logger }
}

// WithLearningOptions overrides the learned-nogood database configuration.
func WithLearningOptions(learning LearningOptions) Option {
	return func(o *solverOptions) { o.learning = learning }
}

// Solver is the engine facade: variables and constraints go in, a solve
// result comes out. A Solver is not safe for concurrent use.
type Solver struct {
	assignments *Assignments
	reasons     *ReasonStore
	propagators PropagatorStore
	nogoods     *NogoodPropagator
	queue       propagatorQueue
	analyser    conflictAnalyser

	// watchers[domain][event] lists the subscriptions for the pair.
	watchers [][numDomainEvents][]subscriber

	infeasible bool
	logger     *zap.Logger
	stats      Statistics
}

// NewSolver creates an empty solver.
func NewSolver(opts ...Option) *Solver {
	options := solverOptions{
		logger:   zap.NewNop(),
		learning: DefaultLearningOptions(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	s := &Solver{
		assignments: NewAssignments(),
		reasons:     &ReasonStore{},
		nogoods:     NewNogoodPropagator(options.learning),
		logger:      options.logger,
	}
	// One watcher slot for the dummy variable.
	s.watchers = append(s.watchers, [numDomainEvents][]subscriber{})

	nogoodID := s.propagators.Add(s.nogoods)
	debugAssert(nogoodID == 0, "the nogood propagator is always propagator 0")
	s.queue.growTo(1)
	return s
}

// Assignments exposes the domain store for inspection.
func (s *Solver) Assignments() *Assignments { return s.assignments }

// Stats returns the accumulated search statistics.
func (s *Solver) Stats() Statistics { return s.stats }

// NogoodPropagator exposes the nogood store, e.g. for diagnostics.
func (s *Solver) NogoodPropagator() *NogoodPropagator { return s.nogoods }

// NewVariable creates an integer variable with the closed initial domain
// [lowerBound, upperBound].
func (s *Solver) NewVariable(lowerBound, upperBound int) DomainID {
	d := s.assignments.Grow(lowerBound, upperBound)
	s.watchers = append(s.watchers, [numDomainEvents][]subscriber{})
	return d
}

// NewLiteral creates a fresh Boolean literal backed by a 0-1 variable.
func (s *Solver) NewLiteral() Literal {
	return Literal{Domain: s.NewVariable(0, 1)}
}

// subscribe records a propagator's interest in (domain, underlying event),
// remembering which view-space event to deliver.
func (s *Solver) subscribe(underlying DomainEvent, d DomainID, propagator PropagatorID, local LocalID, deliver DomainEvent) {
	s.watchers[d][underlying] = append(s.watchers[d][underlying], subscriber{
		propagator: propagator,
		local:      local,
		deliver:    deliver,
	})
}

// AddPropagator constructs and registers a propagator. The constructor
// registers variables and event subscriptions through the provided
// registration context. Root propagation runs immediately; a root conflict
// leaves the solver in its sticky infeasible state.
func (s *Solver) AddPropagator(constructor func(*RegistrationContext) Propagator) error {
	if s.infeasible {
		return wrapConstraintErr(ErrInfeasibleState, "adding propagator")
	}
	debugAssert(s.assignments.DecisionLevel() == 0, "propagators are added at the root")

	id := PropagatorID(s.propagators.Len())
	registration := &RegistrationContext{solver: s, propagator: id}
	propagator := constructor(registration)
	stored := s.propagators.Add(propagator)
	debugAssert(stored == id, "registration context must predict the id")
	s.queue.growTo(s.propagators.Len())

	ctx := NewPropagationContextMut(s.assignments, s.reasons, id)
	if conflict := propagator.InitialiseAtRoot(ctx); conflict != nil {
		s.infeasible = true
		s.logger.Debug("root conflict while initialising propagator",
			zap.String("propagator", propagator.Name()),
			zap.String("conflict", Conjunction(conflict).String()))
		return wrapConstraintErr(ErrInfeasibleState, "initialising "+propagator.Name())
	}

	s.queue.enqueue(id, propagator.Priority())
	if err := s.propagateToFixedPoint(nil); err != nil {
		s.infeasible = true
		return wrapConstraintErr(ErrInfeasibleState, "root propagation of "+propagator.Name())
	}
	return nil
}

// AddNogood stores a permanent nogood. Root only; an infeasible nogood (or
// an already-infeasible solver) is reported as an error and the state
// stays infeasible.
func (s *Solver) AddNogood(predicates []Predicate) error {
	if s.infeasible {
		return wrapConstraintErr(ErrInfeasibleState, "adding nogood")
	}
	debugAssert(s.assignments.DecisionLevel() == 0, "nogoods are added at the root")

	ctx := NewPropagationContextMut(s.assignments, s.reasons, 0)
	if err := s.nogoods.AddNogood(predicates, ctx); err != nil {
		s.infeasible = true
		return wrapConstraintErr(err, "adding nogood")
	}
	if err := s.propagateToFixedPoint(nil); err != nil {
		s.infeasible = true
		s.nogoods.infeasible = true
		return wrapConstraintErr(ErrInfeasibleNogood, "propagating nogood")
	}
	return nil
}

// deliverPendingEvents drains the event sink and notifies subscribers. The
// nogood propagator implicitly subscribes to every event of every domain,
// using the domain id as its local id. Propagators answering Enqueue are
// placed on the ready queue at their priority.
func (s *Solver) deliverPendingEvents() {
	read := NewPropagationContext(s.assignments)
	for _, occurrence := range s.assignments.DrainDomainEvents() {
		if s.nogoods.Notify(read, LocalID(occurrence.Domain), occurrence.Event) == Enqueue {
			s.queue.enqueue(0, s.nogoods.Priority())
		}
		for _, sub := range s.watchers[occurrence.Domain][occurrence.Event] {
			propagator := s.propagators.Get(sub.propagator)
			if propagator.Notify(read, sub.local, sub.deliver) == Enqueue {
				s.queue.enqueue(sub.propagator, propagator.Priority())
			}
		}
	}
}

// propagateToFixedPoint runs the scheduler loop: deliver events, pop the
// highest-priority propagator, propagate, repeat until the queue is empty
// and no events remain. A conflict or empty domain aborts the loop with
// the queue cleared. Termination is consulted between propagator calls
// only, so stopping never leaves state inconsistent.
func (s *Solver) propagateToFixedPoint(termination TerminationCondition) error {
	for {
		s.deliverPendingEvents()

		if termination != nil && termination.ShouldStop() {
			s.queue.clear()
			return nil
		}

		id, ok := s.queue.pop()
		if !ok {
			return nil
		}

		ctx := NewPropagationContextMut(s.assignments, s.reasons, id)
		s.stats.Propagations++
		if err := s.propagators.Get(id).Propagate(ctx); err != nil {
			s.queue.clear()
			return err
		}
	}
}

// conflictConjunction turns a propagation error into the conjunction that
// conflict analysis starts from. An explicit conflict carries its own
// conjunction; an emptied domain contributes its contradictory bound pair.
func (s *Solver) conflictConjunction(err error) Conjunction {
	if conflict, ok := AsConflict(err); ok {
		return conflict.Conjunction
	}
	if empty, ok := AsEmptyDomain(err); ok {
		d := empty.Domain
		debugAssert(s.assignments.LowerBound(d) > s.assignments.UpperBound(d),
			"empty-domain conflict requires crossed bounds")
		return Conjunction{
			Geq(d, s.assignments.LowerBound(d)),
			Leq(d, s.assignments.UpperBound(d)),
		}
	}
	panic("lcg: unrecognised propagation error: " + err.Error())
}

// backjump synchronises every trailed structure to the target level and
// informs the brancher of unfixed variables.
func (s *Solver) backjump(level int, brancher Brancher) {
	for _, unfixed := range s.assignments.Synchronise(level) {
		brancher.OnUnassign(unfixed.Domain, unfixed.Value)
	}
	s.reasons.Synchronise(level)
	s.queue.clear()

	read := NewPropagationContext(s.assignments)
	s.propagators.Each(func(_ PropagatorID, p Propagator) {
		if synchroniser, ok := p.(Synchroniser); ok {
			synchroniser.Synchronise(read)
		}
	})
}

// DefaultBrancher branches on variables in creation order, assigning each
// its smallest remaining value.
func (s *Solver) DefaultBrancher() Brancher {
	var variables []DomainID
	s.assignments.Domains(func(d DomainID) {
		variables = append(variables, d)
	})
	return NewIndependentVariableValueBrancher(&InputOrder{Variables: variables}, InDomainMin{})
}

// extractSolution reads every variable's value. Variables the brancher left
// unfixed contribute their lower bound.
func (s *Solver) extractSolution() Solution {
	solution := make(Solution, s.assignments.NumDomains()-1)
	s.assignments.Domains(func(d DomainID) {
		solution[d] = s.assignments.LowerBound(d)
	})
	return solution
}

// Solve searches for a solution, consulting the termination condition at
// safe points and the brancher for decisions. Passing nil uses the
// indefinite termination and the default brancher. The solver is left at
// the root afterwards, so constraints can be added and Solve called again.
func (s *Solver) Solve(termination TerminationCondition, brancher Brancher) SolveResult {
	if s.infeasible {
		return SolveResult{Status: StatusInfeasible}
	}
	if termination == nil {
		termination = Indefinite{}
	}
	if brancher == nil {
		brancher = s.DefaultBrancher()
	}
	debugAssert(s.assignments.DecisionLevel() == 0, "solving starts at the root")

	for {
		if termination.ShouldStop() {
			s.backjump(0, brancher)
			s.logFinished("unknown")
			return SolveResult{Status: StatusUnknown}
		}

		err := s.propagateToFixedPoint(termination)
		if err == nil {
			// Propagation may have been cut short by the budget; check
			// again before committing to a decision.
			if termination.ShouldStop() {
				s.backjump(0, brancher)
				s.logFinished("unknown")
				return SolveResult{Status: StatusUnknown}
			}

			decision, ok := brancher.NextDecision(NewSelectionContext(s.assignments))
			if !ok {
				solution := s.extractSolution()
				brancher.OnSolution(solution)
				s.backjump(0, brancher)
				s.logFinished("satisfiable")
				return SolveResult{Status: StatusSatisfiable, Solution: solution}
			}

			s.stats.Decisions++
			s.assignments.IncreaseDecisionLevel()
			s.reasons.IncreaseDecisionLevel()
			postErr := s.assignments.PostPredicate(decision, NoReason)
			debugAssert(postErr == nil, "decisions must target non-empty domains")
			continue
		}

		s.stats.Conflicts++
		brancher.OnConflict()

		if s.assignments.DecisionLevel() == 0 {
			s.infeasible = true
			s.logFinished("infeasible")
			return SolveResult{Status: StatusInfeasible}
		}

		conflict := s.conflictConjunction(err)
		learned := s.analyser.Analyse(conflict, s.assignments, s.reasons, &s.propagators)
		s.stats.LearnedNogoods++
		s.logger.Debug("learned nogood",
			zap.Int("size", len(learned.Predicates)),
			zap.Int("backjumpLevel", learned.BackjumpLevel),
			zap.Int64("conflicts", s.stats.Conflicts))

		s.backjump(learned.BackjumpLevel, brancher)

		ctx := NewPropagationContextMut(s.assignments, s.reasons, 0)
		s.nogoods.AddAssertingNogood(learned.Predicates, ctx)
		s.nogoods.DecayNogoodActivities()
	}
}

func (s *Solver) logFinished(outcome string) {
	s.logger.Info("search finished",
		zap.String("outcome", outcome),
		zap.Int64("decisions", s.stats.Decisions),
		zap.Int64("conflicts", s.stats.Conflicts),
		zap.Int64("propagations", s.stats.Propagations),
		zap.Int64("learnedNogoods", s.stats.LearnedNogoods),
		zap.Int("storedNogoods", s.nogoods.NumNogoods()))
}
