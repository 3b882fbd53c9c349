// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// errors.go: the error taxonomy of the engine. All failures are explicit
// values; no panics are used for control flow.
package lcg

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// ErrEmptyDomain is the sentinel for a bound or hole update that would leave
// a domain with lower bound above upper bound. Use IsEmptyDomain (or
// errors.As with *EmptyDomainError) to test for it.
var ErrEmptyDomain = stderrors.New("empty domain")

// EmptyDomainError reports which domain became empty. It unwraps to
// ErrEmptyDomain.
type EmptyDomainError struct {
	Domain DomainID
}

func (e *EmptyDomainError) Error() string {
	return fmt.Sprintf("empty domain for variable x%d", e.Domain)
}

// Unwrap makes errors.Is(err, ErrEmptyDomain) hold.
func (e *EmptyDomainError) Unwrap() error { return ErrEmptyDomain }

// IsEmptyDomain reports whether err signals an emptied domain.
func IsEmptyDomain(err error) bool {
	return stderrors.Is(err, ErrEmptyDomain)
}

// AsEmptyDomain extracts the EmptyDomainError from err, if present.
func AsEmptyDomain(err error) (*EmptyDomainError, bool) {
	var empty *EmptyDomainError
	if stderrors.As(err, &empty) {
		return empty, true
	}
	return nil, false
}

// ConflictError is returned by a propagator that detects a violated nogood:
// the conjunction holds in the current state yet is forbidden.
type ConflictError struct {
	Conjunction Conjunction
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Conjunction)
}

// AsConflict extracts a ConflictError from err, if present.
func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if stderrors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

// Constraint-addition failures. These are surfaced by the solver's Add
// methods, wrapped with call-site context via github.com/pkg/errors.
var (
	// ErrInfeasibleNogood signals that adding a nogood falsified the root.
	ErrInfeasibleNogood = stderrors.New("nogood is infeasible at the root")
	// ErrInfeasibleState signals an addition to a solver already known to
	// be infeasible. The infeasible state is sticky.
	ErrInfeasibleState = stderrors.New("solver is in an infeasible state")
)

// wrapConstraintErr attaches operation context to a constraint-addition
// failure.
func wrapConstraintErr(err error, operation string) error {
	return errors.Wrap(err, operation)
}
