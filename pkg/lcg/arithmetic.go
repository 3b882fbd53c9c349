// Package lcg provides the core engine of a lazy-clause-generation solver.
//
// arithmetic.go: concrete arithmetic propagators. These exercise the full
// propagator contract — affine views, event subscriptions, eager reasons,
// inconsistency detection for reification — and give the engine something
// real to search over.
package lcg

// LinearLessEqualPropagator enforces sum(scale_i * x_i) <= c with bounds
// consistency. Each term is registered as an affine view, so the propagator
// body only ever sees plain variables.
type LinearLessEqualPropagator struct {
	terms []PropagatorVar
	bound int
}

// LinearLessEqual returns a constructor for sum(scales[i]*domains[i]) <= bound.
func LinearLessEqual(domains []DomainID, scales []int, bound int) func(*RegistrationContext) Propagator {
	debugAssert(len(domains) == len(scales), "one scale per variable")
	return func(ctx *RegistrationContext) Propagator {
		p := &LinearLessEqualPropagator{bound: bound}
		for i, d := range domains {
			// A term only matters when its minimum grows; in view space
			// that is always a lower-bound event.
			p.terms = append(p.terms, ctx.RegisterAffine(d, scales[i], 0, OnLowerBound))
		}
		return p
	}
}

// Name implements Propagator.
func (p *LinearLessEqualPropagator) Name() string { return "LinearLessEqual" }

// Priority implements Propagator.
func (p *LinearLessEqualPropagator) Priority() int { return 1 }

// InitialiseAtRoot implements Propagator by checking for a root conflict;
// actual filtering happens on the first scheduled propagation.
func (p *LinearLessEqualPropagator) InitialiseAtRoot(ctx *PropagationContextMut) Conjunction {
	return p.DetectInconsistency(ctx.AsReadonly())
}

// Notify implements Propagator: any lower-bound growth can tighten the
// other terms.
func (p *LinearLessEqualPropagator) Notify(_ *PropagationContext, _ LocalID, _ DomainEvent) EnqueueDecision {
	return Enqueue
}

// Propagate implements Propagator with standard bounds reasoning: with
// S = sum of term minima, every term i is capped at bound - (S - min_i),
// justified by the minima of all other terms.
func (p *LinearLessEqualPropagator) Propagate(ctx *PropagationContextMut) error {
	read := ctx.AsReadonly()

	sumOfMinima := 0
	for _, term := range p.terms {
		sumOfMinima += term.LowerBound(read)
	}

	if sumOfMinima > p.bound {
		return &ConflictError{Conjunction: p.lowerBoundConjunction(read)}
	}

	for i, term := range p.terms {
		termUpperBound := p.bound - (sumOfMinima - term.LowerBound(read))
		if termUpperBound >= term.UpperBound(read) {
			continue
		}
		reason := make(Conjunction, 0, len(p.terms)-1)
		for j, other := range p.terms {
			if j != i {
				reason = append(reason, other.GreaterEqual(other.LowerBound(read)))
			}
		}
		if err := term.SetUpperBound(ctx, termUpperBound, EagerReason(reason)); err != nil {
			return err
		}
	}
	return nil
}

// DebugPropagateFromScratch implements Propagator; the filtering is already
// stateless.
func (p *LinearLessEqualPropagator) DebugPropagateFromScratch(ctx *PropagationContextMut) error {
	return p.Propagate(ctx)
}

// DetectInconsistency implements InconsistencyDetector: the sum of minima
// exceeding the bound witnesses that the constraint cannot hold.
func (p *LinearLessEqualPropagator) DetectInconsistency(ctx *PropagationContext) Conjunction {
	sumOfMinima := 0
	for _, term := range p.terms {
		sumOfMinima += term.LowerBound(ctx)
	}
	if sumOfMinima > p.bound {
		return p.lowerBoundConjunction(ctx)
	}
	return nil
}

func (p *LinearLessEqualPropagator) lowerBoundConjunction(ctx *PropagationContext) Conjunction {
	conjunction := make(Conjunction, 0, len(p.terms))
	for _, term := range p.terms {
		conjunction = append(conjunction, term.GreaterEqual(term.LowerBound(ctx)))
	}
	return conjunction
}

// NotEqualPropagator enforces x + offset != y for two variables. Affine
// views absorb the offset, so the body enforces plain disequality of the
// two view values.
type NotEqualPropagator struct {
	x PropagatorVar
	y PropagatorVar
}

// NotEqual returns a constructor for x + offset != y.
func NotEqual(x, y DomainID, offset int) func(*RegistrationContext) Propagator {
	return func(ctx *RegistrationContext) Propagator {
		return &NotEqualPropagator{
			x: ctx.RegisterAffine(x, 1, offset, OnAssign),
			y: ctx.Register(y, OnAssign),
		}
	}
}

// Name implements Propagator.
func (p *NotEqualPropagator) Name() string { return "NotEqual" }

// Priority implements Propagator.
func (p *NotEqualPropagator) Priority() int { return 1 }

// InitialiseAtRoot implements Propagator.
func (p *NotEqualPropagator) InitialiseAtRoot(ctx *PropagationContextMut) Conjunction {
	if conflict := p.DetectInconsistency(ctx.AsReadonly()); conflict != nil {
		return conflict
	}
	return nil
}

// Notify implements Propagator: only assignments matter.
func (p *NotEqualPropagator) Notify(_ *PropagationContext, _ LocalID, _ DomainEvent) EnqueueDecision {
	return Enqueue
}

// Propagate implements Propagator: once either side is fixed, its value is
// removed from the other side, justified by the fixing predicate.
func (p *NotEqualPropagator) Propagate(ctx *PropagationContextMut) error {
	read := ctx.AsReadonly()

	if value, ok := p.x.AssignedValue(read); ok {
		reason := Conjunction{p.x.Equal(value)}
		if err := p.y.RemoveValue(ctx, value, EagerReason(reason)); err != nil {
			return err
		}
	}
	if value, ok := p.y.AssignedValue(read); ok {
		reason := Conjunction{p.y.Equal(value)}
		if err := p.x.RemoveValue(ctx, value, EagerReason(reason)); err != nil {
			return err
		}
	}
	return nil
}

// DebugPropagateFromScratch implements Propagator.
func (p *NotEqualPropagator) DebugPropagateFromScratch(ctx *PropagationContextMut) error {
	return p.Propagate(ctx)
}

// DetectInconsistency implements InconsistencyDetector: both sides fixed to
// the same value witnesses the violation.
func (p *NotEqualPropagator) DetectInconsistency(ctx *PropagationContext) Conjunction {
	xValue, xFixed := p.x.AssignedValue(ctx)
	yValue, yFixed := p.y.AssignedValue(ctx)
	if xFixed && yFixed && xValue == yValue {
		return Conjunction{p.x.Equal(xValue), p.y.Equal(yValue)}
	}
	return nil
}
