// Package main demonstrates basic lcg usage patterns.
//
// The example solves a small constraint satisfaction model, minimises a
// makespan-like objective on a second solver, and shows the engine
// falsifying the guard of a reified constraint on a third. The
// satisfaction model logs its search statistics through zap.
package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gitrdm/golcg/pkg/lcg"
)

func main() {
	fmt.Println("=== lcg Examples ===")
	fmt.Println()

	satisfaction()
	optimisation()
	reification()
}

// satisfaction solves a plain constraint satisfaction model.
func satisfaction() {
	fmt.Println("1. Constraint satisfaction:")

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	solver := lcg.NewSolver(lcg.WithLogger(logger))
	x := solver.NewVariable(0, 9)
	y := solver.NewVariable(0, 9)
	z := solver.NewVariable(0, 9)

	// 2x + 3y + z <= 14, all pairwise different.
	check(solver.AddPropagator(lcg.LinearLessEqual([]lcg.DomainID{x, y, z}, []int{2, 3, 1}, 14)))
	check(solver.AddPropagator(lcg.NotEqual(x, y, 0)))
	check(solver.AddPropagator(lcg.NotEqual(y, z, 0)))
	check(solver.AddPropagator(lcg.NotEqual(x, z, 0)))

	result := solver.Solve(lcg.NewTimeBudget(10*time.Second), nil)
	fmt.Printf("   status=%s x=%d y=%d z=%d\n\n",
		result.Status, result.Solution.Value(x), result.Solution.Value(y), result.Solution.Value(z))
}

// optimisation minimises a makespan-like objective.
func optimisation() {
	fmt.Println("2. Optimisation:")

	solver := lcg.NewSolver()
	start := solver.NewVariable(0, 20)
	end := solver.NewVariable(0, 20)

	// end >= start + 4, i.e. start - end <= -4.
	check(solver.AddPropagator(lcg.LinearLessEqual([]lcg.DomainID{start, end}, []int{1, -1}, -4)))
	// The task may not start before time 2: forbid start <= 1.
	check(solver.AddNogood([]lcg.Predicate{lcg.Leq(start, 1)}))

	result := lcg.Minimise(solver, lcg.NewTimeBudget(10*time.Second), nil, end)
	fmt.Printf("   status=%s end=%d\n\n", result.Status, result.ObjectiveValue)
}

// reification guards a constraint behind a literal and lets the engine
// falsify the guard.
func reification() {
	fmt.Println("3. Reification:")

	solver := lcg.NewSolver()
	x := solver.NewVariable(5, 9)
	y := solver.NewVariable(5, 9)
	guard := solver.NewLiteral()

	// guard -> x + y <= 8, impossible with these domains, so the engine
	// fixes the guard to false during root propagation.
	check(solver.AddPropagator(lcg.Reified(lcg.LinearLessEqual([]lcg.DomainID{x, y}, []int{1, 1}, 8), guard)))

	result := solver.Solve(nil, nil)
	fmt.Printf("   status=%s guard=%v\n", result.Status, result.Solution.LiteralValue(guard))
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}
