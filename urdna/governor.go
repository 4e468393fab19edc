package urdna

import (
	"context"
	"math"

	"github.com/pkg/errors"
)

// Unbounded disables a resource limit
const Unbounded = -1

// DefaultMaxWorkFactor is used when neither limit is configured
const DefaultMaxWorkFactor = 1

// Governor bounds the work done by Hash N-Degree Quads. Each blank node
// may be expanded at most Limit() times in one run, and the context is
// polled once per expansion and once per permutation.
type Governor struct {
	ctx               context.Context
	maxDeepIterations int
	maxWorkFactor     int

	limit  int
	counts map[string]int
	total  int
}

// NewGovernor returns a governor for one run. A zero maxDeepIterations
// derives the limit from maxWorkFactor, and a zero maxWorkFactor means
// DefaultMaxWorkFactor.
func NewGovernor(ctx context.Context, maxDeepIterations, maxWorkFactor int) *Governor {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Governor{
		ctx:               ctx,
		maxDeepIterations: maxDeepIterations,
		maxWorkFactor:     maxWorkFactor,
		limit:             Unbounded,
		counts:            map[string]int{},
	}
}

// Start fixes the per-node limit once the number of blank nodes that
// share their first degree hash is known.
func (g *Governor) Start(nonUnique int) {
	switch {
	case g.maxDeepIterations == Unbounded:
		g.limit = Unbounded
	case g.maxDeepIterations > 0:
		g.limit = g.maxDeepIterations
	case g.maxWorkFactor == Unbounded:
		g.limit = Unbounded
	default:
		factor := g.maxWorkFactor
		if factor == 0 {
			factor = DefaultMaxWorkFactor
		}
		g.limit = power(nonUnique, factor)
	}
}

// power returns base^exp, saturating at math.MaxInt
func power(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		if base != 0 && result > math.MaxInt/base {
			return math.MaxInt
		}
		result *= base
	}
	return result
}

// Limit returns the per-node deep iteration limit, or Unbounded
func (g *Governor) Limit() int { return g.limit }

// Iterations returns the total number of expansions so far
func (g *Governor) Iterations() int { return g.total }

// Enter records one Hash N-Degree Quads expansion of id
func (g *Governor) Enter(id string) error {
	if err := g.Poll(id); err != nil {
		return err
	}
	count := g.counts[id]
	if g.limit != Unbounded && count >= g.limit {
		return &AbortError{Reason: ErrIterationBudgetExceeded, ID: id, Iterations: g.total}
	}
	g.counts[id] = count + 1
	g.total++
	return nil
}

// Poll checks the context without recording work
func (g *Governor) Poll(id string) error {
	select {
	case <-g.ctx.Done():
	default:
		return nil
	}

	reason := ErrCancelled
	if errors.Is(g.ctx.Err(), context.DeadlineExceeded) {
		reason = ErrDeadlineExceeded
	}
	return &AbortError{Reason: reason, ID: id, Iterations: g.total}
}
