package itm

import (
	"math"
	"math/rand"
	"sort"

	"github.com/crillab/goitm/lp"
)

// Float is the working floating-point type of a solver instance.
type Float interface {
	~float32 | ~float64
}

// A costModel computes the per-variable cost used by the reduced-cost
// computation. The quadratic variant linearizes its quadratic terms against
// the current assignment.
type costModel[F Float] interface {
	// cost returns the cost of setting variable j under assignment x.
	cost(j int, x *BitArray) F
	// results returns the objective value of the full assignment, using
	// the model's coefficients plus the constant offset.
	results(x *BitArray, constant float64) float64
	// linear exposes the linear coefficients for normalization and delta
	// derivation.
	linear() []F
}

type linearCost[F Float] struct {
	c []F
}

func (lc *linearCost[F]) cost(j int, _ *BitArray) F {
	return lc.c[j]
}

func (lc *linearCost[F]) results(x *BitArray, constant float64) float64 {
	value := constant
	for j, cj := range lc.c {
		if x.Bit(j) {
			value += float64(cj)
		}
	}
	return value
}

func (lc *linearCost[F]) linear() []F {
	return lc.c
}

type quadTerm[F Float] struct {
	other  int
	factor F
}

type quadraticCost[F Float] struct {
	c     []F
	terms [][]quadTerm[F]
	pairs []lp.QuadElement
}

func (qc *quadraticCost[F]) cost(j int, x *BitArray) F {
	value := qc.c[j]
	for _, t := range qc.terms[j] {
		if x.Bit(t.other) {
			value += t.factor
		}
	}
	return value
}

func (qc *quadraticCost[F]) results(x *BitArray, constant float64) float64 {
	value := constant
	for j, cj := range qc.c {
		if x.Bit(j) {
			value += float64(cj)
		}
	}
	for _, q := range qc.pairs {
		if x.Bit(q.VariableA) && x.Bit(q.VariableB) {
			value += q.Factor
		}
	}
	return value
}

func (qc *quadraticCost[F]) linear() []F {
	return qc.c
}

// newCostModel builds the cost model of the objective: linear when the
// objective has no quadratic term, quadratic otherwise.
func newCostModel[F Float](obj lp.Objective, n int) costModel[F] {
	c := make([]F, n)
	for _, elem := range obj.Elements {
		c[elem.Variable] += F(elem.Factor)
	}
	if len(obj.QElements) == 0 {
		return &linearCost[F]{c: c}
	}
	terms := make([][]quadTerm[F], n)
	for _, q := range obj.QElements {
		terms[q.VariableA] = append(terms[q.VariableA], quadTerm[F]{other: q.VariableB, factor: F(q.Factor)})
		terms[q.VariableB] = append(terms[q.VariableB], quadTerm[F]{other: q.VariableA, factor: F(q.Factor)})
	}
	return &quadraticCost[F]{c: c, terms: terms, pairs: obj.QElements}
}

// normalizeCosts returns a copy of the model scaled to [-1, 1], with exact
// ties broken by a tiny jitter drawn from rng. The jitter stays below half
// the smallest gap between two distinct coefficients, so the relative order
// of non-tied pairs never changes. Without it, equal costs make the
// selection kernels cycle through the same deterministic choices.
func normalizeCosts[F Float](ctx *Context, model costModel[F], rng *rand.Rand) costModel[F] {
	src := model.linear()
	c := make([]F, len(src))
	copy(c, src)

	max := F(0)
	for _, v := range c {
		if a := abs(v); a > max {
			max = a
		}
	}
	scale := F(1)
	if max > 0 {
		scale = 1 / max
		for j := range c {
			c[j] *= scale
		}
	}

	jitter := tieJitter(c)
	if jitter > 0 {
		for j := range c {
			c[j] += F(rng.Float64()) * jitter
		}
	}
	ctx.logger().Debugf("cost normalization: scale=%g jitter=%g", float64(scale), float64(jitter))

	switch m := model.(type) {
	case *linearCost[F]:
		return &linearCost[F]{c: c}
	case *quadraticCost[F]:
		terms := make([][]quadTerm[F], len(m.terms))
		for j := range m.terms {
			terms[j] = make([]quadTerm[F], len(m.terms[j]))
			for k, t := range m.terms[j] {
				terms[j][k] = quadTerm[F]{other: t.other, factor: t.factor * scale}
			}
		}
		return &quadraticCost[F]{c: c, terms: terms, pairs: m.pairs}
	default:
		panic("unknown cost model")
	}
}

// tieJitter returns the jitter magnitude for the given coefficients: half
// the smallest nonzero gap when ties exist, zero when all values already
// differ.
func tieJitter[F Float](c []F) F {
	if len(c) < 2 {
		return 0
	}
	sorted := make([]float64, len(c))
	for i, v := range c {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)
	minGap := math.Inf(1)
	ties := false
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i] - sorted[i-1]
		if gap == 0 {
			ties = true
		} else if gap < minGap {
			minGap = gap
		}
	}
	if !ties {
		return 0
	}
	if math.IsInf(minGap, 1) {
		// All coefficients equal.
		return 1e-7
	}
	return F(minGap / 2)
}

// computeDelta derives the automatic preference step from the normalized
// cost spread: the smallest nonzero |cost| scaled by the part of the
// preference theta does not retain.
func computeDelta[F Float](ctx *Context, model costModel[F], theta F) F {
	min := F(0)
	for _, v := range model.linear() {
		if a := abs(v); a > 0 && (min == 0 || a < min) {
			min = a
		}
	}
	if min == 0 {
		min = 1
	}
	delta := min * (1 - theta)
	if delta <= 0 {
		delta = min / 2
	}
	ctx.logger().Debugf("automatic delta=%g", float64(delta))
	return delta
}

func abs[F Float](v F) F {
	if v < 0 {
		return -v
	}
	return v
}
