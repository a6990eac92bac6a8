package itm

import (
	"math/rand"
	"sort"
)

// A computeOrder produces the sequence of constraints visited by each pass
// and runs the local updates over it. A pass only revisits the constraints
// found violated at the end of the previous pass; the pushing pass visits
// everything. Strategies are stateless between solves but may keep one
// pass of history (direction, pi signs).
type computeOrder[F Float] struct {
	order    Order
	rng      *rand.Rand
	violated []int
	reversed bool
	changed  []bool // pi sign changes observed during the last pass
}

func newComputeOrder[F Float](order Order, rng *rand.Rand, m int) *computeOrder[F] {
	return &computeOrder[F]{
		order:   order,
		rng:     rng,
		changed: make([]bool, m),
	}
}

// init computes the initial violated-constraint list.
func (co *computeOrder[F]) init(s *solver[F], x *BitArray) {
	co.violated = s.violatedConstraints(x, co.violated[:0])
}

// arrange orders the given constraint list in place according to the
// strategy.
func (co *computeOrder[F]) arrange(s *solver[F], x *BitArray, list []int) {
	switch co.order {
	case OrderNone:
	case OrderReversing:
		if co.reversed {
			for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
				list[i], list[j] = list[j], list[i]
			}
		}
		co.reversed = !co.reversed
	case OrderRandomSorting:
		co.rng.Shuffle(len(list), func(i, j int) {
			list[i], list[j] = list[j], list[i]
		})
	case OrderInfeasibilityDecr:
		sort.SliceStable(list, func(i, j int) bool {
			return s.violation(list[i], x) > s.violation(list[j], x)
		})
	case OrderInfeasibilityIncr:
		sort.SliceStable(list, func(i, j int) bool {
			return s.violation(list[i], x) < s.violation(list[j], x)
		})
	case OrderLagrangianDecr:
		sort.SliceStable(list, func(i, j int) bool {
			return abs(s.pi[list[i]]) > abs(s.pi[list[j]])
		})
	case OrderLagrangianIncr:
		sort.SliceStable(list, func(i, j int) bool {
			return abs(s.pi[list[i]]) < abs(s.pi[list[j]])
		})
	case OrderPiSignChange:
		sort.SliceStable(list, func(i, j int) bool {
			return co.changed[list[i]] && !co.changed[list[j]]
		})
	default:
		panic("invalid constraint order")
	}
}

// run performs one pass of local updates over the violated constraints and
// returns the number of constraints still violated afterwards.
func (co *computeOrder[F]) run(s *solver[F], x *BitArray, kappa, delta, theta F) int {
	if len(co.violated) == 0 {
		co.violated = s.violatedConstraints(x, co.violated[:0])
	}
	co.arrange(s, x, co.violated)
	for i := range co.changed {
		co.changed[i] = false
	}
	for _, k := range co.violated {
		if s.computeUpdateRow(x, k, kappa, delta, theta, 0) {
			co.changed[k] = true
		}
	}
	co.violated = s.violatedConstraints(x, co.violated[:0])
	return len(co.violated)
}

// pushAndRun performs one objective-amplified pass over every constraint
// and returns the number of violated constraints afterwards.
func (co *computeOrder[F]) pushAndRun(s *solver[F], x *BitArray, kappa, delta, theta, objAmp F) int {
	all := make([]int, s.m)
	for k := range all {
		all[k] = k
	}
	co.arrange(s, x, all)
	for i := range co.changed {
		co.changed[i] = false
	}
	for _, k := range all {
		if s.computeUpdateRow(x, k, kappa, delta, theta, objAmp) {
			co.changed[k] = true
		}
	}
	co.violated = s.violatedConstraints(x, co.violated[:0])
	return len(co.violated)
}
