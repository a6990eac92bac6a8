package itm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderFixture(t *testing.T) (*solver[float64], *BitArray) {
	t.Helper()
	csts := []MergedConstraint{
		{Elements: []Element{{1, 0}, {1, 1}}, Min: 2, Max: 2},
		{Elements: []Element{{1, 1}, {1, 2}}, Min: 1, Max: 2},
		{Elements: []Element{{1, 0}, {1, 2}, {1, 3}}, Min: 3, Max: 3},
	}
	s := newTestSolver(t, csts, 4, []float64{1, 2, 3, 4})
	return s, NewBitArray(4)
}

func TestOrderArrangementsArePermutations(t *testing.T) {
	for _, order := range []Order{
		OrderNone, OrderReversing, OrderRandomSorting,
		OrderInfeasibilityDecr, OrderInfeasibilityIncr,
		OrderLagrangianDecr, OrderLagrangianIncr, OrderPiSignChange,
	} {
		t.Run(order.String(), func(t *testing.T) {
			s, x := orderFixture(t)
			co := newComputeOrder[float64](order, newRNG(1), s.m)
			co.init(s, x)
			require.Equal(t, []int{0, 1, 2}, co.violated)

			list := append([]int{}, co.violated...)
			co.arrange(s, x, list)
			seen := map[int]bool{}
			for _, k := range list {
				seen[k] = true
			}
			assert.Len(t, seen, 3, "arrange must keep a permutation")
		})
	}
}

func TestOrderReversingAlternates(t *testing.T) {
	s, x := orderFixture(t)
	co := newComputeOrder[float64](OrderReversing, newRNG(1), s.m)

	list := []int{0, 1, 2}
	co.arrange(s, x, list)
	assert.Equal(t, []int{0, 1, 2}, list, "first pass keeps the direction")
	co.arrange(s, x, list)
	assert.Equal(t, []int{2, 1, 0}, list, "second pass reverses")
}

func TestOrderInfeasibility(t *testing.T) {
	s, x := orderFixture(t)
	// All zero: violations are 2, 1 and 3.
	co := newComputeOrder[float64](OrderInfeasibilityDecr, newRNG(1), s.m)
	list := []int{0, 1, 2}
	co.arrange(s, x, list)
	assert.Equal(t, []int{2, 0, 1}, list)

	co = newComputeOrder[float64](OrderInfeasibilityIncr, newRNG(1), s.m)
	list = []int{0, 1, 2}
	co.arrange(s, x, list)
	assert.Equal(t, []int{1, 0, 2}, list)
}

func TestOrderLagrangian(t *testing.T) {
	s, x := orderFixture(t)
	s.pi[0], s.pi[1], s.pi[2] = 0.5, -2, 1

	co := newComputeOrder[float64](OrderLagrangianDecr, newRNG(1), s.m)
	list := []int{0, 1, 2}
	co.arrange(s, x, list)
	assert.Equal(t, []int{1, 2, 0}, list)
}

func TestRunReducesViolations(t *testing.T) {
	s, x := orderFixture(t)
	co := newComputeOrder[float64](OrderNone, newRNG(1), s.m)
	co.init(s, x)
	before := len(co.violated)
	remaining := co.run(s, x, 0.1, 0.5, 0.5)
	assert.Less(t, remaining, before)
}
