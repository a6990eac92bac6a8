package itm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crillab/goitm/lp"
)

func TestNormalizeCostsBreaksTies(t *testing.T) {
	obj := lp.Objective{Elements: []lp.ObjElement{
		{Factor: 2, Variable: 0},
		{Factor: 2, Variable: 1},
		{Factor: 2, Variable: 2},
		{Factor: 5, Variable: 3},
	}}
	model := newCostModel[float64](obj, 4)
	norm := normalizeCosts(testContext(), model, newRNG(1))
	c := norm.linear()

	// Tied coefficients become distinct.
	assert.NotEqual(t, c[0], c[1])
	assert.NotEqual(t, c[1], c[2])
	assert.NotEqual(t, c[0], c[2])

	// The jitter never reorders non-tied pairs.
	for j := 0; j < 3; j++ {
		assert.Less(t, c[j], c[3])
	}

	// Scaling puts the largest coefficient at 1, modulo the jitter.
	assert.GreaterOrEqual(t, c[3], 1.0)
	assert.Less(t, c[3], 1.5)
}

func TestNormalizeCostsDeterministic(t *testing.T) {
	obj := lp.Objective{Elements: []lp.ObjElement{
		{Factor: 1, Variable: 0},
		{Factor: 1, Variable: 1},
	}}
	a := normalizeCosts(testContext(), newCostModel[float64](obj, 2), newRNG(7))
	b := normalizeCosts(testContext(), newCostModel[float64](obj, 2), newRNG(7))
	assert.Equal(t, a.linear(), b.linear(), "same seed, same jitter")
}

func TestComputeDelta(t *testing.T) {
	obj := lp.Objective{Elements: []lp.ObjElement{
		{Factor: 0.5, Variable: 0},
		{Factor: 1, Variable: 1},
	}}
	model := newCostModel[float64](obj, 2)
	delta := computeDelta(testContext(), model, 0.5)
	assert.InDelta(t, 0.25, float64(delta), 1e-9, "smallest |cost| scaled by 1-theta")
	assert.Greater(t, float64(computeDelta(testContext(), model, 1.0)), 0.0,
		"theta 1 still yields a positive step")
}

func TestQuadraticCost(t *testing.T) {
	obj := lp.Objective{
		Elements:  []lp.ObjElement{{Factor: 1, Variable: 0}},
		QElements: []lp.QuadElement{{Factor: 3, VariableA: 0, VariableB: 1}},
	}
	model := newCostModel[float64](obj, 2)
	x := NewBitArray(2)

	// The quadratic pair is linearized against the current assignment.
	assert.Equal(t, 1.0, float64(model.cost(0, x)))
	x.Set(1)
	assert.Equal(t, 4.0, float64(model.cost(0, x)))

	x.Set(0)
	require.Equal(t, 4.0, model.results(x, 0))
}
