package itm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func count(vars []bool) int {
	n := 0
	for _, v := range vars {
		if v {
			n++
		}
	}
	return n
}

func TestSolveCovering(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2
subject to
c1: x1 + x2 >= 1
binary
x1
x2
end
`)
	ctx := testContext()
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())

	best := res.Best()
	assert.Equal(t, 1.0, best.Value)
	assert.Equal(t, 1, count(best.Variables), "exactly one of x1, x2 is set")
	assert.Equal(t, 0, res.RemainingConstraints)
}

func TestSolveMaximize(t *testing.T) {
	pb := mustParse(t, `maximize
3 x1 + 2 x2 + 4 x3
subject to
c1: x1 + x2 + x3 <= 2
binary
x1
x2
x3
end
`)
	ctx := testContext()
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())

	best := res.Best()
	assert.Equal(t, 7.0, best.Value)
	assert.Equal(t, []bool{true, false, true}, best.Variables)
}

func TestSolveSharedVariable(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2 + x3
subject to
c1: x1 + x2 >= 1
c2: x2 + x3 >= 1
binary
x1
x2
x3
end
`)
	ctx := testContext()
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())

	best := res.Best()
	assert.Equal(t, 1.0, best.Value)
	assert.Equal(t, []bool{false, true, false}, best.Variables,
		"x2 covers both constraints")
}

func TestSolve101Equality(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2 + x3 + x4 + x5
subject to
c1: - x1 - x2 + x3 + x4 + x5 = 2
binary
x1
x2
x3
x4
x5
end
`)
	ctx := testContext()
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())

	best := res.Best()
	assert.False(t, best.Variables[0], "negated variables restore to 0")
	assert.False(t, best.Variables[1])
	assert.Equal(t, 2, count(best.Variables[2:]), "exactly two of x3, x4, x5")

	value := 0
	for i, set := range best.Variables {
		f := 1
		if i < 2 {
			f = -1
		}
		if set {
			value += f
		}
	}
	assert.Equal(t, 2, value, "the row value equals the bound")
}

func TestSolveZRegime(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2 + x3
subject to
c1: 2 x1 + 3 x2 + 5 x3 = 5
binary
x1
x2
x3
end
`)
	ctx := testContext()
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())

	best := res.Best()
	v := 0
	for i, f := range []int{2, 3, 5} {
		if best.Variables[i] {
			v += f
		}
	}
	assert.Equal(t, 5, v)
}

func TestSolveLimitZeroReturnsInitial(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2
subject to
c1: x1 + x2 >= 1
end
`)
	ctx := testContext()
	ctx.Params.Limit = 0
	ctx.Params.PushesLimit = 0
	ctx.Params.Preprocessor = PreprocessorNone

	res, err := Solve(ctx, pb)
	require.NoError(t, err)

	// Bastert on positive costs starts all-zero: the violated constraint
	// is reported untouched.
	require.Len(t, res.Solutions, 1)
	assert.Equal(t, []bool{false, false}, res.Solutions[0].Variables)
	assert.Equal(t, 1, res.RemainingConstraints)
	assert.NotEqual(t, StatusSuccess, res.Status)
}

func TestSolveNoConstraints(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2
end
`)
	res, err := Solve(testContext(), pb)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	require.Len(t, res.Solutions, 1)
	assert.Equal(t, []bool{false, false}, res.Solutions[0].Variables)
}

func TestSolveTimeLimitZeroIsInfinite(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2
subject to
c1: x1 + x2 >= 1
end
`)
	ctx := testContext()
	ctx.Params.TimeLimit = 0
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.NotEqual(t, StatusTimeLimitReached, res.Status)
}

func TestSolveDeterministic(t *testing.T) {
	src := `minimize
x1 + x2 + x3 + x4
subject to
c1: x1 + x2 + x3 >= 2
c2: x2 + x3 + x4 <= 2
c3: x1 + x4 >= 1
end
`
	run := func() *Result {
		ctx := testContext()
		res, err := Solve(ctx, mustParse(t, src))
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	require.Equal(t, a.Status, b.Status)
	require.Equal(t, len(a.Solutions), len(b.Solutions))
	if a.HasSolution() {
		assert.Equal(t, a.Best().Variables, b.Best().Variables)
		assert.Equal(t, a.Best().Value, b.Best().Value)
	}
}

func TestSolveUnsatisfiableStopsOnLimit(t *testing.T) {
	// An odd anti-chain: no 0/1 assignment satisfies all three.
	pb := mustParse(t, `minimize
x1 + x2 + x3
subject to
c1: x1 + x2 = 1
c2: x2 + x3 = 1
c3: x1 + x3 = 1
end
`)
	ctx := testContext()
	ctx.Params.Limit = 50
	res, err := Solve(ctx, pb)
	require.NoError(t, err, "hitting a limit is a status, not an error")
	assert.NotEqual(t, StatusSuccess, res.Status)
	assert.Greater(t, res.RemainingConstraints, 0)
}

func TestSolveFloat32(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2
subject to
c1: x1 + x2 >= 1
end
`)
	ctx := testContext()
	ctx.Params.FloatType = Float32
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())
	assert.Equal(t, 1.0, res.Best().Value)
}

func TestKappaMaxReached(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2 + x3
subject to
c1: x1 + x2 = 1
c2: x2 + x3 = 1
c3: x1 + x3 = 1
end
`)
	ctx := testContext()
	ctx.Params.KappaMin = 0.5
	ctx.Params.KappaStep = 0.2
	ctx.Params.KappaMax = 0.6
	ctx.Params.W = 0
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	assert.Equal(t, StatusKappaMaxReached, res.Status)
}

func TestWriteSolution(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2
subject to
c1: x1 + x2 >= 1
binary
x1
x2
end
`)
	ctx := testContext()
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())

	var sb strings.Builder
	require.NoError(t, WriteSolution(&sb, pb, res))
	out := sb.String()
	assert.Contains(t, out, "\\ type: inequalities-01")
	assert.Contains(t, out, "\\ status: success")
	assert.Regexp(t, `x1=[01]`, out)
	assert.Regexp(t, `x2=[01]`, out)
	assert.Contains(t, out, "\\ objective: 1")
}

func TestUpdateCallbackMonotone(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2 + x3
subject to
c1: x1 + x2 >= 1
c2: x2 + x3 >= 1
end
`)
	ctx := testContext()
	lastRemaining := int(^uint(0) >> 1)
	sawFeasible := false
	ctx.Update = func(remaining int, value float64, loop int, duration float64) {
		assert.LessOrEqual(t, remaining, lastRemaining,
			"the best record only improves")
		if remaining == 0 {
			sawFeasible = true
		}
		lastRemaining = remaining
	}
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())
	assert.True(t, sawFeasible)
}

func TestAffectedVariablesInResult(t *testing.T) {
	pb := mustParse(t, `minimize
x1 + x2 + x3
subject to
c1: x1 >= 1
c2: x1 + x2 + x3 >= 2
end
`)
	ctx := testContext()
	res, err := Solve(ctx, pb)
	require.NoError(t, err)
	require.True(t, res.HasSolution())

	require.Contains(t, res.AffectedVars.Names, "x1")
	values := res.Assignment()
	assert.True(t, values["x1"])
	assert.Len(t, values, 3)
}
