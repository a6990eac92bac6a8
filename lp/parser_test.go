package lp

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallLP = `\ a tiny assignment problem
minimize
obj: x1 + 2 x2 - x3 + 4
subject to
c1: x1 + x2 >= 1
x2 + x3 <= 2
c3: x1 - x3 = 0
binary
x1
x2
x3
end
`

func TestParseSmall(t *testing.T) {
	pb, err := Parse(strings.NewReader(smallLP))
	require.NoError(t, err)

	assert.Equal(t, Minimize, pb.Sense)
	assert.Equal(t, []string{"x1", "x2", "x3"}, pb.Vars.Names)
	assert.Equal(t, 4.0, pb.Objective.Constant)
	require.Len(t, pb.Objective.Elements, 3)
	assert.Equal(t, ObjElement{Factor: 1, Variable: 0}, pb.Objective.Elements[0])
	assert.Equal(t, ObjElement{Factor: 2, Variable: 1}, pb.Objective.Elements[1])
	assert.Equal(t, ObjElement{Factor: -1, Variable: 2}, pb.Objective.Elements[2])

	require.Len(t, pb.Greater, 1)
	assert.Equal(t, "c1", pb.Greater[0].Label)
	assert.Equal(t, 1, pb.Greater[0].Value)
	assert.Equal(t, []Element{{1, 0}, {1, 1}}, pb.Greater[0].Elements)

	require.Len(t, pb.Less, 1)
	assert.Equal(t, "ct1", pb.Less[0].Label, "unlabeled constraints get a default label")

	require.Len(t, pb.Equal, 1)
	assert.Equal(t, []Element{{1, 0}, {-1, 2}}, pb.Equal[0].Elements)

	for _, vv := range pb.Vars.Values {
		assert.Equal(t, Binary, vv.Type)
	}
}

func TestParseOperatorSynonyms(t *testing.T) {
	pb, err := Parse(strings.NewReader(`maximize
x1 + x2
st
c1: x1 =< 1
c2: x2 == 1
end
`))
	require.NoError(t, err)
	assert.Equal(t, Maximize, pb.Sense)
	assert.Len(t, pb.Less, 1, "=< is a synonym of <=")
	assert.Len(t, pb.Greater, 1, "== is a synonym of >=")
}

func TestParseGluedTokens(t *testing.T) {
	pb, err := Parse(strings.NewReader(`minimize
x1
subject to:
c1: 2x1+x2>=1
end
`))
	require.NoError(t, err)
	require.Len(t, pb.Greater, 1)
	assert.Equal(t, []Element{{2, 0}, {1, 1}}, pb.Greater[0].Elements)
	assert.Equal(t, 1, pb.Greater[0].Value)
}

func TestParseBounds(t *testing.T) {
	pb, err := Parse(strings.NewReader(`minimize
x1 + x2 + x3
subject to
x1 + x2 + x3 >= 1
bounds
0 <= x1 <= 1
x2 <= 1
1 <= x3
end
`))
	require.NoError(t, err)
	assert.Equal(t, 0, pb.Vars.Values[0].Min)
	assert.Equal(t, 1, pb.Vars.Values[0].Max)
	assert.Equal(t, 1, pb.Vars.Values[2].Min)
}

func TestParseNegativeRHS(t *testing.T) {
	pb, err := Parse(strings.NewReader(`minimize
x1 + x2
subject to
c1: - x1 - x2 >= -1
end
`))
	require.NoError(t, err)
	require.Len(t, pb.Greater, 1)
	assert.Equal(t, -1, pb.Greater[0].Value)
	assert.Equal(t, []Element{{-1, 0}, {-1, 1}}, pb.Greater[0].Elements)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
		tag   ParseTag
	}{
		{"bad objective", "solve\nx1\nend\n", ErrBadObjective},
		{"missing end", "minimize\nx1\nsubject to\nx1 >= 1\n", ErrEOF},
		{"bad element", "minimize\nx1\nsubject to\nc1: x1 ! 1\nend\n", ErrBadElement},
		{"bad rhs", "minimize\nx1\nsubject to\nc1: x1 >= one\nend\n", ErrBadInteger},
		{"unknown binary", "minimize\nx1\nsubject to\nx1 >= 1\nbinary\ny9\nend\n", ErrUnknown},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.tag, perr.Tag)
			assert.Greater(t, perr.Line, 0)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	pb, err := Parse(strings.NewReader(smallLP))
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, Write(&sb, pb))

	again, err := Parse(strings.NewReader(sb.String()))
	require.NoError(t, err)

	assert.Equal(t, pb.Sense, again.Sense)
	assert.Equal(t, pb.Vars.Names, again.Vars.Names)
	assert.Equal(t, pb.Objective.Elements, again.Objective.Elements)
	assert.Equal(t, pb.Objective.Constant, again.Objective.Constant)
	assert.Equal(t, constraintSet(pb.Equal), constraintSet(again.Equal))
	assert.Equal(t, constraintSet(pb.Greater), constraintSet(again.Greater))
	assert.Equal(t, constraintSet(pb.Less), constraintSet(again.Less))
}

// constraintSet drops labels and ids, which the round trip does not
// preserve for defaulted constraints.
func constraintSet(csts []Constraint) map[string]int {
	out := make(map[string]int, len(csts))
	for _, cst := range csts {
		var sb strings.Builder
		for _, e := range cst.Elements {
			fmt.Fprintf(&sb, "%d*v%d ", e.Factor, e.Variable)
		}
		out[sb.String()] = cst.Value
	}
	return out
}

func TestRoundTripBounds(t *testing.T) {
	// x3 is left out of the binary section and stays Real-typed; the
	// interval its bounds line sets must survive the write/parse cycle.
	pb, err := Parse(strings.NewReader(`minimize
x1 + x2 + x3
subject to
c1: x1 + x2 + x3 >= 1
bounds
1 <= x3
0 <= x2 <= 1
binary
x1
end
`))
	require.NoError(t, err)
	require.Equal(t, Real, pb.Vars.Values[2].Type)
	require.Equal(t, VarValue{Min: 1, Max: 1, Type: Real}, pb.Vars.Values[2])

	var sb strings.Builder
	require.NoError(t, Write(&sb, pb))
	assert.Contains(t, sb.String(), "1 <= x3 <= 1")

	again, err := Parse(strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, pb.Vars.Names, again.Vars.Names)
	assert.Equal(t, pb.Vars.Values, again.Vars.Values)
}

func TestValidate(t *testing.T) {
	pb, err := Parse(strings.NewReader(smallLP))
	require.NoError(t, err)
	require.NoError(t, pb.Validate())

	empty := &Problem{}
	var derr *DefinitionError
	require.ErrorAs(t, empty.Validate(), &derr)
	assert.Equal(t, DefEmptyVariables, derr.Tag)

	noObj := &Problem{Vars: Variables{Names: []string{"x"}, Values: []VarValue{{Max: 1}}}}
	require.ErrorAs(t, noObj.Validate(), &derr)
	assert.Equal(t, DefEmptyObjective, derr.Tag)

	unused := &Problem{
		Vars: Variables{
			Names:  []string{"x", "y"},
			Values: []VarValue{{Max: 1}, {Max: 1}},
		},
		Objective: Objective{Elements: []ObjElement{{Factor: 1, Variable: 0}}},
	}
	require.ErrorAs(t, unused.Validate(), &derr)
	assert.Equal(t, DefVariableNotUsed, derr.Tag)
}

func TestCoefficientRegime(t *testing.T) {
	pb := &Problem{Equal: []Constraint{{Elements: []Element{{1, 0}, {1, 1}}}}}
	assert.Equal(t, Coeff01, pb.Coefficient())
	pb.Equal[0].Elements[0].Factor = -1
	assert.Equal(t, Coeff101, pb.Coefficient())
	pb.Equal[0].Elements[1].Factor = 3
	assert.Equal(t, CoeffZ, pb.Coefficient())
	assert.Equal(t, "equalities-Z", pb.Type())
}
