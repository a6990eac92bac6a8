package itm

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/crillab/goitm/lp"
)

// Infinite bound markers used while building merged constraints. They never
// survive MakeMergedConstraints: infinite sides are replaced by the sum of
// the negative (resp. positive) factors.
const (
	minusInfinity = math.MinInt32
	plusInfinity  = math.MaxInt32
)

// An Element is one nonzero of a merged constraint.
type Element struct {
	Factor int
	Column int
}

// A MergedConstraint is a canonicalized two-sided linear form
// Min <= sum Factor*x <= Max with finite integer bounds, no zero factor and
// no duplicate column.
type MergedConstraint struct {
	ID       int
	Elements []Element
	Min      int
	Max      int
}

// normalizeElements merges duplicate columns by summing factors, keeps the
// order of first occurrence and drops zero factors.
func normalizeElements(elems []lp.Element) []Element {
	out := make([]Element, 0, len(elems))
	pos := make(map[int]int, len(elems))
	for _, e := range elems {
		if i, ok := pos[e.Variable]; ok {
			out[i].Factor += e.Factor
			continue
		}
		pos[e.Variable] = len(out)
		out = append(out, Element{Factor: e.Factor, Column: e.Variable})
	}
	kept := out[:0]
	for _, e := range out {
		if e.Factor != 0 {
			kept = append(kept, e)
		}
	}
	return kept
}

// elementsKey returns a canonical identity for an element multiset, so that
// duplicate constraints are detected up to reordering.
func elementsKey(elems []Element) string {
	sorted := make([]Element, len(elems))
	copy(sorted, elems)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Column != sorted[j].Column {
			return sorted[i].Column < sorted[j].Column
		}
		return sorted[i].Factor < sorted[j].Factor
	})
	var sb strings.Builder
	for _, e := range sorted {
		fmt.Fprintf(&sb, "%d:%d;", e.Factor, e.Column)
	}
	return sb.String()
}

// MakeMergedConstraints canonicalizes the three raw constraint lists into
// two-sided bounded forms, merging duplicate element sets by intersecting
// their bounds. Duplicates with an empty intersection are a fatal
// problem-definition error.
func MakeMergedConstraints(ctx *Context, pb *lp.Problem) ([]MergedConstraint, error) {
	var out []MergedConstraint
	index := make(map[string]int)

	add := func(cst lp.Constraint, min, max int) error {
		elems := normalizeElements(cst.Elements)
		if len(elems) == 0 {
			if min <= 0 && 0 <= max {
				return nil
			}
			return &lp.DefinitionError{Tag: lp.DefConflictingConstraints, Name: cst.Label}
		}
		key := elementsKey(elems)
		if i, ok := index[key]; ok {
			if min > out[i].Min {
				out[i].Min = min
			}
			if max < out[i].Max {
				out[i].Max = max
			}
			if out[i].Min > out[i].Max {
				return &lp.DefinitionError{Tag: lp.DefConflictingConstraints, Name: cst.Label}
			}
			return nil
		}
		index[key] = len(out)
		out = append(out, MergedConstraint{ID: cst.ID, Elements: elems, Min: min, Max: max})
		return nil
	}

	for _, cst := range pb.Equal {
		if err := add(cst, cst.Value, cst.Value); err != nil {
			return nil, err
		}
	}
	for _, cst := range pb.Greater {
		if err := add(cst, cst.Value, plusInfinity); err != nil {
			return nil, err
		}
	}
	for _, cst := range pb.Less {
		if err := add(cst, minusInfinity, cst.Value); err != nil {
			return nil, err
		}
	}

	// Replace the remaining infinite sides with the trivially tight bound:
	// the sum of the negative (resp. positive) factors.
	for i := range out {
		lower, upper := 0, 0
		for _, e := range out[i].Elements {
			if e.Factor > 0 {
				upper += e.Factor
			} else {
				lower += e.Factor
			}
		}
		if out[i].Min == minusInfinity {
			out[i].Min = lower
		}
		if out[i].Max == plusInfinity {
			out[i].Max = upper
		}
		if out[i].Min > out[i].Max {
			return nil, &lp.DefinitionError{Tag: lp.DefConflictingConstraints}
		}
	}

	nnz := 0
	for i := range out {
		nnz += len(out[i].Elements)
		if nnz > math.MaxInt32 {
			return nil, &SolverError{Tag: ErrNumericCastOverflow, Detail: "too many nonzeros"}
		}
	}

	ctx.logger().Debugf("merged %d constraints into %d (%d nonzeros)",
		pb.NbConstraints(), len(out), nnz)
	return out, nil
}
