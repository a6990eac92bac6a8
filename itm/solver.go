package itm

import (
	"math/rand"
)

// A bound is the integer interval a constraint row value must fall in.
type bound struct {
	min int
	max int
}

// A solver holds the per-instance mutable state of one In-The-Middle
// run: the sparse incidence, the coefficient and preference arrays keyed by
// value-index, the dual vector, the reduced-cost scratch and the negative
// coefficient indices. Nothing here is shared across workers.
type solver[F Float] struct {
	rng  *rand.Rand
	mode mode

	ap *SparseMatrix
	A  []int       // factor per value-index
	P  []F         // preference per value-index
	R  []rcData[F] // reduced-cost scratch, sized to the longest row
	C  [][]int     // per-constraint row positions of negative factors
	Z  []bool      // per-constraint flag: some |factor| > 1
	b  []bound
	pi []F

	c costModel[F]
	m int
	n int

	// debug enables the post-selection bound assertions.
	debug bool
}

func newSolver[F Float](rng *rand.Rand, md mode, cost costModel[F], csts []MergedConstraint, n int) (*solver[F], error) {
	m := len(csts)
	ap := NewSparseMatrix(csts, n)
	s := &solver[F]{
		rng:  rng,
		mode: md,
		ap:   ap,
		A:    make([]int, ap.Size()),
		P:    make([]F, ap.Size()),
		C:    make([][]int, m),
		Z:    make([]bool, m),
		b:    make([]bound, m),
		pi:   make([]F, m),
		c:    cost,
		m:    m,
		n:    n,
	}
	rMax := 0
	id := 0
	for k := range csts {
		lower, upper := 0, 0
		for pos, elem := range csts[k].Elements {
			if elem.Factor == 0 {
				panic("solver: zero factor in merged constraint")
			}
			s.A[id] = elem.Factor
			id++
			if elem.Factor > 0 {
				upper += elem.Factor
			} else {
				lower += elem.Factor
				s.C[k] = append(s.C[k], pos)
			}
			if elem.Factor < -1 || elem.Factor > 1 {
				s.Z[k] = true
			}
		}
		if r := len(csts[k].Elements); r > rMax {
			rMax = r
		}
		if csts[k].Min == csts[k].Max {
			s.b[k] = bound{min: csts[k].Min, max: csts[k].Max}
		} else {
			s.b[k] = bound{min: maxInt(lower, csts[k].Min), max: minInt(upper, csts[k].Max)}
		}
		if s.b[k].min > s.b[k].max {
			return nil, &SolverError{Tag: ErrUnrealisableConstraint}
		}
	}
	s.R = make([]rcData[F], rMax)
	return s, nil
}

// reset clears the preference and dual memory between optimizer rounds.
func (s *solver[F]) reset() {
	for i := range s.P {
		s.P[i] = 0
	}
	for i := range s.pi {
		s.pi[i] = 0
	}
}

// decreasePreference decays the preference cells of a row. Theta 0 resets
// the row memory, 1 keeps it untouched.
func (s *solver[F]) decreasePreference(row []RowEntry, theta F) {
	for _, e := range row {
		s.P[e.Value] *= theta
	}
}

// computeReducedCosts fills R for the given row: for each element, the cost
// of its variable minus the row contributions through pi and through P,
// accumulated over the variable's column.
func (s *solver[F]) computeReducedCosts(row []RowEntry, x *BitArray) int {
	for i, e := range row {
		var sumAPi, sumAP F
		for _, h := range s.ap.Column(e.Column) {
			a := F(s.A[h.Value])
			sumAPi += a * s.pi[h.Row]
			sumAP += a * s.P[h.Value]
		}
		s.R[i] = rcData[F]{
			value: s.c.cost(e.Column, x) - sumAPi - sumAP,
			id:    i,
			f:     s.A[e.Value],
		}
	}
	return len(row)
}

// rowValue is the current integer value of the row under x.
func (s *solver[F]) rowValue(k int, x *BitArray) int {
	v := 0
	for _, e := range s.ap.Row(k) {
		if x.Bit(e.Column) {
			v += s.A[e.Value]
		}
	}
	return v
}

// violation returns how far the row value is from its bounds, zero when
// the constraint holds.
func (s *solver[F]) violation(k int, x *BitArray) int {
	v := s.rowValue(k, x)
	if v < s.b[k].min {
		return s.b[k].min - v
	}
	if v > s.b[k].max {
		return v - s.b[k].max
	}
	return 0
}

// violatedConstraints appends to out the indices of the violated
// constraints, in increasing order.
func (s *solver[F]) violatedConstraints(x *BitArray, out []int) []int {
	for k := 0; k < s.m; k++ {
		if s.violation(k, x) != 0 {
			out = append(out, k)
		}
	}
	return out
}

// isValid reports whether x satisfies every constraint.
func (s *solver[F]) isValid(x *BitArray) bool {
	for k := 0; k < s.m; k++ {
		if s.violation(k, x) != 0 {
			return false
		}
	}
	return true
}

func (s *solver[F]) selectEquality(rSize, bk int) int {
	if bk > rSize {
		bk = rSize
	}
	return bk - 1
}

func (s *solver[F]) selectInequality(rSize, bkmin, bkmax int) int {
	if bkmin > rSize {
		bkmin = rSize
	}
	if bkmax > rSize {
		bkmax = rSize
	}
	for i := bkmin; i <= bkmax && i < rSize; i++ {
		if stopIterating(s.R[i].value, s.rng, s.mode) {
			return i - 1
		}
	}
	return bkmax - 1
}

// affectVariables applies the selection to the row: the first selected+1
// entries of R get their variable set to 1, the rest to 0; pi and the row's
// preferences move accordingly, with the kappa-controlled margin added to
// the base delta step. Returns whether pi changed sign.
func (s *solver[F]) affectVariables(x *BitArray, row []RowEntry, k, selected, rSize int, kappa, delta F) bool {
	one, two := F(1), F(2)
	middle := (two + one) / two
	oldPi := s.pi[k]
	d := delta

	switch {
	case selected < 0:
		s.pi[k] += s.R[0].value / two
		d += (kappa / (one - kappa)) * (s.R[0].value / two)
		for i := 0; i < rSize; i++ {
			e := row[s.R[i].id]
			x.Unset(e.Column)
			s.P[e.Value] -= d
		}
	case selected+1 >= rSize:
		s.pi[k] += s.R[selected].value * middle
		d += (kappa / (one - kappa)) * (s.R[selected].value * middle)
		for i := 0; i < rSize; i++ {
			e := row[s.R[i].id]
			x.Set(e.Column)
			s.P[e.Value] += d
		}
	default:
		s.pi[k] += (s.R[selected].value + s.R[selected+1].value) / two
		d += (kappa / (one - kappa)) * (s.R[selected+1].value - s.R[selected].value)
		i := 0
		for ; i <= selected; i++ {
			e := row[s.R[i].id]
			x.Set(e.Column)
			s.P[e.Value] += d
		}
		for ; i < rSize; i++ {
			e := row[s.R[i].id]
			x.Unset(e.Column)
			s.P[e.Value] -= d
		}
	}
	return isSignChange(oldPi, s.pi[k])
}

// computeUpdateRow runs the local update step on row k with the given
// parameters. A positive objAmp adds the amplified objective to the
// reduced costs (pushing mode). Returns whether pi[k] changed sign.
func (s *solver[F]) computeUpdateRow(x *BitArray, k int, kappa, delta, theta, objAmp F) bool {
	row := s.ap.Row(k)
	if len(row) == 0 {
		return false
	}
	s.decreasePreference(row, theta)
	rSize := s.computeReducedCosts(row, x)
	if objAmp > 0 {
		for i := 0; i < rSize; i++ {
			s.R[i].value += objAmp * s.c.cost(row[s.R[i].id].Column, x)
		}
	}
	if s.Z[k] {
		return s.updateRowZ(x, row, k, rSize, kappa, delta)
	}
	if len(s.C[k]) == 0 {
		return s.updateRow01(x, row, k, rSize, kappa, delta)
	}
	return s.updateRow101(x, row, k, rSize, kappa, delta)
}

// updateRow01: all factors are 1.
func (s *solver[F]) updateRow01(x *BitArray, row []RowEntry, k, rSize int, kappa, delta F) bool {
	calculatorSort(s.R[:rSize], s.rng, s.mode)
	var selected int
	if s.b[k].min == s.b[k].max {
		selected = s.selectEquality(rSize, s.b[k].min)
	} else {
		selected = s.selectInequality(rSize, s.b[k].min, s.b[k].max)
	}
	changed := s.affectVariables(x, row, k, selected, rSize, kappa, delta)
	s.checkRow(k, x, selected)
	return changed
}

// updateRow101: factors are 1 or -1. Each negative element is rewritten as
// 1-x' by negating its reduced cost and preference and shifting both
// bounds; the 0/1 machinery then handles the row uniformly. On exit the
// preference signs are restored and the negated bits flipped back.
func (s *solver[F]) updateRow101(x *BitArray, row []RowEntry, k, rSize int, kappa, delta F) bool {
	ck := s.C[k]
	for _, pos := range ck {
		s.R[pos].value = -s.R[pos].value
		s.P[row[pos].Value] = -s.P[row[pos].Value]
	}
	bkmin := s.b[k].min + len(ck)
	bkmax := s.b[k].max + len(ck)

	calculatorSort(s.R[:rSize], s.rng, s.mode)
	var selected int
	if s.b[k].min == s.b[k].max {
		selected = s.selectEquality(rSize, bkmin)
	} else {
		selected = s.selectInequality(rSize, bkmin, bkmax)
	}
	changed := s.affectVariables(x, row, k, selected, rSize, kappa, delta)

	for _, pos := range ck {
		s.P[row[pos].Value] = -s.P[row[pos].Value]
		x.Invert(row[pos].Column)
	}
	s.checkRow(k, x, selected)
	return changed
}

// updateRowZ: at least one |factor| > 1. The selection works on the raw
// factors and bounds: a greedy prefix scan over the sorted reduced costs,
// falling back to the exhaustive subset-sum table for short rows and to
// branch-and-bound otherwise.
func (s *solver[F]) updateRowZ(x *BitArray, row []RowEntry, k, rSize int, kappa, delta F) bool {
	calculatorSort(s.R[:rSize], s.rng, s.mode)
	selected := s.selectZ(rSize, s.b[k].min, s.b[k].max)
	changed := s.affectVariables(x, row, k, selected, rSize, kappa, delta)
	s.checkRow(k, x, selected)
	return changed
}

// checkRow asserts that a committed selection put the row value inside its
// bounds. A -1 selection may legitimately leave the row violated (empty
// choice, or no feasible subset this pass) and is not checked.
func (s *solver[F]) checkRow(k int, x *BitArray, selected int) {
	if !s.debug || selected < 0 {
		return
	}
	if v := s.rowValue(k, x); v < s.b[k].min || v > s.b[k].max {
		panic("solver: post-selection row value out of bounds")
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
