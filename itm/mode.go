package itm

import (
	"math"
	"math/rand"
	"sort"

	"github.com/crillab/goitm/lp"
)

// A mode is the optimization direction. It drives the sort direction of
// the reduced costs, the early-stop test of the inequality scan and the
// best-solution comparison.
type mode byte

const (
	modeMinimize = mode(iota)
	modeMaximize
)

func senseToMode(s lp.Sense) mode {
	if s == lp.Maximize {
		return modeMaximize
	}
	return modeMinimize
}

// isBetter reports whether current improves on best in the mode's
// direction.
func (m mode) isBetter(current, best float64) bool {
	if m == modeMinimize {
		return current < best
	}
	return current > best
}

// worstValue is the identity of isBetter.
func (m mode) worstValue() float64 {
	if m == modeMinimize {
		return math.Inf(1)
	}
	return math.Inf(-1)
}

// stopIterating reports whether the inequality scan must stop at a reduced
// cost of this value: a sign flip under the mode, with a coin flip on an
// exact zero.
func stopIterating[F Float](value F, rng *rand.Rand, m mode) bool {
	if value == 0 {
		return rng.Intn(2) == 0
	}
	if m == modeMinimize {
		return value > 0
	}
	return value < 0
}

// rcData is one reduced-cost entry: the value, the position of the element
// in its row, and the element's factor.
type rcData[F Float] struct {
	value F
	id    int
	f     int
}

// calculatorSort orders the reduced costs in the mode's preferred
// direction (ascending for minimize, descending for maximize) and shuffles
// runs of equal values so that ties never resolve the same way twice.
func calculatorSort[F Float](r []rcData[F], rng *rand.Rand, m mode) {
	if len(r) < 2 {
		return
	}
	if m == modeMinimize {
		sort.SliceStable(r, func(i, j int) bool { return r[i].value < r[j].value })
	} else {
		sort.SliceStable(r, func(i, j int) bool { return r[i].value > r[j].value })
	}
	i := 0
	for i < len(r) {
		j := i + 1
		for j < len(r) && r[j].value == r[i].value {
			j++
		}
		if j-i > 1 {
			run := r[i:j]
			rng.Shuffle(len(run), func(a, b int) {
				run[a], run[b] = run[b], run[a]
			})
		}
		i = j
	}
}

// isSignChange reports whether the multiplier changed sign, zero counting
// as positive.
func isSignChange[F Float](before, after F) bool {
	return math.Signbit(float64(before)) != math.Signbit(float64(after))
}
