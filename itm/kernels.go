package itm

// Specialized selection for rows holding a coefficient outside {-1, 0, 1}.
// The greedy prefix scan over the sorted reduced costs works whenever the
// factor sums happen to be compatible with the bounds; heterogeneous
// factors break its sortedness assumption, so it always falls through to an
// exact search: the subset-sum table for short rows, branch-and-bound
// beyond that.

// maxFactorExhaustive bounds the row size handled by the subset-sum table.
const maxFactorExhaustive = 32

// bbNodeLimit caps the branch-and-bound exploration of a single row.
const bbNodeLimit = 1 << 16

// selectZ returns the number of leading sorted R entries to set, minus one,
// so that the row value lands in [bkmin, bkmax]. On success the selected
// subset occupies the prefix of R. Returns -1 when no greedy prefix fits
// but the empty selection does (no exact search is made then), or when no
// nonempty subset fits; in the latter case the row is fully unset and
// retried on a later pass.
func (s *solver[F]) selectZ(rSize, bkmin, bkmax int) int {
	sum := 0
	for i := 0; i < rSize; i++ {
		sum += s.R[i].f
		if bkmin <= sum && sum <= bkmax {
			return i
		}
	}
	if bkmin <= 0 && 0 <= bkmax {
		return -1
	}
	var chosen []bool
	if rSize <= maxFactorExhaustive {
		chosen = s.exhaustiveZ(rSize, bkmin, bkmax)
	} else {
		chosen = s.branchAndBoundZ(rSize, bkmin, bkmax)
	}
	if chosen == nil {
		return -1
	}
	return s.partitionSelection(rSize, chosen)
}

// partitionSelection stably reorders R[:rSize] so the chosen entries come
// first, and returns the subset size minus one.
func (s *solver[F]) partitionSelection(rSize int, chosen []bool) int {
	picked := make([]rcData[F], 0, rSize)
	rest := make([]rcData[F], 0, rSize)
	for i := 0; i < rSize; i++ {
		if chosen[i] {
			picked = append(picked, s.R[i])
		} else {
			rest = append(rest, s.R[i])
		}
	}
	copy(s.R, picked)
	copy(s.R[len(picked):], rest)
	return len(picked) - 1
}

// exhaustiveZ searches the best feasible subset through a table of
// reachable factor sums, each sum keeping the mode-preferred reduced-cost
// total and the subset achieving it. Row size is at most
// maxFactorExhaustive, so subsets fit in a bit mask.
func (s *solver[F]) exhaustiveZ(rSize, bkmin, bkmax int) []bool {
	type cell struct {
		value F
		mask  uint64
	}
	// Ties resolve on the smaller mask so the search stays deterministic
	// under a fixed seed despite the map-backed table.
	betterCell := func(a, b cell) bool {
		if a.value != b.value {
			return s.preferred(a.value, b.value)
		}
		return a.mask < b.mask
	}
	states := map[int]cell{0: {}}
	for i := 0; i < rSize; i++ {
		next := make(map[int]cell, 2*len(states))
		for sum, st := range states {
			if old, ok := next[sum]; !ok || betterCell(st, old) {
				next[sum] = st
			}
			taken := cell{value: st.value + s.R[i].value, mask: st.mask | 1<<uint(i)}
			if old, ok := next[sum+s.R[i].f]; !ok || betterCell(taken, old) {
				next[sum+s.R[i].f] = taken
			}
		}
		states = next
	}
	var best cell
	found := false
	for sum, st := range states {
		if sum < bkmin || sum > bkmax || st.mask == 0 {
			continue
		}
		if !found || betterCell(st, best) {
			best = st
			found = true
		}
	}
	if !found {
		return nil
	}
	chosen := make([]bool, rSize)
	for i := 0; i < rSize; i++ {
		chosen[i] = best.mask>>uint(i)&1 == 1
	}
	return chosen
}

// branchAndBoundZ explores choose/skip decisions over the sorted reduced
// costs, pruning branches that cannot reach the bounds anymore, with a
// bounded node budget.
func (s *solver[F]) branchAndBoundZ(rSize, bkmin, bkmax int) []bool {
	// Suffix sums of the positive and negative factors: what the remaining
	// items can still add to or remove from the row value.
	sufPos := make([]int, rSize+1)
	sufNeg := make([]int, rSize+1)
	for i := rSize - 1; i >= 0; i-- {
		sufPos[i] = sufPos[i+1]
		sufNeg[i] = sufNeg[i+1]
		if s.R[i].f > 0 {
			sufPos[i] += s.R[i].f
		} else {
			sufNeg[i] += s.R[i].f
		}
	}

	choice := make([]bool, rSize)
	var best []bool
	var bestValue F
	count := 0
	nodes := 0

	var walk func(i, sum int, value F)
	walk = func(i, sum int, value F) {
		nodes++
		if nodes > bbNodeLimit {
			return
		}
		if sum+sufNeg[i] > bkmax || sum+sufPos[i] < bkmin {
			return
		}
		if i == rSize {
			if count > 0 && bkmin <= sum && sum <= bkmax {
				if best == nil || s.preferred(value, bestValue) {
					best = append(best[:0], choice...)
					bestValue = value
				}
			}
			return
		}
		// Taking the item first keeps the mode-preferred entries, which
		// sit at the front of the sorted R.
		choice[i] = true
		count++
		walk(i+1, sum+s.R[i].f, value+s.R[i].value)
		choice[i] = false
		count--
		walk(i+1, sum, value)
	}
	walk(0, 0, 0)
	return best
}

// preferred reports whether a reduced-cost total is better than another in
// the mode's direction.
func (s *solver[F]) preferred(a, b F) bool {
	if s.mode == modeMinimize {
		return a < b
	}
	return a > b
}
