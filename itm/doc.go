// Package itm implements the In-The-Middle family of heuristic solvers
// for pseudo-Boolean linear programs: 0/1 decision variables, linear
// constraints with integer coefficients and finite integer bounds.
//
// The solver maintains one Lagrange multiplier per constraint and one
// preference cell per constraint/variable nonzero. Each pass visits the
// violated constraints, computes per-element reduced costs, selects the
// variables to set through a kernel specialized for the row's coefficient
// regime (0/1, plus-or-minus one, or general integers), and moves the
// multiplier and the preferences toward the selection. An adaptive penalty
// coefficient (kappa) grows with persistent infeasibility; once a feasible
// assignment is found, the pushing phase perturbs it toward better
// objective values with objective-amplified passes.
//
// Typical use:
//
//	pb, err := lp.Parse(file)
//	if err != nil { ... }
//	ctx := itm.NewContext(4)
//	ctx.Params.Limit = 5000
//	res, err := itm.Solve(ctx, pb)    // or itm.Optimize for parallel search
//	if err != nil { ... }
//	if res.HasSolution() {
//		fmt.Println(res.Best().Value)
//	}
//
// Solve runs a single solver instance. Optimize spawns Params.Thread
// independent instances with derived seeds and aggregates the best
// feasible solution found. Reaching an iteration, time or penalty limit is
// not an error: the result carries the corresponding status and the best
// assignment seen so far.
package itm
