package itm

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/crillab/goitm/lp"
)

// effectiveParams normalizes the user parameters: a negative iteration
// limit means "unlimited" (zero runs no pass and reports the initial
// assignment), a time limit under 0.0001s is disabled, pushing is disabled
// when either of its limits is non-positive.
type effectiveParams struct {
	Params
}

func (ctx *Context) effective() effectiveParams {
	p := effectiveParams{ctx.Params}
	if p.Limit < 0 {
		p.Limit = math.MaxInt32
	}
	if p.TimeLimit < 0.0001 {
		p.TimeLimit = 0
	}
	if p.PushesLimit < 0 || p.PushingIterationLimit <= 0 {
		p.PushesLimit = 0
	}
	if p.Thread <= 0 {
		p.Thread = 1
	}
	return p
}

// rawBest is the best-so-far record of one solver instance. It only
// improves: the remaining count weakly decreases, and once zero the value
// strictly improves in the mode's direction.
type rawBest struct {
	x         *BitArray
	value     float64
	remaining int
	loop      int
	duration  float64
}

// A solveRunner drives one solver instance through the outer loop:
// initialization, the kappa schedule, and the pushing phase.
type solveRunner[F Float] struct {
	ctx    *Context
	p      effectiveParams
	rng    *rand.Rand
	mode   mode
	report func(remaining int, value float64, loop int, duration float64)
	begin  time.Time
	best   rawBest
}

func (r *solveRunner[F]) elapsed() float64 {
	return time.Since(r.begin).Seconds()
}

func (r *solveRunner[F]) timeLimitReached() bool {
	return r.p.TimeLimit > 0 && r.elapsed() > r.p.TimeLimit
}

func (r *solveRunner[F]) storeRemaining(x *BitArray, remaining, loop int) {
	if remaining >= r.best.remaining {
		return
	}
	r.best.x = x.Clone()
	r.best.remaining = remaining
	r.best.loop = loop
	r.best.duration = r.elapsed()
	if r.report != nil {
		r.report(remaining, 0, loop, r.best.duration)
	}
}

func (r *solveRunner[F]) storeValue(x *BitArray, value float64, loop int) {
	if r.best.remaining == 0 && !r.mode.isBetter(value, r.best.value) {
		return
	}
	r.best.x = x.Clone()
	r.best.remaining = 0
	r.best.value = value
	r.best.loop = loop
	r.best.duration = r.elapsed()
	if r.report != nil {
		r.report(0, value, loop, r.best.duration)
	}
}

// initBastert assigns each variable by the sign of its cost: variables
// that improve the objective when set start at 1.
func initBastert[F Float](x *BitArray, cost costModel[F], md mode) {
	for j, c := range cost.linear() {
		if (md == modeMinimize && c < 0) || (md == modeMaximize && c > 0) {
			x.Set(j)
		} else {
			x.Unset(j)
		}
	}
}

// initPreSolve greedily drives every constraint toward its lower bound
// (pessimistic) or its upper bound (optimistic), setting the cheapest
// positive-factor variables first.
func (s *solver[F]) initPreSolve(x *BitArray, optimistic bool) {
	for j := 0; j < s.n; j++ {
		x.Unset(j)
	}
	c := s.c.linear()
	for k := 0; k < s.m; k++ {
		target := s.b[k].min
		if optimistic {
			target = s.b[k].max
		}
		row := s.ap.Row(k)
		order := make([]int, len(row))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			ca, cb := c[row[order[a]].Column], c[row[order[b]].Column]
			if s.mode == modeMinimize {
				return ca < cb
			}
			return ca > cb
		})
		v := s.rowValue(k, x)
		for _, i := range order {
			if v >= target {
				break
			}
			e := row[i]
			f := s.A[e.Value]
			if f <= 0 || x.Bit(e.Column) || v+f > s.b[k].max {
				continue
			}
			x.Set(e.Column)
			v += f
		}
	}
}

// initAssignment applies the init policy, then Bernoulli-flips each bit
// with probability initRandom. With initRandom zero the result is the
// policy's deterministic output.
func (r *solveRunner[F]) initAssignment(s *solver[F], x *BitArray, origCost costModel[F], seed *BitArray) {
	switch r.p.InitPolicy {
	case PolicyPessimisticSolve:
		s.initPreSolve(x, false)
	case PolicyOptimisticSolve:
		s.initPreSolve(x, true)
	case PolicyCrossoverCycle:
		if seed != nil {
			x.CopyFrom(seed)
		} else {
			initBastert(x, origCost, r.mode)
		}
	default:
		initBastert(x, origCost, r.mode)
	}
	if r.p.InitRandom > 0 {
		for i := 0; i < x.Len(); i++ {
			if r.rng.Float64() < r.p.InitRandom {
				x.Invert(i)
			}
		}
	}
}

// run executes one full solve: the feasibility loop with its adaptive
// kappa schedule, then the pushing phase once feasible.
func (r *solveRunner[F]) run(s *solver[F], origCost costModel[F], constant float64, seed *BitArray) Status {
	p := r.p
	theta := F(p.Theta)
	delta := F(p.Delta)
	if p.Delta < 0 {
		delta = computeDelta(r.ctx, s.c, theta)
	}
	kappaStep := F(p.KappaStep)
	kappaMax := F(p.KappaMax)
	kappa := F(p.KappaMin)

	x := NewBitArray(s.n)
	r.initAssignment(s, x, origCost, seed)

	compute := newComputeOrder[F](p.Order, r.rng, s.m)
	obs := newObserver(r.ctx, s, p.Limit)
	defer obs.finish()

	r.begin = time.Now()
	compute.init(s, x)

	status := StatusLimitReached
	startPush := false

	// Record the initial assignment: with a zero iteration limit the
	// result is exactly the init policy's output and its violated count.
	bestRemaining := len(compute.violated)
	if bestRemaining == 0 {
		r.storeValue(x, origCost.results(x, constant), 0)
		startPush = true
	} else {
		r.storeRemaining(x, bestRemaining, 0)
	}

	for i := 0; !startPush && i < p.Limit; i++ {
		remaining := compute.run(s, x, kappa, delta, theta)
		obs.observe(s)

		if remaining == 0 {
			r.storeValue(x, origCost.results(x, constant), i)
			startPush = true
			break
		}
		if remaining < bestRemaining {
			r.storeRemaining(x, remaining, i)
			bestRemaining = remaining
		}
		if i > p.W {
			kappa += kappaStep * F(math.Pow(float64(remaining)/float64(s.m), p.Alpha))
		}
		if kappa > kappaMax {
			status = StatusKappaMaxReached
			break
		}
		if r.timeLimitReached() {
			status = StatusTimeLimitReached
			break
		}
	}

	if startPush {
		r.ctx.logger().Debugf("feasible at loop %d, pushing", r.best.loop)
	pushes:
		for push := 0; push < p.PushesLimit; push++ {
			remaining := compute.pushAndRun(s, x,
				F(p.PushingKFactor)*kappa, delta, theta, F(p.PushingObjectiveAmplifier))
			if remaining == 0 {
				r.storeValue(x, origCost.results(x, constant), -push*p.PushingIterationLimit-1)
			}
			if r.timeLimitReached() {
				break
			}
			for iter := 0; iter < p.PushingIterationLimit; iter++ {
				remaining = compute.run(s, x, kappa, delta, theta)
				if remaining == 0 {
					r.storeValue(x, origCost.results(x, constant), -push*p.PushingIterationLimit-iter-1)
					break
				}
				if iter > p.W {
					kappa += kappaStep * F(math.Pow(float64(remaining)/float64(s.m), p.Alpha))
				}
				if kappa > kappaMax {
					break pushes
				}
				if r.timeLimitReached() {
					break pushes
				}
			}
		}
	}

	if r.best.remaining == 0 {
		return StatusSuccess
	}
	return status
}

// packageResult turns the runner's best record into a user-facing result.
func (r *solveRunner[F]) packageResult(status Status, pb *lp.Problem, m int) *Result {
	res := &Result{
		Status:               status,
		RemainingConstraints: r.best.remaining,
		Loop:                 r.best.loop,
		Duration:             r.best.duration,
		Variables:            pb.NbVars(),
		Constraints:          m,
		VariableNames:        pb.Vars.Names,
		AffectedVars:         pb.Affected,
	}
	if r.best.remaining == math.MaxInt32 {
		res.RemainingConstraints = m
	}
	if r.best.x != nil {
		res.Solutions = append(res.Solutions, Solution{
			Variables: r.best.x.Bools(),
			Value:     r.best.value,
		})
	}
	return res
}

// prepare runs the preprocessor when enabled and validates the problem.
func prepare(ctx *Context, raw *lp.Problem) (*lp.Problem, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	if ctx.Params.Preprocessor == PreprocessorNone {
		return raw, nil
	}
	pb, err := Preprocess(ctx, raw)
	if err != nil {
		return nil, err
	}
	if len(pb.Affected.Names) > 0 {
		ctx.logger().Infof("preprocessor fixed %d variables", len(pb.Affected.Names))
	}
	return pb, nil
}

// trivialResult handles the empty cases: no constraint or no variable left
// after preprocessing.
func trivialResult(pb *lp.Problem) *Result {
	x := make([]bool, pb.NbVars())
	value := pb.Objective.Constant
	return &Result{
		Status:        StatusSuccess,
		Solutions:     []Solution{{Variables: x, Value: value}},
		Variables:     pb.NbVars(),
		VariableNames: pb.Vars.Names,
		AffectedVars:  pb.Affected,
	}
}

// Solve looks for a feasible assignment of the problem with a single
// solver instance. Limit statuses are returned alongside the best
// assignment seen, not as errors.
func Solve(ctx *Context, raw *lp.Problem) (*Result, error) {
	if ctx.Start != nil {
		ctx.Start(ctx.Params)
	}
	pb, err := prepare(ctx, raw)
	if err != nil {
		return nil, err
	}
	var res *Result
	if ctx.Params.FloatType == Float32 {
		res, err = solveTyped[float32](ctx, pb)
	} else {
		res, err = solveTyped[float64](ctx, pb)
	}
	if err != nil {
		return nil, err
	}
	if ctx.Finish != nil {
		ctx.Finish(res)
	}
	return res, nil
}

func solveTyped[F Float](ctx *Context, pb *lp.Problem) (*Result, error) {
	csts, err := MakeMergedConstraints(ctx, pb)
	if err != nil {
		return nil, err
	}
	if len(csts) == 0 || pb.NbVars() == 0 {
		return trivialResult(pb), nil
	}
	rng := newRNG(ctx.rngSeed())
	origCost := newCostModel[F](pb.Objective, pb.NbVars())
	normCost := normalizeCosts(ctx, origCost, rng)
	s, err := newSolver[F](rng, senseToMode(pb.Sense), normCost, csts, pb.NbVars())
	if err != nil {
		return nil, err
	}
	s.debug = ctx.Params.Debug
	runner := &solveRunner[F]{
		ctx:    ctx,
		p:      ctx.effective(),
		rng:    rng,
		mode:   senseToMode(pb.Sense),
		report: ctx.Update,
		best:   rawBest{remaining: math.MaxInt32},
	}
	runner.best.value = runner.mode.worstValue()
	status := runner.run(s, origCost, pb.Objective.Constant, nil)
	return runner.packageResult(status, pb, len(csts)), nil
}
