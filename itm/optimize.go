package itm

import (
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crillab/goitm/lp"
)

// The optimizer driver spawns independent solver instances, each seeded
// differently, and aggregates the best result. Workers never share mutable
// state: they only read the merged problem and post improvements to the
// driver, which owns the global best and the user progress callback.

// An improvement is one worker's strictly better record.
type improvement struct {
	x         []bool
	value     float64
	remaining int
	loop      int
	duration  float64
}

// sharedBest is the globally best record, guarded by its mutex. Workers
// read it for crossover seeding; only the driver writes it.
type sharedBest struct {
	mu        sync.Mutex
	x         []bool
	value     float64
	remaining int
	loop      int
	duration  float64
	has       bool
}

func (sb *sharedBest) better(md mode, imp improvement) bool {
	if !sb.has {
		return true
	}
	if imp.remaining != sb.remaining {
		return imp.remaining < sb.remaining
	}
	if imp.remaining == 0 {
		return md.isBetter(imp.value, sb.value)
	}
	return false
}

func (sb *sharedBest) snapshot() ([]bool, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if !sb.has || sb.remaining != 0 {
		return nil, false
	}
	x := make([]bool, len(sb.x))
	copy(x, sb.x)
	return x, true
}

// Optimize runs up to Params.Thread solver instances in parallel and
// returns the overall best result. With a wall-clock limit set, each
// worker keeps restarting rounds until the deadline; otherwise every
// worker runs a single round.
func Optimize(ctx *Context, raw *lp.Problem) (*Result, error) {
	if ctx.Start != nil {
		ctx.Start(ctx.Params)
	}
	pb, err := prepare(ctx, raw)
	if err != nil {
		return nil, err
	}
	var res *Result
	if ctx.Params.FloatType == Float32 {
		res, err = optimizeTyped[float32](ctx, pb)
	} else {
		res, err = optimizeTyped[float64](ctx, pb)
	}
	if err != nil {
		return nil, err
	}
	if ctx.Finish != nil {
		ctx.Finish(res)
	}
	return res, nil
}

func optimizeTyped[F Float](ctx *Context, pb *lp.Problem) (*Result, error) {
	csts, err := MakeMergedConstraints(ctx, pb)
	if err != nil {
		return nil, err
	}
	if len(csts) == 0 || pb.NbVars() == 0 {
		return trivialResult(pb), nil
	}

	p := ctx.effective()
	md := senseToMode(pb.Sense)

	// Fail fast on bounds no assignment can reach, instead of letting
	// every worker discover it independently.
	if _, err := newSolver[F](newRNG(0), md, newCostModel[F](pb.Objective, pb.NbVars()), csts, pb.NbVars()); err != nil {
		return nil, err
	}

	masterSeed := ctx.rngSeed()
	deadline := time.Time{}
	if p.TimeLimit > 0 {
		deadline = time.Now().Add(time.Duration(p.TimeLimit * float64(time.Second)))
	}

	best := &sharedBest{}
	improvements := make(chan improvement, 4*p.Thread)
	workerStatus := make([]Status, p.Thread)

	var g errgroup.Group
	for w := 0; w < p.Thread; w++ {
		w := w
		g.Go(func() error {
			workerStatus[w] = optimizeWorker[F](ctx, pb, csts, masterSeed+int64(w), deadline, best, improvements)
			return nil
		})
	}

	// The driver goroutine below is the only reader of the improvement
	// channel and the only writer of the shared best; the user callback
	// therefore never runs on a worker.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for imp := range improvements {
			best.mu.Lock()
			if best.better(md, imp) {
				best.x = imp.x
				best.value = imp.value
				best.remaining = imp.remaining
				best.loop = imp.loop
				best.duration = imp.duration
				best.has = true
				best.mu.Unlock()
				if ctx.Update != nil {
					ctx.Update(imp.remaining, imp.value, imp.loop, imp.duration)
				}
				continue
			}
			best.mu.Unlock()
		}
	}()

	_ = g.Wait()
	close(improvements)
	<-done

	status := StatusLimitReached
	for _, st := range workerStatus {
		if st == StatusSuccess {
			status = StatusSuccess
			break
		}
		if st == StatusTimeLimitReached {
			status = StatusTimeLimitReached
		}
	}

	res := &Result{
		Status:               status,
		RemainingConstraints: len(csts),
		Variables:            pb.NbVars(),
		Constraints:          len(csts),
		VariableNames:        pb.Vars.Names,
		AffectedVars:         pb.Affected,
	}
	if best.has {
		res.RemainingConstraints = best.remaining
		res.Loop = best.loop
		res.Duration = best.duration
		res.Solutions = append(res.Solutions, Solution{Variables: best.x, Value: best.value})
	}
	return res, nil
}

// optimizeWorker runs solve rounds until the deadline (or exactly one
// round without deadline), cycling the init policy and crossing over from
// the global best when the policy asks for it.
func optimizeWorker[F Float](ctx *Context, pb *lp.Problem, csts []MergedConstraint,
	seed int64, deadline time.Time, best *sharedBest, improvements chan<- improvement) Status {

	rng := newRNG(seed)
	origCost := newCostModel[F](pb.Objective, pb.NbVars())
	normCost := normalizeCosts(ctx, origCost, rng)
	md := senseToMode(pb.Sense)

	cyclePolicies := []InitPolicy{PolicyBastert, PolicyPessimisticSolve, PolicyOptimisticSolve}
	base := ctx.effective()
	finalStatus := StatusLimitReached

	s, err := newSolver[F](rng, md, normCost, csts, pb.NbVars())
	if err != nil {
		return StatusInternalError
	}
	s.debug = ctx.Params.Debug

	for round := 0; ; round++ {
		if round > 0 {
			s.reset()
		}
		p := base
		if !deadline.IsZero() {
			p.TimeLimit = time.Until(deadline).Seconds()
			if p.TimeLimit <= 0 {
				if finalStatus == StatusSuccess {
					return StatusSuccess
				}
				return StatusTimeLimitReached
			}
		}
		var seedX *BitArray
		switch base.InitPolicy {
		case PolicyCycle:
			p.InitPolicy = cyclePolicies[round%len(cyclePolicies)]
		case PolicyCrossoverCycle:
			if xs, ok := best.snapshot(); ok {
				seedX = NewBitArray(len(xs))
				for i, v := range xs {
					seedX.Assign(i, v)
				}
			}
		}
		runner := &solveRunner[F]{
			ctx:  ctx,
			p:    p,
			rng:  rng,
			mode: md,
			best: rawBest{remaining: math.MaxInt32, value: md.worstValue()},
		}
		runner.report = func(remaining int, value float64, loop int, duration float64) {
			x := runner.best.x.Bools()
			improvements <- improvement{
				x:         x,
				value:     value,
				remaining: remaining,
				loop:      loop,
				duration:  duration,
			}
		}
		status := runner.run(s, origCost, pb.Objective.Constant, seedX)
		if status == StatusSuccess {
			finalStatus = StatusSuccess
		} else if finalStatus != StatusSuccess {
			finalStatus = status
		}
		if deadline.IsZero() || !time.Now().Before(deadline) {
			return finalStatus
		}
	}
}
