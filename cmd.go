package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/crillab/goitm/itm"
	"github.com/crillab/goitm/lp"
)

// cliOptions collects the raw flag values before they are converted into
// solver parameters.
type cliOptions struct {
	limit          int
	timeLimit      float64
	theta          float64
	delta          float64
	kappaMin       float64
	kappaStep      float64
	kappaMax       float64
	alpha          float64
	w              int
	initPolicy     string
	initRandom     float64
	order          string
	floatType      string
	pushesLimit    int
	pushingKFactor float64
	pushingObjAmp  float64
	pushingIterLim int
	thread         int
	seed           int64
	preprocessor   string
	observer       string
	debug          bool
	verbose        int
	output         string
}

func (o *cliOptions) bind(flags *pflag.FlagSet) {
	def := itm.DefaultParams()
	flags.IntVar(&o.limit, "limit", def.Limit, "maximum outer iterations (< 0: unlimited, 0: no pass)")
	flags.Float64Var(&o.timeLimit, "time-limit", def.TimeLimit, "wall-clock limit in seconds (< 0.0001: unlimited)")
	flags.Float64Var(&o.theta, "theta", def.Theta, "preference decay in [0, 1]")
	flags.Float64Var(&o.delta, "delta", def.Delta, "base preference step (< 0: automatic)")
	flags.Float64Var(&o.kappaMin, "kappa-min", def.KappaMin, "initial penalty coefficient")
	flags.Float64Var(&o.kappaStep, "kappa-step", def.KappaStep, "penalty growth step")
	flags.Float64Var(&o.kappaMax, "kappa-max", def.KappaMax, "penalty bound; reaching it stops the solve")
	flags.Float64Var(&o.alpha, "alpha", def.Alpha, "penalty growth exponent")
	flags.IntVar(&o.w, "w", def.W, "warmup iterations before the penalty grows")
	flags.StringVar(&o.initPolicy, "init-policy", def.InitPolicy.String(), "bastert|pessimistic-solve|optimistic-solve|cycle|crossover-cycle")
	flags.Float64Var(&o.initRandom, "init-random", def.InitRandom, "probability to flip each initial bit")
	flags.StringVar(&o.order, "order", def.Order.String(), "constraint visit order")
	flags.StringVar(&o.floatType, "float-type", "f64", "f32|f64|long-double")
	flags.IntVar(&o.pushesLimit, "pushes-limit", def.PushesLimit, "maximum pushing rounds (<= 0: no pushing)")
	flags.Float64Var(&o.pushingKFactor, "pushing-k-factor", def.PushingKFactor, "kappa factor of the amplified pass")
	flags.Float64Var(&o.pushingObjAmp, "pushing-objective-amplifier", def.PushingObjectiveAmplifier, "objective amplifier of the amplified pass")
	flags.IntVar(&o.pushingIterLim, "pushing-iteration-limit", def.PushingIterationLimit, "plain passes per pushing round")
	flags.IntVar(&o.thread, "thread", def.Thread, "optimizer workers")
	flags.Int64Var(&o.seed, "seed", def.Seed, "master seed (< 0: from the clock)")
	flags.StringVar(&o.preprocessor, "preprocessor", "all", "none|all")
	flags.StringVar(&o.observer, "observer", "none", "none|file|pnm")
	flags.BoolVar(&o.debug, "debug", false, "enable internal consistency checks")
	flags.IntVar(&o.verbose, "verbose", def.VerboseLevel, "verbosity level (0..7)")
	flags.StringVarP(&o.output, "output", "o", "", "solution file (default stdout)")
}

func (o *cliOptions) context() (*itm.Context, error) {
	ctx := itm.NewContextWithLogger(os.Stderr, o.verbose)
	p := &ctx.Params
	p.Limit = o.limit
	p.TimeLimit = o.timeLimit
	p.Theta = o.theta
	p.Delta = o.delta
	p.KappaMin = o.kappaMin
	p.KappaStep = o.kappaStep
	p.KappaMax = o.kappaMax
	p.Alpha = o.alpha
	p.W = o.w
	p.InitRandom = o.initRandom
	p.PushesLimit = o.pushesLimit
	p.PushingKFactor = o.pushingKFactor
	p.PushingObjectiveAmplifier = o.pushingObjAmp
	p.PushingIterationLimit = o.pushingIterLim
	p.Thread = o.thread
	p.Seed = o.seed
	p.Debug = o.debug
	p.VerboseLevel = o.verbose

	var err error
	if p.InitPolicy, err = itm.ParseInitPolicy(o.initPolicy); err != nil {
		return nil, err
	}
	if p.Order, err = itm.ParseOrder(o.order); err != nil {
		return nil, err
	}
	if p.FloatType, err = itm.ParseFloatType(o.floatType); err != nil {
		return nil, err
	}
	switch o.preprocessor {
	case "none":
		p.Preprocessor = itm.PreprocessorNone
	case "all":
		p.Preprocessor = itm.PreprocessorAll
	default:
		return nil, fmt.Errorf("unknown preprocessor %q", o.preprocessor)
	}
	switch o.observer {
	case "none":
		p.Observer = itm.ObserverNone
	case "file":
		p.Observer = itm.ObserverFile
	case "pnm":
		p.Observer = itm.ObserverPNM
	default:
		return nil, fmt.Errorf("unknown observer %q", o.observer)
	}
	return ctx, nil
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "goitm",
		Short:         "in-the-middle pseudo-Boolean solver",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newSolveCommand(), newOptimizeCommand())
	return root
}

func newSolveCommand() *cobra.Command {
	opts := &cliOptions{}
	cmd := &cobra.Command{
		Use:   "solve file.lp",
		Short: "look for a feasible assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], false)
		},
	}
	opts.bind(cmd.Flags())
	return cmd
}

func newOptimizeCommand() *cobra.Command {
	opts := &cliOptions{}
	cmd := &cobra.Command{
		Use:   "optimize file.lp",
		Short: "look for the best feasible assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSolve(opts, args[0], true)
		},
	}
	opts.bind(cmd.Flags())
	return cmd
}

func runSolve(opts *cliOptions, path string, optimize bool) error {
	ctx, err := opts.context()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "could not open %q", path)
	}
	defer f.Close()
	pb, err := lp.Parse(f)
	if err != nil {
		return errors.Wrapf(err, "could not parse %q", path)
	}
	ctx.Logger.Infof("problem: %s, %d variables, %d constraints",
		pb.Type(), pb.NbVars(), pb.NbConstraints())

	ctx.Update = func(remaining int, value float64, loop int, duration float64) {
		if remaining == 0 {
			ctx.Logger.Infof("solution %g found at loop %d (%.3fs)", value, loop, duration)
		} else {
			ctx.Logger.Infof("%d constraints remaining at loop %d (%.3fs)", remaining, loop, duration)
		}
	}

	var res *itm.Result
	if optimize {
		res, err = itm.Optimize(ctx, pb)
	} else {
		res, err = itm.Solve(ctx, pb)
	}
	if err != nil {
		return err
	}

	out := os.Stdout
	if opts.output != "" {
		out, err = os.Create(opts.output)
		if err != nil {
			return errors.Wrapf(err, "could not create %q", opts.output)
		}
		defer out.Close()
	}
	if err := itm.WriteSolution(out, pb, res); err != nil {
		return errors.Wrap(err, "could not write solution")
	}
	if !res.HasSolution() {
		return errors.Errorf("no feasible solution: %s", res.Status)
	}
	return nil
}
