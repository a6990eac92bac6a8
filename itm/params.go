package itm

import "fmt"

// An InitPolicy selects how the initial assignment is built before the
// random mutation pass.
type InitPolicy byte

const (
	// PolicyBastert assigns each variable according to the sign of its cost.
	PolicyBastert = InitPolicy(iota)
	// PolicyPessimisticSolve greedily drives each constraint to its lower
	// bound.
	PolicyPessimisticSolve
	// PolicyOptimisticSolve greedily drives each constraint to its upper
	// bound.
	PolicyOptimisticSolve
	// PolicyCycle behaves like bastert for a single solve; the optimizer
	// cycles through the policies between rounds.
	PolicyCycle
	// PolicyCrossoverCycle starts from the best known feasible assignment
	// when the optimizer has one, and like bastert otherwise; it does not
	// rotate through the other policies.
	PolicyCrossoverCycle
)

func (p InitPolicy) String() string {
	switch p {
	case PolicyBastert:
		return "bastert"
	case PolicyPessimisticSolve:
		return "pessimistic-solve"
	case PolicyOptimisticSolve:
		return "optimistic-solve"
	case PolicyCycle:
		return "cycle"
	case PolicyCrossoverCycle:
		return "crossover-cycle"
	default:
		panic("invalid init policy")
	}
}

// ParseInitPolicy converts a CLI name into an InitPolicy.
func ParseInitPolicy(s string) (InitPolicy, error) {
	switch s {
	case "bastert":
		return PolicyBastert, nil
	case "pessimistic-solve", "pessimistic_solve":
		return PolicyPessimisticSolve, nil
	case "optimistic-solve", "optimistic_solve":
		return PolicyOptimisticSolve, nil
	case "cycle":
		return PolicyCycle, nil
	case "crossover-cycle", "crossover_cycle":
		return PolicyCrossoverCycle, nil
	}
	return 0, fmt.Errorf("unknown init policy %q", s)
}

// An Order is the strategy used to sort the violated constraints before
// each pass of local updates.
type Order byte

const (
	// OrderNone visits constraints in natural order.
	OrderNone = Order(iota)
	// OrderReversing alternates the direction each pass.
	OrderReversing
	// OrderRandomSorting draws a fresh permutation each pass.
	OrderRandomSorting
	// OrderInfeasibilityDecr sorts by decreasing violation magnitude.
	OrderInfeasibilityDecr
	// OrderInfeasibilityIncr sorts by increasing violation magnitude.
	OrderInfeasibilityIncr
	// OrderLagrangianDecr sorts by decreasing |pi|.
	OrderLagrangianDecr
	// OrderLagrangianIncr sorts by increasing |pi|.
	OrderLagrangianIncr
	// OrderPiSignChange visits first the constraints whose multiplier
	// changed sign during the previous pass.
	OrderPiSignChange
)

func (o Order) String() string {
	switch o {
	case OrderNone:
		return "none"
	case OrderReversing:
		return "reversing"
	case OrderRandomSorting:
		return "random-sorting"
	case OrderInfeasibilityDecr:
		return "infeasibility-decr"
	case OrderInfeasibilityIncr:
		return "infeasibility-incr"
	case OrderLagrangianDecr:
		return "lagrangian-decr"
	case OrderLagrangianIncr:
		return "lagrangian-incr"
	case OrderPiSignChange:
		return "pi-sign-change"
	default:
		panic("invalid order")
	}
}

// ParseOrder converts a CLI name into an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "none":
		return OrderNone, nil
	case "reversing":
		return OrderReversing, nil
	case "random-sorting", "random_sorting":
		return OrderRandomSorting, nil
	case "infeasibility-decr", "infeasibility_decr":
		return OrderInfeasibilityDecr, nil
	case "infeasibility-incr", "infeasibility_incr":
		return OrderInfeasibilityIncr, nil
	case "lagrangian-decr", "lagrangian_decr":
		return OrderLagrangianDecr, nil
	case "lagrangian-incr", "lagrangian_incr":
		return OrderLagrangianIncr, nil
	case "pi-sign-change", "pi_sign_change":
		return OrderPiSignChange, nil
	}
	return 0, fmt.Errorf("unknown constraint order %q", s)
}

// A FloatType selects the working floating-point type of the solver inner
// loops.
type FloatType byte

const (
	// Float64 is the default working type.
	Float64 = FloatType(iota)
	// Float32 trades precision for memory bandwidth.
	Float32
	// LongDouble is accepted for compatibility and behaves like Float64.
	LongDouble
)

// ParseFloatType converts a CLI name into a FloatType.
func ParseFloatType(s string) (FloatType, error) {
	switch s {
	case "f32", "float":
		return Float32, nil
	case "f64", "double":
		return Float64, nil
	case "long-double":
		return LongDouble, nil
	}
	return 0, fmt.Errorf("unknown float type %q", s)
}

// A PreprocessorOption enables or disables the forced-assignment
// propagation before solving.
type PreprocessorOption byte

const (
	// PreprocessorAll runs the forced-assignment propagation to a fixed
	// point.
	PreprocessorAll = PreprocessorOption(iota)
	// PreprocessorNone hands the raw problem directly to the solver.
	PreprocessorNone
)

// An ObserverType selects the per-iteration observation sink.
type ObserverType byte

const (
	// ObserverNone disables observation.
	ObserverNone = ObserverType(iota)
	// ObserverFile dumps P and pi as text, one file per solve.
	ObserverFile
	// ObserverPNM dumps P as one PNM frame per iteration and pi as a
	// PNM strip.
	ObserverPNM
)

// Params is the parameter block of a solve or optimize call. The zero
// value is not usable; start from DefaultParams.
type Params struct {
	Limit                     int     // maximum outer iterations; < 0 means unlimited, 0 runs no pass
	TimeLimit                 float64 // wall-clock limit in seconds; < 0.0001 means unlimited
	Theta                     float64 // preference decay in [0, 1]
	Delta                     float64 // base preference step; < 0 selects the automatic value
	KappaMin                  float64
	KappaStep                 float64
	KappaMax                  float64
	Alpha                     float64
	W                         int // warmup iterations before kappa grows
	InitPolicy                InitPolicy
	InitRandom                float64 // probability to flip each initial bit
	Order                     Order
	FloatType                 FloatType
	PushesLimit               int
	PushingKFactor            float64
	PushingObjectiveAmplifier float64
	PushingIterationLimit     int
	Thread                    int // number of optimizer workers; <= 0 selects one
	Seed                      int64
	Preprocessor              PreprocessorOption
	Observer                  ObserverType
	ObserverBase              string // file name prefix of the observation files
	Debug                     bool
	VerboseLevel              int // 0..7
}

// DefaultParams returns the parameter values used when the caller does not
// override them.
func DefaultParams() Params {
	return Params{
		Limit:                     1000,
		TimeLimit:                 -1,
		Theta:                     0.5,
		Delta:                     -1,
		KappaMin:                  0,
		KappaStep:                 1e-3,
		KappaMax:                  0.6,
		Alpha:                     1.0,
		W:                         20,
		InitPolicy:                PolicyBastert,
		InitRandom:                0.5,
		Order:                     OrderNone,
		FloatType:                 Float64,
		PushesLimit:               100,
		PushingKFactor:            0.9,
		PushingObjectiveAmplifier: 5,
		PushingIterationLimit:     20,
		Thread:                    1,
		Seed:                      -1,
		Preprocessor:              PreprocessorAll,
		Observer:                  ObserverNone,
		ObserverBase:              "img",
		VerboseLevel:              4,
	}
}
