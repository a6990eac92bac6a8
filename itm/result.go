package itm

import (
	"fmt"
	"io"

	"github.com/crillab/goitm/lp"
)

// A Status classifies how a solve ended. Limit statuses are not errors:
// they come with the best assignment seen so far.
type Status byte

const (
	// StatusSuccess means a feasible solution was found.
	StatusSuccess = Status(iota)
	// StatusInternalError means an invariant was broken; this is a bug.
	StatusInternalError
	// StatusKappaMaxReached means the penalty coefficient exceeded its
	// bound before feasibility.
	StatusKappaMaxReached
	// StatusTimeLimitReached means the wall-clock budget was exhausted.
	StatusTimeLimitReached
	// StatusLimitReached means the iteration budget was exhausted.
	StatusLimitReached
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInternalError:
		return "internal error"
	case StatusKappaMaxReached:
		return "kappa max reached"
	case StatusTimeLimitReached:
		return "time limit reached"
	case StatusLimitReached:
		return "limit reached"
	default:
		panic("invalid status")
	}
}

// A Solution is a full assignment of the reduced problem's variables with
// its objective value.
type Solution struct {
	Variables []bool
	Value     float64
}

// A Result packages the outcome of a solve or optimize call.
type Result struct {
	Status Status
	// Solutions holds the best assignment seen, best last. It is feasible
	// only when Status is StatusSuccess; otherwise it is the assignment with
	// the fewest violated constraints, the initial one included.
	Solutions []Solution
	// RemainingConstraints is the number of constraints still violated by
	// the best assignment; zero on success.
	RemainingConstraints int
	// Loop is the iteration index the best assignment was found at.
	Loop int
	// Duration is the elapsed solving time in seconds.
	Duration float64
	// Variables and Constraints describe the reduced problem size.
	Variables   int
	Constraints int
	// VariableNames names the reduced problem's variables, index by index.
	VariableNames []string
	// AffectedVars carries the variables fixed by the preprocessor and the
	// values they must take in any reported solution.
	AffectedVars lp.AffectedVars
}

// HasSolution reports whether at least one feasible solution was found.
func (r *Result) HasSolution() bool {
	return r.Status == StatusSuccess && len(r.Solutions) > 0
}

// Best returns the best solution found, or nil.
func (r *Result) Best() *Solution {
	if len(r.Solutions) == 0 {
		return nil
	}
	return &r.Solutions[len(r.Solutions)-1]
}

// Assignment returns the value of every original variable, merging the
// solver assignment with the preprocessor-affected variables.
func (r *Result) Assignment() map[string]bool {
	values := make(map[string]bool, len(r.VariableNames)+len(r.AffectedVars.Names))
	for i, name := range r.AffectedVars.Names {
		values[name] = r.AffectedVars.Values[i]
	}
	if best := r.Best(); best != nil {
		for i, name := range r.VariableNames {
			values[name] = best.Variables[i]
		}
	}
	return values
}

// WriteSolution writes the best solution in the solution-file format: a
// header with the problem-type tag, one "name=0|1" line per variable, and
// the objective value.
func WriteSolution(w io.Writer, pb *lp.Problem, r *Result) error {
	bw := &solWriter{w: w}
	bw.printf("\\ solver: in-the-middle\n")
	bw.printf("\\ type: %s\n", pb.Type())
	bw.printf("\\ variables: %d\n", len(r.VariableNames)+len(r.AffectedVars.Names))
	bw.printf("\\ constraints: %d\n", r.Constraints)
	bw.printf("\\ status: %s\n", r.Status)
	for i, name := range r.AffectedVars.Names {
		bw.printf("%s=%d\n", name, b2i(r.AffectedVars.Values[i]))
	}
	if best := r.Best(); best != nil {
		for i, name := range r.VariableNames {
			bw.printf("%s=%d\n", name, b2i(best.Variables[i]))
		}
		bw.printf("\\ objective: %g\n", best.Value)
	}
	return bw.err
}

func b2i(v bool) int {
	if v {
		return 1
	}
	return 0
}

type solWriter struct {
	w   io.Writer
	err error
}

func (bw *solWriter) printf(format string, args ...interface{}) {
	if bw.err != nil {
		return
	}
	_, bw.err = fmt.Fprintf(bw.w, format, args...)
}
