package itm

import (
	"io"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// A Context carries the parameters and the callbacks of a solve or
// optimize call. It is owned by the caller and never mutated by the
// solver.
type Context struct {
	Params Params
	Logger logrus.FieldLogger

	// Start is invoked once before solving begins.
	Start func(Params)
	// Update is invoked each time a strictly better solution is found:
	// remaining violated constraints, objective value (meaningful once
	// remaining is zero), loop index and elapsed seconds. It never runs on
	// a worker: Solve calls it on the calling goroutine, Optimize on its
	// single driver goroutine.
	Update func(remaining int, value float64, loop int, duration float64)
	// Finish is invoked once with the final result.
	Finish func(*Result)
}

// NewContext builds a context with default parameters and a logger honoring
// the given verbosity (0 panic .. 5 debug, 6-7 trace).
func NewContext(verboseLevel int) *Context {
	ctx := &Context{Params: DefaultParams()}
	ctx.Params.VerboseLevel = verboseLevel
	ctx.Logger = newLogger(io.Discard, verboseLevel)
	return ctx
}

// NewContextWithLogger builds a context logging to the given writer.
func NewContextWithLogger(w io.Writer, verboseLevel int) *Context {
	ctx := NewContext(verboseLevel)
	ctx.Logger = newLogger(w, verboseLevel)
	return ctx
}

func newLogger(w io.Writer, verboseLevel int) logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.SetLevel(verboseToLevel(verboseLevel))
	return logger
}

func verboseToLevel(verbose int) logrus.Level {
	switch {
	case verbose <= 0:
		return logrus.PanicLevel
	case verbose == 1:
		return logrus.FatalLevel
	case verbose == 2:
		return logrus.ErrorLevel
	case verbose == 3:
		return logrus.WarnLevel
	case verbose == 4:
		return logrus.InfoLevel
	case verbose == 5:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

func (ctx *Context) logger() logrus.FieldLogger {
	if ctx.Logger != nil {
		return ctx.Logger
	}
	return newLogger(io.Discard, 0)
}

// rngSeed returns the master seed, drawing one from the clock when the
// user did not provide any.
func (ctx *Context) rngSeed() int64 {
	if ctx.Params.Seed >= 0 {
		return ctx.Params.Seed
	}
	return time.Now().UnixNano()
}

// newRNG builds the random source of one solver instance.
func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
