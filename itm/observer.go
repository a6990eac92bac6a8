package itm

import (
	"fmt"
	"os"

	"github.com/crillab/goitm/pnm"
)

// An observer receives a read-only view of (P, pi, matrix) after each
// outer iteration. Observers never mutate solver state.
type observer[F Float] interface {
	observe(s *solver[F])
	finish()
}

func newObserver[F Float](ctx *Context, s *solver[F], loops int) observer[F] {
	base := ctx.Params.ObserverBase
	switch ctx.Params.Observer {
	case ObserverFile:
		obs, err := newFileObserver[F](base)
		if err != nil {
			ctx.logger().Warnf("observer: %v", err)
			return noneObserver[F]{}
		}
		return obs
	case ObserverPNM:
		obs, err := newPNMObserver[F](base, s.m, s.n, loops)
		if err != nil {
			ctx.logger().Warnf("observer: %v", err)
			return noneObserver[F]{}
		}
		return obs
	default:
		return noneObserver[F]{}
	}
}

type noneObserver[F Float] struct{}

func (noneObserver[F]) observe(*solver[F]) {}
func (noneObserver[F]) finish()            {}

// A fileObserver dumps pi and P as text, one block per iteration.
type fileObserver[F Float] struct {
	f     *os.File
	frame int
}

func newFileObserver[F Float](base string) (*fileObserver[F], error) {
	f, err := os.Create(base + ".txt")
	if err != nil {
		return nil, err
	}
	return &fileObserver[F]{f: f}, nil
}

func (o *fileObserver[F]) observe(s *solver[F]) {
	fmt.Fprintf(o.f, "loop %d\npi:", o.frame)
	for k := 0; k < s.m; k++ {
		fmt.Fprintf(o.f, " %g", float64(s.pi[k]))
	}
	fmt.Fprintf(o.f, "\nP:")
	for _, p := range s.P {
		fmt.Fprintf(o.f, " %g", float64(p))
	}
	fmt.Fprintf(o.f, "\n")
	o.frame++
}

func (o *fileObserver[F]) finish() {
	o.f.Close()
}

// A pnmObserver writes one preference-matrix frame per iteration and a
// multiplier strip growing one row per iteration.
type pnmObserver[F Float] struct {
	base  string
	m, n  int
	frame int
	pi    *pnm.Vector
	piRow []byte
}

func newPNMObserver[F Float](base string, m, n, loops int) (*pnmObserver[F], error) {
	vec, err := pnm.NewVector(base+"-pi.pnm", m, loops)
	if err != nil {
		return nil, err
	}
	return &pnmObserver[F]{base: base, m: m, n: n, pi: vec, piRow: make([]byte, 3*m)}, nil
}

func (o *pnmObserver[F]) observe(s *solver[F]) {
	piMap := pnm.Colormap{Min: -5, Max: 5}
	for k := 0; k < o.m; k++ {
		r, g, b := piMap.RGB(float64(s.pi[k]))
		o.piRow[3*k] = r
		o.piRow[3*k+1] = g
		o.piRow[3*k+2] = b
	}
	if err := o.pi.Push(o.piRow); err != nil {
		return
	}

	img := pnm.New(o.n, o.m)
	if img == nil {
		return
	}
	pMap := pnm.Diverging{Lo: -10, Mid: 0, Hi: 10}
	for k := 0; k < o.m; k++ {
		for _, e := range s.ap.Row(k) {
			r, g, b := pMap.RGB(float64(s.P[e.Value]))
			img.Set(e.Column, k, r, g, b)
		}
	}
	_ = img.WriteFile(fmt.Sprintf("%s-P-%d.pnm", o.base, o.frame))
	o.frame++
}

func (o *pnmObserver[F]) finish() {
	o.pi.Close()
}
