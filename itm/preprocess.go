package itm

import (
	"github.com/crillab/goitm/lp"
)

// The preprocessor propagates forced assignments: a constraint with exactly
// one free variable left decides that variable, which may in turn make
// other constraints decisive. Propagation runs to a fixed point through a
// worklist; a contradiction aborts with an unrealisable-constraint error.

// Constraint list identifiers inside the preprocessor.
const (
	ppEqual = iota
	ppGreater
	ppLess
)

type varAccess struct {
	inEqual   []int
	inGreater []int
	inLess    []int
}

type workItem struct {
	variable int
	value    bool
}

// A lifo is the propagation worklist. A variable enters it at most once.
type lifo struct {
	items []workItem
	seen  map[int]bool
}

func newLifo() *lifo {
	return &lifo{seen: make(map[int]bool)}
}

func (l *lifo) push(variable int, value bool) bool {
	if l.seen[variable] {
		return false
	}
	l.seen[variable] = true
	l.items = append(l.items, workItem{variable, value})
	return true
}

func (l *lifo) empty() bool {
	return len(l.items) == 0
}

func (l *lifo) pop() workItem {
	item := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	return item
}

type preprocessor struct {
	ctx   *Context
	pb    *lp.Problem
	vars  map[int]bool // affected variables and their forced value
	count [3][]int     // remaining free elements per constraint, per list
	cache []varAccess
}

func newPreprocessor(ctx *Context, pb *lp.Problem) *preprocessor {
	pp := &preprocessor{
		ctx:   ctx,
		pb:    pb,
		vars:  make(map[int]bool),
		cache: make([]varAccess, len(pb.Vars.Values)),
	}
	pp.count[ppEqual] = make([]int, len(pb.Equal))
	pp.count[ppGreater] = make([]int, len(pb.Greater))
	pp.count[ppLess] = make([]int, len(pb.Less))
	for i, cst := range pb.Equal {
		pp.count[ppEqual][i] = len(cst.Elements)
		for _, elem := range cst.Elements {
			pp.cache[elem.Variable].inEqual = append(pp.cache[elem.Variable].inEqual, i)
		}
	}
	for i, cst := range pb.Greater {
		pp.count[ppGreater][i] = len(cst.Elements)
		for _, elem := range cst.Elements {
			pp.cache[elem.Variable].inGreater = append(pp.cache[elem.Variable].inGreater, i)
		}
	}
	for i, cst := range pb.Less {
		pp.count[ppLess][i] = len(cst.Elements)
		for _, elem := range cst.Elements {
			pp.cache[elem.Variable].inLess = append(pp.cache[elem.Variable].inLess, i)
		}
	}
	return pp
}

// reduce removes the already-affected variables from the constraint and
// returns the factor and index of the remaining free variable (or -1 when
// every variable is affected) together with the adjusted right-hand side.
func (pp *preprocessor) reduce(cst *lp.Constraint) (factor, variable, value int) {
	value = cst.Value
	variable = -1
	for _, elem := range cst.Elements {
		if v, ok := pp.vars[elem.Variable]; ok {
			if v {
				value -= elem.Factor
			}
		} else {
			if variable != -1 {
				panic("preprocessor: constraint is not decisive")
			}
			factor = elem.Factor
			variable = elem.Variable
		}
	}
	return factor, variable, value
}

func holds(kind, lhs, rhs int) bool {
	switch kind {
	case ppEqual:
		return lhs == rhs
	case ppGreater:
		return lhs >= rhs
	default:
		return lhs <= rhs
	}
}

// decide returns the forced value of the remaining variable of a decisive
// constraint. forced is false when the constraint is already settled: both
// values feasible (vacuous), or every variable affected and the constraint
// satisfied. An infeasible constraint is a contradiction.
func (pp *preprocessor) decide(kind int, cst *lp.Constraint) (variable int, value, forced bool, err error) {
	factor, variable, rhs := pp.reduce(cst)
	unrealisable := &SolverError{Tag: ErrUnrealisableConstraint, Detail: cst.Label}
	if variable < 0 {
		// All variables were decided through other constraints; only the
		// consistency check remains.
		if !holds(kind, 0, rhs) {
			return 0, false, false, unrealisable
		}
		return -1, false, false, nil
	}
	ok0 := holds(kind, 0, rhs)
	ok1 := holds(kind, factor, rhs)
	switch {
	case ok0 && ok1:
		return -1, false, false, nil
	case ok0:
		return variable, false, true, nil
	case ok1:
		return variable, true, true, nil
	default:
		return 0, false, false, unrealisable
	}
}

// force records a variable value, enqueues its propagation, and detects
// conflicting decisions.
func (pp *preprocessor) force(l *lifo, variable int, value bool, label string) error {
	if prev, ok := pp.vars[variable]; ok {
		if prev != value {
			return &SolverError{Tag: ErrUnrealisableConstraint, Detail: label}
		}
		return nil
	}
	pp.vars[variable] = value
	l.push(variable, value)
	return nil
}

// propagate affects one variable and runs the worklist to a fixed point.
func (pp *preprocessor) propagate(l *lifo) error {
	for !l.empty() {
		item := l.pop()
		pp.vars[item.variable] = item.value
		pp.ctx.logger().Debugf("preprocessor: variable %s assigned to %v",
			pp.pb.Vars.Names[item.variable], item.value)

		access := pp.cache[item.variable]
		lists := [3][]int{access.inEqual, access.inGreater, access.inLess}
		csts := [3][]lp.Constraint{pp.pb.Equal, pp.pb.Greater, pp.pb.Less}
		for kind := 0; kind < 3; kind++ {
			for _, ci := range lists[kind] {
				if pp.count[kind][ci] <= 0 {
					continue
				}
				pp.count[kind][ci]--
				if pp.count[kind][ci] != 1 {
					continue
				}
				variable, value, forced, err := pp.decide(kind, &csts[kind][ci])
				pp.count[kind][ci] = 0
				if err != nil {
					return err
				}
				if forced {
					if err := pp.force(l, variable, value, csts[kind][ci].Label); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// scanDecisive forces every constraint that is decisive from the start
// (a single free element) and enqueues the forced variables.
func (pp *preprocessor) scanDecisive(l *lifo) error {
	csts := [3][]lp.Constraint{pp.pb.Equal, pp.pb.Greater, pp.pb.Less}
	for kind := 0; kind < 3; kind++ {
		for ci := range csts[kind] {
			if pp.count[kind][ci] != 1 {
				continue
			}
			variable, value, forced, err := pp.decide(kind, &csts[kind][ci])
			pp.count[kind][ci] = 0
			if err != nil {
				return err
			}
			if forced {
				if err := pp.force(l, variable, value, csts[kind][ci].Label); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// run affects the given variable, propagates, and returns the reduced
// problem.
func (pp *preprocessor) run(variable int, value bool) (*lp.Problem, error) {
	l := newLifo()
	pp.vars[variable] = value
	l.push(variable, value)
	if err := pp.propagate(l); err != nil {
		return nil, err
	}
	return pp.makeProblem(), nil
}

// runInitial propagates every forced assignment derivable from the problem
// itself to a fixed point.
func (pp *preprocessor) runInitial() (*lp.Problem, error) {
	l := newLifo()
	if err := pp.scanDecisive(l); err != nil {
		return nil, err
	}
	if err := pp.propagate(l); err != nil {
		return nil, err
	}
	return pp.makeProblem(), nil
}

// makeProblem rebuilds a reduced problem excluding the affected variables.
// Constraints fully decided or shrunk to a single free element are dropped;
// partially reduced constraints get their right-hand side adjusted.
func (pp *preprocessor) makeProblem() *lp.Problem {
	copyList := func(kind int, src []lp.Constraint) []lp.Constraint {
		var out []lp.Constraint
		for i := range src {
			if pp.count[kind][i] <= 1 && pp.count[kind][i] != len(src[i].Elements) {
				// Decided, or reduced to one undecidable but vacuous
				// element (e.g. x <= 1): dropped.
				continue
			}
			if pp.count[kind][i] == len(src[i].Elements) {
				out = append(out, src[i])
				continue
			}
			cst := lp.Constraint{ID: src[i].ID, Label: src[i].Label, Value: src[i].Value}
			for _, elem := range src[i].Elements {
				if v, ok := pp.vars[elem.Variable]; ok {
					if v {
						cst.Value -= elem.Factor
					}
				} else {
					cst.Elements = append(cst.Elements, elem)
				}
			}
			out = append(out, cst)
		}
		return out
	}

	out := &lp.Problem{Sense: pp.pb.Sense}
	out.Equal = copyList(ppEqual, pp.pb.Equal)
	out.Greater = copyList(ppGreater, pp.pb.Greater)
	out.Less = copyList(ppLess, pp.pb.Less)

	// Renumber the surviving variables and record the affected ones.
	remap := make([]int, len(pp.pb.Vars.Values))
	out.Affected.Names = append(out.Affected.Names, pp.pb.Affected.Names...)
	out.Affected.Values = append(out.Affected.Values, pp.pb.Affected.Values...)
	for i := range pp.pb.Vars.Values {
		if v, ok := pp.vars[i]; ok {
			remap[i] = -1
			out.Affected.Names = append(out.Affected.Names, pp.pb.Vars.Names[i])
			out.Affected.Values = append(out.Affected.Values, v)
			continue
		}
		remap[i] = len(out.Vars.Names)
		out.Vars.Names = append(out.Vars.Names, pp.pb.Vars.Names[i])
		out.Vars.Values = append(out.Vars.Values, pp.pb.Vars.Values[i])
	}
	renumber := func(csts []lp.Constraint) {
		for i := range csts {
			for j := range csts[i].Elements {
				csts[i].Elements[j].Variable = remap[csts[i].Elements[j].Variable]
			}
		}
	}
	renumber(out.Equal)
	renumber(out.Greater)
	renumber(out.Less)

	// The objective drops the affected variables, folding their
	// contribution into the constant.
	out.Objective.Constant = pp.pb.Objective.Constant
	for _, elem := range pp.pb.Objective.Elements {
		if v, ok := pp.vars[elem.Variable]; ok {
			if v {
				out.Objective.Constant += elem.Factor
			}
			continue
		}
		out.Objective.Elements = append(out.Objective.Elements,
			lp.ObjElement{Factor: elem.Factor, Variable: remap[elem.Variable]})
	}
	for _, q := range pp.pb.Objective.QElements {
		va, aOK := pp.vars[q.VariableA]
		vb, bOK := pp.vars[q.VariableB]
		switch {
		case aOK && bOK:
			if va && vb {
				out.Objective.Constant += q.Factor
			}
		case aOK:
			if va {
				out.Objective.Elements = append(out.Objective.Elements,
					lp.ObjElement{Factor: q.Factor, Variable: remap[q.VariableB]})
			}
		case bOK:
			if vb {
				out.Objective.Elements = append(out.Objective.Elements,
					lp.ObjElement{Factor: q.Factor, Variable: remap[q.VariableA]})
			}
		default:
			out.Objective.QElements = append(out.Objective.QElements, lp.QuadElement{
				Factor:    q.Factor,
				VariableA: remap[q.VariableA],
				VariableB: remap[q.VariableB],
			})
		}
	}
	return out
}

// Preprocess propagates every forced assignment derivable from the problem
// and returns the reduced, equisatisfiable problem. The affected variables
// carry their fixed value on the result.
func Preprocess(ctx *Context, pb *lp.Problem) (*lp.Problem, error) {
	return newPreprocessor(ctx, pb).runInitial()
}

// Affect fixes one variable to the given value, propagates the
// consequences and returns the reduced problem.
func Affect(ctx *Context, pb *lp.Problem, variable int, value bool) (*lp.Problem, error) {
	return newPreprocessor(ctx, pb).run(variable, value)
}

// Split returns the two reduced problems obtained by fixing the given
// variable to true and to false.
func Split(ctx *Context, pb *lp.Problem, variable int) (*lp.Problem, *lp.Problem, error) {
	onTrue, err := newPreprocessor(ctx, pb).run(variable, true)
	if err != nil {
		return nil, nil, err
	}
	onFalse, err := newPreprocessor(ctx, pb).run(variable, false)
	if err != nil {
		return nil, nil, err
	}
	return onTrue, onFalse, nil
}
