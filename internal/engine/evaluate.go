package engine

import (
	"github.com/leapstack-labs/dataviz/internal/dataset"
	"github.com/leapstack-labs/dataviz/pkg/expr"
)

// State is the lifecycle of one evaluation pass.
type State int

const (
	StateReady State = iota
	StateRunning
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Evaluation runs a compiled program once per sample of an anchor dataset.
//
// Each variable slot is bound to the y column of a dataset. Slots named in
// Bindings use that dataset; the first slot left over is bound to the anchor;
// any further unbound slot is an error. All bound datasets must have the
// anchor's size, which is checked before the pass starts.
type Evaluation struct {
	Program  *expr.Program
	Anchor   *dataset.Dataset
	Bindings map[string]*dataset.Dataset

	state   State
	sources []*dataset.Dataset // per slot
	err     error
}

// NewEvaluation prepares an evaluation in StateReady.
func NewEvaluation(prog *expr.Program, anchor *dataset.Dataset, bindings map[string]*dataset.Dataset) *Evaluation {
	return &Evaluation{Program: prog, Anchor: anchor, Bindings: bindings}
}

// State returns the current lifecycle state.
func (e *Evaluation) State() State {
	return e.state
}

// Err returns the failure, if the evaluation ended in StateFailed.
func (e *Evaluation) Err() error {
	return e.err
}

// Sources returns the dataset bound to each variable slot. Valid after Run.
func (e *Evaluation) Sources() []*dataset.Dataset {
	out := make([]*dataset.Dataset, len(e.sources))
	copy(out, e.sources)
	return out
}

// Run binds slots and evaluates every sample. It returns exactly
// Anchor.Size() values, or an error and no values. Run may only be called
// once per Evaluation.
func (e *Evaluation) Run() ([]float64, error) {
	if e.state != StateReady {
		return nil, errAlreadyRun
	}
	e.state = StateRunning

	if e.Anchor == nil {
		return nil, e.fail(ErrNoAnchor)
	}
	if err := e.bind(); err != nil {
		return nil, e.fail(err)
	}

	n := e.Anchor.Size()
	cols := make([][]float64, len(e.sources))
	for slot, ds := range e.sources {
		cols[slot] = ds.Ys()
	}

	m := e.Program.NewMachine()
	results := make([]float64, n)
	for i := 0; i < n; i++ {
		for slot := range cols {
			m.Vars[slot] = cols[slot][i]
		}
		v := m.Run()
		if m.Fault != expr.FaultNone {
			return nil, e.fail(&EvalError{Index: i, Code: m.Fault})
		}
		results[i] = v
	}

	e.state = StateDone
	return results, nil
}

func (e *Evaluation) bind() error {
	e.sources = make([]*dataset.Dataset, e.Program.NumVars())
	anchorUsed := false
	for slot, name := range e.Program.Vars {
		if ds, ok := e.Bindings[name]; ok && ds != nil {
			e.sources[slot] = ds
			continue
		}
		if !anchorUsed {
			e.sources[slot] = e.Anchor
			anchorUsed = true
			continue
		}
		return &BindError{Var: name}
	}

	for _, ds := range e.sources {
		if ds.Size() != e.Anchor.Size() {
			return &LengthMismatchError{
				Dataset:    label(ds),
				Size:       ds.Size(),
				Anchor:     label(e.Anchor),
				AnchorSize: e.Anchor.Size(),
			}
		}
	}
	return nil
}

func (e *Evaluation) fail(err error) error {
	e.state = StateFailed
	e.err = err
	return err
}

func label(ds *dataset.Dataset) string {
	if ds.Named() {
		return ds.Name()
	}
	return ds.FileName()
}

// Evaluate is a one-shot Evaluation.
func Evaluate(prog *expr.Program, anchor *dataset.Dataset, bindings map[string]*dataset.Dataset) ([]float64, error) {
	return NewEvaluation(prog, anchor, bindings).Run()
}
