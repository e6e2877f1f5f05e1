package tracker

import "github.com/kubesonde/netprobe/pkg/model"

// Options tune the filtering stage of a Tracker.
type Options struct {
	ExcludeLoopback bool
}

// Result describes one Step.
type Result struct {
	State    State
	Observed int
	Serving  int
	Added    int
	Err      error
}

// Tracker owns the accumulated state of a single loop. It is not safe for
// concurrent use.
type Tracker struct {
	opts  Options
	state State
}

func New(opts Options) *Tracker {
	return &Tracker{opts: opts}
}

// State returns the current accumulated state.
func (t *Tracker) State() State {
	return t.state
}

// Step folds one snapshot into the accumulated state. A failed snapshot
// counts as an empty one, so the state is carried forward unchanged.
func (t *Tracker) Step(snapshot []model.ConnectionRecord, err error) Result {
	if err != nil {
		snapshot = nil
	}
	serving := Filter(snapshot)
	if t.opts.ExcludeLoopback {
		serving = ExcludeLoopback(serving)
	}

	before := t.state.Len()
	t.state = Reconcile(t.state, serving)

	return Result{
		State:    t.state,
		Observed: len(snapshot),
		Serving:  len(serving),
		Added:    t.state.Len() - before,
		Err:      err,
	}
}
