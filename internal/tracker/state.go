package tracker

import "github.com/kubesonde/netprobe/pkg/model"

// State is the accumulated set of serving connections. A State is never
// modified after it is returned; Reconcile builds a new one.
type State struct {
	index   map[model.ConnectionRecord]struct{}
	records []model.ConnectionRecord
}

// NewState returns the deduplicated State holding records.
func NewState(records ...model.ConnectionRecord) State {
	return Reconcile(State{}, records)
}

// Len returns the number of distinct connections.
func (s State) Len() int {
	return len(s.records)
}

// Contains reports whether r has been observed.
func (s State) Contains(r model.ConnectionRecord) bool {
	_, ok := s.index[r.Normalize()]
	return ok
}

// Records returns a copy of the connections in first-seen order.
func (s State) Records() []model.ConnectionRecord {
	out := make([]model.ConnectionRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Reconcile returns the union of previous and next, deduplicated by full
// record equality. Nothing is ever removed: a connection missing from next
// stays in the result.
func Reconcile(previous State, next []model.ConnectionRecord) State {
	var added []model.ConnectionRecord
	var seen map[model.ConnectionRecord]struct{}
	for _, r := range next {
		r = r.Normalize()
		if _, ok := previous.index[r]; ok {
			continue
		}
		if seen == nil {
			seen = make(map[model.ConnectionRecord]struct{})
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		added = append(added, r)
	}
	if len(added) == 0 {
		return previous
	}

	index := make(map[model.ConnectionRecord]struct{}, len(previous.records)+len(added))
	records := make([]model.ConnectionRecord, 0, len(previous.records)+len(added))
	for _, r := range previous.records {
		index[r] = struct{}{}
		records = append(records, r)
	}
	for _, r := range added {
		index[r] = struct{}{}
		records = append(records, r)
	}
	return State{index: index, records: records}
}
