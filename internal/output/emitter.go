package output

import (
	"context"

	"go.uber.org/zap"

	"github.com/kubesonde/netprobe/pkg/model"
)

// Emitter receives the complete accumulated state once per cycle. Emit must
// not block on I/O for long and never reports errors to the caller: delivery
// problems are handled, logged and counted by the emitter itself.
type Emitter interface {
	Name() string
	Emit(ctx context.Context, records []model.ConnectionRecord)
}

// Recorder counts emission outcomes.
type Recorder interface {
	ObserveEmit(emitter, result string)
}

const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultDropped = "dropped"
)

type nopRecorder struct{}

func (nopRecorder) ObserveEmit(string, string) {}

// Multi fans the state out to several emitters in order. A panic in one
// emitter is recovered and logged, and the emitters after it still receive
// the state.
type Multi struct {
	emitters []Emitter
	logger   *zap.Logger
	recorder Recorder
}

func NewMulti(logger *zap.Logger, recorder Recorder, emitters ...Emitter) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Multi{emitters: emitters, logger: logger, recorder: recorder}
}

// Add appends e to the fan-out.
func (m *Multi) Add(e Emitter) {
	m.emitters = append(m.emitters, e)
}

func (m *Multi) Len() int { return len(m.emitters) }

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Emit(ctx context.Context, records []model.ConnectionRecord) {
	for _, e := range m.emitters {
		m.emitOne(ctx, e, records)
	}
}

func (m *Multi) emitOne(ctx context.Context, e Emitter, records []model.ConnectionRecord) {
	defer func() {
		if r := recover(); r != nil {
			m.recorder.ObserveEmit(e.Name(), ResultError)
			m.logger.Error("emitter panicked", zap.String("emitter", e.Name()), zap.Any("panic", r))
		}
	}()
	e.Emit(ctx, records)
}
