package output

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/kubesonde/netprobe/pkg/model"
)

// Writer prints one JSON line per cycle.
type Writer struct {
	w        io.Writer
	logger   *zap.Logger
	recorder Recorder
}

func NewWriter(w io.Writer, logger *zap.Logger, recorder Recorder) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Writer{w: w, logger: logger, recorder: recorder}
}

func (s *Writer) Name() string { return "stdout" }

func (s *Writer) Emit(_ context.Context, records []model.ConnectionRecord) {
	data, err := ToJSON(records)
	if err == nil {
		_, err = s.w.Write(append(data, '\n'))
	}
	if err != nil {
		s.logger.Warn("failed to write state", zap.String("emitter", s.Name()), zap.Error(err))
		s.recorder.ObserveEmit(s.Name(), ResultError)
		return
	}
	s.recorder.ObserveEmit(s.Name(), ResultOK)
}
