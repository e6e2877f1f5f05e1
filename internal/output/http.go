package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/kubesonde/netprobe/pkg/model"
)

// HTTPConfig configures delivery to the remote collector.
type HTTPConfig struct {
	Endpoint string
	Timeout  time.Duration
	Version  string
}

// HTTPStats counts delivery outcomes since start.
type HTTPStats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// HTTP posts the state to a collector on a best-effort basis. Emit only
// hands the payload over; Run delivers it. There is at most one pending
// payload: a newer state replaces one that was not sent yet, since it is a
// superset of it. Failed posts are never retried.
type HTTP struct {
	endpoint string
	client   *http.Client
	header   http.Header
	logger   *zap.Logger
	recorder Recorder

	mailbox chan []byte

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

func NewHTTP(cfg HTTPConfig, identity model.Identity, logger *zap.Logger, recorder Recorder) *HTTP {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	header.Set("User-Agent", "netprobe/"+cfg.Version)
	// The collector expects this exact key.
	header["POD_NAME"] = []string{identity.PodName}
	if identity.RunID != "" {
		header.Set("X-Netprobe-Run-Id", identity.RunID)
	}
	if identity.Runtime != model.RuntimeNone {
		header.Set("X-Netprobe-Runtime", string(identity.Runtime))
	}

	return &HTTP{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		header:   header,
		logger:   logger,
		recorder: recorder,
		mailbox:  make(chan []byte, 1),
	}
}

func (h *HTTP) Name() string { return "http" }

func (h *HTTP) Emit(_ context.Context, records []model.ConnectionRecord) {
	body, err := ToJSON(records)
	if err != nil {
		h.fail(fmt.Errorf("encode state: %w", err))
		return
	}
	for {
		select {
		case h.mailbox <- body:
			return
		default:
		}
		select {
		case <-h.mailbox:
			h.dropped.Inc()
			h.recorder.ObserveEmit(h.Name(), ResultDropped)
		default:
		}
	}
}

// Run delivers pending payloads until ctx is done.
func (h *HTTP) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case body := <-h.mailbox:
			if err := h.post(ctx, body); err != nil {
				h.fail(err)
				continue
			}
			h.sent.Inc()
			h.recorder.ObserveEmit(h.Name(), ResultOK)
		}
	}
}

func (h *HTTP) Stats() HTTPStats {
	return HTTPStats{
		Sent:    h.sent.Load(),
		Failed:  h.failed.Load(),
		Dropped: h.dropped.Load(),
	}
}

func (h *HTTP) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header = h.header.Clone()

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector returned %s", resp.Status)
	}
	return nil
}

func (h *HTTP) fail(err error) {
	h.failed.Inc()
	h.recorder.ObserveEmit(h.Name(), ResultError)
	h.logger.Warn("failed to deliver state", zap.String("emitter", h.Name()), zap.String("endpoint", h.endpoint), zap.Error(err))
}
