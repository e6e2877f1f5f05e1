package output

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kubesonde/netprobe/pkg/model"
)

var (
	httpd = model.ConnectionRecord{
		Family: model.FamilyInet,
		Type:   model.SockStream,
		Local:  model.Addr{IP: "0.0.0.0", Port: 80},
		Status: model.StatusListen,
		PID:    1,
		FD:     6,
	}
	dns = model.ConnectionRecord{
		Family: model.FamilyInet6,
		Type:   model.SockDgram,
		Local:  model.Addr{IP: "::", Port: 53},
		Status: model.StatusNone,
		PID:    model.NoPID,
		FD:     model.NoFD,
	}
)

type recorded struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recorded) ObserveEmit(emitter, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[emitter+"/"+result]++
}

func (r *recorded) get(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func TestToJSONWireShape(t *testing.T) {
	data, err := ToJSON([]model.ConnectionRecord{httpd, dns})
	require.NoError(t, err)

	assert.JSONEq(t, `[
		{"fd":6,"family":2,"type":1,"laddr":["0.0.0.0",80],"raddr":[],"status":"LISTEN","pid":1},
		{"fd":-1,"family":10,"type":2,"laddr":["::",53],"raddr":[],"status":"NONE","pid":null}
	]`, string(data))
}

func TestToJSONUnixPath(t *testing.T) {
	data, err := ToJSON([]model.ConnectionRecord{{
		Family: model.FamilyUnix,
		Type:   model.SockDgram,
		Local:  model.Addr{IP: "/run/notify"},
		PID:    model.NoPID,
		FD:     model.NoFD,
	}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"laddr":"/run/notify","raddr":""`)
}

func TestToJSONEmptyState(t *testing.T) {
	data, err := ToJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriterEmitsOneLinePerCycle(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorded{}
	w := NewWriter(&buf, nil, rec)

	w.Emit(context.Background(), []model.ConnectionRecord{httpd})
	w.Emit(context.Background(), []model.ConnectionRecord{httpd, dns})

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "[{"))
	assert.Equal(t, 2, rec.get("stdout/ok"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriterFailureIsLoggedNotRaised(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rec := &recorded{}
	w := NewWriter(failingWriter{}, zap.New(core), rec)

	w.Emit(context.Background(), []model.ConnectionRecord{httpd})

	assert.Equal(t, 1, rec.get("stdout/error"))
	assert.Equal(t, 1, logs.FilterMessage("failed to write state").Len())
}

func TestHTTPPostsStateWithIdentity(t *testing.T) {
	type request struct {
		header http.Header
		body   string
	}
	received := make(chan request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- request{header: r.Header.Clone(), body: string(body)}
	}))
	defer srv.Close()

	identity := model.Identity{PodName: "web-0", RunID: "run-1", Runtime: model.RuntimeKubernetes}
	h := NewHTTP(HTTPConfig{Endpoint: srv.URL, Version: "1.2.3"}, identity, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx) //nolint:errcheck

	h.Emit(ctx, []model.ConnectionRecord{httpd})

	select {
	case req := <-received:
		assert.Equal(t, "web-0", req.header.Get("POD_NAME"))
		assert.Equal(t, "run-1", req.header.Get("X-Netprobe-Run-Id"))
		assert.Equal(t, "kubernetes", req.header.Get("X-Netprobe-Runtime"))
		assert.Equal(t, "netprobe/1.2.3", req.header.Get("User-Agent"))
		assert.Equal(t, "application/json", req.header.Get("Content-Type"))
		assert.JSONEq(t, `[{"fd":6,"family":2,"type":1,"laddr":["0.0.0.0",80],"raddr":[],"status":"LISTEN","pid":1}]`, req.body)
	case <-time.After(5 * time.Second):
		t.Fatal("collector never received the state")
	}

	assert.Eventually(t, func() bool { return h.Stats().Sent == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestHTTPFailureIsCountedNotRetried(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	rec := &recorded{}
	h := NewHTTP(HTTPConfig{Endpoint: srv.URL}, model.Identity{PodName: "p"}, zap.New(core), rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx) //nolint:errcheck

	h.Emit(ctx, []model.ConnectionRecord{httpd})

	require.Eventually(t, func() bool { return h.Stats().Failed == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	assert.Equal(t, 1, rec.get("http/error"))
	assert.Equal(t, 1, logs.FilterMessage("failed to deliver state").Len())
}

func TestHTTPUnreachableCollector(t *testing.T) {
	h := NewHTTP(HTTPConfig{Endpoint: "http://127.0.0.1:1/monitor", Timeout: time.Second}, model.Identity{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx) //nolint:errcheck

	h.Emit(ctx, []model.ConnectionRecord{httpd})
	assert.Eventually(t, func() bool { return h.Stats().Failed == 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestHTTPEmitNeverBlocksAndKeepsLatest(t *testing.T) {
	rec := &recorded{}
	h := NewHTTP(HTTPConfig{Endpoint: "http://collector.invalid"}, model.Identity{}, nil, rec)

	// No Run loop: every Emit after the first supersedes the pending payload.
	for i := 0; i < 3; i++ {
		h.Emit(context.Background(), []model.ConnectionRecord{httpd})
	}
	h.Emit(context.Background(), []model.ConnectionRecord{httpd, dns})

	assert.Equal(t, int64(3), h.Stats().Dropped)
	assert.Equal(t, 3, rec.get("http/dropped"))

	pending := <-h.mailbox
	expected, err := ToJSON([]model.ConnectionRecord{httpd, dns})
	require.NoError(t, err)
	assert.Equal(t, expected, pending)
}

func TestMultiEmitsToAll(t *testing.T) {
	var a, b bytes.Buffer
	m := NewMulti(nil, nil, NewWriter(&a, nil, nil), NewWriter(&b, nil, nil))

	m.Emit(context.Background(), []model.ConnectionRecord{dns})
	assert.Equal(t, a.String(), b.String())
	assert.NotEmpty(t, a.String())
}

type panickingEmitter struct{}

func (panickingEmitter) Name() string { return "broken" }

func (panickingEmitter) Emit(context.Context, []model.ConnectionRecord) {
	panic("boom")
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) ObserveEmit(emitter, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[emitter+"/"+result]++
}

func TestMultiPanicDoesNotSkipLaterEmitters(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := &countingRecorder{}
	var buf bytes.Buffer
	m := NewMulti(zap.New(core), rec, panickingEmitter{}, NewWriter(&buf, nil, nil))

	require.NotPanics(t, func() {
		m.Emit(context.Background(), []model.ConnectionRecord{dns})
		m.Emit(context.Background(), []model.ConnectionRecord{dns, httpd})
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "the emitter after the panicking one gets every cycle")
	assert.Equal(t, 2, logs.FilterMessage("emitter panicked").FilterField(zap.String("emitter", "broken")).Len())
	assert.Equal(t, 2, rec.counts["broken/error"])
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, []model.ConnectionRecord{dns, httpd}))

	out := buf.String()
	assert.Contains(t, out, "PROTO")
	assert.Contains(t, out, "0.0.0.0:80")
	assert.Contains(t, out, "[::]:53")
	assert.Contains(t, out, "2 serving socket(s)")
	assert.Less(t, strings.Index(out, "tcp"), strings.Index(out, "udp6"))
}
