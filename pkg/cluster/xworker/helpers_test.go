package xworker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/distributed/xcron"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
	"github.com/omeyang/xtick/pkg/util/xid"
	"github.com/omeyang/xtick/pkg/util/xpool"
)

// base 秒数为 10，匹配 "*/5 * *"。
var base = time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)

type testClock struct {
	ms atomic.Int64
}

func newTestClock(t time.Time) *testClock {
	c := &testClock{}
	c.Set(t)
	return c
}

func (c *testClock) Now() time.Time { return time.UnixMilli(c.ms.Load()).UTC() }

func (c *testClock) Set(t time.Time) { c.ms.Store(t.UnixMilli()) }

func tickAt(id string, t time.Time) xtick.Tick {
	return xtick.Tick{ID: id, TimestampMs: t.UnixMilli(), Tags: map[string]any{}}
}

func newIDs(t *testing.T) *xid.Generator {
	t.Helper()
	ids, err := xid.NewGenerator(xid.WithMachineID(func() (uint16, error) { return 11, nil }))
	require.NoError(t, err)
	return ids
}

func newDispatcher(t *testing.T) *xpool.Dispatcher {
	t.Helper()
	d, err := xpool.NewDispatcher(2, 8)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// fakeSource 记录订阅并允许测试直接投递 tick。
type fakeSource struct {
	mu           sync.Mutex
	spec         Spec
	deliver      xtick.Handler
	subscribed   int
	unsubscribed atomic.Bool
	err          error
}

func (s *fakeSource) Subscribe(_ context.Context, spec Spec, deliver xtick.Handler) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.spec, s.deliver = spec, deliver
	s.subscribed++
	return s, nil
}

func (s *fakeSource) Unsubscribe() error {
	s.unsubscribed.Store(true)
	return nil
}

func (s *fakeSource) send(t xtick.Tick) {
	s.mu.Lock()
	deliver := s.deliver
	s.mu.Unlock()
	deliver(context.Background(), t)
}

// jobRecorder 记录任务调用。hook 非空时在记录后调用。
type jobRecorder struct {
	mu    sync.Mutex
	ticks []xtick.Tick
	first []bool
	hook  func(ctx context.Context, t xtick.Tick) error
}

func (j *jobRecorder) Run(ctx context.Context, t xtick.Tick) error {
	j.mu.Lock()
	j.ticks = append(j.ticks, t)
	j.first = append(j.first, FirstRun(ctx))
	hook := j.hook
	j.mu.Unlock()
	if hook != nil {
		return hook(ctx, t)
	}
	return nil
}

func (j *jobRecorder) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.ticks)
}

func (j *jobRecorder) ids() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.ticks))
	for i, t := range j.ticks {
		out[i] = t.ID
	}
	return out
}

// spanRecorder 记录结束的观测跨度。
type spanRecorder struct {
	mu    sync.Mutex
	spans []recordedSpan
}

type recordedSpan struct {
	opts   xmetrics.SpanOptions
	result xmetrics.Result
}

func (r *spanRecorder) Start(ctx context.Context, opts xmetrics.SpanOptions) (context.Context, xmetrics.Span) {
	return ctx, &recordingSpan{r: r, opts: opts}
}

type recordingSpan struct {
	r    *spanRecorder
	opts xmetrics.SpanOptions
}

func (s *recordingSpan) End(result xmetrics.Result) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.spans = append(s.r.spans, recordedSpan{opts: s.opts, result: result})
}

// handled 返回已处理完的 tick 信号数量。
func (r *spanRecorder) handled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.spans {
		if s.opts.Operation == "tick" {
			n++
		}
	}
	return n
}

// reasons 返回被丢弃 tick 的原因，按处理顺序。
func (r *spanRecorder) reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.spans {
		if s.opts.Operation != "tick" || s.result.Status != xmetrics.StatusDropped {
			continue
		}
		for _, a := range s.result.Attrs {
			if a.Key == "reason" {
				out = append(out, a.Value.AsString())
			}
		}
	}
	return out
}

type harness struct {
	w     *Worker
	src   *fakeSource
	job   *jobRecorder
	spans *spanRecorder
	clock *testClock
}

func newHarness(t *testing.T, spec Spec, state StateBackend, opts ...Option) *harness {
	t.Helper()
	if spec.Name == "" {
		spec.Name = "sample-worker"
	}
	if spec.Schedule == nil {
		spec.Schedule = xcron.MustParse("*/5 * *")
	}
	if state == nil {
		state = NewLocalState()
	}
	h := &harness{src: &fakeSource{}, job: &jobRecorder{}, spans: &spanRecorder{}, clock: newTestClock(base)}
	opts = append([]Option{WithClock(h.clock.Now), WithLocation(time.UTC), WithObserver(h.spans)}, opts...)
	w, err := New(spec, h.job, state, newDispatcher(t), newIDs(t), opts...)
	require.NoError(t, err)
	h.w = w
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = w.Stop(ctx)
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.w.Start(context.Background(), h.src, nil))
}

// waitHandled 等待 mailbox 处理完 n 个信号。
func (h *harness) waitHandled(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.spans.handled() >= n }, 2*time.Second, 2*time.Millisecond)
}
