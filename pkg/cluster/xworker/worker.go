package xworker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/omeyang/xtick/internal/deploy"
	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
	"github.com/omeyang/xtick/pkg/util/xid"
	"github.com/omeyang/xtick/pkg/util/xpool"
)

// ErrJobPanic 任务 panic 被转换成的错误。
var ErrJobPanic = errors.New("xworker: job panicked")

// State worker 的可观察状态。
type State int

const (
	StateIdle State = iota
	StateMatching
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMatching:
		return "matching"
	case StateRunning:
		return "locked-running"
	default:
		return "unknown"
	}
}

// 丢弃原因，记录在观测属性中。
const (
	dropStale     = "stale"
	dropNotNewer  = "not_newer"
	dropUnmatched = "unmatched"
	dropBusy      = "busy"
)

// signal mailbox 中的一条消息。first 标记首次运行信号，与 tick 内容无关。
type signal struct {
	tick  xtick.Tick
	first bool
}

// Worker 单个任务的执行引擎。
type Worker struct {
	spec  Spec
	job   Job
	state StateBackend
	exec  xpool.Executor
	ids   *xid.Generator
	opts  options

	mailbox chan signal

	mu      sync.Mutex
	started bool
	stopped bool
	sub     Subscription
	cancel  context.CancelFunc
	base    context.Context

	loop     sync.WaitGroup
	jobs     sync.WaitGroup
	matching atomic.Bool
	running  atomic.Int32
}

// New 创建 Worker。state 决定 worker 是普通还是单例语义，exec 执行任务体。
func New(spec Spec, job Job, state StateBackend, exec xpool.Executor, ids *xid.Generator, opts ...Option) (*Worker, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	switch {
	case job == nil:
		return nil, ErrNilJob
	case state == nil:
		return nil, ErrNilState
	case exec == nil:
		return nil, ErrNilExecutor
	case ids == nil:
		return nil, ErrNilIDs
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Worker{
		spec:    spec,
		job:     job,
		state:   state,
		exec:    exec,
		ids:     ids,
		opts:    o,
		mailbox: make(chan signal, o.mailboxSize),
	}, nil
}

// Spec 返回 worker 声明。
func (w *Worker) Spec() Spec {
	return w.spec
}

// State 返回当前状态。任务体运行期间 mailbox 仍会处理后续 tick。
func (w *Worker) State() State {
	switch {
	case w.running.Load() > 0:
		return StateRunning
	case w.matching.Load():
		return StateMatching
	default:
		return StateIdle
	}
}

// Start 检查部署角色并开始接收 tick。
//
// 声明的角色与 local 没有交集时不订阅任何主题，返回 ErrNotDeployed。
func (w *Worker) Start(ctx context.Context, src Source, local deploy.Roles) error {
	if src == nil {
		return ErrNilSource
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case w.stopped:
		return ErrStopped
	case w.started:
		return ErrAlreadyStarted
	}

	if !deploy.Activates(w.spec.Roles, local) {
		w.opts.logger.Info(ctx, "worker not deployed on this node", xlog.Component("xworker"),
			xlog.Worker(w.spec.Name), xlog.Roles(w.spec.Roles), slog.String("local_roles", local.String()))
		return ErrNotDeployed
	}

	w.base = xlog.WithWorker(context.WithoutCancel(ctx), w.spec.Name)
	loopCtx, cancel := context.WithCancel(w.base)
	w.loop.Go(func() { w.run(loopCtx) })

	if w.spec.RunOnStart {
		t, err := xtick.NewTick(w.ids, w.opts.now(), w.spec.Name)
		if err != nil {
			cancel()
			w.loop.Wait()
			return err
		}
		w.mailbox <- signal{tick: t, first: true}
	}

	sub, err := src.Subscribe(loopCtx, w.spec, w.enqueue)
	if err != nil {
		cancel()
		w.loop.Wait()
		return fmt.Errorf("xworker: subscribe %s: %w", w.spec.Name, err)
	}

	w.sub, w.cancel, w.started = sub, cancel, true
	w.opts.logger.Info(ctx, "worker started", xlog.Component("xworker"), xlog.Worker(w.spec.Name),
		slog.String("schedule", w.spec.Schedule.String()), slog.Bool("singleton", w.spec.Singleton))
	return nil
}

// Stop 退订并停止 mailbox，然后等待在途任务完成。任务不会被强制取消。
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped || !w.started {
		w.stopped = true
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	sub, cancel := w.sub, w.cancel
	w.mu.Unlock()

	err := sub.Unsubscribe()
	cancel()

	done := make(chan struct{})
	go func() {
		w.loop.Wait()
		w.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}

// enqueue 投递 tick 到 mailbox，满时丢弃。
func (w *Worker) enqueue(ctx context.Context, t xtick.Tick) {
	select {
	case w.mailbox <- signal{tick: t}:
	default:
		w.opts.logger.Warn(ctx, "worker mailbox full, tick dropped", xlog.Component("xworker"),
			xlog.Worker(w.spec.Name), xlog.TickID(t.ID))
	}
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-w.mailbox:
			w.handle(ctx, sig)
		}
	}
}

// handle 处理一个信号并记录观测结果。
func (w *Worker) handle(ctx context.Context, sig signal) {
	w.matching.Store(true)
	defer w.matching.Store(false)

	ctx = xlog.WithTick(ctx, sig.tick.ID)
	ctx, span := xmetrics.Start(ctx, w.opts.observer, xmetrics.SpanOptions{
		Component: "xworker",
		Operation: "tick",
		Kind:      xmetrics.KindConsumer,
		Attrs: []xmetrics.Attr{
			xmetrics.String("worker", w.spec.Name),
			xmetrics.Bool("first_run", sig.first),
		},
	})
	reason, err := w.process(ctx, sig)
	result := xmetrics.Result{Err: err}
	if err == nil && reason != "" {
		result.Status = xmetrics.StatusDropped
		result.Attrs = []xmetrics.Attr{xmetrics.String("reason", reason)}
	}
	span.End(result)
}

// process 执行检查与加锁，返回丢弃原因。成功提交任务时原因为空。
func (w *Worker) process(ctx context.Context, sig signal) (string, error) {
	t := sig.tick
	if !sig.first {
		if age := t.Age(w.opts.now()); age >= StaleAfter {
			w.opts.logger.Debug(ctx, "stale tick dropped", xlog.Component("xworker"),
				xlog.Worker(w.spec.Name), xlog.Duration(age))
			return dropStale, nil
		}
		last, ok, err := w.state.LastFired(ctx)
		if err != nil {
			w.opts.logger.Warn(ctx, "read last fired failed, tick dropped", xlog.Component("xworker"),
				xlog.Worker(w.spec.Name), xlog.Err(err))
			return "", err
		}
		if ok && last.TimestampMs >= t.TimestampMs {
			return dropNotNewer, nil
		}
		if !w.spec.Schedule.MatchesMillis(t.TimestampMs, w.opts.location) {
			return dropUnmatched, nil
		}
	}

	runID, err := w.ids.NewString()
	if err != nil {
		return "", fmt.Errorf("xworker: run id: %w", err)
	}
	acquired, err := w.state.Acquire(ctx, runID)
	if err != nil {
		w.opts.logger.Warn(ctx, "acquire lock failed, tick dropped", xlog.Component("xworker"),
			xlog.Worker(w.spec.Name), xlog.Err(err))
		return "", err
	}
	if !acquired {
		w.opts.logger.Warn(ctx, "worker busy, tick dropped", xlog.Component("xworker"),
			xlog.Worker(w.spec.Name))
		return dropBusy, nil
	}

	if err := w.state.SetLastFired(ctx, t); err != nil {
		w.opts.logger.Warn(ctx, "record last fired failed", xlog.Component("xworker"),
			xlog.Worker(w.spec.Name), xlog.Err(err))
	}

	jobCtx := xlog.WithTick(w.base, t.ID)
	if sig.first {
		jobCtx = withFirstRun(jobCtx)
	}
	w.jobs.Add(1)
	w.running.Add(1)
	if err := w.exec.Submit(func() { w.execute(jobCtx, t, runID) }); err != nil {
		w.running.Add(-1)
		w.jobs.Done()
		w.release(jobCtx, runID)
		w.opts.logger.Error(ctx, "submit job failed", xlog.Component("xworker"),
			xlog.Worker(w.spec.Name), xlog.Err(err))
		return "", err
	}
	return "", nil
}

// execute 在 dispatcher 中运行任务体，无论结果如何都释放锁。
func (w *Worker) execute(ctx context.Context, t xtick.Tick, runID string) {
	defer w.jobs.Done()
	defer w.running.Add(-1)
	defer w.release(ctx, runID)

	start := w.opts.now()
	err := xmetrics.Observe(ctx, w.opts.observer, xmetrics.SpanOptions{
		Component: "xworker",
		Operation: "run",
		Kind:      xmetrics.KindInternal,
		Attrs: []xmetrics.Attr{
			xmetrics.String("worker", w.spec.Name),
			xmetrics.String("run_id", runID),
		},
	}, func(ctx context.Context) error {
		return w.invoke(ctx, t)
	})
	elapsed := w.opts.now().Sub(start)
	if err != nil {
		w.opts.logger.Error(ctx, "job failed", xlog.Component("xworker"),
			xlog.Worker(w.spec.Name), xlog.Duration(elapsed), xlog.Err(err))
		return
	}
	w.opts.logger.Debug(ctx, "job done", xlog.Component("xworker"),
		xlog.Worker(w.spec.Name), xlog.Duration(elapsed))
}

func (w *Worker) invoke(ctx context.Context, t xtick.Tick) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrJobPanic, p)
			w.opts.logger.Stack(ctx, "job panicked", xlog.Component("xworker"), xlog.Worker(w.spec.Name))
		}
	}()
	return w.job.Run(ctx, t)
}

func (w *Worker) release(ctx context.Context, runID string) {
	if err := w.state.Release(ctx, runID); err != nil {
		w.opts.logger.Warn(ctx, "release lock failed", xlog.Component("xworker"),
			xlog.Worker(w.spec.Name), xlog.Err(err))
	}
}
