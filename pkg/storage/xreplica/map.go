package xreplica

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
	"github.com/omeyang/xtick/pkg/resilience/xbreaker"
	"github.com/omeyang/xtick/pkg/util/xid"
)

type opKind int

const (
	opGet opKind = iota
	opPut
	opDelete
	opUpdate
)

func (k opKind) String() string {
	switch k {
	case opGet:
		return "get"
	case opPut:
		return "put"
	case opDelete:
		return "delete"
	default:
		return "update"
	}
}

type request struct {
	ctx      context.Context
	op       opKind
	tag      Tag
	value    string
	modify   ModifyFunc
	level    Level
	deadline time.Time
	reply    chan Result // 仅 opGet，容量 1
}

// Map 命名空间内的复制多值 Map。
//
// 所有请求经单个有序队列应用到 Backend，同一个 Map 发出的请求按提交顺序生效。
type Map struct {
	backend   Backend
	namespace string
	opts      options
	breaker   *xbreaker.Breaker

	mu     sync.RWMutex // 保护 closed 与 reqs 的关闭
	closed bool
	reqs   chan request
	done   chan struct{}
}

// New 创建 Map 并启动请求循环。namespace 隔离不同使用方的键。
func New(backend Backend, namespace string, opts ...Option) (*Map, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if namespace == "" {
		return nil, ErrEmptyNamespace
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.ids == nil {
		ids, err := xid.NewGenerator()
		if err != nil {
			return nil, fmt.Errorf("xreplica: id generator: %w", err)
		}
		o.ids = ids
	}

	m := &Map{
		backend:   backend,
		namespace: namespace,
		opts:      o,
		reqs:      make(chan request, o.queueSize),
		done:      make(chan struct{}),
	}
	m.breaker = xbreaker.NewBreaker("xreplica:"+namespace,
		xbreaker.WithFailures(o.breakerFailures),
		xbreaker.WithTimeout(o.breakerTimeout),
		// 冲突与超时说明后端仍在工作，不计入熔断
		xbreaker.WithSuccessIf(func(err error) bool {
			return errors.Is(err, ErrConflict) || errors.Is(err, context.DeadlineExceeded)
		}),
		xbreaker.WithOnStateChange(func(name string, from, to xbreaker.State) {
			o.logger.Warn(context.Background(), "replica backend breaker state changed",
				xlog.Component("xreplica"), xlog.Key(name),
				xlog.Operation(from.String()+"->"+to.String()))
		}),
	)

	go m.loop()
	return m, nil
}

// Namespace 返回命名空间。
func (m *Map) Namespace() string {
	return m.namespace
}

func (m *Map) fullKey(key string) string {
	return m.namespace + "/" + key
}

// Put 将键的值集合替换为 {value}。仅报告提交失败。
func (m *Map) Put(ctx context.Context, key, value string) (Tag, error) {
	return m.submitWrite(ctx, request{op: opPut, value: value}, key, m.opts.write)
}

// Delete 删除键。仅报告提交失败。
func (m *Map) Delete(ctx context.Context, key string) (Tag, error) {
	return m.submitWrite(ctx, request{op: opDelete}, key, m.opts.write)
}

// Update 以 modify 原子地修改键的值集合。仅报告提交失败。
func (m *Map) Update(ctx context.Context, key string, c Consistency, modify ModifyFunc) (Tag, error) {
	if modify == nil {
		return Tag{}, ErrNilModify
	}
	return m.submitWrite(ctx, request{op: opUpdate, modify: modify}, key, c.orDefault(m.opts.write))
}

// Add 向键的值集合加入 value。
func (m *Map) Add(ctx context.Context, key, value string) (Tag, error) {
	return m.Update(ctx, key, m.opts.write, func(cur []string) ([]string, bool) {
		for _, v := range cur {
			if v == value {
				return cur, false
			}
		}
		return append(cur, value), true
	})
}

func (m *Map) submitWrite(ctx context.Context, req request, key string, c Consistency) (Tag, error) {
	req.level = c.Level
	req.deadline = time.Now().Add(c.Timeout)
	return m.submit(ctx, req, key)
}

// Get 以默认读取级别读取，最多等待 timeout（<=0 时使用默认超时）。
func (m *Map) Get(ctx context.Context, key string, timeout time.Duration) Result {
	return m.GetWith(ctx, key, Consistency{Level: m.opts.read.Level, Timeout: timeout})
}

// GetWith 按指定一致性读取。
//
// 请求与写入经过同一队列，读取能观察到本 Map 此前提交的写。
// 调用方阻塞在该请求的 future 上，直到结果到达、超时或 ctx 取消。
func (m *Map) GetWith(ctx context.Context, key string, c Consistency) Result {
	c = c.orDefault(m.opts.read)
	reply := make(chan Result, 1)
	tag, err := m.submit(ctx, request{
		op:       opGet,
		level:    c.Level,
		deadline: time.Now().Add(c.Timeout),
		reply:    reply,
	}, key)
	if err != nil {
		return Result{Tag: tag, Err: err}
	}

	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()
	select {
	case res := <-reply:
		return res
	case <-timer.C:
		return Result{Tag: tag, Err: ErrTimeout}
	case <-ctx.Done():
		return Result{Tag: tag, Err: ctx.Err()}
	}
}

func (m *Map) submit(ctx context.Context, req request, key string) (Tag, error) {
	if key == "" {
		return Tag{}, ErrEmptyKey
	}
	id, err := m.opts.ids.New()
	if err != nil {
		return Tag{Key: key}, fmt.Errorf("xreplica: correlation id: %w", err)
	}
	req.ctx = ctx
	req.tag = Tag{ID: id, Key: key}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return req.tag, ErrClosed
	}
	select {
	case m.reqs <- req:
		return req.tag, nil
	default:
		return req.tag, ErrQueueFull
	}
}

// loop 按提交顺序逐个应用请求。
func (m *Map) loop() {
	defer close(m.done)
	for req := range m.reqs {
		m.apply(req)
	}
}

func (m *Map) apply(req request) {
	// 提交方的 ctx 可能在 fire-and-forget 返回后被取消，只继承其值
	ctx, cancel := context.WithDeadline(context.WithoutCancel(req.ctx), req.deadline)
	defer cancel()

	var values []string
	err := xmetrics.Observe(ctx, m.opts.observer, xmetrics.SpanOptions{
		Component: "xreplica",
		Operation: req.op.String(),
		Kind:      xmetrics.KindClient,
		Attrs:     []xmetrics.Attr{xmetrics.String("namespace", m.namespace)},
	}, func(ctx context.Context) error {
		if time.Now().After(req.deadline) {
			return ErrTimeout
		}
		var err error
		values, err = m.call(ctx, req)
		return err
	})
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	if req.op == opGet {
		req.reply <- Result{Tag: req.tag, Found: len(values) > 0, Values: values, Err: err}
		return
	}
	if err != nil {
		m.opts.logger.Warn(ctx, "replicated write failed",
			xlog.Component("xreplica"), xlog.Operation(req.op.String()),
			xlog.Key(m.fullKey(req.tag.Key)), xlog.Err(err))
	}
	if m.opts.writeHook != nil {
		m.opts.writeHook(req.tag, err)
	}
}

// call 经熔断器调用后端。
func (m *Map) call(ctx context.Context, req request) ([]string, error) {
	key := m.fullKey(req.tag.Key)
	values, err := xbreaker.Execute(ctx, m.breaker, func() ([]string, error) {
		switch req.op {
		case opGet:
			return m.backend.Get(ctx, key, req.level)
		case opPut:
			return nil, m.backend.Put(ctx, key, req.value, req.level)
		case opDelete:
			return nil, m.backend.Delete(ctx, key, req.level)
		default:
			return nil, m.backend.Update(ctx, key, req.level, req.modify)
		}
	})
	if errors.Is(err, xbreaker.ErrOpen) {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return normalize(values), nil
}

// Close 停止接收请求，等待队列中的请求处理完毕。ctx 到期时返回 ctx.Err()，循环仍会继续排空。
// 不关闭 Backend。
func (m *Map) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.reqs)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
