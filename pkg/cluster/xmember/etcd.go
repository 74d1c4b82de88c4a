package xmember

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/resilience/xretry"
	"github.com/omeyang/xtick/pkg/storage/xetcd"
)

// 默认参数。
const (
	DefaultMemberTTL = 10 * time.Second
	membersDir       = "members"
	revokeTimeout    = 3 * time.Second
)

// ErrNilClient etcd 客户端为空。
var ErrNilClient = errors.New("xmember: etcd client is nil")

// ErrEmptyAddress 成员地址为空。
var ErrEmptyAddress = errors.New("xmember: member address is empty")

// EtcdSource 以 etcd 租约维护成员关系。
//
// 本节点写入 "<prefix>members/<address>"，租约随进程存活自动续约。
// 成员的 Age 取该键的 CreateRevision：etcd 版本号全局单调，先注册的节点更老。
// 租约丢失后重新注册，节点以新的年龄重新加入。
type EtcdSource struct {
	client *xetcd.Client
	self   Member
	ttl    time.Duration
	logger xlog.Logger
	retry  xetcd.RetryConfig
}

// EtcdOption EtcdSource 选项。
type EtcdOption func(*EtcdSource)

// WithMemberTTL 设置注册租约 TTL，最少 1 秒。
func WithMemberTTL(ttl time.Duration) EtcdOption {
	return func(s *EtcdSource) {
		if ttl >= time.Second {
			s.ttl = ttl
		}
	}
}

// WithSourceLogger 设置日志记录器，nil 被忽略。
func WithSourceLogger(l xlog.Logger) EtcdOption {
	return func(s *EtcdSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewEtcdSource 创建 etcd 成员来源。self 为本节点，Age 由注册决定，传入值被忽略。
func NewEtcdSource(client *xetcd.Client, self Member, opts ...EtcdOption) (*EtcdSource, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if self.Address == "" {
		return nil, ErrEmptyAddress
	}
	s := &EtcdSource{
		client: client,
		self:   self,
		ttl:    DefaultMemberTTL,
		logger: xlog.Discard(),
		retry:  xetcd.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *EtcdSource) prefix() string {
	return s.client.Key(membersDir) + "/"
}

func (s *EtcdSource) register(ctx context.Context) (*xetcd.Registration, error) {
	value, err := json.Marshal(Member{Address: s.self.Address, Roles: s.self.Roles})
	if err != nil {
		return nil, fmt.Errorf("xmember: encode member: %w", err)
	}
	return s.client.Register(ctx, s.prefix()+s.self.Address, value, s.ttl)
}

// Watch 注册本节点，发出现有成员，然后持续发出增量变更。
func (s *EtcdSource) Watch(ctx context.Context) (<-chan Event, error) {
	reg, err := s.register(ctx)
	if err != nil {
		return nil, fmt.Errorf("xmember: register %s: %w", s.self.Address, err)
	}

	kvs, rev, err := s.client.List(ctx, s.prefix())
	if err != nil {
		s.revoke(ctx, reg)
		return nil, fmt.Errorf("xmember: list members: %w", err)
	}
	changes, err := s.client.WatchWithRetry(ctx, s.prefix(), s.retry,
		xetcd.WithPrefix(), xetcd.WithRevision(rev+1))
	if err != nil {
		s.revoke(ctx, reg)
		return nil, fmt.Errorf("xmember: watch members: %w", err)
	}

	out := make(chan Event, len(kvs)+16)
	for _, kv := range kvs {
		if ev, ok := s.decode(ctx, xetcd.EventPut, kv.Key, kv.Value, kv.CreateRevision); ok {
			out <- ev
		}
	}
	go s.loop(ctx, reg, changes, out)
	return out, nil
}

func (s *EtcdSource) loop(ctx context.Context, reg *xetcd.Registration, changes <-chan xetcd.Event, out chan<- Event) {
	defer close(out)
	defer func() { s.revoke(ctx, reg) }()

	for {
		select {
		case <-ctx.Done():
			return
		case <-reg.Done():
			if ctx.Err() != nil {
				return
			}
			s.logger.Error(ctx, "member lease lost, re-registering",
				xlog.Component("xmember"), xlog.Node(s.self.Address), xlog.Err(reg.Err()))
			if !s.emit(ctx, out, Event{Type: EventMemberUnreachable, Member: s.self}) {
				return
			}
			next, err := s.reregister(ctx)
			if err != nil {
				return
			}
			reg = next
		case ch, ok := <-changes:
			if !ok {
				return
			}
			if ch.Error != nil {
				s.logger.Warn(ctx, "member watch error", xlog.Component("xmember"), xlog.Err(ch.Error))
				continue
			}
			ev, ok := s.decode(ctx, ch.Type, ch.Key, ch.Value, ch.CreateRevision)
			if !ok {
				continue
			}
			if !s.emit(ctx, out, ev) {
				return
			}
		}
	}
}

// reregister 无限退避重试直到注册成功或 ctx 取消。
func (s *EtcdSource) reregister(ctx context.Context) (*xetcd.Registration, error) {
	var reg *xetcd.Registration
	r := xretry.NewRetryer(
		xretry.WithAttempts(0),
		xretry.WithBackoff(xretry.ExponentialBackoff{Initial: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2}),
		xretry.WithOnRetry(func(n uint, err error) {
			s.logger.Warn(ctx, "member re-register failed", xlog.Component("xmember"),
				xlog.Node(s.self.Address), slog.Uint64("attempt", uint64(n)), xlog.Err(err))
		}),
	)
	err := r.Do(ctx, func(ctx context.Context) error {
		var err error
		reg, err = s.register(ctx)
		return err
	})
	return reg, err
}

func (s *EtcdSource) emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *EtcdSource) decode(ctx context.Context, typ xetcd.EventType, key string, value []byte, createRev int64) (Event, bool) {
	addr := strings.TrimPrefix(key, s.prefix())
	switch typ {
	case xetcd.EventPut:
		var m Member
		if err := json.Unmarshal(value, &m); err != nil {
			s.logger.Warn(ctx, "undecodable member record", xlog.Component("xmember"), xlog.Key(key), xlog.Err(err))
			return Event{}, false
		}
		m.Address = addr
		m.Age = createRev
		return Event{Type: EventMemberUp, Member: m}, true
	case xetcd.EventDelete:
		return Event{Type: EventMemberRemoved, Member: Member{Address: addr}}, true
	default:
		return Event{}, false
	}
}

func (s *EtcdSource) revoke(ctx context.Context, reg *xetcd.Registration) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
	defer cancel()
	if err := reg.Revoke(rctx); err != nil {
		s.logger.Warn(rctx, "member revoke failed", xlog.Component("xmember"), xlog.Err(err))
	}
}
