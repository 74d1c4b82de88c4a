package xnode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/omeyang/xtick/internal/deploy"
	"github.com/omeyang/xtick/pkg/cluster/xmember"
	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/cluster/xworker"
	"github.com/omeyang/xtick/pkg/distributed/xcron"
	"github.com/omeyang/xtick/pkg/distributed/xdlock"
	"github.com/omeyang/xtick/pkg/lifecycle/xrun"
	"github.com/omeyang/xtick/pkg/mq/xtopic"
	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/observability/xmetrics"
	"github.com/omeyang/xtick/pkg/storage/xetcd"
	"github.com/omeyang/xtick/pkg/storage/xreplica"
	"github.com/omeyang/xtick/pkg/util/xid"
	"github.com/omeyang/xtick/pkg/util/xpool"
)

// ErrAlreadyRunning Run 只能调用一次。
var ErrAlreadyRunning = errors.New("xnode: already running")

// Node 一个 xtick 节点：成员视图、tick 生成与协调、worker 执行。
type Node struct {
	cfg     Config
	catalog *xworker.Catalog
	opts    options
	self    xmember.Member
	roles   deploy.Roles

	running atomic.Bool

	mu      sync.Mutex
	workers []*xworker.Worker
	coord   *xtick.Coordinator
}

// New 校验配置并创建节点，组件在 Run 时才创建。
func New(cfg Config, catalog *xworker.Catalog, opts ...Option) (*Node, error) {
	if catalog == nil {
		return nil, ErrNilCatalog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.applyDefaults()
	for _, w := range cfg.Workers {
		if _, err := catalog.Lookup(w.Job); err != nil {
			return nil, fmt.Errorf("%w: worker %s: %w", ErrInvalidConfig, w.Name, err)
		}
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	roles := deploy.ResolveRoles(cfg.Node.Roles)
	addr := cfg.Node.Address
	if addr == "" {
		addr = defaultAddress()
	}
	return &Node{
		cfg:     cfg,
		catalog: catalog,
		opts:    o,
		self:    xmember.Member{Address: addr, Roles: []string(roles)},
		roles:   roles,
	}, nil
}

// defaultAddress 主机名加随机后缀，同一主机上的多个进程互不冲突。
func defaultAddress() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "xtick"
	}
	return host + "-" + uuid.NewString()[:8]
}

// Address 本节点的成员地址。
func (n *Node) Address() string {
	return n.self.Address
}

// Roles 本节点生效的角色。
func (n *Node) Roles() deploy.Roles {
	return slices.Clone(n.roles)
}

// Workers 返回在本节点激活的 worker，Run 之前为空。
func (n *Node) Workers() []*xworker.Worker {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.workers)
}

// Members 返回当前成员视图，Run 之前为空。
func (n *Node) Members() []xmember.Member {
	n.mu.Lock()
	coord := n.coord
	n.mu.Unlock()
	if coord == nil {
		return nil
	}
	return coord.Registry().Members(xmember.RoleAll)
}

// Run 组装全部组件并阻塞到 ctx 取消或某个服务失败。
//
// 停止顺序与创建顺序相反：先停 tick 生成，再停 worker 并等待在途任务，
// 最后关闭存储与连接。ctx 正常取消时返回 nil。
func (n *Node) Run(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx = xlog.WithNode(ctx, n.self.Address)
	n.opts.logger.Info(ctx, "node starting", xlog.Component("xnode"),
		xlog.Roles(n.roles), slog.Int("workers", len(n.cfg.Workers)))

	err := xrun.Run(ctx, func(g *xrun.Group) error {
		a := &assembly{n: n, g: g, ctx: g.Context()}
		return a.build()
	}, xrun.WithoutSignalHandler(), xrun.WithLogger(n.opts.logger), xrun.WithName("xnode"))

	if err != nil {
		n.opts.logger.Error(ctx, "node stopped", xlog.Component("xnode"), xlog.Err(err))
		return err
	}
	n.opts.logger.Info(ctx, "node stopped", xlog.Component("xnode"))
	return nil
}

func (n *Node) addWorker(w *xworker.Worker) {
	n.mu.Lock()
	n.workers = append(n.workers, w)
	n.mu.Unlock()
}

func (n *Node) setCoordinator(c *xtick.Coordinator) {
	n.mu.Lock()
	n.coord = c
	n.mu.Unlock()
}

// assembly 一次 Run 的组件装配。
//
// 外部连接按需创建，创建时登记停止钩子，使其晚于使用者关闭。
type assembly struct {
	n   *Node
	g   *xrun.Group
	ctx context.Context

	ids         *xid.Generator
	obs         xmetrics.Observer
	dispatchers *xpool.Registry
	backend     xreplica.Backend
	router      xtopic.Router
	gen         *xtick.Generator

	routerSource    *xworker.RouterSource
	generatorSource *xworker.GeneratorSource

	etcdClient  *xetcd.Client
	redisClient redis.UniversalClient
	natsConn    *nats.Conn
	redisLocker *xdlock.RedisLocker
	etcdLocker  *xdlock.EtcdLocker
}

func (a *assembly) build() error {
	var err error
	// XTICK_MACHINE_ID 优先于地址哈希。
	if a.ids, err = xid.NewGenerator(xid.WithMachineIDFrom(a.n.self.Address)); err != nil {
		return fmt.Errorf("xnode: id generator: %w", err)
	}
	if a.obs, err = a.observer(); err != nil {
		return err
	}
	if err = a.buildDispatchers(); err != nil {
		return err
	}
	if err = a.buildBackend(); err != nil {
		return err
	}
	if err = a.buildRouter(); err != nil {
		return err
	}
	if err = a.buildTicks(); err != nil {
		return err
	}
	for _, wc := range a.n.cfg.Workers {
		if err = a.buildWorker(wc); err != nil {
			return err
		}
	}

	// 所有订阅就绪后才开始产生 tick。
	if err = a.gen.Start(); err != nil {
		return err
	}
	a.g.OnStop("tick-generator", a.gen.Stop)
	a.n.opts.logger.Info(a.ctx, "node started", xlog.Component("xnode"),
		xlog.Count(int64(len(a.n.Workers()))))
	return nil
}

func (a *assembly) observer() (xmetrics.Observer, error) {
	if a.n.opts.observer != nil {
		return a.n.opts.observer, nil
	}
	if !a.n.cfg.Telemetry.Enabled {
		return xmetrics.NoopObserver{}, nil
	}
	obs, err := xmetrics.NewOTelObserver()
	if err != nil {
		return nil, fmt.Errorf("xnode: telemetry: %w", err)
	}
	return obs, nil
}

func (a *assembly) buildDispatchers() error {
	a.dispatchers = xpool.NewRegistry(xpool.WithLogger(a.n.opts.logger))
	a.g.OnStop("dispatchers", a.dispatchers.Shutdown)

	// default 先注册，关闭时最后关闭。
	names := slices.Sorted(maps.Keys(a.n.cfg.Dispatchers))
	if i := slices.Index(names, xpool.DefaultDispatcher); i > 0 {
		names = append([]string{xpool.DefaultDispatcher}, slices.Delete(names, i, i+1)...)
	}
	for _, name := range names {
		if _, err := a.dispatchers.Register(name, a.n.cfg.Dispatchers[name]); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembly) buildBackend() error {
	if a.n.opts.backend != nil {
		a.backend = a.n.opts.backend
		return nil
	}
	var (
		b   xreplica.Backend
		err error
	)
	switch a.n.cfg.Replica.Backend {
	case BackendRedis:
		b, err = xreplica.NewRedisBackend(a.redis(), a.n.cfg.Redis.backendOptions()...)
	case BackendEtcd:
		var c *xetcd.Client
		if c, err = a.etcd(); err == nil {
			b, err = xreplica.NewEtcdBackend(c)
		}
	case BackendJetStream:
		var js jetstream.JetStream
		if js, err = a.jetStream(); err == nil {
			b, err = xreplica.NewJetStreamBackend(a.ctx, js, a.n.cfg.NATS.JetStream)
		}
	default:
		b = xreplica.NewMemoryBackend()
	}
	if err != nil {
		return fmt.Errorf("xnode: replica backend %s: %w", a.n.cfg.Replica.Backend, err)
	}
	a.backend = b
	a.g.OnStop("replica-backend", func(context.Context) error { return b.Close() })
	return nil
}

func (a *assembly) buildRouter() error {
	if a.n.opts.router != nil {
		a.router = a.n.opts.router
	} else {
		opts := []xtopic.Option{
			xtopic.WithLogger(a.n.opts.logger),
			xtopic.WithObserver(a.obs),
			xtopic.WithQueueSize(a.n.cfg.Router.QueueSize),
			xtopic.WithSubjectPrefix(a.n.cfg.Router.SubjectPrefix),
		}
		switch a.n.cfg.Router.Kind {
		case RouterNATS:
			nc, err := a.nats()
			if err != nil {
				return err
			}
			r, err := xtopic.NewNATSRouter(nc, opts...)
			if err != nil {
				return fmt.Errorf("xnode: router: %w", err)
			}
			a.router = r
		default:
			a.router = xtopic.NewLocalRouter(opts...)
		}
		a.g.OnStop("router", func(context.Context) error { return a.router.Close() })
	}

	src, err := xworker.NewRouterSource(a.router, a.n.opts.logger)
	if err != nil {
		return err
	}
	a.routerSource = src
	return nil
}

// buildTicks 创建 tick 生成器、协调者与成员视图。
func (a *assembly) buildTicks() error {
	cfg := a.n.cfg.Tick
	gen, err := xtick.NewGenerator(a.ids,
		xtick.WithLogger(a.n.opts.logger),
		xtick.WithObserver(a.obs),
		xtick.WithClock(a.n.opts.now),
		xtick.WithInitialDelay(cfg.InitialDelay),
		xtick.WithPeriod(cfg.Period),
		xtick.WithSender(a.n.self.Address),
	)
	if err != nil {
		return err
	}
	a.gen = gen
	if a.generatorSource, err = xworker.NewGeneratorSource(gen); err != nil {
		return err
	}

	registry := xmember.NewRegistry(xmember.WithLogger(a.n.opts.logger))
	coord, err := xtick.NewCoordinator(a.n.self, registry, a.router, a.ids,
		xtick.WithLogger(a.n.opts.logger),
		xtick.WithObserver(a.obs),
		xtick.WithClock(a.n.opts.now),
	)
	if err != nil {
		return err
	}
	a.n.setCoordinator(coord)
	if _, err := gen.Subscribe(a.ctx, coord.OnTick); err != nil {
		return err
	}
	a.g.OnStop("coordinator", coord.Close)

	src, err := a.membership()
	if err != nil {
		return err
	}
	events, err := src.Watch(a.ctx)
	if err != nil {
		return fmt.Errorf("xnode: membership: %w", err)
	}
	a.g.Go("membership", func(ctx context.Context) error {
		coord.Run(ctx, events)
		return nil
	})
	return nil
}

func (a *assembly) membership() (xmember.Source, error) {
	if a.n.opts.members != nil {
		return a.n.opts.members, nil
	}
	cfg := a.n.cfg.Membership
	if cfg.Source == MembershipEtcd {
		c, err := a.etcd()
		if err != nil {
			return nil, err
		}
		return xmember.NewEtcdSource(c, a.n.self,
			xmember.WithMemberTTL(cfg.TTL), xmember.WithSourceLogger(a.n.opts.logger))
	}
	return xmember.NewStaticSource(staticMembers(a.n.self, cfg.Members)...), nil
}

// staticMembers 配置列表不含本节点时，本节点作为最年轻的成员追加在末尾。
func staticMembers(self xmember.Member, configured []MemberConfig) []xmember.Member {
	out := make([]xmember.Member, 0, len(configured)+1)
	found := false
	for _, mc := range configured {
		m := xmember.Member{Address: mc.Address, Roles: []string(deploy.NewRoles(mc.Roles...))}
		if m.Address == self.Address {
			m.Roles = self.Roles
			found = true
		}
		out = append(out, m)
	}
	if !found {
		out = append(out, self)
	}
	return out
}

func (a *assembly) buildWorker(wc WorkerConfig) error {
	spec := xworker.Spec{
		Name:       wc.Name,
		Roles:      deploy.NewRoles(wc.Roles...),
		Singleton:  wc.Singleton,
		Group:      wc.Group,
		RunOnStart: wc.RunOnStart,
	}
	if !deploy.Activates(spec.Roles, a.n.roles) {
		a.n.opts.logger.Info(a.ctx, "worker not deployed on this node", xlog.Component("xnode"),
			xlog.Worker(wc.Name), xlog.Roles(spec.Roles))
		return nil
	}

	var err error
	if spec.Schedule, err = xcron.Parse(wc.Schedule); err != nil {
		return fmt.Errorf("xnode: worker %s: %w", wc.Name, err)
	}
	job, err := a.n.catalog.Lookup(wc.Job)
	if err != nil {
		return fmt.Errorf("xnode: worker %s: %w", wc.Name, err)
	}
	exec, err := a.dispatchers.Resolve(wc.Dispatcher, xpool.WorkerDispatcher)
	if err != nil {
		return fmt.Errorf("xnode: worker %s: %w", wc.Name, err)
	}
	state, err := a.state(wc)
	if err != nil {
		return fmt.Errorf("xnode: worker %s: %w", wc.Name, err)
	}

	w, err := xworker.New(spec, job, state, exec, a.ids,
		xworker.WithLogger(a.n.opts.logger),
		xworker.WithObserver(a.obs),
		xworker.WithClock(a.n.opts.now),
	)
	if err != nil {
		return err
	}

	var src xworker.Source = a.routerSource
	if wc.Mode.IsLocal() {
		src = a.generatorSource
	}
	if err := w.Start(a.ctx, src, a.n.roles); err != nil {
		if errors.Is(err, xworker.ErrNotDeployed) {
			return nil
		}
		return err
	}
	a.g.OnStop("worker "+wc.Name, w.Stop)
	a.n.addWorker(w)
	return nil
}

// state 普通 worker 使用本地状态；单例 worker 使用以任务名为命名空间的复制 Map。
func (a *assembly) state(wc WorkerConfig) (xworker.StateBackend, error) {
	if !wc.Singleton {
		return xworker.NewLocalState(), nil
	}
	rc := a.n.cfg.Replica
	m, err := xreplica.New(a.backend, wc.Name,
		xreplica.WithLogger(a.n.opts.logger),
		xreplica.WithObserver(a.obs),
		xreplica.WithIDGenerator(a.ids),
		xreplica.WithQueueSize(rc.QueueSize),
		xreplica.WithWriteConsistency(rc.Write),
		xreplica.WithReadConsistency(rc.Read),
		xreplica.WithBreaker(rc.Breaker.Failures, rc.Breaker.Timeout),
	)
	if err != nil {
		return nil, err
	}
	a.g.OnStop("replica "+wc.Name, m.Close)

	locker, err := a.locker(wc.Lock, m)
	if err != nil {
		return nil, err
	}
	return xworker.NewReplicatedState(m,
		xworker.WithLocker(locker),
		xworker.WithLockTTL(wc.LockTTL),
		xworker.WithReadConsistency(rc.Read),
	)
}

func (a *assembly) lockOptions() []xdlock.Option {
	return []xdlock.Option{
		xdlock.WithLogger(a.n.opts.logger),
		xdlock.WithObserver(a.obs),
		xdlock.WithClock(a.n.opts.now),
		xdlock.WithConsistency(a.n.cfg.Replica.Lock),
	}
}

func (a *assembly) locker(kind string, m *xreplica.Map) (xdlock.Locker, error) {
	var err error
	switch kind {
	case LockRedis:
		if a.redisLocker == nil {
			a.redisLocker, err = xdlock.NewRedisLocker([]redis.UniversalClient{a.redis()}, a.lockOptions()...)
		}
		return a.redisLocker, err
	case LockEtcd:
		if a.etcdLocker == nil {
			var c *xetcd.Client
			if c, err = a.etcd(); err != nil {
				return nil, err
			}
			a.etcdLocker, err = xdlock.NewEtcdLocker(c, a.lockOptions()...)
		}
		return a.etcdLocker, err
	default:
		return xdlock.NewWeak(m, a.lockOptions()...)
	}
}

func (a *assembly) etcd() (*xetcd.Client, error) {
	if a.etcdClient != nil {
		return a.etcdClient, nil
	}
	c, err := xetcd.NewClient(&a.n.cfg.Etcd, xetcd.WithContext(a.ctx))
	if err != nil {
		return nil, fmt.Errorf("xnode: etcd: %w", err)
	}
	a.etcdClient = c
	a.g.OnStop("etcd", func(context.Context) error { return c.Close() })
	return c, nil
}

func (a *assembly) redis() redis.UniversalClient {
	if a.redisClient != nil {
		return a.redisClient
	}
	cfg := a.n.cfg.Redis
	c := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	a.redisClient = c
	a.g.OnStop("redis", func(context.Context) error { return c.Close() })
	return c
}

func (a *assembly) nats() (*nats.Conn, error) {
	if a.natsConn != nil {
		return a.natsConn, nil
	}
	nc, err := xtopic.Connect(a.n.cfg.NATS.URL, a.n.self.Address)
	if err != nil {
		return nil, fmt.Errorf("xnode: nats: %w", err)
	}
	a.natsConn = nc
	a.g.OnStop("nats", func(context.Context) error {
		nc.Close()
		return nil
	})
	return nc, nil
}

func (a *assembly) jetStream() (jetstream.JetStream, error) {
	nc, err := a.nats()
	if err != nil {
		return nil, err
	}
	return jetstream.New(nc)
}
