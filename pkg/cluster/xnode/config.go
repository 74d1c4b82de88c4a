package xnode

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/omeyang/xtick/internal/deploy"
	"github.com/omeyang/xtick/pkg/cluster/xmember"
	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/distributed/xcron"
	"github.com/omeyang/xtick/pkg/observability/xlog"
	"github.com/omeyang/xtick/pkg/storage/xetcd"
	"github.com/omeyang/xtick/pkg/storage/xreplica"
	"github.com/omeyang/xtick/pkg/util/xpool"
)

// 后端与来源的取值。
const (
	MembershipStatic = "static"
	MembershipEtcd   = "etcd"

	RouterLocal = "local"
	RouterNATS  = "nats"

	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendEtcd      = "etcd"
	BackendJetStream = "jetstream"

	LockWeak  = "weak"
	LockRedis = "redis"
	LockEtcd  = "etcd"
)

// 配置错误。
var (
	ErrInvalidConfig = errors.New("xnode: invalid config")
	ErrNilCatalog    = errors.New("xnode: job catalog is nil")
)

// Config 节点配置，支持 koanf 反序列化。
type Config struct {
	Node        NodeConfig                        `koanf:"node"`
	Log         LogConfig                         `koanf:"log"`
	Telemetry   TelemetryConfig                   `koanf:"telemetry"`
	Tick        TickConfig                        `koanf:"tick"`
	Membership  MembershipConfig                  `koanf:"membership"`
	Router      RouterConfig                      `koanf:"router"`
	Replica     ReplicaConfig                     `koanf:"replica"`
	Etcd        xetcd.Config                      `koanf:"etcd"`
	Redis       RedisConfig                       `koanf:"redis"`
	NATS        NATSConfig                        `koanf:"nats"`
	Dispatchers map[string]xpool.DispatcherConfig `koanf:"dispatchers"`
	Workers     []WorkerConfig                    `koanf:"workers"`
}

// NodeConfig 本节点身份。
type NodeConfig struct {
	// Address 成员地址，为空时由主机名加随机后缀生成。
	Address string `koanf:"address"`
	// Roles 节点角色，环境变量 XTICK_ROLES 非空时覆盖。
	Roles []string `koanf:"roles"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level     string               `koanf:"level"`
	Format    string               `koanf:"format"`
	File      string               `koanf:"file"`
	AddSource bool                 `koanf:"add_source"`
	Rotation  xlog.RotationOptions `koanf:"rotation"`
}

// TelemetryConfig 为 true 时使用全局 OpenTelemetry provider 记录跨度与指标。
type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

// TickConfig tick 生成参数。
type TickConfig struct {
	InitialDelay time.Duration `koanf:"initial_delay"`
	Period       time.Duration `koanf:"period"`
}

// MembershipConfig 成员来源。
type MembershipConfig struct {
	// Source static 或 etcd。
	Source string `koanf:"source"`
	// Members static 来源的成员列表，按列表顺序决定年龄。为空时只有本节点。
	Members []MemberConfig `koanf:"members"`
	// TTL etcd 注册租约。
	TTL time.Duration `koanf:"ttl"`
}

// MemberConfig 静态成员。
type MemberConfig struct {
	Address string   `koanf:"address"`
	Roles   []string `koanf:"roles"`
}

// RouterConfig 主题路由。
type RouterConfig struct {
	// Kind local 或 nats。
	Kind          string `koanf:"kind"`
	QueueSize     int    `koanf:"queue_size"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// ReplicaConfig 复制 Map 的后端与一致性。
type ReplicaConfig struct {
	// Backend memory、redis、etcd 或 jetstream。
	Backend string               `koanf:"backend"`
	Read    xreplica.Consistency `koanf:"read"`
	Write   xreplica.Consistency `koanf:"write"`
	Lock    xreplica.Consistency `koanf:"lock"`
	Breaker BreakerConfig        `koanf:"breaker"`
	// QueueSize 每个 Map 的请求队列容量。
	QueueSize int `koanf:"queue_size"`
}

// BreakerConfig 复制后端熔断参数，零值使用 xreplica 默认值。
type BreakerConfig struct {
	Failures uint32        `koanf:"failures"`
	Timeout  time.Duration `koanf:"timeout"`
}

// RedisConfig Redis 连接。
type RedisConfig struct {
	Addrs    []string `koanf:"addrs"`
	Password string   `koanf:"password"`
	DB       int      `koanf:"db"`
	Prefix   string   `koanf:"prefix"`
	// Replicas 主节点的副本数。majority/all 写入后以 WAIT 等待相应数量的副本，0 不等待。
	Replicas int `koanf:"replicas"`
	// CASAttempts 值集合修改冲突时的最大尝试次数，0 使用默认值。
	CASAttempts uint `koanf:"cas_attempts"`
}

func (c RedisConfig) backendOptions() []xreplica.RedisOption {
	return []xreplica.RedisOption{
		xreplica.WithRedisPrefix(c.Prefix),
		xreplica.WithRedisReplicas(c.Replicas),
		xreplica.WithRedisCASAttempts(c.CASAttempts),
	}
}

// NATSConfig NATS 连接与 JetStream KV。
type NATSConfig struct {
	URL       string                   `koanf:"url"`
	JetStream xreplica.JetStreamConfig `koanf:"jetstream"`
}

// WorkerConfig 声明一个 worker，Job 引用 Catalog 中的任务。
type WorkerConfig struct {
	Name       string      `koanf:"name"`
	Job        string      `koanf:"job"`
	Schedule   string      `koanf:"schedule"`
	Roles      []string    `koanf:"roles"`
	Singleton  bool        `koanf:"singleton"`
	Group      string      `koanf:"group"`
	RunOnStart bool        `koanf:"run_on_start"`
	Mode       deploy.Mode `koanf:"mode"`
	// Lock 单例锁实现：weak（默认）、redis 或 etcd。
	Lock string `koanf:"lock"`
	// LockTTL 单例锁租期，零值为 xworker.DefaultLockTTL。
	LockTTL time.Duration `koanf:"lock_ttl"`
	// Dispatcher 任务体使用的 dispatcher，缺失时依次回退到 worker-dispatcher 与 default。
	Dispatcher string `koanf:"dispatcher"`
}

// DefaultConfig 返回单节点、全内存的默认配置。
func DefaultConfig() Config {
	return Config{
		Log:        LogConfig{Level: "info", Format: "text"},
		Tick:       TickConfig{InitialDelay: xtick.DefaultInitialDelay, Period: xtick.DefaultPeriod},
		Membership: MembershipConfig{Source: MembershipStatic, TTL: xmember.DefaultMemberTTL},
		Router:     RouterConfig{Kind: RouterLocal},
		Replica: ReplicaConfig{
			Backend: BackendMemory,
			Read:    xreplica.Default(),
			Write:   xreplica.Default(),
			Lock:    xreplica.Lock(),
		},
		Etcd: *xetcd.DefaultConfig(),
		Dispatchers: map[string]xpool.DispatcherConfig{
			xpool.DefaultDispatcher: {Workers: 4, QueueSize: 64},
		},
	}
}

// applyDefaults 返回填充默认值后的副本，不修改原配置。
func (c Config) applyDefaults() Config {
	def := DefaultConfig()
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Tick.InitialDelay < 0 {
		c.Tick.InitialDelay = def.Tick.InitialDelay
	}
	if c.Tick.Period <= 0 {
		c.Tick.Period = def.Tick.Period
	}
	if c.Membership.Source == "" {
		c.Membership.Source = def.Membership.Source
	}
	if c.Membership.TTL <= 0 {
		c.Membership.TTL = def.Membership.TTL
	}
	if c.Router.Kind == "" {
		c.Router.Kind = def.Router.Kind
	}
	if c.Replica.Backend == "" {
		c.Replica.Backend = def.Replica.Backend
	}
	if c.Replica.Read.Timeout <= 0 {
		c.Replica.Read = def.Replica.Read
	}
	if c.Replica.Write.Timeout <= 0 {
		c.Replica.Write = def.Replica.Write
	}
	if c.Replica.Lock.Timeout <= 0 {
		c.Replica.Lock = def.Replica.Lock
	}
	if len(c.Dispatchers) == 0 {
		c.Dispatchers = def.Dispatchers
	}
	c.Workers = slices.Clone(c.Workers)
	for i := range c.Workers {
		w := &c.Workers[i]
		if w.Job == "" {
			w.Job = w.Name
		}
		if w.Mode == "" {
			w.Mode = deploy.Cluster
		}
		if w.Lock == "" {
			w.Lock = LockWeak
		}
	}
	return c
}

// Validate 检查配置。调度表达式在此解析，格式错误在启动前暴露。
func (c Config) Validate() error {
	c = c.applyDefaults()
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		add("log.level: %v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format %q (expected text or json)", c.Log.Format)
	}

	switch c.Membership.Source {
	case MembershipStatic:
		for i, m := range c.Membership.Members {
			if m.Address == "" {
				add("membership.members[%d].address is empty", i)
			}
		}
	case MembershipEtcd:
		if err := c.Etcd.Validate(); err != nil {
			add("etcd: %v", err)
		}
	default:
		add("membership.source %q (expected static or etcd)", c.Membership.Source)
	}

	switch c.Router.Kind {
	case RouterLocal:
	case RouterNATS:
		if c.NATS.URL == "" {
			add("nats.url is required for router kind nats")
		}
	default:
		add("router.kind %q (expected local or nats)", c.Router.Kind)
	}

	switch c.Replica.Backend {
	case BackendMemory:
	case BackendRedis:
		if len(c.Redis.Addrs) == 0 {
			add("redis.addrs is required for replica backend redis")
		}
		if c.Redis.Replicas < 0 {
			add("redis.replicas must not be negative")
		}
	case BackendEtcd:
		if err := c.Etcd.Validate(); err != nil {
			add("etcd: %v", err)
		}
	case BackendJetStream:
		if c.NATS.URL == "" {
			add("nats.url is required for replica backend jetstream")
		}
	default:
		add("replica.backend %q (expected memory, redis, etcd or jetstream)", c.Replica.Backend)
	}

	for name, d := range c.Dispatchers {
		if d.Workers <= 0 || d.QueueSize <= 0 {
			add("dispatchers.%s needs positive workers and queue_size", name)
		}
	}

	names := make(map[string]bool, len(c.Workers))
	for i, w := range c.Workers {
		if err := c.validateWorker(w, names); err != nil {
			add("workers[%d]: %v", i, err)
		}
	}
	return errors.Join(errs...)
}

func (c Config) validateWorker(w WorkerConfig, seen map[string]bool) error {
	if w.Name == "" {
		return errors.New("name is empty")
	}
	if seen[w.Name] {
		return fmt.Errorf("duplicate worker %q", w.Name)
	}
	seen[w.Name] = true
	if _, err := xcron.Parse(w.Schedule); err != nil {
		return fmt.Errorf("%s: %w", w.Name, err)
	}
	if !w.Mode.IsValid() {
		return fmt.Errorf("%s: mode %q (expected cluster or local)", w.Name, w.Mode)
	}
	if w.Singleton && w.Mode.IsLocal() {
		return fmt.Errorf("%s: singleton workers require cluster mode", w.Name)
	}
	if w.LockTTL < 0 {
		return fmt.Errorf("%s: lock_ttl must not be negative", w.Name)
	}
	switch w.Lock {
	case LockWeak:
	case LockRedis:
		if len(c.Redis.Addrs) == 0 {
			return fmt.Errorf("%s: lock redis requires redis.addrs", w.Name)
		}
	case LockEtcd:
		if err := c.Etcd.Validate(); err != nil {
			return fmt.Errorf("%s: lock etcd: %w", w.Name, err)
		}
	default:
		return fmt.Errorf("%s: lock %q (expected weak, redis or etcd)", w.Name, w.Lock)
	}
	return nil
}
