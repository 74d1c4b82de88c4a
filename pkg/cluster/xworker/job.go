package xworker

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/omeyang/xtick/internal/deploy"
	"github.com/omeyang/xtick/pkg/cluster/xtick"
	"github.com/omeyang/xtick/pkg/distributed/xcron"
)

// Job 任务体。返回的错误与 panic 都在引擎边界被捕获并记录，锁总会释放。
type Job interface {
	Run(ctx context.Context, t xtick.Tick) error
}

// JobFunc 函数适配器。
type JobFunc func(ctx context.Context, t xtick.Tick) error

// Run 实现 Job。
func (f JobFunc) Run(ctx context.Context, t xtick.Tick) error {
	return f(ctx, t)
}

// Spec worker 的静态声明。
type Spec struct {
	// Name worker 名，同时是单例的复制命名空间和默认消费组。
	Name     string
	Schedule *xcron.Schedule
	// Roles 部署角色，为空或包含 "*" 时在所有节点激活。
	Roles deploy.Roles
	// Singleton 为 true 时订阅 TICK，每个消费组每个 tick 只有一个成员收到。
	Singleton bool
	// Group 单例消费组，默认为 Name。
	Group string
	// RunOnStart 启动时立即执行一次，不受调度约束。
	RunOnStart bool
}

// GroupID 返回单例消费组。
func (s Spec) GroupID() string {
	if s.Group != "" {
		return s.Group
	}
	return s.Name
}

// LockKey 返回单例锁的键。
func (s Spec) LockKey() string {
	return s.Name + "-lock"
}

func (s Spec) validate() error {
	switch {
	case s.Name == "":
		return ErrEmptyName
	case s.Schedule == nil:
		return fmt.Errorf("%w: %s", ErrNilSchedule, s.Name)
	}
	return nil
}

type firstRunKey struct{}

// FirstRun 报告本次执行是否由首次运行信号触发。
func FirstRun(ctx context.Context) bool {
	v, _ := ctx.Value(firstRunKey{}).(bool)
	return v
}

func withFirstRun(ctx context.Context) context.Context {
	return context.WithValue(ctx, firstRunKey{}, true)
}

// Catalog 按名字登记可被配置引用的任务。并发安全。
type Catalog struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewCatalog 创建空目录。
func NewCatalog() *Catalog {
	return &Catalog{jobs: make(map[string]Job)}
}

// Register 登记任务，名字重复时返回 ErrDuplicateJob。
func (c *Catalog) Register(name string, job Job) error {
	if name == "" {
		return ErrEmptyName
	}
	if job == nil {
		return ErrNilJob
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	c.jobs[name] = job
	return nil
}

// MustRegister 同 Register，出错时 panic。用于程序启动阶段的静态登记。
func (c *Catalog) MustRegister(name string, job Job) {
	if err := c.Register(name, job); err != nil {
		panic(err)
	}
}

// Lookup 按名字查找任务。
func (c *Catalog) Lookup(name string) (Job, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	job, ok := c.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return job, nil
}

// Names 返回已登记的任务名，按字典序。
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.jobs))
}
