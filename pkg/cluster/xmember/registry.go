package xmember

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/omeyang/xtick/pkg/observability/xlog"
)

// Registry 按角色组织的成员有序集合。并发安全。
type Registry struct {
	logger xlog.Logger

	mu     sync.RWMutex
	byRole map[string][]Member // 每个切片按 compareMembers 有序
	byAddr map[string]Member
}

// Option Registry 选项。
type Option func(*Registry)

// WithLogger 设置日志记录器，nil 被忽略。
func WithLogger(l xlog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry 创建空的成员视图。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger: xlog.Discard(),
		byRole: make(map[string][]Member),
		byAddr: make(map[string]Member),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddMember 加入成员。同一地址再次加入时替换原条目（角色与年龄以新值为准）。
func (r *Registry) AddMember(m Member) {
	if m.Address == "" {
		return
	}
	m.Roles = slices.Clone(m.Roles)

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byAddr[m.Address]; ok {
		r.removeLocked(old)
	}
	r.byAddr[m.Address] = m
	r.insertLocked(RoleAll, m)
	for _, role := range m.Roles {
		if role != RoleAll {
			r.insertLocked(role, m)
		}
	}
}

// RemoveMember 按地址移除成员，不存在时无操作。
func (r *Registry) RemoveMember(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byAddr[m.Address]; ok {
		r.removeLocked(old)
	}
}

func (r *Registry) insertLocked(role string, m Member) {
	set := r.byRole[role]
	i, _ := slices.BinarySearchFunc(set, m, compareMembers)
	r.byRole[role] = slices.Insert(set, i, m)
}

func (r *Registry) removeLocked(m Member) {
	delete(r.byAddr, m.Address)
	for role, set := range r.byRole {
		set = slices.DeleteFunc(set, func(x Member) bool { return x.Address == m.Address })
		if len(set) == 0 {
			delete(r.byRole, role)
			continue
		}
		r.byRole[role] = set
	}
}

// LeaderOf 返回 role 中最早加入的成员。role 不存在或为空时返回 false。
func (r *Registry) LeaderOf(role string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byRole[role]
	if len(set) == 0 {
		return Member{}, false
	}
	return set[0], true
}

// IsLeader m 是否为 role 的领导者。
func (r *Registry) IsLeader(role string, m Member) bool {
	leader, ok := r.LeaderOf(role)
	return ok && leader.Address == m.Address
}

// Members 返回 role 的成员，按年龄从老到新。
func (r *Registry) Members(role string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byRole[role])
}

// Member 按地址查找成员。
func (r *Registry) Member(address string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byAddr[address]
	return m, ok
}

// Roles 返回当前存在成员的角色（含 RoleAll），按字典序。
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make([]string, 0, len(r.byRole))
	for role := range r.byRole {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}

// Len 成员数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddr)
}

// Apply 应用一个成员事件。
func (r *Registry) Apply(ctx context.Context, ev Event) {
	switch ev.Type {
	case EventMemberUp:
		r.AddMember(ev.Member)
		r.logger.Info(ctx, "member up", xlog.Component("xmember"),
			xlog.Node(ev.Member.Address), xlog.Roles(ev.Member.Roles), slog.Int64("age", ev.Member.Age))
	case EventMemberRemoved:
		r.RemoveMember(ev.Member)
		r.logger.Info(ctx, "member removed", xlog.Component("xmember"), xlog.Node(ev.Member.Address))
	case EventMemberUnreachable:
		r.logger.Warn(ctx, "member unreachable", xlog.Component("xmember"),
			xlog.Node(ev.Member.Address), xlog.Roles(ev.Member.Roles))
	default:
		r.logger.Debug(ctx, "ignored member event", xlog.Component("xmember"), xlog.Operation(ev.Type.String()))
	}
}

// Run 持续应用 events 直到通道关闭或 ctx 取消。
func (r *Registry) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Apply(ctx, ev)
		}
	}
}
