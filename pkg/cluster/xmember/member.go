package xmember

import (
	"cmp"
	"slices"

	"github.com/omeyang/xtick/internal/deploy"
)

// RoleAll 代表全体成员的合成角色。
const RoleAll = deploy.RoleAll

// Member 集群成员。Address 是成员身份。
type Member struct {
	Address string   `json:"address"`
	Roles   []string `json:"roles,omitempty"`

	// Age 加入顺序，越小越早加入。集群内严格单调。
	Age int64 `json:"age"`
}

// HasRole 成员是否声明了 role。
func (m Member) HasRole(role string) bool {
	return slices.Contains(m.Roles, role)
}

// compareMembers 按 (Age, Address) 排序，保证全序。
func compareMembers(a, b Member) int {
	if c := cmp.Compare(a.Age, b.Age); c != 0 {
		return c
	}
	return cmp.Compare(a.Address, b.Address)
}

// EventType 成员事件类型。
type EventType int

const (
	// EventMemberUp 成员加入或重新加入。
	EventMemberUp EventType = iota + 1
	// EventMemberRemoved 成员离开。
	EventMemberRemoved
	// EventMemberUnreachable 成员暂时不可达，只做记录。
	EventMemberUnreachable
)

func (t EventType) String() string {
	switch t {
	case EventMemberUp:
		return "member_up"
	case EventMemberRemoved:
		return "member_removed"
	case EventMemberUnreachable:
		return "member_unreachable"
	default:
		return "unknown"
	}
}

// Event 一次成员变更。
type Event struct {
	Type   EventType
	Member Member
}
