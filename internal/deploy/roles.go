package deploy

import (
	"os"
	"slices"
	"strings"
)

// EnvRoles 覆盖节点角色的环境变量，逗号或空白分隔
const EnvRoles = "XTICK_ROLES"

// RoleAll 匹配任意角色的通配符
const RoleAll = "*"

// Roles 去重后的角色列表，保持首次出现的顺序
type Roles []string

// NewRoles 规范化角色：去除首尾空白、丢弃空串、去重。
func NewRoles(roles ...string) Roles {
	out := make(Roles, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ParseRoles 解析逗号或空白分隔的角色列表
func ParseRoles(s string) Roles {
	return NewRoles(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})...)
}

// ResolveRoles 环境变量 XTICK_ROLES 非空时覆盖配置值。
func ResolveRoles(configured []string) Roles {
	if v, ok := os.LookupEnv(EnvRoles); ok && strings.TrimSpace(v) != "" {
		return ParseRoles(v)
	}
	return NewRoles(configured...)
}

// Has 判断是否包含角色 r
func (rs Roles) Has(r string) bool {
	return slices.Contains(rs, r)
}

// Wildcard 判断是否声明为"任意角色"：为空或包含 "*"。
func (rs Roles) Wildcard() bool {
	return len(rs) == 0 || rs.Has(RoleAll)
}

// Intersects 判断两个角色集合是否有交集
func (rs Roles) Intersects(other Roles) bool {
	return slices.ContainsFunc(rs, other.Has)
}

// String 返回逗号分隔的形式
func (rs Roles) String() string {
	return strings.Join(rs, ",")
}

// Activates 判断声明了 declared 角色的 worker 是否应在拥有 local 角色的节点上激活。
func Activates(declared, local Roles) bool {
	return declared.Wildcard() || declared.Intersects(local)
}
