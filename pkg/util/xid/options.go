package xid

type options struct {
	machineID      func() (uint16, error)
	checkMachineID func(uint16) bool
}

// Option 生成器选项。
type Option func(*options)

// WithMachineID 自定义机器 ID 来源。
func WithMachineID(fn func() (uint16, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.machineID = fn
		}
	}
}

// WithMachineIDFrom 由节点的成员地址哈希出机器 ID，空字符串被忽略。
// 设置了 XTICK_MACHINE_ID 时以环境变量为准。
//
// 16 位空间内存在碰撞可能，碰撞的两个节点在同一个 10ms 内可能产生相同 ID，
// 此时应通过 XTICK_MACHINE_ID 为节点逐个分配。
func WithMachineIDFrom(address string) Option {
	return func(o *options) {
		if address == "" {
			return
		}
		hashed := hashToMachineID(address)
		o.machineID = func() (uint16, error) {
			if id, ok, err := envMachineID(); ok || err != nil {
				return id, err
			}
			return hashed, nil
		}
	}
}

// WithCheckMachineID 机器 ID 校验，返回 false 时 NewGenerator 失败。
func WithCheckMachineID(fn func(uint16) bool) Option {
	return func(o *options) {
		o.checkMachineID = fn
	}
}
