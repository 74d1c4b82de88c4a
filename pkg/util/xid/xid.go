package xid

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sony/sonyflake/v2"
)

var (
	// ErrInvalidID 语法错误、溢出或非正数。
	ErrInvalidID = errors.New("xid: invalid id")

	// ErrOverTimeLimit 时间分量溢出，生成器不能再产生 ID。
	ErrOverTimeLimit = errors.New("xid: time component overflow")

	// ErrInvalidConfig 机器 ID 获取或校验失败。
	ErrInvalidConfig = errors.New("xid: invalid config")

	// ErrNilGenerator 未经 NewGenerator 创建。
	ErrNilGenerator = errors.New("xid: nil generator")
)

// Sonyflake v2 位布局：39 位时间、8 位序列、16 位机器。
const (
	machineBits  = 16
	sequenceBits = 8
)

// Components ID 的各个分量。Time 以 10ms 为单位，从 Sonyflake 纪元起算。
type Components struct {
	ID       int64
	Time     int64
	Sequence int64
	Machine  int64
}

// Generator ID 生成器，并发安全。
type Generator struct {
	machineID uint16
	next      func() (int64, error)
}

// NewGenerator 创建生成器。未指定机器 ID 时使用 [DefaultMachineID]。
func NewGenerator(opts ...Option) (*Generator, error) {
	o := &options{machineID: DefaultMachineID}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	machineID, err := o.machineID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	settings := sonyflake.Settings{
		MachineID: func() (int, error) { return int(machineID), nil },
	}
	if o.checkMachineID != nil {
		settings.CheckMachineID = func(id int) bool { return o.checkMachineID(uint16(id)) }
	}
	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Generator{machineID: machineID, next: sf.NextID}, nil
}

// MachineID 生成器的机器 ID，nil 时为 0。
func (g *Generator) MachineID() uint16 {
	if g == nil {
		return 0
	}
	return g.machineID
}

// New 生成 int64 ID，同一生成器产生的 ID 严格递增。
func (g *Generator) New() (int64, error) {
	if g == nil || g.next == nil {
		return 0, ErrNilGenerator
	}
	id, err := g.next()
	if errors.Is(err, sonyflake.ErrOverTimeLimit) {
		return 0, fmt.Errorf("%w: %w", ErrOverTimeLimit, err)
	}
	return id, err
}

// NewString 生成 base36 字符串 ID，用作 tick id 与运行 id。
func (g *Generator) NewString() (string, error) {
	id, err := g.New()
	if err != nil {
		return "", err
	}
	return Format(id), nil
}

// Format 以 base36 编码 ID。
func Format(id int64) string {
	return strconv.FormatInt(id, 36)
}

// Parse 解析 base36 ID，任何非法输入都返回 [ErrInvalidID]。
func Parse(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d is not positive", ErrInvalidID, id)
	}
	return id, nil
}

// Decompose 按位布局拆分 ID。
func Decompose(id int64) (Components, error) {
	if id <= 0 {
		return Components{}, fmt.Errorf("%w: %d is not positive", ErrInvalidID, id)
	}
	return Components{
		ID:       id,
		Machine:  id & (1<<machineBits - 1),
		Sequence: id >> machineBits & (1<<sequenceBits - 1),
		Time:     id >> (machineBits + sequenceBits),
	}, nil
}
