package xid

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
)

// EnvMachineID 显式指定机器 ID（0-65535）的环境变量。
const EnvMachineID = "XTICK_MACHINE_ID"

var osHostname = os.Hostname

// DefaultMachineID 未指定地址时的机器 ID：优先 XTICK_MACHINE_ID，其次主机名哈希。
func DefaultMachineID() (uint16, error) {
	if id, ok, err := envMachineID(); ok || err != nil {
		return id, err
	}
	host, err := osHostname()
	if err != nil {
		return 0, fmt.Errorf("xid: hostname: %w", err)
	}
	if host == "" {
		return 0, errors.New("xid: empty hostname")
	}
	return hashToMachineID(host), nil
}

// envMachineID 读取 XTICK_MACHINE_ID，未设置时 ok 为 false。
func envMachineID() (id uint16, ok bool, err error) {
	s := os.Getenv(EnvMachineID)
	if s == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, true, fmt.Errorf("xid: invalid %s %q: %w", EnvMachineID, s, err)
	}
	return uint16(v), true, nil
}

// hashToMachineID FNV-1a 哈希后把高低 16 位异或折叠。
func hashToMachineID(s string) uint16 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum32()
	return uint16(sum>>16) ^ uint16(sum)
}
