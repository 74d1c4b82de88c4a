package xetcd

import (
	"fmt"
	"strings"
	"time"
)

// Config etcd 客户端配置，支持 koanf 反序列化。
//
// 推荐使用 DefaultConfig() 获取默认值后按需覆盖。
type Config struct {
	// Endpoints etcd 服务端点列表，必填，格式 "host:port"。
	Endpoints []string `koanf:"endpoints"`

	// Username 用户名（可选）。
	Username string `koanf:"username"`

	// Password 密码（可选）。
	Password string `koanf:"password"`

	// Prefix xtick 在 etcd 中使用的键前缀，默认 "/xtick/"。
	Prefix string `koanf:"prefix"`

	// DialTimeout 连接超时，零值时为 5 秒。
	DialTimeout time.Duration `koanf:"dial_timeout"`

	// DialKeepAliveTime gRPC keepalive 探测间隔，零值时为 10 秒。
	DialKeepAliveTime time.Duration `koanf:"dial_keepalive_time"`

	// DialKeepAliveTimeout gRPC keepalive 超时，零值时为 3 秒。
	DialKeepAliveTimeout time.Duration `koanf:"dial_keepalive_timeout"`

	// RejectOldCluster 拒绝过期集群。Config{} 零值为 false，DefaultConfig 为 true。
	RejectOldCluster bool `koanf:"reject_old_cluster"`

	// PermitWithoutStream 允许无活跃流时发送 keepalive。
	PermitWithoutStream bool `koanf:"permit_without_stream"`

	// HealthCheck 创建客户端后读取一次 <Prefix>health，失败则 NewClient 返回错误。
	HealthCheck bool `koanf:"health_check"`

	// HealthCheckTimeout 健康检查超时，零值时为 5 秒。
	HealthCheckTimeout time.Duration `koanf:"health_check_timeout"`
}

const (
	defaultDialTimeout          = 5 * time.Second
	defaultDialKeepAliveTime    = 10 * time.Second
	defaultDialKeepAliveTimeout = 3 * time.Second
	defaultHealthCheckTimeout   = 5 * time.Second

	// DefaultPrefix 默认键前缀
	DefaultPrefix = "/xtick/"
)

// DefaultConfig 返回带有推荐默认值的配置。
func DefaultConfig() *Config {
	return &Config{
		Prefix:               DefaultPrefix,
		DialTimeout:          defaultDialTimeout,
		DialKeepAliveTime:    defaultDialKeepAliveTime,
		DialKeepAliveTimeout: defaultDialKeepAliveTimeout,
		RejectOldCluster:     true,
		PermitWithoutStream:  true,
	}
}

// Validate 验证配置有效性。
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return ErrNoEndpoints
	}
	for i, ep := range c.Endpoints {
		if ep == "" {
			return fmt.Errorf("%w: endpoint[%d] is empty", ErrInvalidEndpoint, i)
		}
		if !strings.Contains(ep, ":") {
			return fmt.Errorf("%w: endpoint[%d]=%q missing port", ErrInvalidEndpoint, i, ep)
		}
	}
	return nil
}

// applyDefaults 返回填充默认值后的副本，不修改原配置。
func (c *Config) applyDefaults() *Config {
	cfg := *c
	cfg.Endpoints = append([]string(nil), c.Endpoints...)
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.DialKeepAliveTime == 0 {
		cfg.DialKeepAliveTime = defaultDialKeepAliveTime
	}
	if cfg.DialKeepAliveTimeout == 0 {
		cfg.DialKeepAliveTimeout = defaultDialKeepAliveTimeout
	}
	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = defaultHealthCheckTimeout
	}
	return &cfg
}
