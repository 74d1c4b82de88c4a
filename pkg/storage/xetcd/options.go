package xetcd

import (
	"context"
	"crypto/tls"

	"google.golang.org/grpc"
)

type options struct {
	ctx         context.Context
	tlsConfig   *tls.Config
	dialOptions []grpc.DialOption
}

// Option 客户端选项。可序列化的参数放在 Config，这里只放运行时对象。
type Option func(*options)

// WithContext 健康检查使用的 context，不影响客户端生命周期。
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithTLS 连接 etcd 使用的 TLS 配置。
func WithTLS(config *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = config
	}
}

// WithDialOptions 追加 gRPC 拨号选项，排在 keepalive 设置之后。
func WithDialOptions(dial ...grpc.DialOption) Option {
	return func(o *options) {
		o.dialOptions = append(o.dialOptions, dial...)
	}
}
