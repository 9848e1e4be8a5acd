package app

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// BootstrapOption Bootstrap 配置选项
type BootstrapOption func(*Bootstrap)

// WithTransport 设置物理传输（必选）
func WithTransport(t pkgif.Transport) BootstrapOption {
	return func(b *Bootstrap) {
		b.transport = t
	}
}

// WithClock 设置时钟，测试中注入 clock.Mock
func WithClock(c clock.Clock) BootstrapOption {
	return func(b *Bootstrap) {
		b.clock = c
	}
}

// WithRegisterer 把指标注册到外部 Registerer
func WithRegisterer(r prometheus.Registerer) BootstrapOption {
	return func(b *Bootstrap) {
		b.registerer = r
	}
}

// WithKeyPair 使用已有的身份密钥对，而非每次启动新生成
func WithKeyPair(kp pkgif.KeyPair) BootstrapOption {
	return func(b *Bootstrap) {
		b.keyPair = kp
	}
}
