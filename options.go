package blemesh

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/internal/core/security/suites"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 预设配置
	preset *Preset

	// 完整配置，为空时使用默认配置
	config *config.Config

	// 传输（必选）
	transport pkgif.Transport

	// 身份
	suite      string
	deviceName string
	keyPair    pkgif.KeyPair

	// 路由
	distanceVector *bool

	// 存储
	dataDir string

	// 时间源与指标
	clock      clock.Clock
	registerer prometheus.Registerer
}

func newOptions() *options {
	return &options{}
}

func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// buildConfig 合并预设、完整配置与单项选项
//
// 优先级：单项选项 > WithConfig > 预设 > 默认值。
func (o *options) buildConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case o.config != nil:
		copied := *o.config
		cfg = &copied
	case o.preset != nil:
		cfg = o.preset.Config()
	default:
		cfg = config.NewConfig()
	}

	if o.suite != "" {
		cfg.Identity.Suite = o.suite
	}
	if o.deviceName != "" {
		cfg.Identity.DeviceName = o.deviceName
	}
	if o.distanceVector != nil {
		cfg.Routing.DistanceVector = *o.distanceVector
	}
	if o.dataDir != "" {
		cfg.Storage.InMemory = false
		cfg.Storage.DataDir = o.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              选项
// ════════════════════════════════════════════════════════════════════════════

// WithPreset 使用预设配置
func WithPreset(p *Preset) Option {
	return func(o *options) error {
		if p == nil {
			return errors.New("preset is nil")
		}
		o.preset = p
		return nil
	}
}

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return config.ErrNilConfig
		}
		o.config = cfg
		return nil
	}
}

// WithTransport 设置物理传输
func WithTransport(t pkgif.Transport) Option {
	return func(o *options) error {
		if t == nil {
			return ErrNoTransport
		}
		o.transport = t
		return nil
	}
}

// WithSuite 设置密码学套件
//
// 可选值: "x25519-chacha20poly1305"（默认）, "p256-aesgcm"
func WithSuite(name string) Option {
	return func(o *options) error {
		if _, err := suites.Lookup(name); err != nil {
			return err
		}
		o.suite = name
		return nil
	}
}

// WithKeyPair 使用已有的身份密钥对
//
// 密钥对必须与套件匹配。
func WithKeyPair(kp pkgif.KeyPair) Option {
	return func(o *options) error {
		if kp == nil {
			return errors.New("key pair is nil")
		}
		o.keyPair = kp
		return nil
	}
}

// WithDeviceName 设置在 Hello 中通告的设备名
func WithDeviceName(name string) Option {
	return func(o *options) error {
		o.deviceName = name
		return nil
	}
}

// WithDistanceVector 启用或关闭距离向量选路
func WithDistanceVector(enabled bool) Option {
	return func(o *options) error {
		o.distanceVector = &enabled
		return nil
	}
}

// WithDataDir 把信任记录持久化到目录，否则只保存在内存中
func WithDataDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.New("data dir is empty")
		}
		o.dataDir = dir
		return nil
	}
}

// WithClock 设置时间源
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		if c == nil {
			return errors.New("clock is nil")
		}
		o.clock = c
		return nil
	}
}

// WithPrometheusRegisterer 把指标注册到外部 Registerer
func WithPrometheusRegisterer(r prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = r
		return nil
	}
}
