// Package app 提供 blemesh 应用编排层
//
// app 包负责：
// - fx 模块组装
// - 依赖注入协调
// - 生命周期管理
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/internal/core/security/suites"
	"github.com/dep2p/go-blemesh/internal/util/logger"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

var log = logger.Logger("app")

// 生命周期超时
const (
	DefaultStartTimeout = 30 * time.Second
	DefaultStopTimeout  = 30 * time.Second
)

// ErrNoTransport 未提供物理传输
var ErrNoTransport = errors.New("app: no transport configured")

// Bootstrap 应用引导程序
//
// Bootstrap 负责：
// - 校验配置
// - 组装 fx 模块并构建依赖图
// - 管理应用生命周期
type Bootstrap struct {
	config     *config.Config
	transport  pkgif.Transport
	clock      clock.Clock
	registerer prometheus.Registerer
	keyPair    pkgif.KeyPair

	fxApp *fx.App
}

// NewBootstrap 创建引导程序
func NewBootstrap(cfg *config.Config, opts ...BootstrapOption) *Bootstrap {
	b := &Bootstrap{config: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 构建运行时（不启动）
//
// 所有组件在返回前已构造完成，处理器已注册；后台周期在 Runtime.Start 后才运行。
func (b *Bootstrap) Build() (*Runtime, error) {
	if b.config == nil {
		return nil, config.ErrNilConfig
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if b.transport == nil {
		return nil, ErrNoTransport
	}
	if b.clock == nil {
		b.clock = clock.New()
	}

	rt := &Runtime{}
	b.fxApp = fx.New(
		b.setupModules(),
		fx.NopLogger,
		fx.Populate(
			&rt.Config,
			&rt.Transport,
			&rt.Clock,
			&rt.Bus,
			&rt.Metrics,
			&rt.Trust,
			&rt.KeyAgreement,
			&rt.Codec,
			&rt.Registry,
			&rt.Router,
			&rt.Flood,
		),
	)
	if err := b.fxApp.Err(); err != nil {
		return nil, fmt.Errorf("assemble modules: %w", err)
	}

	rt.start = b.start
	rt.stop = b.Stop
	log.Debug("runtime built", "local", b.transport.LocalID(), "suite", rt.KeyAgreement.Suite())
	return rt, nil
}

// BuildRuntime 构建并启动运行时
func (b *Bootstrap) BuildRuntime(ctx context.Context) (*Runtime, error) {
	rt, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := rt.Start(ctx); err != nil {
		return nil, err
	}
	return rt, nil
}

func (b *Bootstrap) start(ctx context.Context) error {
	startCtx, cancel := context.WithTimeout(ctx, DefaultStartTimeout)
	defer cancel()

	if err := b.fxApp.Start(startCtx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	return nil
}

// Stop 停止应用
func (b *Bootstrap) Stop(ctx context.Context) error {
	if b.fxApp == nil {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, DefaultStopTimeout)
	defer cancel()

	return b.fxApp.Stop(stopCtx)
}

// setupModules 组装所有 fx 模块
func (b *Bootstrap) setupModules() fx.Option {
	return fx.Options(
		// 外部输入（Tier 0）
		b.setupInputs(),

		// 基础层（Tier 1）
		FoundationModules(),

		// 安全层（Tier 2）
		SecurityModules(),

		// 网格层（Tier 3）
		MeshModules(),
	)
}

// setupInputs 配置、时钟、传输与加密套件
func (b *Bootstrap) setupInputs() fx.Option {
	opts := []fx.Option{
		fx.Supply(b.config),
		fx.Provide(
			func() clock.Clock { return b.clock },
			func() pkgif.Transport { return b.transport },
			func(cfg *config.Config) (pkgif.Suite, error) {
				return suites.Lookup(cfg.Identity.Suite)
			},
		),
	}
	if b.registerer != nil {
		opts = append(opts, fx.Provide(func() prometheus.Registerer { return b.registerer }))
	}
	if b.keyPair != nil {
		opts = append(opts, fx.Provide(func() pkgif.KeyPair { return b.keyPair }))
	}
	return fx.Options(opts...)
}
