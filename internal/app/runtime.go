package app

import (
	"context"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/internal/core/codec"
	"github.com/dep2p/go-blemesh/internal/core/flood"
	"github.com/dep2p/go-blemesh/internal/core/keyagreement"
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/internal/core/peerstore"
	"github.com/dep2p/go-blemesh/internal/core/routing"
	"github.com/dep2p/go-blemesh/internal/core/storage"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// Runtime 表示一个已通过 fx 组装完成的网格运行时。
//
// 根包的 Node Facade 组合 Runtime 暴露对外 API。
type Runtime struct {
	Config       *config.Config
	Transport    pkgif.Transport
	Clock        clock.Clock
	Bus          pkgif.EventBus
	Metrics      *metrics.Metrics
	Trust        *storage.TrustBook
	KeyAgreement *keyagreement.KeyAgreement
	Codec        *codec.Codec
	Registry     *peerstore.Registry
	Router       *routing.Router
	Flood        *flood.Flood

	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

// Start 启动运行时（触发 fx 生命周期 OnStart）。
func (r *Runtime) Start(ctx context.Context) error {
	if r.start == nil {
		return nil
	}
	return r.start(ctx)
}

// Stop 停止运行时（触发 fx 生命周期 OnStop）。
func (r *Runtime) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	return r.stop(ctx)
}
