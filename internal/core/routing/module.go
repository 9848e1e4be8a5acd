package routing

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/internal/core/peerstore"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config   *config.Config
	Registry *peerstore.Registry
	Bus      pkgif.EventBus
	Metrics  *metrics.Metrics
	Clock    clock.Clock
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("routing",
		fx.Provide(Provide),
	)
}

// ConfigFromUnified 从统一配置构建路由配置
func ConfigFromUnified(cfg *config.Config) Config {
	rc := cfg.Routing
	return Config{
		HelloInterval:   rc.HelloInterval.Duration(),
		CleanupInterval: rc.CleanupInterval.Duration(),
		RouteTimeout:    rc.RouteTimeout.Duration(),
		DistanceVector:  rc.DistanceVector,
		MaxCost:         rc.MaxCost,
		EnableRelay:     rc.EnableRelay,
		MaxHops:         rc.MaxHops,
		DeviceName:      cfg.Identity.DeviceName,
	}
}

// Provide 创建路由器并挂载生命周期
func Provide(lc fx.Lifecycle, p Params) (*Router, error) {
	r, err := New(ConfigFromUnified(p.Config), p.Registry, p.Bus, p.Metrics, p.Clock)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			r.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			return r.Stop()
		},
	})
	return r, nil
}
