package flood

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
	return fx.Module("flood",
		fx.Provide(Provide),
	)
}

// ConfigFromUnified 从统一配置构建泛洪配置
func ConfigFromUnified(cfg *config.Config) Config {
	ec := cfg.Emergency
	return Config{
		Enabled:      ec.Enabled,
		TTL:          ec.TTL,
		Capacity:     ec.Capacity,
		Deduplicate:  ec.Deduplicate,
		SeenTTL:      ec.SeenTTL.Duration(),
		SeenCapacity: ec.SeenCapacity,
		RefloodRate:  ec.RefloodRate,
		RefloodBurst: ec.RefloodBurst,
	}
}

// Provide 创建泛洪组件并挂载生命周期
func Provide(lc fx.Lifecycle, p Params) (*Flood, error) {
	f, err := New(ConfigFromUnified(p.Config), p.Registry, p.Bus, p.Metrics, p.Clock)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return f.Stop()
		},
	})
	return f, nil
}
