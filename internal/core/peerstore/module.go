package peerstore

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/internal/core/codec"
	"github.com/dep2p/go-blemesh/internal/core/keyagreement"
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/internal/core/storage"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config       *config.Config
	Transport    pkgif.Transport
	KeyAgreement *keyagreement.KeyAgreement
	Codec        *codec.Codec
	Bus          pkgif.EventBus
	Metrics      *metrics.Metrics
	Clock        clock.Clock
	Trust        *storage.TrustBook `optional:"true"`
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("peerstore",
		fx.Provide(Provide),
	)
}

// Provide 创建注册表并挂载生命周期
func Provide(lc fx.Lifecycle, p Params) (*Registry, error) {
	r, err := New(Config{
		LivenessWindow:     p.Config.Session.LivenessWindow.Duration(),
		StaleCheckInterval: p.Config.Session.StaleCheckInterval.Duration(),
	}, Deps{
		Transport:    p.Transport,
		KeyAgreement: p.KeyAgreement,
		Codec:        p.Codec,
		Bus:          p.Bus,
		Metrics:      p.Metrics,
		Trust:        p.Trust,
		Clock:        p.Clock,
	})
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
