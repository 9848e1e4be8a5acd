package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-blemesh/config"
)

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideEngine, NewTrustBook),
	)
}

// ProvideEngine 按配置打开引擎，并在停止时关闭
func ProvideEngine(lc fx.Lifecycle, cfg *config.Config) (*Engine, error) {
	e, err := Open(Options{
		Path:     cfg.Storage.DBPath(),
		InMemory: cfg.Storage.InMemory,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return e.Close()
		},
	})
	return e, nil
}
