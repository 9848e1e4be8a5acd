package eventbus

import (
	"reflect"

	"go.uber.org/fx"

	"github.com/dep2p/go-blemesh/internal/core/metrics"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 提供 EventBus，丢弃事件计入指标
func ProvideEventBus(m *metrics.Metrics) pkgif.EventBus {
	return NewBus(WithDropHook(func(typ reflect.Type) {
		m.EventDropped(typ.Name())
	}))
}
