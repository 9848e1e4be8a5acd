package metrics

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Registerer prometheus.Registerer `optional:"true"`
	Clock      clock.Clock           `optional:"true"`
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(func(in ModuleInput) *Metrics {
			return NewWithClock(in.Registerer, in.Clock)
		}),
	)
}
