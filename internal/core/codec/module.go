package codec

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-blemesh/internal/core/keyagreement"
)

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("codec",
		fx.Provide(func(ka *keyagreement.KeyAgreement) *Codec {
			return New(ka)
		}),
	)
}
