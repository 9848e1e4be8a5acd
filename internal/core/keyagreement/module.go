package keyagreement

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-blemesh/internal/core/metrics"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Suite   pkgif.Suite
	KeyPair pkgif.KeyPair `optional:"true"`
	Metrics *metrics.Metrics
}

// Module 返回 fx 模块
func Module() fx.Option {
	return fx.Module("keyagreement",
		fx.Provide(Provide),
	)
}

// Provide 创建 KeyAgreement，未注入密钥对时新生成
func Provide(in ModuleInput) (*KeyAgreement, error) {
	var (
		ka  *KeyAgreement
		err error
	)
	if in.KeyPair != nil {
		ka = NewWithKeyPair(in.Suite, in.KeyPair)
	} else if ka, err = New(in.Suite); err != nil {
		return nil, err
	}
	ka.SetObserver(in.Metrics.SetSessions)
	return ka, nil
}
