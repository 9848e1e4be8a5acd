// Package app 提供模块集合清单
//
// modulesets.go 集中维护"哪些模块属于哪个 Tier"，是 Bootstrap 组装的唯一模块来源。
package app

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-blemesh/internal/core/codec"
	"github.com/dep2p/go-blemesh/internal/core/eventbus"
	"github.com/dep2p/go-blemesh/internal/core/flood"
	"github.com/dep2p/go-blemesh/internal/core/keyagreement"
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/internal/core/peerstore"
	"github.com/dep2p/go-blemesh/internal/core/routing"
	"github.com/dep2p/go-blemesh/internal/core/storage"
)

// FoundationModules 基础层模块组合 (Tier 1)
//
// 指标、事件总线与持久化，不依赖传输。
func FoundationModules() fx.Option {
	return fx.Options(
		metrics.Module(),
		eventbus.Module(),
		storage.Module(),
	)
}

// SecurityModules 安全层模块组合 (Tier 2)
func SecurityModules() fx.Option {
	return fx.Options(
		keyagreement.Module(),
		codec.Module(),
	)
}

// MeshModules 网格层模块组合 (Tier 3)
//
// 注册表必须先于路由与泛洪构建，后两者在其上注册处理器。
func MeshModules() fx.Option {
	return fx.Options(
		peerstore.Module(),
		routing.Module(),
		flood.Module(),
	)
}

// AllModules 所有模块组合
func AllModules() fx.Option {
	return fx.Options(
		FoundationModules(),
		SecurityModules(),
		MeshModules(),
	)
}
