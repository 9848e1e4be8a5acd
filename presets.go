package blemesh

import (
	"time"

	"github.com/dep2p/go-blemesh/config"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置
// ════════════════════════════════════════════════════════════════════════════

// Preset 预设配置
type Preset struct {
	// Name 预设名称
	Name string

	// Description 说明
	Description string

	apply func(*config.Config)
}

// Config 基于默认配置生成预设配置
func (p *Preset) Config() *config.Config {
	cfg := config.NewConfig()
	if p.apply != nil {
		p.apply(cfg)
	}
	return cfg
}

// 预设名称常量
const (
	PresetNameDefault   = "default"
	PresetNameLowPower  = "lowpower"
	PresetNameMultihop  = "multihop"
	PresetNameSimulator = "simulator"
)

var (
	// PresetDefault 一跳邻居选路、标准周期
	PresetDefault = &Preset{
		Name:        PresetNameDefault,
		Description: "one-hop routing, 30s hello, 300s route timeout",
	}

	// PresetLowPower 低功耗设备
	//
	// 特点：
	//   - Hello 周期放宽到 60 秒
	//   - 路由超时相应放宽
	//   - 不为他人中继单播
	PresetLowPower = &Preset{
		Name:        PresetNameLowPower,
		Description: "relaxed hello interval, no relaying",
		apply: func(c *config.Config) {
			c.Routing.HelloInterval = config.Duration(60 * time.Second)
			c.Routing.CleanupInterval = config.Duration(120 * time.Second)
			c.Routing.RouteTimeout = config.Duration(600 * time.Second)
			c.Routing.EnableRelay = false
		},
	}

	// PresetMultihop 距离向量选路与中继
	PresetMultihop = &Preset{
		Name:        PresetNameMultihop,
		Description: "distance-vector routing with relaying",
		apply: func(c *config.Config) {
			c.Routing.DistanceVector = true
			c.Routing.EnableRelay = true
		},
	}

	// PresetSimulator 进程内模拟
	//
	// 启动即广播与扫描，距离向量选路。
	PresetSimulator = &Preset{
		Name:        PresetNameSimulator,
		Description: "in-process simulation: advertise and scan on start, multihop",
		apply: func(c *config.Config) {
			c.Routing.DistanceVector = true
			c.Transport.AdvertiseOnStart = true
			c.Transport.ScanOnStart = true
		},
	}
)

// PresetByName 按名称获取预设，未知名称返回 nil
func PresetByName(name string) *Preset {
	switch name {
	case PresetNameDefault:
		return PresetDefault
	case PresetNameLowPower:
		return PresetLowPower
	case PresetNameMultihop:
		return PresetMultihop
	case PresetNameSimulator:
		return PresetSimulator
	default:
		return nil
	}
}
