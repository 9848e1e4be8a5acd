package config

import (
	"errors"
	"time"
)

// RoutingConfig 路由配置
type RoutingConfig struct {
	// HelloInterval Hello 广播周期
	HelloInterval Duration `json:"hello_interval"`

	// CleanupInterval 过期路由清理周期
	CleanupInterval Duration `json:"cleanup_interval"`

	// RouteTimeout 路由条目有效期，updatedAt 超过该时长即失效
	RouteTimeout Duration `json:"route_timeout"`

	// DistanceVector 在 Hello 中携带本地路由表，学习多跳路由
	// 默认关闭：只记录一跳邻居
	DistanceVector bool `json:"distance_vector"`

	// MaxCost 距离向量模式下可接受的最大跳数
	MaxCost int `json:"max_cost"`

	// EnableRelay 转发收件人为其他设备的单播消息
	EnableRelay bool `json:"enable_relay"`

	// MaxHops 单播转发的最大跳数
	MaxHops int `json:"max_hops"`
}

// DefaultRoutingConfig 返回默认路由配置
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		HelloInterval:   Duration(30 * time.Second),
		CleanupInterval: Duration(60 * time.Second),
		RouteTimeout:    Duration(300 * time.Second),
		DistanceVector:  false,
		MaxCost:         16,
		EnableRelay:     true,
		MaxHops:         8,
	}
}

// Validate 验证路由配置
func (c RoutingConfig) Validate() error {
	if c.HelloInterval <= 0 || c.CleanupInterval <= 0 {
		return errors.New("routing: intervals must be positive")
	}
	if c.RouteTimeout <= c.HelloInterval {
		return errors.New("routing: route_timeout must exceed hello_interval")
	}
	if c.MaxCost < 1 {
		return errors.New("routing: max_cost must be at least 1")
	}
	if c.EnableRelay && c.MaxHops < 1 {
		return errors.New("routing: max_hops must be at least 1 when relay is enabled")
	}
	return nil
}
