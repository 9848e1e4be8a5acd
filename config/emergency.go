package config

import (
	"errors"
	"time"
)

// EmergencyConfig 紧急广播配置
type EmergencyConfig struct {
	// Enabled 是否接收和发出紧急广播
	Enabled bool `json:"enabled"`

	// TTL 新广播的初始跳数
	TTL int `json:"ttl"`

	// Capacity 本地环形缓冲区容量
	Capacity int `json:"capacity"`

	// Deduplicate 按消息 ID 抑制重复投递与重复泛洪
	Deduplicate bool `json:"deduplicate"`

	// SeenTTL 已见 ID 的保留时长
	SeenTTL Duration `json:"seen_ttl"`

	// SeenCapacity 已见 ID 缓存大小
	SeenCapacity int `json:"seen_capacity"`

	// RefloodRate 每秒允许的转发次数，0 表示不限
	RefloodRate float64 `json:"reflood_rate"`

	// RefloodBurst 转发突发上限
	RefloodBurst int `json:"reflood_burst"`
}

// DefaultEmergencyConfig 返回默认紧急广播配置
func DefaultEmergencyConfig() EmergencyConfig {
	return EmergencyConfig{
		Enabled:      true,
		TTL:          5,
		Capacity:     50,
		Deduplicate:  true,
		SeenTTL:      Duration(time.Hour),
		SeenCapacity: 1024,
		RefloodRate:  20,
		RefloodBurst: 40,
	}
}

// Validate 验证紧急广播配置
func (c EmergencyConfig) Validate() error {
	if c.TTL < 0 {
		return errors.New("emergency: ttl cannot be negative")
	}
	if c.Capacity < 1 {
		return errors.New("emergency: capacity must be at least 1")
	}
	if c.Deduplicate && (c.SeenTTL <= 0 || c.SeenCapacity < 1) {
		return errors.New("emergency: seen cache requires positive ttl and capacity")
	}
	if c.RefloodRate < 0 {
		return errors.New("emergency: reflood_rate cannot be negative")
	}
	if c.RefloodRate > 0 && c.RefloodBurst < 1 {
		return errors.New("emergency: reflood_burst must be at least 1")
	}
	return nil
}
