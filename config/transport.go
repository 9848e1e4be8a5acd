package config

import "errors"

// TransportConfig 传输配置
type TransportConfig struct {
	// EventBuffer 传输事件通道缓冲
	EventBuffer int `json:"event_buffer"`

	// AdvertiseOnStart 启动时立即广播
	AdvertiseOnStart bool `json:"advertise_on_start"`

	// ScanOnStart 启动时立即扫描
	ScanOnStart bool `json:"scan_on_start"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		EventBuffer: 64,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if c.EventBuffer < 1 {
		return errors.New("transport: event_buffer must be at least 1")
	}
	return nil
}
