package config

import (
	"errors"
	"time"
)

// SessionConfig 对端存活配置
type SessionConfig struct {
	// LivenessWindow 超过该时长未见的对端被标记为断开
	LivenessWindow Duration `json:"liveness_window"`

	// StaleCheckInterval 存活检查周期，0 表示不检查
	StaleCheckInterval Duration `json:"stale_check_interval"`
}

// DefaultSessionConfig 返回默认存活配置
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		LivenessWindow:     Duration(5 * time.Minute),
		StaleCheckInterval: Duration(time.Minute),
	}
}

// Validate 验证存活配置
func (c SessionConfig) Validate() error {
	if c.LivenessWindow <= 0 {
		return errors.New("session: liveness_window must be positive")
	}
	if c.StaleCheckInterval < 0 {
		return errors.New("session: stale_check_interval cannot be negative")
	}
	return nil
}
