// Package config 提供 blemesh 节点的统一配置
//
// 主 Config 嵌入各子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载和保存。
//
//	cfg := config.NewConfig()
//	cfg.Routing.DistanceVector = true
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNilConfig 配置为空
var ErrNilConfig = errors.New("config is nil")

// Config 节点完整配置
type Config struct {
	// Identity 设备身份与密码学套件
	Identity IdentityConfig `json:"identity"`

	// Routing 路由表维护
	Routing RoutingConfig `json:"routing"`

	// Emergency 紧急广播泛洪
	Emergency EmergencyConfig `json:"emergency"`

	// Session 对端存活判定
	Session SessionConfig `json:"session"`

	// Storage 信任历史存储
	Storage StorageConfig `json:"storage"`

	// Metrics Prometheus 指标
	Metrics MetricsConfig `json:"metrics"`

	// Transport 传输事件处理
	Transport TransportConfig `json:"transport"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Routing:   DefaultRoutingConfig(),
		Emergency: DefaultEmergencyConfig(),
		Session:   DefaultSessionConfig(),
		Storage:   DefaultStorageConfig(),
		Metrics:   DefaultMetricsConfig(),
		Transport: DefaultTransportConfig(),
	}
}

// Validate 验证所有子配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	for _, v := range []interface{ Validate() error }{
		c.Identity, c.Routing, c.Emergency, c.Session,
		c.Storage, c.Metrics, c.Transport,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	// 存活窗口内至少要能收到一次 Hello
	if c.Session.LivenessWindow <= c.Routing.HelloInterval {
		return errors.New("session: liveness_window must exceed routing.hello_interval")
	}
	return nil
}

// FromJSON 从 JSON 解析配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载配置并验证
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToJSON 序列化为缩进 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
