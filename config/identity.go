package config

import "errors"

// DefaultSuite 默认密码学套件名称
const DefaultSuite = "x25519-chacha20poly1305"

// IdentityConfig 身份配置
//
// 每台设备一个密钥对，仅保存在内存中；设备 ID 由传输层提供。
type IdentityConfig struct {
	// DeviceName 在 Hello 中通告的显示名称
	DeviceName string `json:"device_name"`

	// Suite 密码学套件
	// 可选值: "x25519-chacha20poly1305"（默认）, "p256-aesgcm"
	Suite string `json:"suite"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{
		Suite: DefaultSuite,
	}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	switch c.Suite {
	case "x25519-chacha20poly1305", "p256-aesgcm":
		return nil
	default:
		return errors.New("identity: suite must be x25519-chacha20poly1305 or p256-aesgcm")
	}
}
