// Package types 定义 blemesh 的基础类型
//
// 本文件定义协议层的错误分类。
package types

import "errors"

// ============================================================================
//                              可恢复错误
// ============================================================================

var (
	// ErrDeviceOrKeyNotFound 目标设备未知或尚未完成公钥交换
	//
	// 调用方应在发现/交换完成后重试。
	ErrDeviceOrKeyNotFound = errors.New("device or public key not found")

	// ErrNoSessionKey 未对该公钥执行密钥协商
	ErrNoSessionKey = errors.New("no session key for remote public key")

	// ErrRouteNotFound 单播回退发送失败
	ErrRouteNotFound = errors.New("route not found")

	// ErrTransportUnavailable 传输层前置条件不满足（广播/扫描）
	ErrTransportUnavailable = errors.New("transport unavailable")
)

// ============================================================================
//                              数据错误（丢弃，不重试）
// ============================================================================

var (
	// ErrKeyAgreementFailure 远端公钥格式错误或协商失败
	ErrKeyAgreementFailure = errors.New("key agreement failure")

	// ErrDecryptionFailure 认证标签不匹配或密文格式错误
	ErrDecryptionFailure = errors.New("decryption failure")

	// ErrDeserializationFailure 报文无法解析
	ErrDeserializationFailure = errors.New("deserialization failure")
)

// ============================================================================
//                              参数错误
// ============================================================================

var (
	// ErrEmptyPeerID 空设备 ID
	ErrEmptyPeerID = errors.New("empty peer ID")

	// ErrEmptyDestination 空目的地
	ErrEmptyDestination = errors.New("empty destination")

	// ErrInvalidTransition 非法的连接状态迁移
	ErrInvalidTransition = errors.New("invalid connection state transition")
)

// IsRecoverable 判断错误是否可通过重试（发现或重新协商后）恢复
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDeviceOrKeyNotFound) ||
		errors.Is(err, ErrNoSessionKey) ||
		errors.Is(err, ErrRouteNotFound)
}
