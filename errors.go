package blemesh

import (
	"errors"

	"github.com/dep2p/go-blemesh/internal/app"
	"github.com/dep2p/go-blemesh/internal/core/flood"
	"github.com/dep2p/go-blemesh/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ErrNoTransport 未提供传输
	ErrNoTransport = app.ErrNoTransport

	// ────────────────────────────────────────────────────────────────────────
	// 可恢复错误（发现或重新协商后重试）
	// ────────────────────────────────────────────────────────────────────────

	// ErrDeviceOrKeyNotFound 目标设备未知或尚未交换公钥
	ErrDeviceOrKeyNotFound = types.ErrDeviceOrKeyNotFound

	// ErrNoSessionKey 尚未与对端协商会话密钥
	ErrNoSessionKey = types.ErrNoSessionKey

	// ErrRouteNotFound 没有路由且直连发送失败
	ErrRouteNotFound = types.ErrRouteNotFound

	// ErrTransportUnavailable 传输层前置条件不满足
	ErrTransportUnavailable = types.ErrTransportUnavailable

	// ────────────────────────────────────────────────────────────────────────
	// 数据与参数错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrKeyAgreementFailure 对端公钥格式错误
	ErrKeyAgreementFailure = types.ErrKeyAgreementFailure

	// ErrDecryptionFailure 密文认证失败
	ErrDecryptionFailure = types.ErrDecryptionFailure

	// ErrDeserializationFailure 报文无法解析
	ErrDeserializationFailure = types.ErrDeserializationFailure

	// ErrEmptyDestination 空目的地
	ErrEmptyDestination = types.ErrEmptyDestination

	// ErrEmergencyDisabled 紧急广播已关闭
	ErrEmergencyDisabled = flood.ErrDisabled
)

// IsRecoverable 判断错误是否可在发现或重新协商后重试
func IsRecoverable(err error) bool {
	return types.IsRecoverable(err)
}
