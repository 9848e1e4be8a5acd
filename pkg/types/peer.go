package types

import (
	"slices"
	"time"
)

// ============================================================================
//                              ConnectionState - 连接状态
// ============================================================================

// ConnectionState 设备连接状态
//
// 状态机：Discovered → Connecting → Connected → Disconnected，
// Disconnected 在重新广播时回到 Discovered。
type ConnectionState int

const (
	// StateDiscovered 已发现
	StateDiscovered ConnectionState = iota
	// StateConnecting 连接中
	StateConnecting
	// StateConnected 已连接
	StateConnected
	// StateDisconnected 已断开
	StateDisconnected
)

// String 返回状态的字符串表示
func (s ConnectionState) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// ValidTransition 判断状态迁移是否合法
//
// Discovered→Connected 是传输层跳过显式连接阶段时的快速路径。
// 相同状态之间的“迁移”视为幂等，合法。
func ValidTransition(from, to ConnectionState) bool {
	if from == to {
		return true
	}
	switch from {
	case StateDiscovered:
		return to == StateConnecting || to == StateConnected || to == StateDisconnected
	case StateConnecting:
		return to == StateConnected || to == StateDisconnected
	case StateConnected:
		return to == StateDisconnected
	case StateDisconnected:
		return to == StateDiscovered || to == StateConnecting || to == StateConnected
	default:
		return false
	}
}

// ============================================================================
//                              TrustLevel - 信任等级
// ============================================================================

// TrustLevel 设备信任等级
type TrustLevel int

const (
	// TrustUnknown 未知
	TrustUnknown TrustLevel = iota
	// TrustPaired 已配对
	TrustPaired
	// TrustTrusted 受信任
	TrustTrusted
	// TrustVerified 已验证
	TrustVerified
)

// String 返回信任等级的字符串表示
func (t TrustLevel) String() string {
	switch t {
	case TrustPaired:
		return "paired"
	case TrustTrusted:
		return "trusted"
	case TrustVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Capability - 设备能力
// ============================================================================

// Capability 设备能力
type Capability string

const (
	CapText      Capability = "text"
	CapVoice     Capability = "voice"
	CapFile      Capability = "file"
	CapEmergency Capability = "emergency"
)

// DefaultCapabilities 新发现设备的默认能力
func DefaultCapabilities() []Capability {
	return []Capability{CapText, CapVoice}
}

// ============================================================================
//                              Peer - 远端设备
// ============================================================================

// Peer 远端设备
//
// 在发现事件时创建；PublicKey 在收到公钥后设置；
// 连接状态只随传输层确认的事件变化。超出存活窗口的设备
// 只会被标记为断开，不会删除，以保留信任历史。
type Peer struct {
	// ID 传输层设备 ID
	ID string

	// DisplayName 显示名称
	DisplayName string

	// Address 传输层地址
	Address string

	// SignalStrength 信号强度（RSSI）
	SignalStrength int

	// State 连接状态
	State ConnectionState

	// LastSeen 最后一次收到该设备事件的时间
	LastSeen time.Time

	// Capabilities 能力集合
	Capabilities []Capability

	// Trust 信任等级
	Trust TrustLevel

	// PublicKey 公钥（交换前为空）
	PublicKey []byte
}

// HasKey 是否已收到公钥
func (p *Peer) HasKey() bool {
	return len(p.PublicKey) > 0
}

// HasCapability 是否具备指定能力
func (p *Peer) HasCapability(c Capability) bool {
	return slices.Contains(p.Capabilities, c)
}

// Stale 是否超出存活窗口
func (p *Peer) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastSeen) > window
}

// Clone 深拷贝
func (p *Peer) Clone() *Peer {
	c := *p
	c.Capabilities = slices.Clone(p.Capabilities)
	c.PublicKey = slices.Clone(p.PublicKey)
	return &c
}
