package blemesh

import (
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota

	// StateRunning 运行中
	StateRunning

	// StateStopped 已关闭，不可重启
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

type (
	// Peer 对端设备
	Peer = types.Peer

	// Connection 连接
	Connection = types.Connection

	// Message 线上消息
	Message = types.Message

	// MessageType 消息类型
	MessageType = types.MessageType

	// MessageStatus 发送状态
	MessageStatus = types.MessageStatus

	// EmergencyMessage 紧急广播内容
	EmergencyMessage = types.EmergencyMessage

	// EmergencyClass 紧急消息类别
	EmergencyClass = types.EmergencyClass

	// Priority 紧急消息优先级
	Priority = types.Priority

	// Location 地理位置
	Location = types.Location

	// RouteEntry 路由条目
	RouteEntry = types.RouteEntry

	// TopologySnapshot 拓扑快照
	TopologySnapshot = types.TopologySnapshot

	// ConnectionState 连接状态
	ConnectionState = types.ConnectionState

	// TrustLevel 信任等级
	TrustLevel = types.TrustLevel

	// TrafficStats 带宽统计（累计字节与最近 60 秒平均速率）
	TrafficStats = metrics.Stats

	// ConnectionStateChange 连接状态变化事件
	ConnectionStateChange = types.EvtConnectionStateChanged
)

// BroadcastRecipient 发送给所有已连接设备
const BroadcastRecipient = types.BroadcastRecipient

// 消息类型
const (
	MessageText      = types.MessageText
	MessageVoice     = types.MessageVoice
	MessageFile      = types.MessageFile
	MessageEmergency = types.MessageEmergency
	MessageSystem    = types.MessageSystem
)

// 发送状态
const (
	StatusSending = types.StatusSending
	StatusSent    = types.StatusSent
	StatusFailed  = types.StatusFailed
)

// 紧急消息类别与优先级
const (
	ClassAlert   = types.ClassAlert
	ClassWarning = types.ClassWarning
	ClassInfo    = types.ClassInfo

	PriorityLow      = types.PriorityLow
	PriorityMedium   = types.PriorityMedium
	PriorityHigh     = types.PriorityHigh
	PriorityCritical = types.PriorityCritical
)

// 连接状态
const (
	StateDiscovered   = types.StateDiscovered
	StateConnecting   = types.StateConnecting
	StateConnected    = types.StateConnected
	StateDisconnected = types.StateDisconnected
)

// 信任等级
const (
	TrustUnknown  = types.TrustUnknown
	TrustPaired   = types.TrustPaired
	TrustTrusted  = types.TrustTrusted
	TrustVerified = types.TrustVerified
)

// NewTextMessage 创建文本消息
func NewTextMessage(sender, recipient, text string) *Message {
	return types.NewTextMessage(sender, recipient, text)
}
