package types

import "time"

// Role 连接角色
type Role int

const (
	// RoleInitiator 主动发起（BLE central）
	RoleInitiator Role = iota
	// RoleResponder 被动接受（BLE peripheral）
	RoleResponder
)

// String 返回角色的字符串表示
func (r Role) String() string {
	if r == RoleResponder {
		return "responder"
	}
	return "initiator"
}

// ConnectionQuality 连接质量
type ConnectionQuality struct {
	SignalStrength int
	LatencyMs      int
	PacketLoss     float64
	Bandwidth      int
}

// Connection 活跃连接
//
// 仅在设备处于 Connected 状态时存在，每个设备最多一个。
type Connection struct {
	PeerID        string
	ConnectionID  string
	EstablishedAt time.Time
	Quality       ConnectionQuality
	Role          Role
}
