// Package types 定义 blemesh 的基础类型
//
// 本文件定义对外事件。
package types

import "time"

// BaseEvent 事件公共字段
type BaseEvent struct {
	Time time.Time
}

// EvtDeviceDiscovered 设备发现事件
type EvtDeviceDiscovered struct {
	BaseEvent
	Peer *Peer
}

// EvtConnectionStateChanged 连接状态变化事件
type EvtConnectionStateChanged struct {
	BaseEvent
	PeerID   string
	OldState ConnectionState
	NewState ConnectionState
}

// EvtMessageReceived 收到非系统消息
type EvtMessageReceived struct {
	BaseEvent
	From    string
	Message *Message
}

// EvtEmergencyMessage 收到（或本地发出）紧急广播
type EvtEmergencyMessage struct {
	BaseEvent
	From    string
	Message *EmergencyMessage
	Local   bool
}

// EvtRouteChanged 路由表变化
type EvtRouteChanged struct {
	BaseEvent
	Entry   RouteEntry
	Removed bool
}
