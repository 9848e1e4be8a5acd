package types

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// BroadcastRecipient 保留的接收方，表示“当前所有已连接设备”
const BroadcastRecipient = "broadcast"

// ============================================================================
//                              MessageType - 消息类型
// ============================================================================

// MessageType 消息类型
type MessageType int

const (
	// MessageText 文本
	MessageText MessageType = iota
	// MessageVoice 语音
	MessageVoice
	// MessageFile 文件
	MessageFile
	// MessageSystem 系统消息（Hello 等），交给路由器处理
	MessageSystem
	// MessageEmergency 紧急广播
	MessageEmergency
)

// String 返回消息类型的字符串表示
func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageVoice:
		return "voice"
	case MessageFile:
		return "file"
	case MessageSystem:
		return "system"
	case MessageEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Valid 是否为已定义的类型
func (t MessageType) Valid() bool {
	return t >= MessageText && t <= MessageEmergency
}

// ============================================================================
//                              MessageStatus - 消息状态
// ============================================================================

// MessageStatus 消息状态
//
// 发送方只负责 Sending→Sent/Failed，Delivered/Read 由外部存储/UI 维护。
type MessageStatus int

const (
	StatusSending MessageStatus = iota
	StatusSent
	StatusDelivered
	StatusRead
	StatusFailed
)

// String 返回状态的字符串表示
func (s MessageStatus) String() string {
	switch s {
	case StatusSending:
		return "sending"
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusRead:
		return "read"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              Message - 消息
// ============================================================================

// Message 线上消息
type Message struct {
	ID        string
	Type      MessageType
	Content   []byte
	Sender    string
	Recipient string
	Timestamp time.Time
	Encrypted bool
	Status    MessageStatus
	Channel   string

	// Route 已经过的中继设备，用于防环
	Route []string
}

// NewMessage 创建一条待发送消息
func NewMessage(typ MessageType, sender, recipient string, content []byte) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      typ,
		Content:   content,
		Sender:    sender,
		Recipient: recipient,
		Timestamp: time.Now().UTC(),
		Encrypted: true,
		Status:    StatusSending,
	}
}

// NewTextMessage 创建文本消息
func NewTextMessage(sender, recipient, text string) *Message {
	return NewMessage(MessageText, sender, recipient, []byte(text))
}

// Text 以字符串形式返回内容
func (m *Message) Text() string {
	return string(m.Content)
}

// IsBroadcast 接收方是否为广播
func (m *Message) IsBroadcast() bool {
	return m.Recipient == BroadcastRecipient
}

// Visited 是否已经过指定设备
func (m *Message) Visited(id string) bool {
	return slices.Contains(m.Route, id)
}

// Clone 深拷贝
func (m *Message) Clone() *Message {
	c := *m
	c.Content = slices.Clone(m.Content)
	c.Route = slices.Clone(m.Route)
	return &c
}
