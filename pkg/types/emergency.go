package types

import (
	"time"
)

// EmergencyClass 紧急消息类别
type EmergencyClass int

const (
	// ClassAlert 警报
	ClassAlert EmergencyClass = iota
	// ClassWarning 警告
	ClassWarning
	// ClassInfo 通知
	ClassInfo
)

// String 返回类别的字符串表示
func (c EmergencyClass) String() string {
	switch c {
	case ClassAlert:
		return "ALERT"
	case ClassWarning:
		return "WARNING"
	case ClassInfo:
		return "INFO"
	default:
		return "UNKNOWN"
	}
}

// Priority 紧急消息优先级
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String 返回优先级的字符串表示
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityMedium:
		return "MEDIUM"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Location 地理位置
type Location struct {
	Latitude  float64
	Longitude float64
}

// EmergencyMessage 紧急广播内容
type EmergencyMessage struct {
	ID        string
	Class     EmergencyClass
	Title     string
	Body      string
	Timestamp time.Time
	Priority  Priority

	// Location 可选
	Location *Location

	// ExpiresAt 零值表示永不过期
	ExpiresAt time.Time
}

// Expired ExpiresAt 已设置且早于 now
func (m *EmergencyMessage) Expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && now.After(m.ExpiresAt)
}

// FloodKindEmergency 紧急广播信封类型
const FloodKindEmergency = "EMERGENCY_BROADCAST"

// DefaultFloodTTL 新广播的初始跳数
const DefaultFloodTTL = 5

// FloodEnvelope 洪泛信封
//
// 转发时除 TTL 递减外保持不变；逐跳加密由 MessageCodec 完成。
type FloodEnvelope struct {
	Kind      string
	Payload   []byte
	TTL       int
	Timestamp time.Time
}
