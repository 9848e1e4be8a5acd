package flood

import (
	"context"
	"fmt"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// 预设消息的有效期（小时）
const (
	MedicalTTLHours       = 6
	FireTTLHours          = 12
	SafetyWarningTTLHours = 24
	MissingPersonTTLHours = 72

	// DefaultTTLHours ttlHours 为 0 时使用
	DefaultTTLHours = 24

	// NoExpiry 任意负数 ttlHours 表示永不过期
	NoExpiry = -1
)

// Medical 医疗求助
func (f *Flood) Medical(ctx context.Context, loc *types.Location) (*types.EmergencyMessage, error) {
	return f.BroadcastLocal(ctx, types.ClassAlert,
		"Medical Emergency",
		"Medical assistance needed at this location. Please send help if available.",
		types.PriorityCritical, loc, MedicalTTLHours)
}

// Fire 火警
func (f *Flood) Fire(ctx context.Context, loc *types.Location) (*types.EmergencyMessage, error) {
	return f.BroadcastLocal(ctx, types.ClassAlert,
		"Fire Emergency",
		"Fire reported at this location. Evacuate the area and call fire services.",
		types.PriorityCritical, loc, FireTTLHours)
}

// SafetyWarning 安全警告，正文由调用方给出
func (f *Flood) SafetyWarning(ctx context.Context, message string, loc *types.Location) (*types.EmergencyMessage, error) {
	return f.BroadcastLocal(ctx, types.ClassWarning,
		"Safety Warning", message,
		types.PriorityHigh, loc, SafetyWarningTTLHours)
}

// MissingPerson 寻人
func (f *Flood) MissingPerson(ctx context.Context, details string, loc *types.Location) (*types.EmergencyMessage, error) {
	return f.BroadcastLocal(ctx, types.ClassInfo,
		"Missing Person Alert",
		fmt.Sprintf("Missing person: %s. Last seen in this area. Please contact authorities if seen.", details),
		types.PriorityMedium, loc, MissingPersonTTLHours)
}
