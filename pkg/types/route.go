package types

import "time"

// RouteEntry 路由表条目
//
// Cost 反映跳数（≥1）；UpdatedAt 早于路由超时的条目无效，必须在读取前清除。
type RouteEntry struct {
	Destination string
	NextHop     string
	Cost        int
	UpdatedAt   time.Time
}

// Expired 条目是否超时
func (r RouteEntry) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.UpdatedAt) > timeout
}

// Direct 是否为直连邻居
func (r RouteEntry) Direct() bool {
	return r.Cost == 1 && r.NextHop == r.Destination
}

// TopologySnapshot 拓扑快照
type TopologySnapshot struct {
	LocalID     string
	Peers       []*Peer
	Connections []Connection
	Routes      []RouteEntry
	LastUpdated time.Time
}

// HelloRoute Hello 携带的路由通告
type HelloRoute struct {
	Destination string
	Cost        int
}

// Hello 周期性邻居通告（System 消息内容）
//
// Routes 仅在距离向量模式下填充。
type Hello struct {
	SenderID   string
	DeviceName string
	Routes     []HelloRoute
}
