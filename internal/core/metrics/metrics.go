package metrics

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

// 丢弃原因
const (
	DropNoKey       = "no_key"
	DropDecrypt     = "decrypt"
	DropDecode      = "decode"
	DropDuplicate   = "duplicate"
	DropExpired     = "expired"
	DropRateLimited = "rate_limited"
	DropLoop        = "loop"
	DropUnknownPeer = "unknown_peer"
	DropNoRoute     = "no_route"
)

// Metrics 协议栈指标
type Metrics struct {
	registry  prometheus.Gatherer
	bandwidth *BandwidthCounter

	datagramsDropped   *prometheus.CounterVec
	messagesSent       *prometheus.CounterVec
	messagesFailed     *prometheus.CounterVec
	messagesReceived   *prometheus.CounterVec
	hellosSent         prometheus.Counter
	routes             prometheus.Gauge
	routesExpired      prometheus.Counter
	connectedPeers     prometheus.Gauge
	emergencyReceived  prometheus.Counter
	emergencyReflooded prometheus.Counter
	sessions           prometheus.Gauge
	eventsDropped      *prometheus.CounterVec
	bytes              *prometheus.CounterVec
}

// New 创建并注册指标
//
// reg 为 nil 时使用独立的注册表，避免多个节点（测试中常见）重复注册。
func New(reg prometheus.Registerer) *Metrics {
	return NewWithClock(reg, nil)
}

// NewWithClock 同 New，带宽速率按 clk 计算
func NewWithClock(reg prometheus.Registerer, clk clock.Clock) *Metrics {
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		registry:  gatherer,
		bandwidth: NewBandwidthCounter(clk),
		datagramsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blemesh_datagrams_dropped_total",
			Help: "Inbound datagrams dropped, by reason.",
		}, []string{"reason"}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blemesh_messages_sent_total",
			Help: "Messages handed to the transport, by type.",
		}, []string{"type"}),
		messagesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blemesh_messages_failed_total",
			Help: "Messages that failed to send, by type.",
		}, []string{"type"}),
		messagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blemesh_messages_received_total",
			Help: "Messages decrypted and decoded, by type.",
		}, []string{"type"}),
		hellosSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blemesh_hellos_sent_total",
			Help: "Hello advertisements sent to neighbours.",
		}),
		routes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blemesh_routes",
			Help: "Current number of routing table entries.",
		}),
		routesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blemesh_routes_expired_total",
			Help: "Routing table entries purged after the route timeout.",
		}),
		connectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blemesh_connected_peers",
			Help: "Peers currently in the connected state.",
		}),
		emergencyReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blemesh_emergency_received_total",
			Help: "Emergency broadcasts accepted into the local buffer.",
		}),
		emergencyReflooded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "blemesh_emergency_reflooded_total",
			Help: "Emergency envelopes forwarded with a decremented TTL.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "blemesh_session_keys",
			Help: "Cached pairwise session keys.",
		}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blemesh_events_dropped_total",
			Help: "Events dropped because a subscriber was too slow.",
		}, []string{"event"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "blemesh_bytes_total",
			Help: "Encrypted bytes exchanged with peers, by direction.",
		}, []string{"direction"}),
	}

	reg.MustRegister(
		m.datagramsDropped,
		m.messagesSent,
		m.messagesFailed,
		m.messagesReceived,
		m.hellosSent,
		m.routes,
		m.routesExpired,
		m.connectedPeers,
		m.emergencyReceived,
		m.emergencyReflooded,
		m.sessions,
		m.eventsDropped,
		m.bytes,
	)
	return m
}

// Gatherer 返回指标采集器（外部注册表不可采集时为 nil）
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Bandwidth 带宽计数器
func (m *Metrics) Bandwidth() *BandwidthCounter {
	return m.bandwidth
}

// BytesSent 记录发出的加密报文字节数
func (m *Metrics) BytesSent(peer, msgType string, n int) {
	m.bytes.WithLabelValues("out").Add(float64(n))
	m.bandwidth.LogSent(peer, msgType, int64(n))
}

// BytesReceived 记录收到并成功解密的报文字节数
func (m *Metrics) BytesReceived(peer, msgType string, n int) {
	m.bytes.WithLabelValues("in").Add(float64(n))
	m.bandwidth.LogRecv(peer, msgType, int64(n))
}

// Dropped 记录丢弃的入站报文
func (m *Metrics) Dropped(reason string) {
	m.datagramsDropped.WithLabelValues(reason).Inc()
}

// Sent 记录发送成功
func (m *Metrics) Sent(msgType string) {
	m.messagesSent.WithLabelValues(msgType).Inc()
}

// Failed 记录发送失败
func (m *Metrics) Failed(msgType string) {
	m.messagesFailed.WithLabelValues(msgType).Inc()
}

// Received 记录成功解码的入站消息
func (m *Metrics) Received(msgType string) {
	m.messagesReceived.WithLabelValues(msgType).Inc()
}

// HelloSent 记录 Hello 发送
func (m *Metrics) HelloSent() {
	m.hellosSent.Inc()
}

// SetRoutes 设置路由条目数
func (m *Metrics) SetRoutes(n int) {
	m.routes.Set(float64(n))
}

// RoutesExpired 记录过期清除的路由
func (m *Metrics) RoutesExpired(n int) {
	m.routesExpired.Add(float64(n))
}

// SetConnectedPeers 设置已连接设备数
func (m *Metrics) SetConnectedPeers(n int) {
	m.connectedPeers.Set(float64(n))
}

// EmergencyReceived 记录接受的紧急广播
func (m *Metrics) EmergencyReceived() {
	m.emergencyReceived.Inc()
}

// EmergencyReflooded 记录转发的紧急广播
func (m *Metrics) EmergencyReflooded() {
	m.emergencyReflooded.Inc()
}

// SetSessions 设置会话密钥数
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// EventDropped 记录事件总线丢弃
func (m *Metrics) EventDropped(event string) {
	m.eventsDropped.WithLabelValues(event).Inc()
}

// DroppedCounter 指定原因的丢弃计数器
func (m *Metrics) DroppedCounter(reason string) prometheus.Counter {
	return m.datagramsDropped.WithLabelValues(reason)
}

// SentCounter 指定类型的发送计数器
func (m *Metrics) SentCounter(msgType string) prometheus.Counter {
	return m.messagesSent.WithLabelValues(msgType)
}

// RefloodedCounter 紧急广播转发计数器
func (m *Metrics) RefloodedCounter() prometheus.Counter {
	return m.emergencyReflooded
}
