package blemesh

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/internal/app"
	log "github.com/dep2p/go-blemesh/internal/util/logger"
	"github.com/dep2p/go-blemesh/pkg/types"
)

var logger = log.Logger("blemesh")

// Node 网格节点
//
// Node 是用户与网格交互的主入口。
// 它是一个门面（Facade），聚合了所有内部组件：
//
//   - PeerRegistry: 设备发现、连接状态与逐跳加密
//   - Router: Hello 邻居表、单播选路与中继
//   - Flood: 紧急广播泛洪
//
// 单个事件循环 goroutine 按顺序消费传输层事件。
//
// 使用示例：
//
//	node, err := blemesh.New(blemesh.WithTransport(t))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
type Node struct {
	config *config.Config
	rt     *app.Runtime

	mu    sync.Mutex
	state NodeState

	// ctx 在 Close 时取消，事件循环与订阅泵随之退出
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// sends 进行中的用户发送，关闭时等待其完成
	sends sync.WaitGroup
}

// New 创建节点（不启动）
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	if err := o.apply(opts...); err != nil {
		return nil, err
	}
	if o.transport == nil {
		return nil, ErrNoTransport
	}
	cfg, err := o.buildConfig()
	if err != nil {
		return nil, err
	}

	bootOpts := []app.BootstrapOption{app.WithTransport(o.transport)}
	if o.clock != nil {
		bootOpts = append(bootOpts, app.WithClock(o.clock))
	}
	if o.registerer != nil {
		bootOpts = append(bootOpts, app.WithRegisterer(o.registerer))
	}
	if o.keyPair != nil {
		bootOpts = append(bootOpts, app.WithKeyPair(o.keyPair))
	}

	rt, err := app.NewBootstrap(cfg, bootOpts...).Build()
	if err != nil {
		return nil, fmt.Errorf("build node: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		config: cfg,
		rt:     rt,
		state:  StateIdle,
		ctx:    ctx,
		cancel: cancel,
	}
	logger.Info("node created", "id", n.LocalID(), "suite", rt.KeyAgreement.Suite(), "distanceVector", cfg.Routing.DistanceVector)
	return n, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              身份与状态
// ════════════════════════════════════════════════════════════════════════════

// LocalID 本端设备 ID（由传输层提供）
func (n *Node) LocalID() string {
	return n.rt.Transport.LocalID()
}

// PublicKey 本端公钥
func (n *Node) PublicKey() []byte {
	return n.rt.KeyAgreement.PublicKey()
}

// State 节点状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Config 生效的配置
func (n *Node) Config() *config.Config {
	return n.config
}

// Gatherer 节点指标，可交给 promhttp 暴露
func (n *Node) Gatherer() prometheus.Gatherer {
	return n.rt.Metrics.Gatherer()
}

// Traffic 与 peerID 交换的加密字节统计；peerID 为空时返回总量
func (n *Node) Traffic(peerID string) TrafficStats {
	if peerID == "" {
		return n.rt.Metrics.Bandwidth().Totals()
	}
	return n.rt.Metrics.Bandwidth().ForPeer(peerID)
}

func (n *Node) running() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch n.state {
	case StateRunning:
		return nil
	case StateStopped:
		return ErrNodeClosed
	default:
		return ErrNotStarted
	}
}

// enter 登记一次进行中的发送，Close 会等待其结束
func (n *Node) enter() (done func(), err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch n.state {
	case StateRunning:
		n.sends.Add(1)
		return n.sends.Done, nil
	case StateStopped:
		return nil, ErrNodeClosed
	default:
		return nil, ErrNotStarted
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              传输命令
// ════════════════════════════════════════════════════════════════════════════

// StartAdvertising 开始广播并发布本端公钥
func (n *Node) StartAdvertising(ctx context.Context) error {
	if err := n.running(); err != nil {
		return err
	}
	if err := n.rt.Transport.Advertise(ctx, n.PublicKey()); err != nil {
		return fmt.Errorf("%w: advertise: %w", ErrTransportUnavailable, err)
	}
	logger.Info("advertising started")
	return nil
}

// StartScanning 开始扫描附近设备
func (n *Node) StartScanning(ctx context.Context) error {
	if err := n.running(); err != nil {
		return err
	}
	if err := n.rt.Transport.Scan(ctx); err != nil {
		return fmt.Errorf("%w: scan: %w", ErrTransportUnavailable, err)
	}
	logger.Info("scanning started")
	return nil
}

// Connect 连接到已发现的设备
//
// 已连接时直接返回。连接结果以 ConnectionChanged 事件异步送达。
func (n *Node) Connect(ctx context.Context, peerID string) error {
	if err := n.running(); err != nil {
		return err
	}
	reg := n.rt.Registry
	if reg.IsConnected(peerID) {
		return nil
	}
	if err := reg.OnConnecting(peerID); err != nil {
		return err
	}
	if err := n.rt.Transport.Connect(ctx, peerID); err != nil {
		_ = reg.OnConnectionChanged(types.ConnectionChanged{PeerID: peerID, Connected: false, Initiator: true})
		return fmt.Errorf("connect %s: %w", peerID, err)
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              消息
// ════════════════════════════════════════════════════════════════════════════

// Send 把消息发往目的地
//
// destination 为 BroadcastRecipient 时向每个已连接设备各发一份。
// 返回前 msg.Status 被置为 Sent 或 Failed。
func (n *Node) Send(ctx context.Context, destination string, msg *Message) error {
	done, err := n.enter()
	if err != nil {
		return err
	}
	defer done()
	if destination == "" {
		return ErrEmptyDestination
	}

	local := n.LocalID()
	if msg.Sender == "" {
		msg.Sender = local
	}
	msg.Recipient = destination
	msg.Encrypted = true
	msg.Route = []string{local}
	msg.Status = types.StatusSending

	if err := n.rt.Router.Route(ctx, destination, msg); err != nil {
		msg.Status = types.StatusFailed
		logger.Debug("send failed", "id", msg.ID, "dest", destination, "err", err)
		return err
	}
	msg.Status = types.StatusSent
	return nil
}

// SendText 发送文本消息
func (n *Node) SendText(ctx context.Context, destination, text string) (*Message, error) {
	msg := types.NewTextMessage(n.LocalID(), destination, text)
	return msg, n.Send(ctx, destination, msg)
}

// ════════════════════════════════════════════════════════════════════════════
//                              紧急广播
// ════════════════════════════════════════════════════════════════════════════

// BroadcastEmergency 向网格泛洪紧急消息
//
// ttlHours 为 0 时默认 24 小时，负数表示永不过期。
func (n *Node) BroadcastEmergency(ctx context.Context, class EmergencyClass, title, body string,
	priority Priority, loc *Location, ttlHours int) (*EmergencyMessage, error) {
	done, err := n.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	return n.rt.Flood.BroadcastLocal(ctx, class, title, body, priority, loc, ttlHours)
}

// SendMedicalEmergency 医疗求助（Critical，6 小时）
func (n *Node) SendMedicalEmergency(ctx context.Context, loc *Location) (*EmergencyMessage, error) {
	done, err := n.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	return n.rt.Flood.Medical(ctx, loc)
}

// SendFireEmergency 火警（Critical，12 小时）
func (n *Node) SendFireEmergency(ctx context.Context, loc *Location) (*EmergencyMessage, error) {
	done, err := n.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	return n.rt.Flood.Fire(ctx, loc)
}

// SendSafetyWarning 安全警告（High，24 小时）
func (n *Node) SendSafetyWarning(ctx context.Context, message string, loc *Location) (*EmergencyMessage, error) {
	done, err := n.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	return n.rt.Flood.SafetyWarning(ctx, message, loc)
}

// SendMissingPersonAlert 寻人（Medium，72 小时）
func (n *Node) SendMissingPersonAlert(ctx context.Context, details string, loc *Location) (*EmergencyMessage, error) {
	done, err := n.enter()
	if err != nil {
		return nil, err
	}
	defer done()
	return n.rt.Flood.MissingPerson(ctx, details, loc)
}

// EmergencyMessages 未过期的紧急消息，新的在前
func (n *Node) EmergencyMessages() []*EmergencyMessage {
	return n.rt.Flood.List(n.rt.Clock.Now())
}

// SetEmergencyEnabled 打开或关闭紧急广播的收发
func (n *Node) SetEmergencyEnabled(enabled bool) {
	n.rt.Flood.SetEnabled(enabled)
}

// EmergencyEnabled 紧急广播是否开启
func (n *Node) EmergencyEnabled() bool {
	return n.rt.Flood.Enabled()
}

// ClearEmergencyMessages 清空本地紧急消息
func (n *Node) ClearEmergencyMessages() {
	n.rt.Flood.Clear()
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// Peers 所有已知设备
func (n *Node) Peers() []*Peer {
	return n.rt.Registry.Peers()
}

// Peer 获取设备
func (n *Node) Peer(id string) (*Peer, bool) {
	return n.rt.Registry.Peer(id)
}

// ConnectedPeers 已连接设备
func (n *Node) ConnectedPeers() []*Peer {
	return n.rt.Registry.ConnectedPeers()
}

// Routes 未过期路由
func (n *Node) Routes() []RouteEntry {
	return n.rt.Router.Routes()
}

// TopologySnapshot 当前网络拓扑快照
func (n *Node) TopologySnapshot() TopologySnapshot {
	conns := n.rt.Registry.Connections()
	snap := TopologySnapshot{
		LocalID:     n.LocalID(),
		Peers:       n.rt.Registry.Peers(),
		Connections: make([]Connection, 0, len(conns)),
		Routes:      n.rt.Router.Routes(),
		LastUpdated: n.rt.Clock.Now(),
	}
	for _, c := range conns {
		snap.Connections = append(snap.Connections, *c)
	}
	return snap
}

// SetTrust 设置并持久化设备信任等级
func (n *Node) SetTrust(peerID string, level TrustLevel) error {
	return n.rt.Registry.SetTrust(peerID, level)
}
