package peerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-blemesh/internal/core/codec"
	"github.com/dep2p/go-blemesh/internal/core/eventbus"
	"github.com/dep2p/go-blemesh/internal/core/keyagreement"
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/internal/core/storage"
	"github.com/dep2p/go-blemesh/internal/util/logger"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
	"github.com/dep2p/go-blemesh/pkg/types"
)

var log = logger.Logger("peerstore")

// DefaultLivenessWindow 默认存活窗口
const DefaultLivenessWindow = 5 * time.Minute

// Handler 入站消息处理器，返回 true 表示消息已被消费
type Handler func(ctx context.Context, from *types.Peer, msg *types.Message) bool

// Config 注册表配置
type Config struct {
	// LivenessWindow 超过该时长未见且未连接的对端被 MarkStale 标记为断开
	LivenessWindow time.Duration

	// StaleCheckInterval 后台存活检查周期，0 表示不启动
	StaleCheckInterval time.Duration
}

// Deps 注册表依赖；Codec、Clock、Bus、Metrics、Trust 可为空
type Deps struct {
	Transport    pkgif.Transport
	KeyAgreement *keyagreement.KeyAgreement
	Codec        *codec.Codec
	Bus          pkgif.EventBus
	Metrics      *metrics.Metrics
	Trust        *storage.TrustBook
	Clock        clock.Clock
}

// Registry 对端注册表
type Registry struct {
	cfg       Config
	transport pkgif.Transport
	ka        *keyagreement.KeyAgreement
	codec     *codec.Codec
	trust     *storage.TrustBook
	metrics   *metrics.Metrics
	clock     clock.Clock

	mu    sync.RWMutex
	peers map[string]*types.Peer
	conns map[string]*types.Connection

	hmu      sync.RWMutex
	handlers map[types.MessageType][]Handler

	emDiscovered pkgif.Emitter
	emState      pkgif.Emitter
	emMessage    pkgif.Emitter

	stop chan struct{}
	done chan struct{}
}

// New 创建注册表
func New(cfg Config, d Deps) (*Registry, error) {
	if d.Transport == nil {
		return nil, ErrNilTransport
	}
	if d.KeyAgreement == nil {
		return nil, ErrNilKeyAgreement
	}
	if cfg.LivenessWindow <= 0 {
		cfg.LivenessWindow = DefaultLivenessWindow
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewWithClock(nil, d.Clock)
	}
	if d.Bus == nil {
		d.Bus = eventbus.NewBus()
	}
	if d.Codec == nil {
		d.Codec = codec.New(d.KeyAgreement)
	}

	r := &Registry{
		cfg:       cfg,
		transport: d.Transport,
		ka:        d.KeyAgreement,
		codec:     d.Codec,
		trust:     d.Trust,
		metrics:   d.Metrics,
		clock:     d.Clock,
		peers:     make(map[string]*types.Peer),
		conns:     make(map[string]*types.Connection),
		handlers:  make(map[types.MessageType][]Handler),
	}

	var err error
	if r.emDiscovered, err = d.Bus.Emitter(new(types.EvtDeviceDiscovered)); err != nil {
		return nil, err
	}
	if r.emState, err = d.Bus.Emitter(new(types.EvtConnectionStateChanged)); err != nil {
		return nil, err
	}
	if r.emMessage, err = d.Bus.Emitter(new(types.EvtMessageReceived)); err != nil {
		return nil, err
	}
	return r, nil
}

// LocalID 本端设备 ID
func (r *Registry) LocalID() string {
	return r.transport.LocalID()
}

// Handle 为消息类型注册处理器，按注册顺序调用
func (r *Registry) Handle(typ types.MessageType, h Handler) {
	r.hmu.Lock()
	r.handlers[typ] = append(r.handlers[typ], h)
	r.hmu.Unlock()
}

// ============================================================================
//                              传输层事件
// ============================================================================

// OnDiscovered 处理设备广播
//
// 同一 ID 幂等：已存在时刷新名称、地址、信号和 lastSeen；
// Disconnected 的对端回到 Discovered。
func (r *Registry) OnDiscovered(ev types.PeerDiscovered) error {
	if ev.ID == "" {
		return types.ErrEmptyPeerID
	}
	now := r.clock.Now()
	remembered := r.loadTrust(ev.ID)

	r.mu.Lock()
	p, ok := r.peers[ev.ID]
	old := types.StateDiscovered
	if !ok {
		p = &types.Peer{
			ID:           ev.ID,
			State:        types.StateDiscovered,
			Capabilities: types.DefaultCapabilities(),
			Trust:        types.TrustUnknown,
		}
		if remembered != nil {
			p.Trust = remembered.Trust
			p.DisplayName = remembered.DisplayName
		}
		r.peers[ev.ID] = p
	} else {
		old = p.State
		if p.State == types.StateDisconnected {
			p.State = types.StateDiscovered
		}
	}
	if ev.Name != "" {
		p.DisplayName = ev.Name
	}
	if ev.Address != "" {
		p.Address = ev.Address
	}
	p.SignalStrength = ev.RSSI
	p.LastSeen = now
	snapshot := p.Clone()
	r.mu.Unlock()

	if !ok {
		log.Debug("device discovered", "peer", ev.ID, "name", ev.Name, "rssi", ev.RSSI)
	}
	r.emit(r.emDiscovered, types.EvtDeviceDiscovered{
		BaseEvent: types.BaseEvent{Time: now},
		Peer:      snapshot,
	})
	if old != snapshot.State {
		r.emitState(now, ev.ID, old, snapshot.State)
	}
	return nil
}

// OnPublicKeyReceived 保存对端公钥并建立会话
//
// 未知对端的公钥被忽略。公钥格式错误时返回 ErrKeyAgreementFailure，
// 且不保存该公钥。
func (r *Registry) OnPublicKeyReceived(peerID string, key []byte) error {
	r.mu.RLock()
	p, ok := r.peers[peerID]
	var prev []byte
	if ok {
		prev = p.PublicKey
	}
	r.mu.RUnlock()

	if !ok {
		log.Debug("public key from unknown device ignored", "peer", peerID)
		return fmt.Errorf("%w: %s", types.ErrDeviceOrKeyNotFound, peerID)
	}

	if err := r.ka.Establish(key); err != nil {
		log.Warn("key agreement failed", "peer", peerID, "err", err)
		return err
	}

	r.mu.Lock()
	if p, ok := r.peers[peerID]; ok {
		p.PublicKey = slices.Clone(key)
		p.LastSeen = r.clock.Now()
	}
	r.mu.Unlock()

	if len(prev) > 0 && !bytes.Equal(prev, key) {
		r.ka.Forget(prev)
		log.Info("device public key changed", "peer", peerID)
	}
	log.Debug("session ready", "peer", peerID)
	return nil
}

// OnConnecting 进入显式连接阶段
func (r *Registry) OnConnecting(peerID string) error {
	return r.transition(peerID, types.StateConnecting, types.RoleInitiator)
}

// OnConnectionChanged 处理传输层确认的连接/断开
//
// 未发现过的对端在连接时隐式创建（对端主动连入的情形）。
func (r *Registry) OnConnectionChanged(ev types.ConnectionChanged) error {
	if ev.PeerID == "" {
		return types.ErrEmptyPeerID
	}
	role := types.RoleResponder
	if ev.Initiator {
		role = types.RoleInitiator
	}
	if !ev.Connected {
		return r.transition(ev.PeerID, types.StateDisconnected, role)
	}

	r.mu.Lock()
	if _, ok := r.peers[ev.PeerID]; !ok {
		r.peers[ev.PeerID] = &types.Peer{
			ID:           ev.PeerID,
			State:        types.StateDiscovered,
			Capabilities: types.DefaultCapabilities(),
		}
	}
	r.mu.Unlock()

	if rec := r.loadTrust(ev.PeerID); rec != nil {
		r.mu.Lock()
		if p := r.peers[ev.PeerID]; p.Trust == types.TrustUnknown {
			p.Trust = rec.Trust
		}
		r.mu.Unlock()
	}
	return r.transition(ev.PeerID, types.StateConnected, role)
}

// transition 执行状态迁移并维护 Connection
func (r *Registry) transition(peerID string, to types.ConnectionState, role types.Role) error {
	_, err := r.transitionIf(peerID, to, role, nil)
	return err
}

// transitionIf 在持锁状态下 cond 成立时才迁移，返回状态是否改变；cond 为 nil 表示无条件
func (r *Registry) transitionIf(peerID string, to types.ConnectionState, role types.Role, cond func(*types.Peer) bool) (bool, error) {
	now := r.clock.Now()

	r.mu.Lock()
	p, ok := r.peers[peerID]
	if !ok {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: %s", types.ErrDeviceOrKeyNotFound, peerID)
	}
	if cond != nil && !cond(p) {
		r.mu.Unlock()
		return false, nil
	}
	from := p.State
	if from == to {
		p.LastSeen = now
		r.mu.Unlock()
		return false, nil
	}
	if !types.ValidTransition(from, to) {
		r.mu.Unlock()
		log.Warn("invalid state transition ignored", "peer", peerID, "from", from, "to", to)
		return false, fmt.Errorf("%w: %s %s -> %s", types.ErrInvalidTransition, peerID, from, to)
	}

	p.State = to
	p.LastSeen = now
	switch to {
	case types.StateConnected:
		r.conns[peerID] = &types.Connection{
			PeerID:        peerID,
			ConnectionID:  uuid.NewString(),
			EstablishedAt: now,
			Quality:       types.ConnectionQuality{SignalStrength: p.SignalStrength},
			Role:          role,
		}
	case types.StateDisconnected:
		delete(r.conns, peerID)
	}
	connected := len(r.conns)
	r.mu.Unlock()

	r.metrics.SetConnectedPeers(connected)
	log.Info("connection state changed", "peer", peerID, "from", from, "to", to)
	r.emitState(now, peerID, from, to)
	return true, nil
}

// OnDataReceived 解密、解析并分发入站报文
//
// 失败只记录日志与指标，从不向上传播。
func (r *Registry) OnDataReceived(ctx context.Context, peerID string, data []byte) {
	r.mu.Lock()
	p, ok := r.peers[peerID]
	var peer *types.Peer
	if ok {
		p.LastSeen = r.clock.Now()
		peer = p.Clone()
	}
	r.mu.Unlock()

	if !ok {
		r.drop(peerID, metrics.DropUnknownPeer, nil)
		return
	}
	if !peer.HasKey() {
		r.drop(peerID, metrics.DropNoKey, nil)
		return
	}

	msg, err := r.codec.Decode(data, peer.PublicKey)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrNoSessionKey):
			r.drop(peerID, metrics.DropNoKey, err)
		case errors.Is(err, types.ErrDecryptionFailure):
			r.drop(peerID, metrics.DropDecrypt, err)
		default:
			r.drop(peerID, metrics.DropDecode, err)
		}
		return
	}
	r.metrics.Received(msg.Type.String())
	r.metrics.BytesReceived(peerID, msg.Type.String(), len(data))
	r.dispatch(ctx, peer, msg)
}

func (r *Registry) dispatch(ctx context.Context, from *types.Peer, msg *types.Message) {
	r.hmu.RLock()
	hs := r.handlers[msg.Type]
	r.hmu.RUnlock()

	for _, h := range hs {
		if h(ctx, from, msg) {
			return
		}
	}
	if msg.Type == types.MessageSystem {
		log.Debug("unhandled system message", "peer", from.ID, "id", msg.ID)
		return
	}
	r.emit(r.emMessage, types.EvtMessageReceived{
		BaseEvent: types.BaseEvent{Time: r.clock.Now()},
		From:      from.ID,
		Message:   msg,
	})
}

func (r *Registry) drop(peerID, reason string, err error) {
	r.metrics.Dropped(reason)
	if err != nil {
		log.Debug("datagram dropped", "peer", peerID, "reason", reason, "err", err)
		return
	}
	log.Debug("datagram dropped", "peer", peerID, "reason", reason)
}

// ============================================================================
//                              发送
// ============================================================================

// Send 加密消息并交给传输层
//
// 对端未知或尚未收到公钥时返回 ErrDeviceOrKeyNotFound。
func (r *Registry) Send(ctx context.Context, peerID string, msg *types.Message) error {
	r.mu.RLock()
	p, ok := r.peers[peerID]
	var key []byte
	if ok {
		key = p.PublicKey
	}
	r.mu.RUnlock()

	if !ok || len(key) == 0 {
		r.metrics.Failed(msg.Type.String())
		return fmt.Errorf("%w: %s", types.ErrDeviceOrKeyNotFound, peerID)
	}

	ct, err := r.codec.Encode(msg, key)
	if err != nil {
		r.metrics.Failed(msg.Type.String())
		return err
	}
	if err := r.transport.Write(ctx, peerID, ct); err != nil {
		r.metrics.Failed(msg.Type.String())
		return fmt.Errorf("write to %s: %w", peerID, err)
	}
	r.metrics.Sent(msg.Type.String())
	r.metrics.BytesSent(peerID, msg.Type.String(), len(ct))
	return nil
}

// Broadcast 向每个已连接对端各发送一份
//
// 返回成功发送数；各对端的失败合并为一个错误，互不影响。
func (r *Registry) Broadcast(ctx context.Context, msg *types.Message) (int, error) {
	return fanOut(ctx, r.ConnectedIDs(), func(ctx context.Context, id string) error {
		return r.Send(ctx, id, msg)
	})
}

// ============================================================================
//                              查询
// ============================================================================

// Peer 获取对端快照
func (r *Registry) Peer(id string) (*types.Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// Peers 所有对端快照，按 ID 排序
func (r *Registry) Peers() []*types.Peer {
	return r.collect(func(*types.Peer) bool { return true })
}

// ConnectedPeers 已连接对端快照，按 ID 排序
func (r *Registry) ConnectedPeers() []*types.Peer {
	return r.collect(func(p *types.Peer) bool { return p.State == types.StateConnected })
}

// ConnectedIDs 已连接对端 ID，按字典序
func (r *Registry) ConnectedIDs() []string {
	peers := r.ConnectedPeers()
	ids := make([]string, len(peers))
	for i, p := range peers {
		ids[i] = p.ID
	}
	return ids
}

// IsConnected 对端是否处于 Connected 状态
func (r *Registry) IsConnected(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id]
	return ok && p.State == types.StateConnected
}

// Connections 活跃连接快照
func (r *Registry) Connections() []*types.Connection {
	r.mu.RLock()
	out := make([]*types.Connection, 0, len(r.conns))
	for _, c := range r.conns {
		cc := *c
		out = append(out, &cc)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *types.Connection) int {
		return strings.Compare(a.PeerID, b.PeerID)
	})
	return out
}

func (r *Registry) collect(keep func(*types.Peer) bool) []*types.Peer {
	r.mu.RLock()
	out := make([]*types.Peer, 0, len(r.peers))
	for _, p := range r.peers {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *types.Peer) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// ============================================================================
//                              信任与存活
// ============================================================================

// LearnName 在发现阶段未给出名称时记录对端自报的设备名
//
// 已有名称不被覆盖，返回是否写入。
func (r *Registry) LearnName(peerID, name string) bool {
	if name == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[peerID]
	if !ok || p.DisplayName != "" {
		return false
	}
	p.DisplayName = name
	log.Debug("device name learned", "peer", peerID, "name", name)
	return true
}

// SetTrust 设置信任等级并写入信任簿
func (r *Registry) SetTrust(peerID string, level types.TrustLevel) error {
	r.mu.Lock()
	p, ok := r.peers[peerID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", types.ErrDeviceOrKeyNotFound, peerID)
	}
	p.Trust = level
	rec := storage.TrustRecord{
		PeerID:      p.ID,
		DisplayName: p.DisplayName,
		Trust:       level,
		PublicKey:   slices.Clone(p.PublicKey),
		UpdatedAt:   r.clock.Now(),
	}
	r.mu.Unlock()

	if r.trust == nil {
		return nil
	}
	return r.trust.Put(rec)
}

func (r *Registry) loadTrust(peerID string) *storage.TrustRecord {
	if r.trust == nil {
		return nil
	}
	rec, ok, err := r.trust.Get(peerID)
	if err != nil {
		log.Warn("load trust record failed", "peer", peerID, "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &rec
}

// MarkStale 将超出存活窗口的对端标记为 Disconnected，返回受影响的 ID
//
// Connected 状态只随传输层的断开事件改变，静默的已连接对端保持不变。
func (r *Registry) MarkStale(now time.Time) []string {
	r.mu.RLock()
	var stale []string
	for id, p := range r.peers {
		if !p.Stale(now, r.cfg.LivenessWindow) {
			continue
		}
		switch p.State {
		case types.StateDiscovered, types.StateConnecting:
			stale = append(stale, id)
		case types.StateConnected:
			log.Debug("connected peer silent", "peer", id, "last_seen", p.LastSeen)
		}
	}
	r.mu.RUnlock()

	slices.Sort(stale)
	// 扫描与迁移之间对端可能已连接或重新出现
	stillStale := func(p *types.Peer) bool {
		return p.State != types.StateConnected && p.Stale(now, r.cfg.LivenessWindow)
	}
	marked := stale[:0]
	for _, id := range stale {
		changed, err := r.transitionIf(id, types.StateDisconnected, types.RoleResponder, stillStale)
		if err != nil {
			log.Debug("mark stale failed", "peer", id, "err", err)
			continue
		}
		if changed {
			marked = append(marked, id)
		}
	}
	return marked
}

// Start 启动后台存活检查
func (r *Registry) Start() {
	if r.cfg.StaleCheckInterval <= 0 || r.stop != nil {
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	ticker := r.clock.Ticker(r.cfg.StaleCheckInterval)
	go func() {
		defer close(r.done)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				now := r.clock.Now()
				if ids := r.MarkStale(now); len(ids) > 0 {
					log.Info("devices marked stale", "count", len(ids))
				}
				r.metrics.Bandwidth().TrimIdle(now.Add(-r.cfg.LivenessWindow))
			}
		}
	}()
}

// Stop 停止后台任务并关闭发射器
func (r *Registry) Stop() error {
	if r.stop != nil {
		close(r.stop)
		<-r.done
		r.stop = nil
	}
	r.emDiscovered.Close()
	r.emState.Close()
	r.emMessage.Close()
	return nil
}

// ============================================================================
//                              事件
// ============================================================================

func (r *Registry) emitState(now time.Time, peerID string, from, to types.ConnectionState) {
	r.emit(r.emState, types.EvtConnectionStateChanged{
		BaseEvent: types.BaseEvent{Time: now},
		PeerID:    peerID,
		OldState:  from,
		NewState:  to,
	})
}

func (r *Registry) emit(em pkgif.Emitter, evt any) {
	if err := em.Emit(evt); err != nil {
		log.Debug("emit event failed", "err", err)
	}
}
