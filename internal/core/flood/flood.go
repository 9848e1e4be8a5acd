package flood

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-blemesh/internal/core/codec"
	"github.com/dep2p/go-blemesh/internal/core/eventbus"
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/internal/core/peerstore"
	"github.com/dep2p/go-blemesh/internal/util/logger"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
	"github.com/dep2p/go-blemesh/pkg/types"
)

var log = logger.Logger("flood")

// 默认参数
const (
	DefaultCapacity     = 50
	DefaultSeenTTL      = time.Hour
	DefaultSeenCapacity = 1024
)

var (
	// ErrDisabled 紧急广播已关闭
	ErrDisabled = errors.New("emergency broadcast is disabled")

	// ErrNilPeers 未提供注册表
	ErrNilPeers = errors.New("flood: nil peer registry")
)

// Peers Flood 依赖的注册表能力
type Peers interface {
	LocalID() string
	Broadcast(ctx context.Context, msg *types.Message) (int, error)
	Handle(typ types.MessageType, h peerstore.Handler)
}

// Listener 紧急消息监听器；local 表示由本机发出
type Listener func(msg *types.EmergencyMessage, from string, local bool)

// Config 泛洪配置
type Config struct {
	Enabled  bool
	TTL      int
	Capacity int

	Deduplicate  bool
	SeenTTL      time.Duration
	SeenCapacity int

	// RefloodRate 每秒转发上限，0 表示不限
	RefloodRate  float64
	RefloodBurst int
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		TTL:          types.DefaultFloodTTL,
		Capacity:     DefaultCapacity,
		Deduplicate:  true,
		SeenTTL:      DefaultSeenTTL,
		SeenCapacity: DefaultSeenCapacity,
	}
}

// Flood 紧急广播泛洪
type Flood struct {
	cfg     Config
	peers   Peers
	clock   clock.Clock
	metrics *metrics.Metrics
	emitter pkgif.Emitter

	enabled atomic.Bool
	ring    *ring
	seen    *expirable.LRU[string, struct{}]
	limiter *rate.Limiter

	lmu       sync.RWMutex
	listeners map[uint64]Listener
	nextID    uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建泛洪组件并在注册表上注册 Emergency 处理器
func New(cfg Config, peers Peers, bus pkgif.EventBus, m *metrics.Metrics, clk clock.Clock) (*Flood, error) {
	if peers == nil {
		return nil, ErrNilPeers
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if clk == nil {
		clk = clock.New()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if bus == nil {
		bus = eventbus.NewBus()
	}
	em, err := bus.Emitter(new(types.EvtEmergencyMessage))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Flood{
		cfg:       cfg,
		peers:     peers,
		clock:     clk,
		metrics:   m,
		emitter:   em,
		ring:      newRing(cfg.Capacity),
		listeners: make(map[uint64]Listener),
		ctx:       ctx,
		cancel:    cancel,
	}
	f.enabled.Store(cfg.Enabled)

	if cfg.Deduplicate {
		if cfg.SeenCapacity <= 0 {
			cfg.SeenCapacity = DefaultSeenCapacity
		}
		if cfg.SeenTTL <= 0 {
			cfg.SeenTTL = DefaultSeenTTL
		}
		f.seen = expirable.NewLRU[string, struct{}](cfg.SeenCapacity, nil, cfg.SeenTTL)
	}
	if cfg.RefloodRate > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RefloodRate), max(cfg.RefloodBurst, 1))
	}

	peers.Handle(types.MessageEmergency, f.handleEmergency)
	return f, nil
}

// ============================================================================
//                              开关与监听
// ============================================================================

// SetEnabled 打开或关闭紧急广播
func (f *Flood) SetEnabled(enabled bool) {
	f.enabled.Store(enabled)
	log.Info("emergency broadcast toggled", "enabled", enabled)
}

// Enabled 是否开启
func (f *Flood) Enabled() bool {
	return f.enabled.Load()
}

// Subscribe 注册监听器，返回取消函数
func (f *Flood) Subscribe(l Listener) func() {
	f.lmu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = l
	f.lmu.Unlock()

	return func() {
		f.lmu.Lock()
		delete(f.listeners, id)
		f.lmu.Unlock()
	}
}

// Clear 清空本地缓冲
func (f *Flood) Clear() {
	f.ring.clear()
}

// List 返回 now 时刻未过期的消息，新的在前
func (f *Flood) List(now time.Time) []*types.EmergencyMessage {
	return f.ring.list(now)
}

// ============================================================================
//                              发出
// ============================================================================

// BroadcastLocal 构造紧急消息并向所有已连接设备发出
//
// ttlHours 为 0 时取 DefaultTTLHours，负数表示永不过期。消息先写入本地缓冲并通知监听器，
// 再发送；部分设备发送失败时返回已构造的消息和合并后的错误。
func (f *Flood) BroadcastLocal(ctx context.Context, class types.EmergencyClass, title, body string,
	priority types.Priority, loc *types.Location, ttlHours int) (*types.EmergencyMessage, error) {
	if !f.Enabled() {
		return nil, ErrDisabled
	}

	now := f.clock.Now().UTC()
	em := &types.EmergencyMessage{
		ID:        uuid.NewString(),
		Class:     class,
		Title:     title,
		Body:      body,
		Timestamp: now,
		Priority:  priority,
	}
	if loc != nil {
		l := *loc
		em.Location = &l
	}
	if ttlHours == 0 {
		ttlHours = DefaultTTLHours
	}
	if ttlHours > 0 {
		em.ExpiresAt = now.Add(time.Duration(ttlHours) * time.Hour)
	}

	env := &types.FloodEnvelope{
		Kind:      types.FloodKindEmergency,
		Payload:   codec.MarshalEmergency(em),
		TTL:       f.cfg.TTL,
		Timestamp: now,
	}

	f.markSeen(em.ID)
	f.deliver(em, f.peers.LocalID(), true)

	n, err := f.peers.Broadcast(ctx, f.envelopeMessage(env))
	log.Info("emergency broadcast sent", "id", em.ID, "title", title, "priority", priority, "peers", n)
	if err != nil {
		return em, fmt.Errorf("emergency broadcast: %w", err)
	}
	return em, nil
}

// ============================================================================
//                              接收与转发
// ============================================================================

// handleEmergency 注册表的 Emergency 处理器
func (f *Flood) handleEmergency(ctx context.Context, from *types.Peer, msg *types.Message) bool {
	env, err := codec.UnmarshalEnvelope(msg.Content)
	if err != nil {
		f.metrics.Dropped(metrics.DropDecode)
		log.Debug("malformed flood envelope", "peer", from.ID, "err", err)
		return true
	}
	if env.Kind != types.FloodKindEmergency {
		f.metrics.Dropped(metrics.DropDecode)
		log.Debug("unknown flood kind", "peer", from.ID, "kind", env.Kind)
		return true
	}
	if err := f.OnReceive(ctx, from.ID, env); err != nil {
		log.Debug("emergency envelope rejected", "peer", from.ID, "err", err)
	}
	return true
}

// OnReceive 处理收到的信封
//
// 过期的消息直接丢弃；否则写入本地缓冲、通知监听器，
// 并在 ttl > 0 时以 ttl-1 转发给所有已连接设备。
func (f *Flood) OnReceive(_ context.Context, from string, env *types.FloodEnvelope) error {
	if !f.Enabled() {
		return ErrDisabled
	}
	em, err := codec.UnmarshalEmergency(env.Payload)
	if err != nil {
		f.metrics.Dropped(metrics.DropDecode)
		return err
	}
	if em.Expired(f.clock.Now()) {
		f.metrics.Dropped(metrics.DropExpired)
		log.Debug("expired emergency dropped", "id", em.ID, "from", from)
		return nil
	}
	if f.duplicate(em.ID) {
		f.metrics.Dropped(metrics.DropDuplicate)
		log.Debug("duplicate emergency dropped", "id", em.ID, "from", from)
		return nil
	}

	f.metrics.EmergencyReceived()
	f.deliver(em, from, false)
	log.Info("emergency received", "id", em.ID, "from", from, "ttl", env.TTL, "priority", em.Priority)

	if env.TTL > 0 {
		fwd := *env
		fwd.TTL--
		f.reflood(&fwd, em.ID)
	}
	return nil
}

// reflood 异步转发
func (f *Flood) reflood(env *types.FloodEnvelope, id string) {
	if f.limiter != nil && !f.limiter.AllowN(f.clock.Now(), 1) {
		f.metrics.Dropped(metrics.DropRateLimited)
		log.Warn("reflood rate limited", "id", id)
		return
	}
	if f.ctx.Err() != nil {
		return
	}

	msg := f.envelopeMessage(env)
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		n, err := f.peers.Broadcast(f.ctx, msg)
		if n > 0 {
			f.metrics.EmergencyReflooded()
		}
		if err != nil {
			log.Debug("reflood partially failed", "id", id, "sent", n, "err", err)
			return
		}
		log.Debug("emergency reflooded", "id", id, "ttl", env.TTL, "peers", n)
	}()
}

// Wait 等待进行中的转发完成
func (f *Flood) Wait() {
	f.wg.Wait()
}

// Stop 取消进行中的转发并等待其结束
func (f *Flood) Stop() error {
	f.cancel()
	f.wg.Wait()
	return f.emitter.Close()
}

// ============================================================================
//                              内部
// ============================================================================

func (f *Flood) envelopeMessage(env *types.FloodEnvelope) *types.Message {
	msg := types.NewMessage(types.MessageEmergency, f.peers.LocalID(), types.BroadcastRecipient, codec.MarshalEnvelope(env))
	msg.Timestamp = f.clock.Now().UTC()
	return msg
}

// duplicate 检查并记录已见 ID
func (f *Flood) duplicate(id string) bool {
	if f.seen == nil {
		return false
	}
	if f.seen.Contains(id) {
		return true
	}
	f.seen.Add(id, struct{}{})
	return false
}

func (f *Flood) markSeen(id string) {
	if f.seen != nil {
		f.seen.Add(id, struct{}{})
	}
}

func (f *Flood) deliver(em *types.EmergencyMessage, from string, local bool) {
	f.ring.push(em)

	f.lmu.RLock()
	ls := make([]Listener, 0, len(f.listeners))
	for _, l := range f.listeners {
		ls = append(ls, l)
	}
	f.lmu.RUnlock()

	for _, l := range ls {
		l(cloneEmergency(em), from, local)
	}
	if err := f.emitter.Emit(types.EvtEmergencyMessage{
		BaseEvent: types.BaseEvent{Time: f.clock.Now()},
		From:      from,
		Message:   cloneEmergency(em),
		Local:     local,
	}); err != nil {
		log.Debug("emit emergency event failed", "err", err)
	}
}
