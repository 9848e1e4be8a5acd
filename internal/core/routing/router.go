package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-blemesh/internal/core/codec"
	"github.com/dep2p/go-blemesh/internal/core/eventbus"
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/internal/core/peerstore"
	"github.com/dep2p/go-blemesh/internal/util/logger"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
	"github.com/dep2p/go-blemesh/pkg/types"
)

var log = logger.Logger("routing")

// 默认调度参数
const (
	DefaultHelloInterval   = 30 * time.Second
	DefaultCleanupInterval = 60 * time.Second
	DefaultRouteTimeout    = 300 * time.Second
	DefaultMaxCost         = 16
	DefaultMaxHops         = 8
)

// ErrNilPeers 未提供注册表
var ErrNilPeers = errors.New("routing: nil peer registry")

// Peers Router 依赖的注册表能力
type Peers interface {
	LocalID() string
	Send(ctx context.Context, peerID string, msg *types.Message) error
	Broadcast(ctx context.Context, msg *types.Message) (int, error)
	IsConnected(peerID string) bool
	LearnName(peerID, name string) bool
	Handle(typ types.MessageType, h peerstore.Handler)
}

// Config 路由配置
type Config struct {
	HelloInterval   time.Duration
	CleanupInterval time.Duration
	RouteTimeout    time.Duration

	// DistanceVector Hello 携带路由表
	DistanceVector bool
	MaxCost        int

	// EnableRelay 转发他人的单播消息
	EnableRelay bool
	MaxHops     int

	// DeviceName Hello 中通告的名称
	DeviceName string
}

func (c *Config) applyDefaults() {
	if c.HelloInterval <= 0 {
		c.HelloInterval = DefaultHelloInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.RouteTimeout <= 0 {
		c.RouteTimeout = DefaultRouteTimeout
	}
	if c.MaxCost <= 0 {
		c.MaxCost = DefaultMaxCost
	}
	if c.MaxHops <= 0 {
		c.MaxHops = DefaultMaxHops
	}
}

// Router 路由器
type Router struct {
	cfg     Config
	peers   Peers
	table   *Table
	clock   clock.Clock
	metrics *metrics.Metrics
	emitter pkgif.Emitter

	schedMu     sync.Mutex
	lastHello   time.Time
	lastCleanup time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建路由器，并在注册表上注册 System 与单播转发处理器
func New(cfg Config, peers Peers, bus pkgif.EventBus, m *metrics.Metrics, clk clock.Clock) (*Router, error) {
	if peers == nil {
		return nil, ErrNilPeers
	}
	cfg.applyDefaults()
	if clk == nil {
		clk = clock.New()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	if bus == nil {
		bus = eventbus.NewBus()
	}
	em, err := bus.Emitter(new(types.EvtRouteChanged))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		cfg:     cfg,
		peers:   peers,
		table:   NewTable(cfg.RouteTimeout),
		clock:   clk,
		metrics: m,
		emitter: em,
		ctx:     ctx,
		cancel:  cancel,
	}

	peers.Handle(types.MessageSystem, r.handleSystem)
	if cfg.EnableRelay {
		for _, typ := range []types.MessageType{types.MessageText, types.MessageVoice, types.MessageFile} {
			peers.Handle(typ, r.handleRelay)
		}
	}
	return r, nil
}

// LocalID 本端设备 ID
func (r *Router) LocalID() string {
	return r.peers.LocalID()
}

// ============================================================================
//                              周期任务
// ============================================================================

// Tick 按两个独立的周期驱动 Hello 与清理
//
// 首次调用两者都会执行；之后各自距上次执行满一个周期才再次执行。
func (r *Router) Tick(ctx context.Context, now time.Time) {
	r.schedMu.Lock()
	hello := r.lastHello.IsZero() || now.Sub(r.lastHello) >= r.cfg.HelloInterval
	if hello {
		r.lastHello = now
	}
	cleanup := r.lastCleanup.IsZero() || now.Sub(r.lastCleanup) >= r.cfg.CleanupInterval
	if cleanup {
		r.lastCleanup = now
	}
	r.schedMu.Unlock()

	if hello {
		r.SendHello(ctx)
	}
	if cleanup {
		r.Cleanup(now)
	}
}

// SendHello 向所有已连接设备广播 Hello
func (r *Router) SendHello(ctx context.Context) {
	hello := &types.Hello{
		SenderID:   r.LocalID(),
		DeviceName: r.cfg.DeviceName,
	}
	if r.cfg.DistanceVector {
		for _, e := range r.table.Snapshot(r.clock.Now()) {
			hello.Routes = append(hello.Routes, types.HelloRoute{Destination: e.Destination, Cost: e.Cost})
		}
	}

	msg := types.NewMessage(types.MessageSystem, hello.SenderID, types.BroadcastRecipient, codec.MarshalHello(hello))
	msg.Timestamp = r.clock.Now().UTC()
	n, err := r.peers.Broadcast(ctx, msg)
	if n > 0 {
		r.metrics.HelloSent()
	}
	if err != nil {
		log.Debug("hello partially failed", "sent", n, "err", err)
		return
	}
	log.Debug("hello sent", "peers", n, "routes", len(hello.Routes))
}

// Cleanup 清除过期条目，返回清除数量
func (r *Router) Cleanup(now time.Time) int {
	removed := r.table.Purge(now)
	for _, e := range removed {
		r.emitRoute(e, true)
	}
	if len(removed) > 0 {
		r.metrics.RoutesExpired(len(removed))
		log.Debug("routes expired", "count", len(removed))
	}
	r.metrics.SetRoutes(r.table.Len())
	return len(removed)
}

// Start 在注入的时钟上启动两个后台周期
func (r *Router) Start() {
	hello := r.clock.Ticker(r.cfg.HelloInterval)
	cleanup := r.clock.Ticker(r.cfg.CleanupInterval)

	r.wg.Add(2)
	go func() {
		defer r.wg.Done()
		defer hello.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-hello.C:
				r.SendHello(r.ctx)
			}
		}
	}()
	go func() {
		defer r.wg.Done()
		defer cleanup.Stop()
		for {
			select {
			case <-r.ctx.Done():
				return
			case <-cleanup.C:
				r.Cleanup(r.clock.Now())
			}
		}
	}()
}

// Stop 停止后台周期并等待进行中的转发结束
func (r *Router) Stop() error {
	r.cancel()
	r.wg.Wait()
	return r.emitter.Close()
}

// ============================================================================
//                              路由学习
// ============================================================================

// OnHello 把 Hello 发送方记录为一跳邻居
func (r *Router) OnHello(senderID string) {
	r.learnNeighbor(senderID, senderID)
}

// learnNeighbor 记录 {dest=sender, nextHop=via, cost=1}
func (r *Router) learnNeighbor(senderID, via string) {
	if senderID == "" || senderID == r.LocalID() {
		return
	}
	r.upsert(types.RouteEntry{
		Destination: senderID,
		NextHop:     via,
		Cost:        1,
		UpdatedAt:   r.clock.Now(),
	}, nil)
}

// Learn 距离向量学习：经由 neighbor 到达其通告的目的地
//
// 仅在新开销更低、现有条目经由同一邻居（刷新），或现有条目
// 已过期时替换。开销超过 MaxCost 的通告被忽略。
func (r *Router) Learn(neighbor string, routes []types.HelloRoute) {
	local := r.LocalID()
	now := r.clock.Now()
	for _, adv := range routes {
		cost := adv.Cost + 1
		if adv.Destination == "" || adv.Destination == local || adv.Destination == neighbor {
			continue
		}
		if adv.Cost < 1 || cost > r.cfg.MaxCost {
			continue
		}
		r.upsert(types.RouteEntry{
			Destination: adv.Destination,
			NextHop:     neighbor,
			Cost:        cost,
			UpdatedAt:   now,
		}, func(cur types.RouteEntry) bool {
			return cost < cur.Cost || cur.NextHop == neighbor
		})
	}
}

func (r *Router) upsert(e types.RouteEntry, accept func(types.RouteEntry) bool) {
	changed, _ := r.table.Upsert(e, e.UpdatedAt, accept)
	if !changed {
		return
	}
	r.metrics.SetRoutes(r.table.Len())
	log.Debug("route updated", "dest", e.Destination, "nextHop", e.NextHop, "cost", e.Cost)
	r.emitRoute(e, false)
}

// ============================================================================
//                              选路
// ============================================================================

// ResolveNextHop 返回目的地的下一跳；过期条目在读取前被清除
func (r *Router) ResolveNextHop(dest string) (string, bool) {
	e, live, purged := r.table.Lookup(dest, r.clock.Now())
	if purged {
		r.metrics.RoutesExpired(1)
		r.metrics.SetRoutes(r.table.Len())
		r.emitRoute(e, true)
	}
	if !live {
		return "", false
	}
	return e.NextHop, true
}

// Route 发送消息到目的地
//
// 广播目的地向每个已连接设备各发一份；有路由时经由下一跳发送；
// 否则尝试一次直连发送，失败返回包装了原因的 ErrRouteNotFound。
func (r *Router) Route(ctx context.Context, dest string, msg *types.Message) error {
	if dest == "" {
		return types.ErrEmptyDestination
	}
	if dest == types.BroadcastRecipient {
		_, err := r.peers.Broadcast(ctx, msg)
		return err
	}
	if next, ok := r.ResolveNextHop(dest); ok {
		return r.peers.Send(ctx, next, msg)
	}
	if err := r.peers.Send(ctx, dest, msg); err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrRouteNotFound, dest, err)
	}
	return nil
}

// Routes 未过期路由快照
func (r *Router) Routes() []types.RouteEntry {
	return r.table.Snapshot(r.clock.Now())
}

// ============================================================================
//                              入站处理
// ============================================================================

// handleSystem 处理 Hello
func (r *Router) handleSystem(_ context.Context, from *types.Peer, msg *types.Message) bool {
	hello, err := codec.UnmarshalHello(msg.Content)
	if err != nil {
		r.metrics.Dropped(metrics.DropDecode)
		log.Debug("malformed hello dropped", "peer", from.ID, "err", err)
		return true
	}
	if hello.SenderID == from.ID {
		r.peers.LearnName(from.ID, hello.DeviceName)
	}
	r.learnNeighbor(hello.SenderID, from.ID)
	if r.cfg.DistanceVector && len(hello.Routes) > 0 {
		r.Learn(from.ID, hello.Routes)
	}
	return true
}

func (r *Router) emitRoute(e types.RouteEntry, removed bool) {
	if err := r.emitter.Emit(types.EvtRouteChanged{
		BaseEvent: types.BaseEvent{Time: r.clock.Now()},
		Entry:     e,
		Removed:   removed,
	}); err != nil {
		log.Debug("emit route event failed", "err", err)
	}
}
