package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
	"github.com/dep2p/go-blemesh/pkg/types"
)

// Transport 介质上的一个设备
type Transport struct {
	air    *Air
	id     string
	name   string
	buffer int

	mu          sync.RWMutex
	advertising bool
	scanning    bool
	publicKey   []byte
	conns       map[string]struct{}
	closed      bool

	events    chan types.TransportEvent
	done      chan struct{}
	closeOnce sync.Once
}

var _ pkgif.Transport = (*Transport)(nil)

// LocalID 设备 ID
func (t *Transport) LocalID() string {
	return t.id
}

// Advertise 开始广播并发布公钥；正在扫描的可达设备立即发现本端
func (t *Transport) Advertise(_ context.Context, publicKey []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.advertising = true
	t.publicKey = slices.Clone(publicKey)
	t.mu.Unlock()

	for _, o := range t.air.others(t.id) {
		if o.isScanning() && t.air.reachable(o.id, t.id) {
			o.deliver(t.discovery())
		}
	}
	return nil
}

// Scan 开始扫描；当前正在广播的可达设备立即被发现
func (t *Transport) Scan(_ context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.scanning = true
	t.mu.Unlock()

	for _, o := range t.air.others(t.id) {
		if adv, _ := o.advertised(); adv && t.air.reachable(t.id, o.id) {
			t.deliver(o.discovery())
		}
	}
	return nil
}

// Connect 与对端建立对称连接
//
// 双方先收到 ConnectionChanged，随后各自收到对端公钥。
func (t *Transport) Connect(ctx context.Context, peerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.isClosed() {
		return ErrClosed
	}
	remote, err := t.air.device(peerID)
	if err != nil {
		return err
	}
	adv, remoteKey := remote.advertised()
	if !adv {
		return fmt.Errorf("%w: %s", ErrNotAdvertising, peerID)
	}
	if !t.air.reachable(t.id, peerID) {
		return fmt.Errorf("%w: %s out of range", types.ErrTransportUnavailable, peerID)
	}
	t.air.wire.Lock()
	defer t.air.wire.Unlock()
	if !t.link(peerID) {
		return nil
	}
	remote.link(t.id)

	t.deliver(types.ConnectionChanged{PeerID: peerID, Connected: true, Initiator: true})
	remote.deliver(types.ConnectionChanged{PeerID: t.id, Connected: true})

	t.deliver(types.PublicKeyReceived{PeerID: peerID, Key: remoteKey})
	if _, localKey := t.advertised(); len(localKey) > 0 {
		remote.deliver(types.PublicKeyReceived{PeerID: t.id, Key: localKey})
	}
	log.Debug("connected", "local", t.id, "remote", peerID)
	return nil
}

// Write 把密文投递给已连接的对端
func (t *Transport) Write(ctx context.Context, peerID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.isClosed() {
		return ErrClosed
	}
	t.air.wire.RLock()
	defer t.air.wire.RUnlock()
	if !t.connected(peerID) {
		return fmt.Errorf("%w: %s", ErrNotConnected, peerID)
	}
	remote, err := t.air.device(peerID)
	if err != nil {
		return err
	}
	if !remote.deliverCtx(ctx, types.DataReceived{PeerID: t.id, Data: slices.Clone(data)}) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrClosed, peerID)
	}
	return nil
}

// Events 事件流
func (t *Transport) Events() <-chan types.TransportEvent {
	return t.events
}

// Close 断开所有连接并离开介质
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		t.closed = true
		peers := make([]string, 0, len(t.conns))
		for id := range t.conns {
			peers = append(peers, id)
		}
		t.conns = map[string]struct{}{}
		close(t.events)
		t.mu.Unlock()

		t.air.remove(t.id)
		for _, id := range peers {
			if remote, err := t.air.device(id); err == nil && remote.unlink(t.id) {
				remote.deliver(types.ConnectionChanged{PeerID: t.id, Connected: false})
			}
		}
	})
	return nil
}

// ============================================================================
//                              内部
// ============================================================================

func (t *Transport) discovery() types.PeerDiscovered {
	return types.PeerDiscovered{
		ID:      t.id,
		Name:    t.name,
		Address: "mem://" + t.id,
		RSSI:    DefaultRSSI,
	}
}

func (t *Transport) advertised() (bool, []byte) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.advertising && !t.closed, slices.Clone(t.publicKey)
}

func (t *Transport) isScanning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.scanning && !t.closed
}

func (t *Transport) isClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

func (t *Transport) connected(peerID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.conns[peerID]
	return ok
}

// link 记录连接，已存在时返回 false
func (t *Transport) link(peerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[peerID]; ok || t.closed {
		return false
	}
	t.conns[peerID] = struct{}{}
	return true
}

func (t *Transport) unlink(peerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.conns[peerID]; !ok {
		return false
	}
	delete(t.conns, peerID)
	return true
}

func (t *Transport) deliver(ev types.TransportEvent) {
	t.deliverCtx(context.Background(), ev)
}

// deliverCtx 投递事件；设备关闭或 ctx 取消时放弃
func (t *Transport) deliverCtx(ctx context.Context, ev types.TransportEvent) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}
	select {
	case t.events <- ev:
		return true
	case <-t.done:
		return false
	case <-ctx.Done():
		return false
	}
}
