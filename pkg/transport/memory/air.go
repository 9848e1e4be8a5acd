package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dep2p/go-blemesh/internal/util/logger"
	"github.com/dep2p/go-blemesh/pkg/types"
)

var log = logger.Logger("transport/memory")

// DefaultEventBuffer 每个设备事件通道的缓冲大小
const DefaultEventBuffer = 64

// DefaultRSSI 发现事件携带的信号强度
const DefaultRSSI = -50

// Air 共享介质
type Air struct {
	mu      sync.RWMutex
	devices map[string]*Transport

	// inRange 为 nil 时所有设备互相可达
	inRange func(a, b string) bool

	// wire 建立连接时独占；写入共享。双方的连接与公钥事件入队前不会有数据报插队
	wire sync.RWMutex
}

// NewAir 创建空介质
func NewAir() *Air {
	return &Air{devices: make(map[string]*Transport)}
}

// SetRange 设置可达性判定，用于模拟线形或环形拓扑
func (a *Air) SetRange(fn func(a, b string) bool) {
	a.mu.Lock()
	a.inRange = fn
	a.mu.Unlock()
}

// Option 设备选项
type Option func(*Transport)

// WithName 广播中的设备名
func WithName(name string) Option {
	return func(t *Transport) { t.name = name }
}

// WithEventBuffer 事件通道缓冲
func WithEventBuffer(n int) Option {
	return func(t *Transport) {
		if n > 0 {
			t.buffer = n
		}
	}
}

// NewTransport 在介质上注册一个设备
func (a *Air) NewTransport(id string, opts ...Option) (*Transport, error) {
	if id == "" {
		return nil, types.ErrEmptyPeerID
	}
	t := &Transport{
		air:    a,
		id:     id,
		name:   id,
		buffer: DefaultEventBuffer,
		conns:  make(map[string]struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.events = make(chan types.TransportEvent, t.buffer)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.devices[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	a.devices[id] = t
	return t, nil
}

// Devices 已注册设备 ID，按字典序
func (a *Air) Devices() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]string, 0, len(a.devices))
	for id := range a.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Disconnect 断开两设备间的连接，模拟离开通信范围
func (a *Air) Disconnect(x, y string) error {
	tx, err := a.device(x)
	if err != nil {
		return err
	}
	ty, err := a.device(y)
	if err != nil {
		return err
	}
	if !tx.unlink(y) {
		return fmt.Errorf("%w: %s-%s", ErrNotConnected, x, y)
	}
	ty.unlink(x)

	tx.deliver(types.ConnectionChanged{PeerID: y, Connected: false})
	ty.deliver(types.ConnectionChanged{PeerID: x, Connected: false})
	log.Debug("link dropped", "a", x, "b", y)
	return nil
}

func (a *Air) device(id string) (*Transport, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	return t, nil
}

func (a *Air) reachable(x, y string) bool {
	a.mu.RLock()
	fn := a.inRange
	a.mu.RUnlock()
	return fn == nil || fn(x, y)
}

// others 除 self 外的所有设备
func (a *Air) others(self string) []*Transport {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Transport, 0, len(a.devices))
	for id, t := range a.devices {
		if id != self {
			out = append(out, t)
		}
	}
	return out
}

func (a *Air) remove(id string) {
	a.mu.Lock()
	delete(a.devices, id)
	a.mu.Unlock()
}
