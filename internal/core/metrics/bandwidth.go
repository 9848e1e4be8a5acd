package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// flow 单方向的累计量与速率
type flow struct {
	total atomic.Int64
	rate  *RateMeter
}

func newFlow(clk clock.Clock) *flow {
	return &flow{rate: NewRateMeter(clk)}
}

func (f *flow) add(n int64) {
	f.total.Add(n)
	f.rate.Add(n)
}

// pair 入站与出站
type pair struct {
	in, out *flow
}

func newPair(clk clock.Clock) *pair {
	return &pair{in: newFlow(clk), out: newFlow(clk)}
}

func (p *pair) stats() Stats {
	return Stats{
		TotalIn:  p.in.total.Load(),
		TotalOut: p.out.total.Load(),
		RateIn:   p.in.rate.Rate(),
		RateOut:  p.out.rate.Rate(),
	}
}

func (p *pair) lastUpdate() time.Time {
	in, out := p.in.rate.LastUpdate(), p.out.rate.LastUpdate()
	if in.After(out) {
		return in
	}
	return out
}

// BandwidthCounter 带宽计数器
//
// 按总量、对端设备和消息类型三层统计加密后报文的字节数。
// 并发安全。
type BandwidthCounter struct {
	clock clock.Clock
	total *pair

	mu     sync.RWMutex
	byPeer map[string]*pair
	byType map[string]*pair
}

// NewBandwidthCounter 创建带宽计数器；clk 为 nil 时使用系统时钟
func NewBandwidthCounter(clk clock.Clock) *BandwidthCounter {
	if clk == nil {
		clk = clock.New()
	}
	return &BandwidthCounter{
		clock:  clk,
		total:  newPair(clk),
		byPeer: make(map[string]*pair),
		byType: make(map[string]*pair),
	}
}

// LogSent 记录发往 peer 的 msgType 报文
func (b *BandwidthCounter) LogSent(peer, msgType string, size int64) {
	b.total.out.add(size)
	b.get(b.byPeer, peer).out.add(size)
	b.get(b.byType, msgType).out.add(size)
}

// LogRecv 记录来自 peer 的 msgType 报文
func (b *BandwidthCounter) LogRecv(peer, msgType string, size int64) {
	b.total.in.add(size)
	b.get(b.byPeer, peer).in.add(size)
	b.get(b.byType, msgType).in.add(size)
}

func (b *BandwidthCounter) get(m map[string]*pair, key string) *pair {
	b.mu.RLock()
	p := m[key]
	b.mu.RUnlock()
	if p != nil {
		return p
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if p = m[key]; p == nil {
		p = newPair(b.clock)
		m[key] = p
	}
	return p
}

// Totals 返回总带宽统计
func (b *BandwidthCounter) Totals() Stats {
	return b.total.stats()
}

// ForPeer 返回对端带宽统计
func (b *BandwidthCounter) ForPeer(peer string) Stats {
	return b.lookup(b.byPeer, peer)
}

// ForType 返回消息类型带宽统计
func (b *BandwidthCounter) ForType(msgType string) Stats {
	return b.lookup(b.byType, msgType)
}

func (b *BandwidthCounter) lookup(m map[string]*pair, key string) Stats {
	b.mu.RLock()
	p := m[key]
	b.mu.RUnlock()
	if p == nil {
		return Stats{}
	}
	return p.stats()
}

// ByPeer 返回所有对端的带宽统计
func (b *BandwidthCounter) ByPeer() map[string]Stats {
	b.mu.RLock()
	peers := make(map[string]*pair, len(b.byPeer))
	for k, p := range b.byPeer {
		peers[k] = p
	}
	b.mu.RUnlock()

	out := make(map[string]Stats, len(peers))
	for k, p := range peers {
		out[k] = p.stats()
	}
	return out
}

// TrimIdle 清理 since 之后没有流量的对端统计，返回清理数量
func (b *BandwidthCounter) TrimIdle(since time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for k, p := range b.byPeer {
		if p.lastUpdate().Before(since) {
			delete(b.byPeer, k)
			n++
		}
	}
	return n
}
