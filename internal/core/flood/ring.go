package flood

import (
	"sync"
	"time"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// ring 有界缓冲，新消息在前，超出容量时淘汰最旧的
type ring struct {
	mu    sync.RWMutex
	cap   int
	items []*types.EmergencyMessage
}

func newRing(capacity int) *ring {
	return &ring{cap: capacity, items: make([]*types.EmergencyMessage, 0, capacity)}
}

func (r *ring) push(m *types.EmergencyMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, nil)
	copy(r.items[1:], r.items)
	r.items[0] = m
	if len(r.items) > r.cap {
		r.items[len(r.items)-1] = nil
		r.items = r.items[:r.cap]
	}
}

// list 未过期消息副本，新的在前
func (r *ring) list(now time.Time) []*types.EmergencyMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.EmergencyMessage, 0, len(r.items))
	for _, m := range r.items {
		if !m.Expired(now) {
			out = append(out, cloneEmergency(m))
		}
	}
	return out
}

func (r *ring) clear() {
	r.mu.Lock()
	r.items = r.items[:0]
	r.mu.Unlock()
}

func cloneEmergency(m *types.EmergencyMessage) *types.EmergencyMessage {
	c := *m
	if m.Location != nil {
		loc := *m.Location
		c.Location = &loc
	}
	return &c
}
