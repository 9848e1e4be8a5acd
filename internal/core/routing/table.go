package routing

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// ============================================================================
//                              路由表
// ============================================================================

// Table 路由表
//
// 所有读取操作先清除过期条目。
type Table struct {
	mu      sync.Mutex
	entries map[string]*types.RouteEntry
	timeout time.Duration
}

// NewTable 创建路由表
func NewTable(timeout time.Duration) *Table {
	return &Table{
		entries: make(map[string]*types.RouteEntry),
		timeout: timeout,
	}
}

// Upsert 写入条目
//
// accept 决定是否替换现有的未过期条目，为 nil 时总是替换。
// changed 表示新增或下一跳/开销发生变化。
func (t *Table) Upsert(e types.RouteEntry, now time.Time, accept func(cur types.RouteEntry) bool) (changed, accepted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, exists := t.entries[e.Destination]
	if exists && cur.Expired(now, t.timeout) {
		exists = false
	}
	if exists && accept != nil && !accept(*cur) {
		return false, false
	}
	changed = !exists || cur.NextHop != e.NextHop || cur.Cost != e.Cost
	entry := e
	t.entries[e.Destination] = &entry
	return changed, true
}

// Lookup 查找条目
//
// 过期条目在返回前被清除，此时 live 为 false、purged 为 true，
// entry 为被清除的条目。
func (t *Table) Lookup(dest string, now time.Time) (entry types.RouteEntry, live, purged bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[dest]
	if !ok {
		return types.RouteEntry{}, false, false
	}
	if e.Expired(now, t.timeout) {
		delete(t.entries, dest)
		return *e, false, true
	}
	return *e, true, false
}

// Purge 清除过期条目，返回被清除的条目
func (t *Table) Purge(now time.Time) []types.RouteEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []types.RouteEntry
	for dest, e := range t.entries {
		if e.Expired(now, t.timeout) {
			removed = append(removed, *e)
			delete(t.entries, dest)
		}
	}
	sortEntries(removed)
	return removed
}

// Snapshot 未过期条目快照，按目的地排序
func (t *Table) Snapshot(now time.Time) []types.RouteEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.RouteEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if !e.Expired(now, t.timeout) {
			out = append(out, *e)
		}
	}
	sortEntries(out)
	return out
}

// Len 条目数（含尚未清除的过期条目）
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func sortEntries(es []types.RouteEntry) {
	slices.SortFunc(es, func(a, b types.RouteEntry) int {
		return strings.Compare(a.Destination, b.Destination)
	})
}
