package blemesh

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-blemesh/pkg/transport/memory"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

// ════════════════════════════════════════════════════════════════════════════
//                              测试辅助
// ════════════════════════════════════════════════════════════════════════════

type mesh struct {
	t     *testing.T
	air   *memory.Air
	clk   *clock.Mock
	nodes map[string]*Node
}

func newMesh(t *testing.T) *mesh {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	return &mesh{t: t, air: memory.NewAir(), clk: clk, nodes: map[string]*Node{}}
}

// line 把可达性限制为相邻设备
func (m *mesh) line(ids ...string) {
	m.air.SetRange(func(a, b string) bool {
		i, j := slices.Index(ids, a), slices.Index(ids, b)
		if i < 0 || j < 0 {
			return true
		}
		return i-j == 1 || j-i == 1
	})
}

func (m *mesh) add(id string, opts ...Option) *Node {
	m.t.Helper()
	tr, err := m.air.NewTransport(id, memory.WithName("dev-"+id))
	require.NoError(m.t, err)

	opts = append([]Option{WithTransport(tr), WithClock(m.clk), WithDeviceName("dev-" + id)}, opts...)
	n, err := New(opts...)
	require.NoError(m.t, err)
	m.t.Cleanup(func() { _ = n.Close() })

	ctx := context.Background()
	require.NoError(m.t, n.Start(ctx))
	require.NoError(m.t, n.StartAdvertising(ctx))
	require.NoError(m.t, n.StartScanning(ctx))
	m.nodes[id] = n
	return n
}

// link 连接两设备并等待双方完成 Hello
func (m *mesh) link(from, to string) {
	m.t.Helper()
	a, b := m.nodes[from], m.nodes[to]

	require.Eventually(m.t, func() bool {
		_, ok := a.Peer(to)
		return ok
	}, waitFor, tick, "%s never discovered %s", from, to)

	require.NoError(m.t, a.Connect(context.Background(), to))

	require.Eventually(m.t, func() bool {
		return hasRoute(a, to) && hasRoute(b, from)
	}, waitFor, tick, "%s and %s never exchanged hello", from, to)
}

func hasRoute(n *Node, dest string) bool {
	for _, r := range n.Routes() {
		if r.Destination == dest {
			return true
		}
	}
	return false
}

func route(n *Node, dest string) (RouteEntry, bool) {
	for _, r := range n.Routes() {
		if r.Destination == dest {
			return r, true
		}
	}
	return RouteEntry{}, false
}

type inbox struct {
	mu   sync.Mutex
	from []string
	msgs []*Message
}

func (i *inbox) add(from string, msg *Message) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.from = append(i.from, from)
	i.msgs = append(i.msgs, msg)
}

func (i *inbox) len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.msgs)
}

func (i *inbox) get(k int) (string, *Message) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.from[k], i.msgs[k]
}

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

func TestNew_RequiresTransport(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoTransport)

	_, err = New(WithTransport(nil))
	assert.ErrorIs(t, err, ErrNoTransport)
}

func TestNode_Lifecycle(t *testing.T) {
	tr, err := memory.NewAir().NewTransport("A")
	require.NoError(t, err)
	n, err := New(WithTransport(tr))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, StateIdle, n.State())
	assert.Equal(t, "A", n.LocalID())
	assert.NotEmpty(t, n.PublicKey())
	assert.ErrorIs(t, n.Send(ctx, "B", NewTextMessage("A", "B", "hi")), ErrNotStarted)
	assert.ErrorIs(t, n.StartScanning(ctx), ErrNotStarted)

	require.NoError(t, n.Start(ctx))
	assert.Equal(t, StateRunning, n.State())
	assert.ErrorIs(t, n.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, n.Close())
	require.NoError(t, n.Close())
	assert.Equal(t, StateStopped, n.State())
	assert.ErrorIs(t, n.Start(ctx), ErrNodeClosed)
	assert.ErrorIs(t, n.StartAdvertising(ctx), ErrNodeClosed)
}

func TestNode_CloseDuringTraffic(t *testing.T) {
	m := newMesh(t)
	a := m.add("A")
	b := m.add("B")
	cancel := b.OnMessageReceived(func(string, *Message) {})
	defer cancel()
	m.link("A", "B")

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := a.SendText(ctx, "B", "x"); errors.Is(err, ErrNodeClosed) {
					return
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Close())
	require.NoError(t, a.Close())
	wg.Wait()

	assert.Equal(t, StateStopped, a.State())
	assert.Equal(t, StateStopped, b.State())
}

// ════════════════════════════════════════════════════════════════════════════
//                              端到端
// ════════════════════════════════════════════════════════════════════════════

func TestNode_HelloAndText(t *testing.T) {
	m := newMesh(t)
	a := m.add("A")
	b := m.add("B")

	var got inbox
	cancel := b.OnMessageReceived(got.add)
	defer cancel()

	m.link("A", "B")

	r, ok := route(a, "B")
	require.True(t, ok)
	assert.Equal(t, "B", r.NextHop)
	assert.Equal(t, 1, r.Cost)

	msg, err := a.SendText(context.Background(), "B", "hello")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, msg.Status)

	require.Eventually(t, func() bool { return got.len() == 1 }, waitFor, tick)
	from, rx := got.get(0)
	assert.Equal(t, "A", from)
	assert.Equal(t, "hello", rx.Text())
	assert.Equal(t, msg.ID, rx.ID)
	assert.Positive(t, a.Traffic("B").TotalOut)
	assert.GreaterOrEqual(t, a.Traffic("").TotalOut, a.Traffic("B").TotalOut)

	require.Len(t, a.ConnectedPeers(), 1)
	assert.Equal(t, "B", a.ConnectedPeers()[0].ID)
	assert.Equal(t, "dev-B", a.ConnectedPeers()[0].DisplayName)

	snap := a.TopologySnapshot()
	assert.Equal(t, "A", snap.LocalID)
	assert.Len(t, snap.Connections, 1)
	assert.Len(t, snap.Routes, 1)
	assert.Equal(t, m.clk.Now(), snap.LastUpdated)
}

func TestNode_LineTopologyOneHop(t *testing.T) {
	m := newMesh(t)
	m.line("A", "B", "C")
	a := m.add("A")
	b := m.add("B")
	c := m.add("C")

	m.link("A", "B")
	m.link("C", "B")

	assert.True(t, hasRoute(b, "A"))
	assert.True(t, hasRoute(b, "C"))
	assert.False(t, hasRoute(a, "C"), "one-hop mode never learns C through B")
	assert.False(t, hasRoute(c, "A"))

	msg := NewTextMessage("A", "C", "unreachable")
	err := a.Send(context.Background(), "C", msg)
	assert.ErrorIs(t, err, ErrRouteNotFound)
	assert.True(t, IsRecoverable(err))
	assert.Equal(t, StatusFailed, msg.Status)

	// A 离开 B 的范围后，B 的 A 条目在 300 秒后失效
	require.NoError(t, m.air.Disconnect("A", "B"))
	require.Eventually(t, func() bool { return len(b.ConnectedPeers()) == 1 }, waitFor, tick)

	m.clk.Add(301 * time.Second)

	assert.False(t, hasRoute(b, "A"))
	assert.Empty(t, a.Routes())
	require.Eventually(t, func() bool { return hasRoute(b, "C") }, waitFor, tick)
}

func TestNode_MultihopRelay(t *testing.T) {
	m := newMesh(t)
	m.line("A", "B", "C")
	a := m.add("A", WithDistanceVector(true))
	m.add("B", WithDistanceVector(true))
	c := m.add("C", WithDistanceVector(true))

	var got inbox
	defer c.OnMessageReceived(got.add)()

	m.link("A", "B")
	m.link("C", "B")

	require.Eventually(t, func() bool {
		m.clk.Add(30 * time.Second)
		return hasRoute(a, "C")
	}, waitFor, 50*time.Millisecond)

	r, _ := route(a, "C")
	assert.Equal(t, "B", r.NextHop)
	assert.Equal(t, 2, r.Cost)

	msg, err := a.SendText(context.Background(), "C", "via B")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, msg.Status)

	require.Eventually(t, func() bool { return got.len() == 1 }, waitFor, tick)
	from, rx := got.get(0)
	assert.Equal(t, "B", from)
	assert.Equal(t, "A", rx.Sender)
	assert.Equal(t, "C", rx.Recipient)
	assert.Equal(t, "via B", rx.Text())
	assert.Equal(t, []string{"A", "B"}, rx.Route)
}

func TestNode_EmergencyFlood(t *testing.T) {
	m := newMesh(t)
	m.line("A", "B", "C")
	a := m.add("A")
	m.add("B")
	c := m.add("C")

	type seen struct {
		id, from string
	}
	var mu sync.Mutex
	var atC []seen
	defer c.OnEmergencyMessage(func(msg *EmergencyMessage, from string) {
		mu.Lock()
		atC = append(atC, seen{msg.ID, from})
		mu.Unlock()
	})()

	m.link("A", "B")
	m.link("C", "B")

	em, err := a.SendFireEmergency(context.Background(), &Location{Latitude: 1, Longitude: 2})
	require.NoError(t, err)
	assert.Equal(t, PriorityCritical, em.Priority)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(atC) == 1
	}, waitFor, tick)

	mu.Lock()
	assert.Equal(t, seen{em.ID, "B"}, atC[0])
	mu.Unlock()

	list := c.EmergencyMessages()
	require.Len(t, list, 1)
	assert.Equal(t, "Fire Emergency", list[0].Title)
	require.NotNil(t, list[0].Location)
	assert.Equal(t, 2.0, list[0].Location.Longitude)

	// A 自己的广播经 B 回流时被去重
	assert.Len(t, a.EmergencyMessages(), 1)

	// 12 小时后过期；先关闭节点，避免模拟时钟逐个触发周期任务
	for _, n := range m.nodes {
		require.NoError(t, n.Close())
	}
	m.clk.Add(12*time.Hour + time.Second)
	assert.Empty(t, c.EmergencyMessages())
}

func TestNode_EmergencyDisabled(t *testing.T) {
	m := newMesh(t)
	a := m.add("A")

	a.SetEmergencyEnabled(false)
	assert.False(t, a.EmergencyEnabled())
	_, err := a.SendMedicalEmergency(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmergencyDisabled)

	a.SetEmergencyEnabled(true)
	_, err = a.SendSafetyWarning(context.Background(), "bridge closed", nil)
	require.NoError(t, err)
	require.Len(t, a.EmergencyMessages(), 1)

	a.ClearEmergencyMessages()
	assert.Empty(t, a.EmergencyMessages())
}

func TestNode_ConnectionStateEvents(t *testing.T) {
	m := newMesh(t)
	a := m.add("A")
	m.add("B")

	var mu sync.Mutex
	var states []ConnectionState
	defer a.OnConnectionStateChanged(func(c ConnectionStateChange) {
		if c.PeerID != "B" {
			return
		}
		mu.Lock()
		states = append(states, c.NewState)
		mu.Unlock()
	})()

	m.link("A", "B")
	require.NoError(t, m.air.Disconnect("A", "B"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(states, StateDisconnected)
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []ConnectionState{StateConnecting, StateConnected, StateDisconnected}, states)
}
