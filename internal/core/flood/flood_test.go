package flood

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-blemesh/internal/core/codec"
	"github.com/dep2p/go-blemesh/internal/core/eventbus"
	"github.com/dep2p/go-blemesh/internal/core/metrics"
	"github.com/dep2p/go-blemesh/internal/core/peerstore"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
	"github.com/dep2p/go-blemesh/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type sent struct {
	peer string
	msg  *types.Message
}

type fakePeers struct {
	local     string
	connected []string

	mu       sync.Mutex
	sends    []sent
	handlers map[types.MessageType]peerstore.Handler
}

func newFakePeers(local string, connected ...string) *fakePeers {
	return &fakePeers{
		local:     local,
		connected: connected,
		handlers:  map[types.MessageType]peerstore.Handler{},
	}
}

func (p *fakePeers) LocalID() string { return p.local }

func (p *fakePeers) Broadcast(_ context.Context, msg *types.Message) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.connected {
		p.sends = append(p.sends, sent{peer: id, msg: msg})
	}
	return len(p.connected), nil
}

func (p *fakePeers) Handle(typ types.MessageType, h peerstore.Handler) {
	p.handlers[typ] = h
}

func (p *fakePeers) snapshot() []sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sent(nil), p.sends...)
}

func (p *fakePeers) reset() {
	p.mu.Lock()
	p.sends = nil
	p.mu.Unlock()
}

type fixture struct {
	f     *Flood
	peers *fakePeers
	clk   *clock.Mock
	bus   *eventbus.Bus
	m     *metrics.Metrics
}

func newFixture(t *testing.T, cfg Config, peers *fakePeers) *fixture {
	t.Helper()
	fx := &fixture{
		peers: peers,
		clk:   clock.NewMock(),
		bus:   eventbus.NewBus(),
		m:     metrics.New(nil),
	}
	fx.clk.Set(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))

	var err error
	fx.f, err = New(cfg, peers, fx.bus, fx.m, fx.clk)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fx.f.Stop() })
	return fx
}

func decodeEnvelope(t *testing.T, msg *types.Message) (*types.FloodEnvelope, *types.EmergencyMessage) {
	t.Helper()
	require.Equal(t, types.MessageEmergency, msg.Type)
	env, err := codec.UnmarshalEnvelope(msg.Content)
	require.NoError(t, err)
	em, err := codec.UnmarshalEmergency(env.Payload)
	require.NoError(t, err)
	return env, em
}

func (fx *fixture) envelope(id string, ttl int, expiresAt time.Time) *types.FloodEnvelope {
	em := &types.EmergencyMessage{
		ID:        id,
		Class:     types.ClassWarning,
		Title:     "Flood",
		Body:      "River rising",
		Timestamp: fx.clk.Now().UTC(),
		Priority:  types.PriorityHigh,
		ExpiresAt: expiresAt,
	}
	return &types.FloodEnvelope{
		Kind:      types.FloodKindEmergency,
		Payload:   codec.MarshalEmergency(em),
		TTL:       ttl,
		Timestamp: fx.clk.Now().UTC(),
	}
}

// ============================================================================
//                              本地发出
// ============================================================================

func TestBroadcastLocal_SendsEnvelopeToAllPeers(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("A", "B", "C", "D"))

	var got []*types.EmergencyMessage
	var locals []bool
	fx.f.Subscribe(func(m *types.EmergencyMessage, from string, local bool) {
		got = append(got, m)
		locals = append(locals, local)
		assert.Equal(t, "A", from)
	})

	loc := &types.Location{Latitude: 52.52, Longitude: 13.405}
	em, err := fx.f.BroadcastLocal(context.Background(), types.ClassAlert, "Help", "Trapped",
		types.PriorityCritical, loc, 2)
	require.NoError(t, err)
	require.NotEmpty(t, em.ID)
	assert.Equal(t, fx.clk.Now().UTC().Add(2*time.Hour), em.ExpiresAt)

	sends := fx.peers.snapshot()
	require.Len(t, sends, 3)
	for _, s := range sends {
		assert.Equal(t, types.BroadcastRecipient, s.msg.Recipient)
		env, wire := decodeEnvelope(t, s.msg)
		assert.Equal(t, types.FloodKindEmergency, env.Kind)
		assert.Equal(t, types.DefaultFloodTTL, env.TTL)
		assert.Equal(t, em.ID, wire.ID)
		require.NotNil(t, wire.Location)
		assert.Equal(t, 52.52, wire.Location.Latitude)
	}

	require.Len(t, got, 1)
	assert.Equal(t, []bool{true}, locals)
	assert.Equal(t, em.ID, got[0].ID)

	list := fx.f.List(fx.clk.Now())
	require.Len(t, list, 1)
	assert.Equal(t, em.ID, list[0].ID)
}

func TestBroadcastLocal_NoExpiry(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("A"))

	em, err := fx.f.BroadcastLocal(context.Background(), types.ClassInfo, "t", "b", types.PriorityLow, nil, NoExpiry)
	require.NoError(t, err)
	assert.True(t, em.ExpiresAt.IsZero())

	fx.clk.Add(1000 * time.Hour)
	assert.Len(t, fx.f.List(fx.clk.Now()), 1)
}

func TestBroadcastLocal_DefaultExpiry(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("A"))

	em, err := fx.f.BroadcastLocal(context.Background(), types.ClassInfo, "t", "b", types.PriorityLow, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, em.Timestamp.Add(DefaultTTLHours*time.Hour), em.ExpiresAt)

	fx.clk.Add(DefaultTTLHours*time.Hour - time.Minute)
	assert.Len(t, fx.f.List(fx.clk.Now()), 1)
	fx.clk.Add(2 * time.Minute)
	assert.Empty(t, fx.f.List(fx.clk.Now()))
}

func TestBroadcastLocal_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	fx := newFixture(t, cfg, newFakePeers("A", "B"))

	_, err := fx.f.BroadcastLocal(context.Background(), types.ClassAlert, "t", "b", types.PriorityHigh, nil, 1)
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Empty(t, fx.peers.snapshot())

	fx.f.SetEnabled(true)
	assert.True(t, fx.f.Enabled())
	_, err = fx.f.BroadcastLocal(context.Background(), types.ClassAlert, "t", "b", types.PriorityHigh, nil, 1)
	assert.NoError(t, err)
}

func TestBroadcastLocal_EmitsEvent(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("A"))
	sub, err := fx.bus.Subscribe(new(types.EvtEmergencyMessage), pkgif.BufSize(4))
	require.NoError(t, err)
	defer sub.Close()

	em, err := fx.f.Fire(context.Background(), nil)
	require.NoError(t, err)

	select {
	case raw := <-sub.Out():
		evt := raw.(types.EvtEmergencyMessage)
		assert.True(t, evt.Local)
		assert.Equal(t, em.ID, evt.Message.ID)
	default:
		t.Fatal("expected emergency event")
	}
}

// ============================================================================
//                              接收与转发
// ============================================================================

func TestOnReceive_RefloodsWithDecrementedTTL(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B", "A", "C", "D"))

	var from string
	fx.f.Subscribe(func(_ *types.EmergencyMessage, f string, local bool) {
		from = f
		assert.False(t, local)
	})

	env := fx.envelope("e-1", 2, time.Time{})
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", env))
	fx.f.Wait()

	assert.Equal(t, "A", from)
	sends := fx.peers.snapshot()
	require.Len(t, sends, 3)
	for _, s := range sends {
		fwd, em := decodeEnvelope(t, s.msg)
		assert.Equal(t, 1, fwd.TTL)
		assert.Equal(t, "e-1", em.ID)
		assert.Equal(t, "B", s.msg.Sender)
	}
	assert.Equal(t, 2, env.TTL, "incoming envelope must not be mutated")
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.RefloodedCounter()))
	assert.Len(t, fx.f.List(fx.clk.Now()), 1)
}

func TestOnReceive_TTLZeroDeliveredNotForwarded(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B", "A", "C"))

	notified := 0
	fx.f.Subscribe(func(*types.EmergencyMessage, string, bool) { notified++ })

	require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope("e-0", 0, time.Time{})))
	fx.f.Wait()

	assert.Equal(t, 1, notified)
	assert.Empty(t, fx.peers.snapshot())
	assert.Len(t, fx.f.List(fx.clk.Now()), 1)
}

func TestOnReceive_ExpiredDiscarded(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B", "C"))

	notified := 0
	fx.f.Subscribe(func(*types.EmergencyMessage, string, bool) { notified++ })

	past := fx.clk.Now().Add(-time.Minute)
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope("old", 3, past)))
	fx.f.Wait()

	assert.Zero(t, notified)
	assert.Empty(t, fx.peers.snapshot())
	assert.Empty(t, fx.f.List(fx.clk.Now()))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.DroppedCounter(metrics.DropExpired)))
}

func TestOnReceive_DuplicateSuppressed(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B", "C"))

	notified := 0
	fx.f.Subscribe(func(*types.EmergencyMessage, string, bool) { notified++ })

	env := fx.envelope("dup", 3, time.Time{})
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", env))
	require.NoError(t, fx.f.OnReceive(context.Background(), "C", env))
	fx.f.Wait()

	assert.Equal(t, 1, notified)
	assert.Len(t, fx.peers.snapshot(), 1)
	assert.Len(t, fx.f.List(fx.clk.Now()), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.DroppedCounter(metrics.DropDuplicate)))
}

func TestOnReceive_OwnBroadcastEchoSuppressed(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("A", "B"))

	_, err := fx.f.BroadcastLocal(context.Background(), types.ClassAlert, "t", "b", types.PriorityHigh, nil, 1)
	require.NoError(t, err)
	sends := fx.peers.snapshot()
	require.Len(t, sends, 1)
	fx.peers.reset()

	env, err := codec.UnmarshalEnvelope(sends[0].msg.Content)
	require.NoError(t, err)
	env.TTL--
	require.NoError(t, fx.f.OnReceive(context.Background(), "B", env))
	fx.f.Wait()

	assert.Empty(t, fx.peers.snapshot())
	assert.Len(t, fx.f.List(fx.clk.Now()), 1)
}

func TestOnReceive_WithoutDeduplication(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Deduplicate = false
	fx := newFixture(t, cfg, newFakePeers("B", "C"))

	env := fx.envelope("dup", 0, time.Time{})
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", env))
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", env))

	assert.Len(t, fx.f.List(fx.clk.Now()), 2)
}

func TestOnReceive_Disabled(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B", "C"))
	fx.f.SetEnabled(false)

	err := fx.f.OnReceive(context.Background(), "A", fx.envelope("x", 2, time.Time{}))
	assert.ErrorIs(t, err, ErrDisabled)
	assert.Empty(t, fx.f.List(fx.clk.Now()))
}

func TestOnReceive_MalformedPayload(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B"))

	env := &types.FloodEnvelope{Kind: types.FloodKindEmergency, Payload: []byte{0xff, 0xff}, TTL: 1}
	assert.ErrorIs(t, fx.f.OnReceive(context.Background(), "A", env), types.ErrDeserializationFailure)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.DroppedCounter(metrics.DropDecode)))
}

func TestOnReceive_RefloodRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RefloodRate = 0.001
	cfg.RefloodBurst = 1
	fx := newFixture(t, cfg, newFakePeers("B", "C"))

	require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope("r-1", 2, time.Time{})))
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope("r-2", 2, time.Time{})))
	fx.f.Wait()

	assert.Len(t, fx.peers.snapshot(), 1)
	assert.Len(t, fx.f.List(fx.clk.Now()), 2, "rate limiting only affects forwarding")
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.DroppedCounter(metrics.DropRateLimited)))
}

func TestOnReceive_RefloodRateFollowsClock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RefloodRate = 1
	cfg.RefloodBurst = 1
	fx := newFixture(t, cfg, newFakePeers("B", "C"))
	ctx := context.Background()

	require.NoError(t, fx.f.OnReceive(ctx, "A", fx.envelope("c-1", 2, time.Time{})))
	require.NoError(t, fx.f.OnReceive(ctx, "A", fx.envelope("c-2", 2, time.Time{})))
	fx.f.Wait()
	assert.Len(t, fx.peers.snapshot(), 1)

	// 令牌按注入时钟补充
	fx.clk.Add(2 * time.Second)
	require.NoError(t, fx.f.OnReceive(ctx, "A", fx.envelope("c-3", 2, time.Time{})))
	fx.f.Wait()
	assert.Len(t, fx.peers.snapshot(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.m.DroppedCounter(metrics.DropRateLimited)))
}

func TestHandler_DecodesEnvelope(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B", "A", "C"))
	h := fx.peers.handlers[types.MessageEmergency]
	require.NotNil(t, h)

	env := fx.envelope("h-1", 1, time.Time{})
	msg := types.NewMessage(types.MessageEmergency, "A", types.BroadcastRecipient, codec.MarshalEnvelope(env))
	assert.True(t, h(context.Background(), &types.Peer{ID: "A"}, msg))
	fx.f.Wait()

	require.Len(t, fx.f.List(fx.clk.Now()), 1)
	assert.Len(t, fx.peers.snapshot(), 2)

	other := &types.FloodEnvelope{Kind: "SOMETHING_ELSE", Payload: env.Payload, TTL: 1}
	msg = types.NewMessage(types.MessageEmergency, "A", types.BroadcastRecipient, codec.MarshalEnvelope(other))
	assert.True(t, h(context.Background(), &types.Peer{ID: "A"}, msg))
	assert.Len(t, fx.f.List(fx.clk.Now()), 1)
}

// ============================================================================
//                              本地缓冲
// ============================================================================

func TestList_FiltersExpiredOnRead(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B"))

	soon := fx.clk.Now().Add(time.Hour)
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope("short", 0, soon)))
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope("long", 0, time.Time{})))
	assert.Len(t, fx.f.List(fx.clk.Now()), 2)

	fx.clk.Add(time.Hour)
	assert.Len(t, fx.f.List(fx.clk.Now()), 2, "expiry is strict")

	fx.clk.Add(time.Second)
	list := fx.f.List(fx.clk.Now())
	require.Len(t, list, 1)
	assert.Equal(t, "long", list[0].ID)
}

func TestList_CapacityNewestFirst(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B"))

	for i := range 60 {
		require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope(fmt.Sprintf("m-%02d", i), 0, time.Time{})))
	}

	list := fx.f.List(fx.clk.Now())
	require.Len(t, list, DefaultCapacity)
	assert.Equal(t, "m-59", list[0].ID)
	assert.Equal(t, "m-10", list[len(list)-1].ID)

	list[0].Title = "mutated"
	assert.NotEqual(t, "mutated", fx.f.List(fx.clk.Now())[0].Title)

	fx.f.Clear()
	assert.Empty(t, fx.f.List(fx.clk.Now()))
}

func TestSubscribe_Cancel(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("B"))

	n := 0
	cancel := fx.f.Subscribe(func(*types.EmergencyMessage, string, bool) { n++ })
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope("1", 0, time.Time{})))
	cancel()
	require.NoError(t, fx.f.OnReceive(context.Background(), "A", fx.envelope("2", 0, time.Time{})))

	assert.Equal(t, 1, n)
}

// ============================================================================
//                              预设
// ============================================================================

func TestPresets(t *testing.T) {
	fx := newFixture(t, DefaultConfig(), newFakePeers("A"))
	ctx := context.Background()
	now := fx.clk.Now().UTC()

	tests := []struct {
		name     string
		send     func() (*types.EmergencyMessage, error)
		class    types.EmergencyClass
		title    string
		body     string
		priority types.Priority
		hours    int
	}{
		{
			name:     "medical",
			send:     func() (*types.EmergencyMessage, error) { return fx.f.Medical(ctx, nil) },
			class:    types.ClassAlert,
			title:    "Medical Emergency",
			body:     "Medical assistance needed at this location. Please send help if available.",
			priority: types.PriorityCritical,
			hours:    6,
		},
		{
			name:     "fire",
			send:     func() (*types.EmergencyMessage, error) { return fx.f.Fire(ctx, nil) },
			class:    types.ClassAlert,
			title:    "Fire Emergency",
			body:     "Fire reported at this location. Evacuate the area and call fire services.",
			priority: types.PriorityCritical,
			hours:    12,
		},
		{
			name:     "safety warning",
			send:     func() (*types.EmergencyMessage, error) { return fx.f.SafetyWarning(ctx, "Gas leak on 5th street", nil) },
			class:    types.ClassWarning,
			title:    "Safety Warning",
			body:     "Gas leak on 5th street",
			priority: types.PriorityHigh,
			hours:    24,
		},
		{
			name:     "missing person",
			send:     func() (*types.EmergencyMessage, error) { return fx.f.MissingPerson(ctx, "child, 8, red jacket", nil) },
			class:    types.ClassInfo,
			title:    "Missing Person Alert",
			body:     "Missing person: child, 8, red jacket. Last seen in this area. Please contact authorities if seen.",
			priority: types.PriorityMedium,
			hours:    72,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			em, err := tt.send()
			require.NoError(t, err)
			assert.Equal(t, tt.class, em.Class)
			assert.Equal(t, tt.title, em.Title)
			assert.Equal(t, tt.body, em.Body)
			assert.Equal(t, tt.priority, em.Priority)
			assert.Equal(t, now.Add(time.Duration(tt.hours)*time.Hour), em.ExpiresAt)
		})
	}
}

func TestNew_NilPeers(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNilPeers)
}
