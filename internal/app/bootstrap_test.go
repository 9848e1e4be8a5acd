package app

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/internal/core/security/p256"
	"github.com/dep2p/go-blemesh/pkg/transport/memory"
)

func newTransport(t *testing.T, id string) *memory.Transport {
	t.Helper()
	tr, err := memory.NewAir().NewTransport(id)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestBuild_AssemblesRuntime(t *testing.T) {
	clk := clock.NewMock()
	b := NewBootstrap(config.NewConfig(), WithTransport(newTransport(t, "A")), WithClock(clk))

	rt, err := b.Build()
	require.NoError(t, err)

	assert.NotNil(t, rt.Bus)
	assert.NotNil(t, rt.Metrics)
	assert.NotNil(t, rt.Trust)
	assert.NotNil(t, rt.Codec)
	assert.NotNil(t, rt.Registry)
	assert.NotNil(t, rt.Flood)
	require.NotNil(t, rt.Router)
	assert.Equal(t, "A", rt.Router.LocalID())
	assert.Same(t, clk, rt.Clock)
	assert.Equal(t, config.DefaultSuite, rt.KeyAgreement.Suite())

	require.NoError(t, rt.Start(context.Background()))
	require.NoError(t, rt.Stop(context.Background()))
}

func TestBuild_Errors(t *testing.T) {
	_, err := NewBootstrap(nil).Build()
	assert.ErrorIs(t, err, config.ErrNilConfig)

	_, err = NewBootstrap(config.NewConfig()).Build()
	assert.ErrorIs(t, err, ErrNoTransport)

	cfg := config.NewConfig()
	cfg.Identity.Suite = "rot13"
	_, err = NewBootstrap(cfg, WithTransport(newTransport(t, "A"))).Build()
	assert.Error(t, err)
}

func TestBuild_InjectedIdentityAndRegistry(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Identity.Suite = "p256-aesgcm"
	kp, err := p256.New().GenerateKeyPair()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()

	rt, err := NewBootstrap(cfg,
		WithTransport(newTransport(t, "A")),
		WithKeyPair(kp),
		WithRegisterer(reg),
	).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Stop(context.Background()) })

	assert.Equal(t, kp.PublicKey(), rt.KeyAgreement.PublicKey())

	rt.Metrics.Dropped("decode")
	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuild_HandlersRegistered(t *testing.T) {
	rt, err := NewBootstrap(config.NewConfig(), WithTransport(newTransport(t, "A"))).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Stop(context.Background()) })

	// 未知对端的报文只被计数丢弃
	rt.Registry.OnDataReceived(context.Background(), "Z", []byte{1, 2, 3})
	assert.Empty(t, rt.Registry.Peers())
	assert.Empty(t, rt.Flood.List(rt.Clock.Now()))
	assert.Empty(t, rt.Router.Routes())
}
