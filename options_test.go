package blemesh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-blemesh/config"
	"github.com/dep2p/go-blemesh/pkg/transport/memory"
)

func TestBuildConfig_Precedence(t *testing.T) {
	custom := config.NewConfig()
	custom.Routing.HelloInterval = config.Duration(10 * time.Second)
	custom.Routing.DistanceVector = true

	o := newOptions()
	require.NoError(t, o.apply(
		WithPreset(PresetLowPower),
		WithConfig(custom),
		WithDistanceVector(false),
		WithDeviceName("kitchen"),
	))
	cfg, err := o.buildConfig()
	require.NoError(t, err)

	// WithConfig 覆盖预设，单项选项覆盖 WithConfig
	assert.Equal(t, config.Duration(10*time.Second), cfg.Routing.HelloInterval)
	assert.False(t, cfg.Routing.DistanceVector)
	assert.Equal(t, "kitchen", cfg.Identity.DeviceName)

	// 调用方的配置不被修改
	assert.Empty(t, custom.Identity.DeviceName)
	assert.True(t, custom.Routing.DistanceVector)
}

func TestBuildConfig_DataDir(t *testing.T) {
	o := newOptions()
	require.NoError(t, o.apply(WithDataDir(t.TempDir())))
	cfg, err := o.buildConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Storage.InMemory)
	assert.NotEmpty(t, cfg.Storage.DataDir)
}

func TestOptions_Rejected(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"unknown suite", WithSuite("rot13")},
		{"nil preset", WithPreset(nil)},
		{"nil config", WithConfig(nil)},
		{"nil key pair", WithKeyPair(nil)},
		{"empty data dir", WithDataDir("")},
		{"nil clock", WithClock(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, newOptions().apply(tt.opt))
		})
	}
}

func TestPresets(t *testing.T) {
	for _, name := range []string{PresetNameDefault, PresetNameLowPower, PresetNameMultihop, PresetNameSimulator} {
		p := PresetByName(name)
		require.NotNil(t, p, name)
		assert.Equal(t, name, p.Name)
		assert.NoError(t, p.Config().Validate(), name)
	}
	assert.Nil(t, PresetByName("turbo"))

	assert.False(t, PresetDefault.Config().Routing.DistanceVector)
	assert.False(t, PresetLowPower.Config().Routing.EnableRelay)
	assert.True(t, PresetMultihop.Config().Routing.DistanceVector)

	sim := PresetSimulator.Config()
	assert.True(t, sim.Transport.AdvertiseOnStart)
	assert.True(t, sim.Transport.ScanOnStart)
}

func TestNew_WithP256Suite(t *testing.T) {
	tr, err := memory.NewAir().NewTransport("A")
	require.NoError(t, err)

	n, err := New(WithTransport(tr), WithSuite("p256-aesgcm"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })

	assert.Equal(t, "p256-aesgcm", n.Config().Identity.Suite)
	// 未压缩 P-256 公钥
	assert.Len(t, n.PublicKey(), 65)
}
