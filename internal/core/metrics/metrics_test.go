package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_IndependentRegistries(t *testing.T) {
	// 两个节点各自注册不应冲突
	a := New(nil)
	b := New(nil)

	a.Dropped(DropNoKey)
	a.Dropped(DropNoKey)
	b.Dropped(DropDecrypt)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.datagramsDropped.WithLabelValues(DropNoKey)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.datagramsDropped.WithLabelValues(DropNoKey)))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.datagramsDropped.WithLabelValues(DropDecrypt)))
}

func TestMetrics_ExternalRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetRoutes(3)
	m.HelloSent()
	m.Sent("text")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["blemesh_routes"])
	assert.True(t, names["blemesh_hellos_sent_total"])
	assert.True(t, names["blemesh_messages_sent_total"])
	assert.Same(t, reg, m.Gatherer())
}
