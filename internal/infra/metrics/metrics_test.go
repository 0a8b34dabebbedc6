package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Settlements.WithLabelValues("win").Inc()
	m.Settlements.WithLabelValues("win").Inc()
	m.Disputes.WithLabelValues("conflict").Inc()

	assert.InDelta(t, 2, testutil.ToFloat64(m.Settlements.WithLabelValues("win")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Disputes.WithLabelValues("conflict")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Panics(t, func() { New(reg) }, "registering twice must fail")
}
