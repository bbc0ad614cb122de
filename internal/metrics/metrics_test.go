package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegister(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()

	for _, c := range append(ClientCollectors(), ServerCollectors()...) {
		require.NoError(t, reg.Register(c))
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(SyncConflictsTotal.WithLabelValues("remote-wins"))
	SyncConflictsTotal.WithLabelValues("remote-wins").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SyncConflictsTotal.WithLabelValues("remote-wins")))
}
