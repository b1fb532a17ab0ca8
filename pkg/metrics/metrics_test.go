package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/zeroblk/zeroblk/pkg/scrub"
)

func TestObserveScanCountsByDecision(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveScan(scrub.SkipAllocated)
	m.ObserveScan(scrub.SkipClean)
	m.ObserveScan(scrub.Rewrite)
	m.ObserveScan(scrub.Rewrite)

	require.Equal(t, 1.0, testutil.ToFloat64(m.blocksScanned.WithLabelValues("allocated")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.blocksScanned.WithLabelValues("clean")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.blocksScanned.WithLabelValues("rewrite")))
}

func TestObserveRewriteCountsBytes(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveRewrite(4096)
	m.ObserveRewrite(4096)

	require.Equal(t, 2.0, testutil.ToFloat64(m.blocksRewritten))
	require.Equal(t, 8192.0, testutil.ToFloat64(m.bytesWritten))
}
