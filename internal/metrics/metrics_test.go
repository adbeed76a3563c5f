package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktrace/internal/core"
	"firestige.xyz/pktrace/internal/sink"
)

func TestSinkCountsEvents(t *testing.T) {
	m := New(prometheus.NewRegistry())
	rec := sink.NewRecorder()
	s := m.Wrap(rec)

	o, ok := s.(core.FrameObserver)
	require.True(t, ok)
	o.BeginFrame(core.FrameInfo{Index: 1})
	s.Emit(core.TraceEvent{Layer: core.LayerIPv4, Severity: core.SeverityInfo})
	s.Emit(core.TraceEvent{Layer: core.LayerIPv4, Severity: core.SeverityInfo})
	s.Emit(core.TraceEvent{Layer: core.LayerUDP, Severity: core.SeverityWarning})
	o.EndFrame()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("ipv4", "info")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("udp", "warning")))
	require.Len(t, rec.Frames(), 1)
	assert.Len(t, rec.Frames()[0].Events, 3)
}

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveFrame("Ethernet", 3*time.Microsecond)
	m.ObserveFrame("Ethernet", 5*time.Microsecond)
	m.FrameFiltered()
	m.ReadError()
	m.AddDrops(7)
	m.AddDrops(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FramesTotal.WithLabelValues("Ethernet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FramesFilteredTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadErrorsTotal))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.CaptureDropsTotal))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveFrame("Ethernet", time.Millisecond)
	m.FrameFiltered()
	m.ReadError()
	m.AddDrops(1)

	rec := sink.NewRecorder()
	assert.Same(t, rec, m.Wrap(rec))
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveFrame("Raw", time.Microsecond)

	srv := NewServer("127.0.0.1:0", "", reg)
	require.NoError(t, srv.Start(context.Background()))
	defer srv.Stop(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `pktrace_frames_total{link_type="Raw"} 1`))
}

func TestServerStopBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer(":0", "/m", nil).Stop(context.Background()))
}
