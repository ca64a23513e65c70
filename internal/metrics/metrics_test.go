package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// value sums every sample of the named family whose labels include want.
func value(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				sum += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return sum
}

func TestRecordParse(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordParse(2, 5, 3*time.Millisecond)
	c.RecordParse(1, 0, time.Millisecond)

	assert.Equal(t, 2.0, value(t, reg, "plotsim_programs_parsed_total", nil))
	assert.Equal(t, 3.0, value(t, reg, "plotsim_commands_parsed_total", map[string]string{"kind": "rapid"}))
	assert.Equal(t, 5.0, value(t, reg, "plotsim_commands_parsed_total", map[string]string{"kind": "linear"}))
	assert.Equal(t, 2.0, value(t, reg, "plotsim_parse_duration_seconds", nil))
}

func TestRecordCompile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCompile(map[string]int{"CIRCLE": 2, "LINE": 1})
	c.RecordCompile(map[string]int{"LINE": 4})

	assert.Equal(t, 5.0, value(t, reg, "plotsim_entities_compiled_total", map[string]string{"kind": "LINE"}))
	assert.Equal(t, 2.0, value(t, reg, "plotsim_entities_compiled_total", map[string]string{"kind": "CIRCLE"}))
}

func TestPlaybackAndSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	for i := 0; i < 7; i++ {
		c.RecordStep()
	}
	c.RecordCompletion()
	c.SessionStarted()
	c.SessionStarted()
	c.SessionEnded()
	c.ViewerJoined()

	assert.Equal(t, 7.0, value(t, reg, "plotsim_playback_steps_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "plotsim_playback_completions_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "plotsim_live_sessions", nil))
	assert.Equal(t, 1.0, value(t, reg, "plotsim_live_viewers", nil))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordParse(1, 1, time.Millisecond)
		c.RecordCompile(map[string]int{"LINE": 1})
		c.RecordStep()
		c.RecordCompletion()
		c.SessionStarted()
		c.SessionEnded()
		c.ViewerJoined()
		c.ViewerLeft()
	})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordStep()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "plotsim_playback_steps_total 1")
}
