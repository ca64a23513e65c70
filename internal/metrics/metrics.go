// Package metrics exposes Prometheus counters for parsing, compilation
// and live playback. A nil *Collector is valid and records nothing, so
// callers need no checks when metrics are disabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry prometheus.Gatherer

	// Parsing and compilation
	programsParsed   prometheus.Counter
	commandsParsed   *prometheus.CounterVec
	entitiesCompiled *prometheus.CounterVec
	parseDuration    prometheus.Histogram

	// Playback
	playbackSteps       prometheus.Counter
	playbackCompletions prometheus.Counter
	liveSessions        prometheus.Gauge
	liveViewers         prometheus.Gauge
}

// NewCollector registers the plotsim metrics on reg.
func NewCollector(reg *prometheus.Registry) *Collector {
	c := &Collector{
		registry: reg,
		programsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotsim_programs_parsed_total",
			Help: "Total number of motion programs parsed",
		}),
		commandsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plotsim_commands_parsed_total",
			Help: "Total number of motion commands produced by the parser",
		}, []string{"kind"}),
		entitiesCompiled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plotsim_entities_compiled_total",
			Help: "Total number of CAD entities compiled to motion text",
		}, []string{"kind"}),
		parseDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plotsim_parse_duration_seconds",
			Help:    "Time spent parsing motion programs",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		playbackSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotsim_playback_steps_total",
			Help: "Total number of playback interpolation steps run",
		}),
		playbackCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plotsim_playback_completions_total",
			Help: "Total number of playback runs that reached the last command",
		}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plotsim_live_sessions",
			Help: "Number of program rooms with an active player",
		}),
		liveViewers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "plotsim_live_viewers",
			Help: "Number of connected websocket viewers",
		}),
	}

	reg.MustRegister(
		c.programsParsed,
		c.commandsParsed,
		c.entitiesCompiled,
		c.parseDuration,
		c.playbackSteps,
		c.playbackCompletions,
		c.liveSessions,
		c.liveViewers,
	)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordParse counts one parsed program.
func (c *Collector) RecordParse(rapid, linear int, took time.Duration) {
	if c == nil {
		return
	}
	c.programsParsed.Inc()
	c.commandsParsed.WithLabelValues("rapid").Add(float64(rapid))
	c.commandsParsed.WithLabelValues("linear").Add(float64(linear))
	c.parseDuration.Observe(took.Seconds())
}

// RecordCompile counts compiled entities by kind.
func (c *Collector) RecordCompile(byKind map[string]int) {
	if c == nil {
		return
	}
	for kind, n := range byKind {
		c.entitiesCompiled.WithLabelValues(kind).Add(float64(n))
	}
}

func (c *Collector) RecordStep() {
	if c == nil {
		return
	}
	c.playbackSteps.Inc()
}

func (c *Collector) RecordCompletion() {
	if c == nil {
		return
	}
	c.playbackCompletions.Inc()
}

// SessionStarted and SessionEnded track rooms with a running player.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.liveSessions.Inc()
}

func (c *Collector) SessionEnded() {
	if c == nil {
		return
	}
	c.liveSessions.Dec()
}

func (c *Collector) ViewerJoined() {
	if c == nil {
		return
	}
	c.liveViewers.Inc()
}

func (c *Collector) ViewerLeft() {
	if c == nil {
		return
	}
	c.liveViewers.Dec()
}
