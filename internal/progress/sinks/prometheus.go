package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagemill/pagemill/internal/progress"
)

// PrometheusSink exports crawl session metrics. It owns the collectors for
// sessions started/completed/running, session runtime, and page outcomes.
type PrometheusSink struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted *prometheus.CounterVec
	sessionsRunning   prometheus.Gauge
	sessionRuntime    *prometheus.HistogramVec

	pagesProcessed *prometheus.CounterVec
	classifyRuns   prometheus.Counter

	tracker *runTracker
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagemill_sessions_started_total",
			Help: "Total crawl sessions started.",
		}),
		sessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagemill_sessions_completed_total",
			Help: "Total crawl sessions finished partitioned by result.",
		}, []string{"result"}),
		sessionsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pagemill_sessions_running",
			Help: "Current number of in-flight crawl sessions.",
		}),
		sessionRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pagemill_session_runtime_seconds",
			Help:    "Wall time per finished crawl session.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"result"}),
		pagesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagemill_pages_processed_total",
			Help: "Pages handled during crawl sessions partitioned by outcome.",
		}, []string{"outcome"}),
		classifyRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagemill_classify_runs_total",
			Help: "Total classifier invocations requested after crawls.",
		}),
		tracker: newRunTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.sessionsStarted,
		s.sessionsCompleted,
		s.sessionsRunning,
		s.sessionRuntime,
		s.pagesProcessed,
		s.classifyRuns,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the provided batch. Safe for
// concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageSessionStart:
		s.sessionsStarted.Inc()
		if s.tracker.start(evt.RunID) {
			s.sessionsRunning.Inc()
		}
	case progress.StageSessionDone:
		s.finishSession(evt, "success")
	case progress.StageSessionError:
		s.finishSession(evt, "error")
	case progress.StagePageDone:
		s.pagesProcessed.WithLabelValues("done").Inc()
	case progress.StagePageSkip:
		s.pagesProcessed.WithLabelValues("skip").Inc()
	case progress.StageClassifyStart:
		s.classifyRuns.Inc()
	}
}

func (s *PrometheusSink) finishSession(evt progress.Event, result string) {
	s.sessionsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.sessionRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if s.tracker.complete(evt.RunID) {
		s.sessionsRunning.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type runTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newRunTracker() *runTracker {
	return &runTracker{running: make(map[[16]byte]struct{})}
}

func (t *runTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *runTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
