package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors exported on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	generations *prometheus.CounterVec
	llmCalls    *prometheus.CounterVec
	llmLatency  prometheus.Histogram
	ttsCalls    *prometheus.CounterVec
	extractions *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "question_sets_total",
			Help:      "Question sets obtained, by source (direct_json, generated, demo).",
		}, []string{"source"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "llm_calls_total",
			Help:      "Chat completion calls by result.",
		}, []string{"result"}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quiz",
			Name:      "llm_call_seconds",
			Help:      "Chat completion latency.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		}),
		ttsCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "tts_calls_total",
			Help:      "Text-to-speech calls by result.",
		}, []string{"result"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "material_extractions_total",
			Help:      "File text extractions by extension and result.",
		}, []string{"ext", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quiz",
			Name:      "transitions_total",
			Help:      "Quiz state transitions by name and result.",
		}, []string{"transition", "result"}),
	}
	reg.MustRegister(m.generations, m.llmCalls, m.llmLatency, m.ttsCalls, m.extractions, m.transitions)
	return m
}

func (m *Metrics) ObserveGeneration(source string) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveLLMCall(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(result).Inc()
	if took > 0 {
		m.llmLatency.Observe(took.Seconds())
	}
}

func (m *Metrics) ObserveTTS(result string) {
	if m == nil {
		return
	}
	m.ttsCalls.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveExtraction(ext, result string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(ext, result).Inc()
}

func (m *Metrics) ObserveTransition(name string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.transitions.WithLabelValues(name, result).Inc()
}
