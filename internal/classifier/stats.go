package classifier

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Stats summarizes classifications since start.
type Stats struct {
	Total             int64            `json:"total"`
	ByMode            map[Mode]int64   `json:"by_mode"`
	ByMethod          map[Method]int64 `json:"by_method"`
	AverageConfidence float64          `json:"average_confidence"`
	Fallbacks         int64            `json:"fallbacks"`
}

type statsRecorder struct {
	mu        sync.Mutex
	total     int64
	byMode    map[Mode]int64
	byMethod  map[Method]int64
	fallbacks int64
	avgConf   float64
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{
		byMode:   make(map[Mode]int64),
		byMethod: make(map[Method]int64),
	}
}

func (s *statsRecorder) record(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.byMode[r.Mode]++
	s.byMethod[r.Method]++
	if r.Fallback {
		s.fallbacks++
	}
	// Incremental mean.
	s.avgConf += (r.Confidence - s.avgConf) / float64(s.total)
}

func (s *statsRecorder) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Stats{
		Total:             s.total,
		ByMode:            make(map[Mode]int64, len(s.byMode)),
		ByMethod:          make(map[Method]int64, len(s.byMethod)),
		AverageConfidence: s.avgConf,
		Fallbacks:         s.fallbacks,
	}
	for k, v := range s.byMode {
		out.ByMode[k] = v
	}
	for k, v := range s.byMethod {
		out.ByMethod[k] = v
	}
	return out
}

// Collector exports classifier statistics to Prometheus.
type Collector struct {
	classifier *Classifier

	byMode    *prometheus.Desc
	byMethod  *prometheus.Desc
	fallbacks *prometheus.Desc
	avgConf   *prometheus.Desc
}

// NewCollector returns a prometheus.Collector over c's statistics.
func NewCollector(c *Classifier) *Collector {
	return &Collector{
		classifier: c,
		byMode: prometheus.NewDesc(
			"tutor_classifier_classifications_total",
			"Classifications by selected mode",
			[]string{"mode"}, nil,
		),
		byMethod: prometheus.NewDesc(
			"tutor_classifier_method_total",
			"Classifications by deciding method",
			[]string{"method"}, nil,
		),
		fallbacks: prometheus.NewDesc(
			"tutor_classifier_fallbacks_total",
			"Semantic retrievals rejected by the index",
			nil, nil,
		),
		avgConf: prometheus.NewDesc(
			"tutor_classifier_average_confidence",
			"Running mean of classification confidence",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.byMode
	ch <- c.byMethod
	ch <- c.fallbacks
	ch <- c.avgConf
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.classifier.Stats()
	for _, m := range Modes {
		ch <- prometheus.MustNewConstMetric(c.byMode, prometheus.CounterValue, float64(s.ByMode[m]), string(m))
	}
	for _, m := range []Method{MethodRule, MethodSemantic, MethodForced} {
		ch <- prometheus.MustNewConstMetric(c.byMethod, prometheus.CounterValue, float64(s.ByMethod[m]), string(m))
	}
	ch <- prometheus.MustNewConstMetric(c.fallbacks, prometheus.CounterValue, float64(s.Fallbacks))
	ch <- prometheus.MustNewConstMetric(c.avgConf, prometheus.GaugeValue, s.AverageConfidence)
}

var _ prometheus.Collector = (*Collector)(nil)
