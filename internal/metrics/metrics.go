package metrics

import (
	"github.com/akin-kilic-eq/kamp-yonetim-sub001/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts occupancy mutations, import rows and report cache lookups.
type Recorder interface {
	Mutation(op string, err error)
	ImportRow(kind string, ok bool)
	ReportCache(hit bool)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Mutation(string, error) {}
func (Nop) ImportRow(string, bool) {}
func (Nop) ReportCache(bool)       {}

// Prometheus is a Recorder backed by client_golang counters.
type Prometheus struct {
	mutations   *prometheus.CounterVec
	importRows  *prometheus.CounterVec
	reportCache *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus registers the kamp_* counters on reg (DefaultRegisterer when nil).
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamp",
			Name:      "mutations_total",
			Help:      "Occupancy mutations by operation and result (ok, or the error kind).",
		}, []string{"op", "result"}),
		importRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamp",
			Name:      "import_rows_total",
			Help:      "Bulk import rows by kind (rooms, workers) and result (success, failed).",
		}, []string{"kind", "result"}),
		reportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kamp",
			Name:      "report_cache_total",
			Help:      "Report cache lookups by result (hit, miss).",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{p.mutations, p.importRows, p.reportCache} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) Mutation(op string, err error) {
	p.mutations.WithLabelValues(op, resultLabel(err)).Inc()
}

func (p *Prometheus) ImportRow(kind string, ok bool) {
	result := "failed"
	if ok {
		result = "success"
	}
	p.importRows.WithLabelValues(kind, result).Inc()
}

func (p *Prometheus) ReportCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.reportCache.WithLabelValues(result).Inc()
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if k := domain.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}
