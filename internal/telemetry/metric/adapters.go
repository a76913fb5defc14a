package metric

import "github.com/prometheus/client_golang/prometheus"

// The wrap* helpers adapt concrete prometheus client types to this
// package's Counter/Gauge/Histogram/*Vec interfaces, so callers never
// import prometheus directly.

type promCounter struct{ c prometheus.Counter }

func wrapCounter(c prometheus.Counter) Counter { return promCounter{c} }
func (p promCounter) Inc()          { p.c.Inc() }
func (p promCounter) Add(v float64) { p.c.Add(v) }

type promGauge struct{ g prometheus.Gauge }

func wrapGauge(g prometheus.Gauge) Gauge { return promGauge{g} }
func (p promGauge) Set(v float64) { p.g.Set(v) }
func (p promGauge) Inc()          { p.g.Inc() }
func (p promGauge) Dec()          { p.g.Dec() }
func (p promGauge) Add(v float64) { p.g.Add(v) }
func (p promGauge) Sub(v float64) { p.g.Sub(v) }

type promHistogram struct{ h prometheus.Histogram }

func (p promHistogram) Observe(v float64) { p.h.Observe(v) }

type promCounterVec struct{ v *prometheus.CounterVec }

func wrapCounterVec(v *prometheus.CounterVec) CounterVec { return promCounterVec{v} }
func (p promCounterVec) WithLabelValues(lvs ...string) Counter {
	return promCounter{p.v.WithLabelValues(lvs...)}
}

type promHistogramVec struct{ v *prometheus.HistogramVec }

func wrapHistogramVec(v *prometheus.HistogramVec) HistogramVec { return promHistogramVec{v} }
func (p promHistogramVec) WithLabelValues(lvs ...string) Histogram {
	return promHistogram{p.v.WithLabelValues(lvs...)}
}
