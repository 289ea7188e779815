package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() authflow.MetricsSnapshot
	ActivityDropped() uint64
}

type counter struct {
	id  authflow.MetricID
	ins metric.Int64ObservableCounter
}

// histogram mirrors one snapshot histogram as cumulative bucket gauges plus
// count and sum gauges.
type histogram struct {
	id      authflow.MetricID
	buckets []metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	sum     metric.Float64ObservableGauge
}

// OTelExporter observes the controller snapshot on every collection. Close
// unregisters the callback.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []counter
	histograms   []histogram
	dropped      metric.Int64ObservableCounter
}

func NewOTelExporter(meter metric.Meter, c *authflow.Controller) (*OTelExporter, error) {
	if c == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, c)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable
	track := func(o metric.Observable) { observables = append(observables, o) }

	for _, def := range internaldefs.Counters {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counter{id: def.ID, ins: ins})
		track(ins)
	}

	bounds := internaldefs.Bounds()
	for _, def := range internaldefs.Histograms {
		h := histogram{id: def.ID}
		for _, b := range bounds {
			name := def.Name + "_bucket_le_" + b.Suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative bucket count for le="+b.Le+"."))
			if err != nil {
				return nil, fmt.Errorf("gauge %s: %w", name, err)
			}
			h.buckets = append(h.buckets, ins)
			track(ins)
		}

		var err error
		if h.count, err = meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count.")); err != nil {
			return nil, fmt.Errorf("gauge %s_count: %w", def.Name, err)
		}
		track(h.count)
		if h.sum, err = meter.Float64ObservableGauge(def.Name+"_sum", metric.WithDescription(def.Help+" Total seconds."), metric.WithUnit("s")); err != nil {
			return nil, fmt.Errorf("gauge %s_sum: %w", def.Name, err)
		}
		track(h.sum)
		e.histograms = append(e.histograms, h)
	}

	var err error
	e.dropped, err = meter.Int64ObservableCounter(internaldefs.ActivityDropped.Name, metric.WithDescription(internaldefs.ActivityDropped.Help))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.ActivityDropped.Name, err)
	}
	track(e.dropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.Cumulative(snap.Histograms[h.id])
		for i, ins := range h.buckets {
			o.ObserveInt64(ins, int64(cumulative[i]))
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
		o.ObserveFloat64(h.sum, snap.Sums[h.id].Seconds())
	}
	o.ObserveInt64(e.dropped, int64(e.source.ActivityDropped()))
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
