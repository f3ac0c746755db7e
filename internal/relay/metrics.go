package relay

import (
	"context"

	"github.com/n0needt0/go-goodies/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
)

// Metrics counts cycles and step outcomes.
type Metrics struct {
	cycles   metric.Int64Counter
	outcomes metric.Int64Counter
}

// NewMetrics registers the relay counters on meter. A nil meter yields
// counters that record nothing.
func NewMetrics(meter metric.Meter) *Metrics {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("relay")
	}

	m := &Metrics{}
	var err error

	m.cycles, err = meter.Int64Counter("relay_cycles_total",
		metric.WithDescription("Number of relay cycles run"))
	if err != nil {
		log.Errorf("failed to init relay_cycles_total: %v", err)
		m.cycles, _ = noop.NewMeterProvider().Meter("relay").Int64Counter("relay_cycles_total")
	}

	m.outcomes, err = meter.Int64Counter("relay_outcomes_total",
		metric.WithDescription("Number of fetch, transform and upload outcomes by kind"))
	if err != nil {
		log.Errorf("failed to init relay_outcomes_total: %v", err)
		m.outcomes, _ = noop.NewMeterProvider().Meter("relay").Int64Counter("relay_outcomes_total")
	}

	return m
}

func (m *Metrics) cycle() {
	m.cycles.Add(context.Background(), 1)
}

func (m *Metrics) outcome(kind domain.Kind) {
	m.outcomes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", kind.String())))
}
