package parser

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	outcomeSuccess  = "success"
	outcomeFailure  = "failure"
	outcomeReplaced = "replaced"
)

type meters struct {
	compilations metric.Int64Counter
	evaluations  metric.Int64Counter
}

func newMeters(mp metric.MeterProvider, name string) meters {
	m := mp.Meter(name)

	compilations, err := m.Int64Counter("vecexpr.compilations",
		metric.WithDescription("Function compilations by outcome"),
		metric.WithUnit("{compilation}"))
	if err != nil {
		compilations = noop.Int64Counter{}
	}

	evaluations, err := m.Int64Counter("vecexpr.evaluations",
		metric.WithDescription("Function evaluations by outcome"),
		metric.WithUnit("{evaluation}"))
	if err != nil {
		evaluations = noop.Int64Counter{}
	}

	return meters{compilations: compilations, evaluations: evaluations}
}

func (m meters) compiled(outcome string) {
	m.compilations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m meters) evaluated(outcome string) {
	m.evaluations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
