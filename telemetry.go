package canonize

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/underlay/canonize/urdna"
)

const instrumentationName = "github.com/underlay/canonize"

type instruments struct {
	calls      metric.Int64Counter
	aborts     metric.Int64Counter
	iterations metric.Int64Histogram
}

// meters are created lazily from the global MeterProvider, so they stay
// no-ops unless the application installs one.
var meters = sync.OnceValue(func() *instruments {
	meter := otel.Meter(instrumentationName)
	m := &instruments{}
	var err error
	if m.calls, err = meter.Int64Counter("canonize.calls",
		metric.WithDescription("Number of canonicalization runs"),
		metric.WithUnit("1"),
	); err != nil {
		klog.Warningf("canonize: create calls counter: %v", err)
	}
	if m.aborts, err = meter.Int64Counter("canonize.aborts",
		metric.WithDescription("Number of canonicalization runs stopped by a resource limit"),
		metric.WithUnit("1"),
	); err != nil {
		klog.Warningf("canonize: create aborts counter: %v", err)
	}
	if m.iterations, err = meter.Int64Histogram("canonize.deep_iterations",
		metric.WithDescription("Hash N-Degree Quads expansions per run"),
		metric.WithUnit("1"),
	); err != nil {
		klog.Warningf("canonize: create iterations histogram: %v", err)
	}
	return m
})

// startSpan opens a span for one run. The returned function ends it and
// records the run's metrics.
func startSpan(ctx context.Context, algorithm string, quads int) (context.Context, func(*urdna.Result, error)) {
	attrs := []attribute.KeyValue{
		attribute.String("canonize.algorithm", algorithm),
		attribute.Int("canonize.quads", quads),
	}

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "canonize.Canonize",
		trace.WithAttributes(attrs...))

	return ctx, func(result *urdna.Result, err error) {
		defer span.End()
		m := meters()
		set := metric.WithAttributes(attrs[0])
		if m.calls != nil {
			m.calls.Add(ctx, 1, set)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			var abort *urdna.AbortError
			if errors.As(err, &abort) {
				span.SetAttributes(attribute.Int("canonize.deep_iterations", abort.Iterations))
				if m.aborts != nil {
					m.aborts.Add(ctx, 1, set)
				}
			}
			return
		}

		span.SetAttributes(
			attribute.Int("canonize.blank_nodes", result.BlankNodes),
			attribute.Int("canonize.deep_iterations", result.DeepIterations),
		)
		span.SetStatus(codes.Ok, "")
		if m.iterations != nil {
			m.iterations.Record(ctx, int64(result.DeepIterations), set)
		}
	}
}
