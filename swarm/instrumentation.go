package swarm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/swarmflow/swarm"

// instruments 协调器的追踪与指标
type instruments struct {
	tracer trace.Tracer

	assignments  metric.Int64Counter
	taskDuration metric.Float64Histogram
	rejections   metric.Int64Counter
	channels     metric.Int64Counter
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*instruments, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	ins := &instruments{tracer: tp.Tracer(instrumentationName)}

	var err error
	ins.assignments, err = meter.Int64Counter("swarm.task.assignments",
		metric.WithDescription("Tasks assigned to agents"),
		metric.WithUnit("{task}"))
	if err != nil {
		return nil, err
	}

	ins.taskDuration, err = meter.Float64Histogram("swarm.task.duration",
		metric.WithDescription("Time from assignment to completion or failure"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	ins.rejections, err = meter.Int64Counter("swarm.task.rejections",
		metric.WithDescription("Assignments refused because no agent was suitable"),
		metric.WithUnit("{task}"))
	if err != nil {
		return nil, err
	}

	ins.channels, err = meter.Int64Counter("swarm.fabric.registrations",
		metric.WithDescription("Agent mailboxes created in the communication fabric"),
		metric.WithUnit("{agent}"))
	if err != nil {
		return nil, err
	}

	return ins, nil
}

func (i *instruments) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return i.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// finish ends span, recording err when non-nil.
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
