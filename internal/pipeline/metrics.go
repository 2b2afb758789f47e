package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zhe.chen/storyweaver/pkg/types"
)

// Outcome labels for the runs counter.
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeCanceled  = "canceled"
)

type pipelineMetrics struct {
	runs          metric.Int64Counter
	stageDuration metric.Float64Histogram
	degraded      metric.Int64Counter
}

func newPipelineMetrics(meter metric.Meter) (*pipelineMetrics, error) {
	runs, err := meter.Int64Counter("storyweaver.pipeline.runs",
		metric.WithDescription("Pipeline runs by final outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("storyweaver.pipeline.stage.duration",
		metric.WithDescription("Wall time spent in each pipeline stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage duration histogram: %w", err)
	}

	degraded, err := meter.Int64Counter("storyweaver.pipeline.degraded",
		metric.WithDescription("Stages that completed on fallback output"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create degraded counter: %w", err)
	}

	return &pipelineMetrics{runs: runs, stageDuration: stageDuration, degraded: degraded}, nil
}

func (m *pipelineMetrics) recordStage(ctx context.Context, stage types.PipelineStage, d time.Duration, degraded bool) {
	attrs := metric.WithAttributes(attribute.String("stage", string(stage)))
	m.stageDuration.Record(ctx, d.Seconds(), attrs)
	if degraded {
		m.degraded.Add(ctx, 1, attrs)
	}
}

func (m *pipelineMetrics) recordRun(ctx context.Context, outcome string) {
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
