package node

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("node")

// WithMetrics registers node metrics: the start timestamp, the time the node has been running and
// the build it runs.
func WithMetrics() error {
	started := time.Now()

	nodeStartTS, err := meter.Int64ObservableGauge(
		"node_start_ts",
		metric.WithDescription("timestamp when the node was started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	totalNodeRunTime, err := meter.Float64ObservableCounter(
		"node_runtime_counter_in_seconds",
		metric.WithDescription("total time the node has been running"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	buildInfo, err := meter.Int64ObservableGauge(
		"node_build_info",
		metric.WithDescription("always 1, labeled with the version of the running binary"),
	)
	if err != nil {
		return err
	}

	info := GetBuildInfo()
	buildAttrs := metric.WithAttributes(
		attribute.String("version", info.GetSemanticVersion()),
		attribute.String("commit", info.CommitShortSha()),
		attribute.String("go", info.GolangVersion),
	)

	callback := func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(nodeStartTS, started.Unix())
		observer.ObserveFloat64(totalNodeRunTime, time.Since(started).Seconds())
		observer.ObserveInt64(buildInfo, 1, buildAttrs)
		return nil
	}

	_, err = meter.RegisterCallback(callback, nodeStartTS, totalNodeRunTime, buildInfo)
	return err
}
