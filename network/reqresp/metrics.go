package reqresp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/beaconnode/beacon-node/libs/utils"
)

const (
	methodKey = "method"
	resultKey = "result"
	failedKey = "failed"
)

var meter = otel.Meter("reqresp")

type metrics struct {
	requests        metric.Int64Counter     // attributes: method, failed
	requestDuration metric.Float64Histogram // attributes: method
	served          metric.Int64Counter     // attributes: method, result
	remoteErrors    metric.Int64Counter     // attributes: method, result
}

// WithMetrics turns on metric collection in req/resp.
func (r *ReqResp) WithMetrics() error {
	m, err := initMetrics(r)
	if err != nil {
		return fmt.Errorf("reqresp: init metrics: %w", err)
	}
	r.metrics = m
	return nil
}

func initMetrics(r *ReqResp) (*metrics, error) {
	requests, err := meter.Int64Counter("reqresp_outbound_requests_total",
		metric.WithDescription("outbound req/resp requests"))
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram("reqresp_outbound_request_seconds",
		metric.WithDescription("duration of outbound req/resp requests"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	served, err := meter.Int64Counter("reqresp_inbound_requests_total",
		metric.WithDescription("inbound req/resp requests by result"))
	if err != nil {
		return nil, err
	}

	remoteErrors, err := meter.Int64Counter("reqresp_remote_error_responses_total",
		metric.WithDescription("non-success responses received from remote peers"))
	if err != nil {
		return nil, err
	}

	rateLimited, err := meter.Int64ObservableGauge("reqresp_rate_limited_requests",
		metric.WithDescription("inbound requests dropped by the concurrency limit since last observation"))
	if err != nil {
		return nil, err
	}

	callback := func(_ context.Context, observer metric.Observer) error {
		for method, mw := range r.middlewares {
			observer.ObserveInt64(rateLimited, mw.numRateLimited.Swap(0),
				metric.WithAttributes(attribute.String(methodKey, string(method))))
		}
		return nil
	}
	if _, err = meter.RegisterCallback(callback, rateLimited); err != nil {
		return nil, fmt.Errorf("registering metrics callback: %w", err)
	}

	return &metrics{
		requests:        requests,
		requestDuration: requestDuration,
		served:          served,
		remoteErrors:    remoteErrors,
	}, nil
}

func (m *metrics) observeRequest(ctx context.Context, method Method, duration time.Duration, err error) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)

	m.requests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(methodKey, string(method)),
			attribute.Bool(failedKey, err != nil)))
	m.requestDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String(methodKey, string(method))))

	var respErr *ResponseError
	if errors.As(err, &respErr) {
		m.remoteErrors.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String(methodKey, string(method)),
				attribute.Int(resultKey, int(respErr.Code))))
	}
}

func (m *metrics) observeServed(ctx context.Context, method Method, result ResultCode) {
	if m == nil {
		return
	}
	m.served.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(methodKey, string(method)),
			attribute.Int(resultKey, int(result))))
}
