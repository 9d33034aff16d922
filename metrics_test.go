package onceflight

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCollector() (*MetricsCollector, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	return NewMetricsCollectorWithRegistry(registry), registry
}

func TestNilCollectorIsSafe(t *testing.T) {
	var mc *MetricsCollector

	mc.RecordRequest("k", "success", time.Second)
	mc.RecordRequestStart("k")
	mc.RecordRequestEnd("k")
	mc.RecordRetry("k", 1)
	mc.RecordBreakerState("k", StateOpen)
	mc.RecordBreakerTrip("k")
	mc.RecordBreakerRejection("k")
	mc.RecordDedupHit("k")
	mc.RecordError("timeout", "k")
}

func TestRecordRequestCounts(t *testing.T) {
	mc, _ := newTestCollector()

	mc.RecordRequest("k", "success", 100*time.Millisecond)
	mc.RecordRequest("k", "success", 200*time.Millisecond)
	mc.RecordRequest("k", "error", 50*time.Millisecond)

	if got := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("k", "success")); got != 2 {
		t.Errorf("success count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("k", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestInFlightGauge(t *testing.T) {
	mc, _ := newTestCollector()

	mc.RecordRequestStart("k")
	mc.RecordRequestStart("k")
	if got := testutil.ToFloat64(mc.requestsInFlight.WithLabelValues("k")); got != 2 {
		t.Errorf("in-flight = %v, want 2", got)
	}

	mc.RecordRequestEnd("k")
	if got := testutil.ToFloat64(mc.requestsInFlight.WithLabelValues("k")); got != 1 {
		t.Errorf("in-flight = %v, want 1", got)
	}
}

func TestBreakerStateGauge(t *testing.T) {
	mc, _ := newTestCollector()

	mc.RecordBreakerState("k", StateHalfOpen)
	if got := testutil.ToFloat64(mc.breakerState.WithLabelValues("k")); got != 2 {
		t.Errorf("state gauge = %v, want 2 (half-open)", got)
	}

	mc.RecordBreakerState("k", StateClosed)
	if got := testutil.ToFloat64(mc.breakerState.WithLabelValues("k")); got != 0 {
		t.Errorf("state gauge = %v, want 0 (closed)", got)
	}
}

func TestExecutorEmitsMetrics(t *testing.T) {
	mc, _ := newTestCollector()
	e := New(
		WithMetricsCollector(mc),
		WithJitterSource(func() float64 { return 0 }),
	)

	e.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
		return "ok", nil
	})

	if got := testutil.ToFloat64(mc.requestsTotal.WithLabelValues("k", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.requestsInFlight.WithLabelValues("k")); got != 0 {
		t.Errorf("in-flight after settle = %v, want 0", got)
	}
}

func TestExecutorEmitsRetryAndTripMetrics(t *testing.T) {
	mc, _ := newTestCollector()
	e := New(
		WithMetricsCollector(mc),
		WithJitterSource(func() float64 { return 0 }),
	)

	e.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	},
		WithRetries(2),
		WithRetryDelay(time.Millisecond),
		WithBreakerThreshold(2),
	)

	if got := testutil.ToFloat64(mc.retriesTotal.WithLabelValues("k", "1")); got != 1 {
		t.Errorf("retry count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mc.breakerTrips.WithLabelValues("k")); got != 1 {
		t.Errorf("trip count = %v, want 1", got)
	}

	// The open breaker now rejects a call up front.
	e.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
		return nil, nil
	}, WithBreakerResetTime(time.Minute))

	if got := testutil.ToFloat64(mc.breakerRejections.WithLabelValues("k")); got != 1 {
		t.Errorf("rejection count = %v, want 1", got)
	}
}

func TestExecutorEmitsDedupMetric(t *testing.T) {
	mc, _ := newTestCollector()
	e := New(WithMetricsCollector(mc))

	release := make(chan struct{})
	go e.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})

	// Wait for the owner to claim the key.
	for i := 0; i < 100 && e.Stats().InFlight == 0; i++ {
		time.Sleep(time.Millisecond)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Do(context.Background(), "k", func(ctx context.Context) (any, error) {
			return nil, nil
		})
	}()

	for i := 0; i < 100; i++ {
		if testutil.ToFloat64(mc.dedupHits.WithLabelValues("k")) == 1 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
	<-done

	if got := testutil.ToFloat64(mc.dedupHits.WithLabelValues("k")); got != 1 {
		t.Errorf("dedup hits = %v, want 1", got)
	}
}

func TestCollectorRegistersAllMetrics(t *testing.T) {
	mc, registry := newTestCollector()

	mc.RecordRequest("k", "success", time.Second)
	mc.RecordRetry("k", 1)
	mc.RecordBreakerState("k", StateOpen)
	mc.RecordDedupHit("k")
	mc.RecordError("timeout", "k")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) < 5 {
		t.Errorf("Gathered %d metric families, want at least 5", len(families))
	}
}
