package observability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PutMetricDataAPI is the subset of the CloudWatch client used for flushing
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// cloudWatchBatchLimit is the PutMetricData datum limit per call
const cloudWatchBatchLimit = 1000

// Collector holds the Prometheus metrics of the service and, optionally,
// mirrors counters to CloudWatch on Flush.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	RenderSubscribers prometheus.Gauge

	namespace  string
	cloudwatch PutMetricDataAPI
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[counterKey]float64
}

type counterKey struct {
	metric string
	label  string
}

// NewCollector creates a collector with its own registry. cw may be nil to
// disable CloudWatch mirroring.
func NewCollector(namespace string, cw PutMetricDataAPI, logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Command and query outcomes by metric and operation name",
			},
			[]string{"metric", "operation"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Command and query duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"metric", "operation"},
		),
		RenderSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "render_subscribers",
			Help:      "Open concept graph stream connections",
		}),
		namespace:  namespace,
		cloudwatch: cw,
		logger:     logger,
		pending:    make(map[counterKey]float64),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Operations,
		c.OperationDuration,
		c.RenderSubscribers,
	)
	return c
}

// Registry exposes the registry for the /metrics handler
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Increment bumps the counter metric for label
func (c *Collector) Increment(metric, label string) {
	c.Operations.WithLabelValues(metric, label).Inc()
	c.record(metric, label, 1)
}

// StartTimer starts measuring metric for label; Stop observes the duration
func (c *Collector) StartTimer(metric, label string) Timer {
	return &timer{collector: c, metric: metric, label: label, start: time.Now()}
}

// ObserveDuration records an already measured duration of metric for label
func (c *Collector) ObserveDuration(metric, label string, d time.Duration) {
	c.OperationDuration.WithLabelValues(metric, label).Observe(d.Seconds())
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if status >= 500 {
		c.record("http_5xx", route, 1)
	}
}

// Timer measures one operation
type Timer interface {
	Stop()
}

type timer struct {
	collector *Collector
	metric    string
	label     string
	start     time.Time
}

func (t *timer) Stop() {
	t.collector.ObserveDuration(t.metric, t.label, time.Since(t.start))
}

func (c *Collector) record(metric, label string, value float64) {
	if c.cloudwatch == nil {
		return
	}
	c.mu.Lock()
	c.pending[counterKey{metric, label}] += value
	c.mu.Unlock()
}

// Flush sends counters accumulated since the last flush to CloudWatch
func (c *Collector) Flush(ctx context.Context) error {
	if c.cloudwatch == nil {
		return nil
	}

	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[counterKey]float64)
	c.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	keys := make([]counterKey, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].metric == keys[j].metric {
			return keys[i].label < keys[j].label
		}
		return keys[i].metric < keys[j].metric
	})

	now := time.Now()
	data := make([]types.MetricDatum, 0, len(keys))
	for _, k := range keys {
		data = append(data, types.MetricDatum{
			MetricName: aws.String(k.metric),
			Dimensions: []types.Dimension{{
				Name:  aws.String("Operation"),
				Value: aws.String(k.label),
			}},
			Value:     aws.Float64(pending[k]),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(now),
		})
	}

	for start := 0; start < len(data); start += cloudWatchBatchLimit {
		end := start + cloudWatchBatchLimit
		if end > len(data) {
			end = len(data)
		}
		if _, err := c.cloudwatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: data[start:end],
		}); err != nil {
			return fmt.Errorf("failed to put metric data: %w", err)
		}
	}
	return nil
}

// RunFlusher flushes every interval until ctx is done, then flushes once more
func (c *Collector) RunFlusher(ctx context.Context, interval time.Duration) {
	if c.cloudwatch == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := c.Flush(flushCtx); err != nil {
				c.logger.Warn("Final metrics flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if err := c.Flush(ctx); err != nil {
				c.logger.Warn("Metrics flush failed", zap.Error(err))
			}
		}
	}
}
