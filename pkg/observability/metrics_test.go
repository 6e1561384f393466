package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCollector_PrometheusCounters(t *testing.T) {
	c := NewCollector("jarvis", nil, zap.NewNop())

	c.Increment("query_count", "GetSessionQuery")
	c.Increment("query_count", "GetSessionQuery")
	c.ObserveHTTP("GET", "/api/v2/sessions/{id}", 200, 10*time.Millisecond)
	c.StartTimer("query_duration", "GetSessionQuery").Stop()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Operations.WithLabelValues("query_count", "GetSessionQuery")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/v2/sessions/{id}", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.OperationDuration))
}

func TestCollector_FlushSendsDeltas(t *testing.T) {
	cw := &fakeCloudWatch{}
	c := NewCollector("jarvis", cw, zap.NewNop())

	c.Increment("command_success", "SendMessageCommand")
	c.Increment("command_success", "SendMessageCommand")
	c.Increment("command_errors", "SendMessageCommand")

	require.NoError(t, c.Flush(context.Background()))
	require.Len(t, cw.inputs, 1)
	data := cw.inputs[0].MetricData
	require.Len(t, data, 2)
	assert.Equal(t, "command_errors", aws.ToString(data[0].MetricName))
	assert.Equal(t, 1.0, aws.ToFloat64(data[0].Value))
	assert.Equal(t, "command_success", aws.ToString(data[1].MetricName))
	assert.Equal(t, 2.0, aws.ToFloat64(data[1].Value))
	assert.Equal(t, "jarvis", aws.ToString(cw.inputs[0].Namespace))

	require.NoError(t, c.Flush(context.Background()))
	assert.Len(t, cw.inputs, 1, "nothing pending after a flush")
}

func TestCollector_FlushError(t *testing.T) {
	cw := &fakeCloudWatch{err: errors.New("denied")}
	c := NewCollector("jarvis", cw, zap.NewNop())
	c.Increment("query_count", "LoginQuery")

	assert.ErrorContains(t, c.Flush(context.Background()), "denied")
}

func TestCollector_WithoutCloudWatch(t *testing.T) {
	c := NewCollector("jarvis", nil, zap.NewNop())
	c.Increment("query_count", "LoginQuery")

	assert.NoError(t, c.Flush(context.Background()))
}

func TestTracer_DisabledIsNoop(t *testing.T) {
	tracer := NewTracer("jarvis", false)
	ctx := context.Background()

	traced, finish := tracer.Trace(ctx, "command.SendMessageCommand")
	finish(errors.New("ignored"))
	tracer.Annotate(traced, "sessionID", "s1")

	assert.Equal(t, ctx, traced)
}
