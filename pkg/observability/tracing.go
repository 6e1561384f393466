package observability

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer wraps X-Ray segments. A disabled tracer is a no-op, so callers never
// need to check whether tracing is configured.
type Tracer struct {
	serviceName string
	enabled     bool
}

// NewTracer creates a new tracer instance
func NewTracer(serviceName string, enabled bool) *Tracer {
	return &Tracer{
		serviceName: serviceName,
		enabled:     enabled,
	}
}

// Trace opens a subsegment under the current segment, or a new segment when
// there is none. finish records err and closes it.
func (t *Tracer) Trace(ctx context.Context, name string) (context.Context, func(error)) {
	if !t.enabled {
		return ctx, func(error) {}
	}

	var seg *xray.Segment
	if xray.GetSegment(ctx) == nil {
		ctx, seg = xray.BeginSegment(ctx, fmt.Sprintf("%s.%s", t.serviceName, name))
	} else {
		ctx, seg = xray.BeginSubsegment(ctx, name)
	}

	return ctx, func(err error) {
		if err != nil {
			seg.AddError(err)
		}
		seg.Close(err)
	}
}

// Annotate adds an indexed annotation to the current segment
func (t *Tracer) Annotate(ctx context.Context, key, value string) {
	if !t.enabled {
		return
	}
	if seg := xray.GetSegment(ctx); seg != nil {
		seg.AddAnnotation(key, value)
	}
}
