package ctxutil

import (
	"context"
	"strings"
)

// Payload keys used to carry trace ids from an HTTP request into a job run.
const (
	TraceIDKey   = "trace_id"
	RequestIDKey = "request_id"
)

type traceKey struct{}

// TraceData correlates log lines, spans and job runs with one request.
type TraceData struct {
	TraceID   string
	RequestID string
}

func (td *TraceData) empty() bool {
	return td == nil || (td.TraceID == "" && td.RequestID == "")
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, _ := ctx.Value(traceKey{}).(*TraceData)
	return td
}

// Stamp copies the ids into m without overwriting keys already present.
func (td *TraceData) Stamp(m map[string]any) {
	if td.empty() || m == nil {
		return
	}
	for k, v := range map[string]string{TraceIDKey: td.TraceID, RequestIDKey: td.RequestID} {
		if _, set := m[k]; v != "" && !set {
			m[k] = v
		}
	}
}

// TraceDataFromPayload reads ids stamped by Stamp. It returns nil when none are set.
func TraceDataFromPayload(m map[string]any) *TraceData {
	str := func(k string) string {
		s, _ := m[k].(string)
		return strings.TrimSpace(s)
	}
	td := &TraceData{TraceID: str(TraceIDKey), RequestID: str(RequestIDKey)}
	if td.empty() {
		return nil
	}
	return td
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
