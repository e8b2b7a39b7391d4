package ctxutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestDataRoundTrip(t *testing.T) {
	ctx := WithRequestData(context.Background(), &RequestData{UserID: 7})
	assert.Equal(t, uint(7), UserID(ctx))
	assert.Equal(t, uint(0), UserID(context.Background()))
	assert.Nil(t, GetRequestData(nil))
}

func TestTraceData(t *testing.T) {
	ctx := WithTraceData(Default(nil), &TraceData{TraceID: "t", RequestID: "r"})
	td := GetTraceData(ctx)
	if assert.NotNil(t, td) {
		assert.Equal(t, "r", td.RequestID)
	}
}

func TestTraceDataStamp(t *testing.T) {
	payload := map[string]any{"request_id": "caller-set"}
	(&TraceData{TraceID: "abc", RequestID: "r9"}).Stamp(payload)
	assert.Equal(t, "abc", payload[TraceIDKey])
	assert.Equal(t, "caller-set", payload[RequestIDKey])

	empty := map[string]any{}
	var nilTD *TraceData
	nilTD.Stamp(empty)
	assert.Empty(t, empty)
}

func TestTraceDataFromPayload(t *testing.T) {
	assert.Nil(t, TraceDataFromPayload(map[string]any{"trace_id": "  "}))
	assert.Nil(t, TraceDataFromPayload(nil))

	td := TraceDataFromPayload(map[string]any{"trace_id": " t1 ", "request_id": 42})
	if assert.NotNil(t, td) {
		assert.Equal(t, "t1", td.TraceID)
		assert.Empty(t, td.RequestID)
	}
}
