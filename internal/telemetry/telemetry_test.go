package telemetry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInstrumenterRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	inst, err := New(Config{ServiceName: "reqdesk-test", Version: "test"}, WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("New instrumenter: %v", err)
	}
	t.Cleanup(func() {
		_ = inst.Shutdown(context.Background())
	})

	req, err := http.NewRequest("GET", "https://example.com/api/health", nil)
	if err != nil {
		t.Fatalf("build http request: %v", err)
	}

	_, span := inst.Start(context.Background(), req)
	span.End(200, 42*time.Millisecond, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name() != "GET example.com" {
		t.Fatalf("span name = %q", got.Name())
	}
	if got.Status().Code != codes.Ok {
		t.Fatalf("status = %v, want Ok", got.Status().Code)
	}

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["http.request.method"].AsString() != "GET" {
		t.Errorf("method attribute = %v", attrs["http.request.method"])
	}
	if attrs["http.response.status_code"].AsInt64() != 200 {
		t.Errorf("status attribute = %v", attrs["http.response.status_code"])
	}
	if attrs["reqdesk.response_time_ms"].AsFloat64() != 42 {
		t.Errorf("response time attribute = %v", attrs["reqdesk.response_time_ms"])
	}
}

func TestInstrumenterMarksFailures(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	inst, err := New(Config{}, WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("New instrumenter: %v", err)
	}
	defer inst.Shutdown(context.Background())

	req, _ := http.NewRequest("POST", "http://localhost:1/x", nil)

	_, span := inst.Start(context.Background(), req)
	span.End(0, time.Millisecond, errors.New("connection refused"))
	_, span = inst.Start(context.Background(), req)
	span.End(503, time.Millisecond, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	for _, s := range spans {
		if s.Status().Code != codes.Error {
			t.Errorf("span %q status = %v, want Error", s.Name(), s.Status().Code)
		}
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the transport error to be recorded as an event")
	}
}

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := inst.(noopInstrumenter); !ok {
		t.Fatalf("expected noop instrumenter, got %T", inst)
	}
	ctx := context.Background()
	gotCtx, span := inst.Start(ctx, nil)
	if gotCtx != ctx {
		t.Fatal("noop Start should return the same context")
	}
	span.End(200, 0, nil)
}

func TestParseHeaders(t *testing.T) {
	headers, err := ParseHeaders("a=1, b=2,empty=")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if headers["a"] != "1" || headers["b"] != "2" || headers["empty"] != "" {
		t.Fatalf("unexpected headers: %#v", headers)
	}

	headers, err = ParseHeaders("   ")
	if err != nil || headers != nil {
		t.Fatalf("expected nil headers, got %#v (%v)", headers, err)
	}

	if _, err := ParseHeaders("novalue"); err == nil {
		t.Fatal("expected error for entry without '='")
	}
}
