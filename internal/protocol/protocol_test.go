package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sadopc/reqdesk/internal/errdef"
)

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(m.String())
		if err != nil {
			t.Fatalf("ParseMethod(%q) returned error: %v", m, err)
		}
		if got != m {
			t.Fatalf("ParseMethod(%q) = %v, want %v", m, got, m)
		}
	}

	for _, bad := range []string{"", "get", "FETCH", "INVALID"} {
		_, err := ParseMethod(bad)
		if !errdef.Is(err, errdef.CodeSerialization) {
			t.Fatalf("ParseMethod(%q) error = %v, want serialization error", bad, err)
		}
	}
}

func TestMethodsCoversClosedSet(t *testing.T) {
	var names []string
	for _, m := range Methods() {
		names = append(names, m.String())
	}
	want := "GET POST PUT DELETE PATCH HEAD OPTIONS TRACE CONNECT"
	if got := strings.Join(names, " "); got != want {
		t.Fatalf("Methods() = %s, want %s", got, want)
	}
}

func TestMethodHasBody(t *testing.T) {
	withBody := map[Method]bool{MethodPost: true, MethodPut: true, MethodPatch: true}
	for _, m := range Methods() {
		if m.HasBody() != withBody[m] {
			t.Errorf("%s.HasBody() = %v, want %v", m, m.HasBody(), withBody[m])
		}
	}
	if Method(0).HasBody() {
		t.Error("zero method should not carry a body")
	}
}

func TestRequestJSON(t *testing.T) {
	raw := `{"method":"PATCH","url":"https://example.com","query_params":[{"key":"q","value":"1"}],"headers":[{"key":"Accept","value":"*/*"}],"body":"x"}`

	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if req.Method != MethodPatch {
		t.Fatalf("Method = %v, want PATCH", req.Method)
	}
	if len(req.QueryParams) != 1 || req.QueryParams[0] != (KeyValue{Key: "q", Value: "1"}) {
		t.Fatalf("QueryParams = %#v", req.QueryParams)
	}

	out, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != raw {
		t.Fatalf("Marshal = %s\nwant %s", out, raw)
	}
}

func TestRequestJSONRejectsUnknownMethod(t *testing.T) {
	var req Request
	err := json.Unmarshal([]byte(`{"method":"FETCH","url":"https://example.com"}`), &req)
	if err == nil {
		t.Fatal("expected unknown method to fail decoding")
	}
	if !strings.Contains(err.Error(), `unknown HTTP method "FETCH"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarshalInvalidMethod(t *testing.T) {
	if _, err := json.Marshal(Request{URL: "https://example.com"}); err == nil {
		t.Fatal("expected zero method to fail encoding")
	}
}

func TestRequestCloneIsDetached(t *testing.T) {
	orig := Request{
		Method:  MethodGet,
		URL:     "https://example.com",
		Headers: []KeyValue{{Key: "A", Value: "1"}},
	}
	clone := orig.Clone()
	clone.Headers[0].Value = "changed"

	if orig.Headers[0].Value != "1" {
		t.Fatal("mutating the clone changed the original")
	}
	if clone.QueryParams != nil {
		t.Fatal("nil slices should stay nil")
	}
}
