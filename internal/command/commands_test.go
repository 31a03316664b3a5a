package command

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sadopc/reqdesk/internal/core/history"
	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/highlight"
	"github.com/sadopc/reqdesk/internal/protocol"
	httpclient "github.com/sadopc/reqdesk/internal/protocol/http"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	store, err := history.NewStore(history.MemoryPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	r := NewRegistry(nil)
	RegisterDefaults(r, Services{
		Dispatcher:  httpclient.New(),
		History:     store,
		Highlighter: highlight.New(highlight.DefaultStyle, highlight.HTML),
	})
	return r
}

func TestRegisterDefaultsNames(t *testing.T) {
	r := newTestRegistry(t)
	want := []string{GetRequests, HighlightCode, SaveRequest, SendRequest}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Fatalf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterDefaultsSkipsMissingServices(t *testing.T) {
	r := NewRegistry(nil)
	RegisterDefaults(r, Services{Highlighter: highlight.New("", highlight.HTML)})
	if diff := cmp.Diff([]string{HighlightCode}, r.Names()); diff != "" {
		t.Fatalf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestSendSaveAndGetRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"echo":` + string(body) + `,"q":"` + r.URL.Query().Get("q") + `"}`))
	}))
	defer server.Close()

	r := newTestRegistry(t)
	ctx := context.Background()

	req := protocol.Request{
		Method:      protocol.MethodPost,
		URL:         server.URL + "/items",
		QueryParams: []protocol.KeyValue{{Key: "q", Value: "x"}},
		Headers:     []protocol.KeyValue{{Key: "Content-Type", Value: "application/json"}},
		Body:        `{"n":1}`,
	}
	args, err := json.Marshal(map[string]any{"args": req})
	if err != nil {
		t.Fatal(err)
	}

	out, err := r.Invoke(ctx, SendRequest, args)
	if err != nil {
		t.Fatalf("send_request failed: %v", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal(out, &resp); err != nil {
		t.Fatalf("decoding response %s: %v", out, err)
	}
	if resp.Status != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.Status)
	}
	if resp.Body != `{"echo":{"n":1},"q":"x"}` {
		t.Fatalf("body = %q", resp.Body)
	}
	if resp.ResponseTimeMs < 0 {
		t.Fatalf("negative response time %v", resp.ResponseTimeMs)
	}

	saveArgs, err := json.Marshal(map[string]any{"args": map[string]any{"req": req, "resp": resp}})
	if err != nil {
		t.Fatal(err)
	}
	out, err = r.Invoke(ctx, SaveRequest, saveArgs)
	if err != nil {
		t.Fatalf("save_request failed: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("save_request result = %s, want null", out)
	}

	out, err = r.Invoke(ctx, GetRequests, nil)
	if err != nil {
		t.Fatalf("get_requests failed: %v", err)
	}
	var entries []history.Entry
	if err := json.Unmarshal(out, &entries); err != nil {
		t.Fatalf("decoding entries %s: %v", out, err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if diff := cmp.Diff(req, entries[0].Request, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(resp, entries[0].Response); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(string(out), `"req":{"method":"POST"`) {
		t.Errorf("unexpected wire shape: %s", out)
	}
}

func TestGetRequestsEmptyIsArray(t *testing.T) {
	r := newTestRegistry(t)

	out, err := r.Invoke(context.Background(), GetRequests, nil)
	if err != nil {
		t.Fatalf("get_requests failed: %v", err)
	}
	if string(out) != "[]" {
		t.Fatalf("get_requests on empty store = %s, want []", out)
	}
}

func TestSendRequestErrors(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args string
		code errdef.Code
	}{
		{"malformed json", `{"args":`, errdef.CodeSerialization},
		{"missing args", ``, errdef.CodeSerialization},
		{"unknown method", `{"args":{"method":"get","url":"http://x"}}`, errdef.CodeSerialization},
		{"invalid header", `{"args":{"method":"GET","url":"http://127.0.0.1:1","headers":[{"key":"Bad Name","value":"v"}]}}`, errdef.CodeInvalidHeader},
		{"unreachable", `{"args":{"method":"GET","url":"http://127.0.0.1:1/"}}`, errdef.CodeNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Invoke(ctx, SendRequest, []byte(tt.args))
			if !errdef.Is(err, tt.code) {
				t.Fatalf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestSaveRequestMalformed(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Invoke(context.Background(), SaveRequest, []byte(`{"args":{"req":{"method":"FETCH"}}}`))
	if !errdef.Is(err, errdef.CodeSerialization) {
		t.Fatalf("error = %v, want serialization error", err)
	}
}

func TestHighlightCode(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	out, err := r.Invoke(ctx, HighlightCode, []byte(`{"code":"{\"a\":1}","lang":"json"}`))
	if err != nil {
		t.Fatalf("highlight_code failed: %v", err)
	}
	var markup string
	if err := json.Unmarshal(out, &markup); err != nil {
		t.Fatalf("result is not a JSON string: %s", out)
	}
	if !strings.Contains(markup, "<span") || !strings.Contains(markup, "1") {
		t.Fatalf("unexpected markup %q", markup)
	}

	_, err = r.Invoke(ctx, HighlightCode, []byte(`{"code":"x","lang":"nope-lang"}`))
	if !errdef.Is(err, errdef.CodeUnknownLanguage) {
		t.Fatalf("error = %v, want unknown language", err)
	}
}
