package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/protocol"
)

// stepClock returns a clock that advances by step on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(stepClock(epoch, time.Minute))}, opts...)
	store, err := NewStore(MemoryPath, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sample(method protocol.Method, url string, status uint16) Entry {
	return Entry{
		Request:  protocol.Request{Method: method, URL: url},
		Response: protocol.Response{Status: status, Body: "ok", ResponseTimeMs: 12.5},
	}
}

func TestStore_EmptyListAll(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", entries)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := Entry{
		Request: protocol.Request{
			Method: protocol.MethodPost,
			URL:    "https://api.example.com/users",
			QueryParams: []protocol.KeyValue{
				{Key: "page", Value: "1"},
				{Key: "page", Value: "2"},
			},
			Headers: []protocol.KeyValue{
				{Key: "Content-Type", Value: "application/json"},
				{Key: "X-Quote", Value: `say "hi"`},
			},
			Body: `{"name":"test"}`,
		},
		Response: protocol.Response{Status: 201, Body: `{"id":1}`, ResponseTimeMs: 87.25},
	}

	id, err := store.Append(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Error("expected non-zero ID")
	}

	entries, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	want := in
	want.ID = id
	want.CreatedAt = epoch
	if diff := cmp.Diff(want, entries[0]); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_EmptyCollectionsAndBody(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := sample(protocol.MethodGet, "http://localhost:8080/", 204)
	in.Response.Body = ""
	if _, err := store.Append(ctx, in); err != nil {
		t.Fatal(err)
	}

	entries, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := entries[0]
	if got.Request.QueryParams == nil || got.Request.Headers == nil {
		t.Fatal("expected empty collections to decode as empty slices")
	}
	want := in
	want.ID = got.ID
	want.CreatedAt = epoch
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ListAllOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := store.Append(ctx, sample(protocol.MethodGet, fmt.Sprintf("https://example.com/%d", i), 200))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	entries, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range entries {
		if e.ID != ids[i] {
			t.Errorf("entry %d: id = %d, want %d", i, e.ID, ids[i])
		}
		if want := epoch.Add(time.Duration(i) * time.Minute); !e.CreatedAt.Equal(want) {
			t.Errorf("entry %d: created_at = %v, want %v", i, e.CreatedAt, want)
		}
	}
}

func TestStore_AppendIsAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := sample(protocol.MethodGet, "https://example.com", 200)
	e.ID = 42
	e.CreatedAt = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		if _, err := store.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected identical appends to yield 2 entries, got %d", len(entries))
	}
	if entries[0].ID == 42 || entries[0].CreatedAt.Year() == 1999 {
		t.Error("caller-supplied id and created_at must be ignored")
	}
}

func TestStore_AppendInvalidMethod(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Append(context.Background(), sample(protocol.Method(0), "https://example.com", 200))
	if !errdef.Is(err, errdef.CodeSerialization) {
		t.Fatalf("error = %v, want serialization error", err)
	}
}

func TestStore_MalformedCollectionsDecodeEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.Exec(`INSERT INTO history (method, url, query_params, headers, body, status, response_body, response_time_ms, created_at)
		VALUES ('GET', 'https://legacy.example.com', 'not json', '{"k":"v"}', NULL, 200, NULL, 1.5, ?)`,
		epoch.Format(time.RFC3339Nano))
	if err != nil {
		t.Fatal(err)
	}

	entries, err := store.ListAll(ctx)
	if err != nil {
		t.Fatalf("malformed collections must not fail the read: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if len(e.Request.QueryParams) != 0 || len(e.Request.Headers) != 0 {
		t.Errorf("expected empty collections, got %v / %v", e.Request.QueryParams, e.Request.Headers)
	}
	if e.Request.Body != "" || e.Response.Body != "" {
		t.Errorf("expected NULL bodies to read as empty strings")
	}
}

func TestStore_UnknownStoredMethod(t *testing.T) {
	store := newTestStore(t)

	_, err := store.db.Exec(`INSERT INTO history (method, url, created_at) VALUES ('BREW', 'coffee://pot', ?)`,
		epoch.Format(time.RFC3339Nano))
	if err != nil {
		t.Fatal(err)
	}

	_, err = store.ListAll(context.Background())
	if !errdef.Is(err, errdef.CodeSerialization) {
		t.Fatalf("error = %v, want serialization error", err)
	}
}

func TestStore_RecentSearchCountGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, _ := store.Append(ctx, sample(protocol.MethodGet, "https://api.example.com/users", 200))
	id2, _ := store.Append(ctx, sample(protocol.MethodPost, "https://api.example.com/users", 201))
	store.Append(ctx, sample(protocol.MethodGet, "https://other.com/100%_done", 200))

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[1].ID != id2 {
		t.Errorf("expected most recent first, got %+v", recent)
	}

	results, err := store.Search(ctx, "example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 search results, got %d", len(results))
	}

	results, err = store.Search(ctx, "%_")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("expected LIKE wildcards to be matched literally, got %d results", len(results))
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}

	e, err := store.Get(ctx, id1)
	if err != nil {
		t.Fatal(err)
	}
	if e.Request.Method != protocol.MethodGet || e.Response.Status != 200 {
		t.Errorf("unexpected entry %+v", e)
	}

	_, err = store.Get(ctx, 9999)
	if !errors.Is(err, ErrNotFound) || !errdef.Is(err, errdef.CodeStore) {
		t.Fatalf("error = %v, want not found store error", err)
	}
}

func TestStore_ListFiltered(t *testing.T) {
	store := newTestStore(t, WithClock(stepClock(epoch, time.Hour)))
	ctx := context.Background()

	store.Append(ctx, sample(protocol.MethodGet, "https://api.example.com/users", 200))
	store.Append(ctx, sample(protocol.MethodPost, "https://api.example.com/users", 201))
	store.Append(ctx, sample(protocol.MethodGet, "https://other.com/data", 404))
	store.Append(ctx, sample(protocol.MethodDelete, "https://api.example.com/users/1", 500))

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"method", Filter{Method: protocol.MethodGet}, 2},
		{"status code", Filter{StatusCode: 404}, 1},
		{"status range", Filter{StatusMin: 200, StatusMax: 299}, 2},
		{"url pattern", Filter{URLPattern: "example.com"}, 3},
		{"since", Filter{Since: epoch.Add(90 * time.Minute)}, 2},
		{"limit", Filter{Limit: 1}, 1},
		{"none", Filter{}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.ListFiltered(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != tt.want {
				t.Errorf("got %d entries, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestStore_ConcurrentAppends(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				url := fmt.Sprintf("https://example.com/%d/%d", w, i)
				if _, err := store.Append(ctx, sample(protocol.MethodGet, url, 200)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	// Reads may run while writes are in flight.
	for i := 0; i < 5; i++ {
		if _, err := store.ListAll(ctx); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	entries, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != workers*perWorker {
		t.Fatalf("expected %d entries, got %d", workers*perWorker, len(entries))
	}
	seen := make(map[int64]bool)
	for _, e := range entries {
		if seen[e.ID] {
			t.Fatalf("duplicate id %d", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestStore_FilePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Append(ctx, sample(protocol.MethodPut, "https://example.com/item", 200)); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	entries, err := store.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Request.Method != protocol.MethodPut {
		t.Fatalf("expected persisted PUT entry, got %+v", entries)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Append(ctx, sample(protocol.MethodGet, "https://example.com", 200))
	if !errdef.Is(err, errdef.CodeStore) {
		t.Fatalf("error = %v, want store error", err)
	}
}

func TestDecodeKV(t *testing.T) {
	tests := []struct {
		raw     string
		want    []protocol.KeyValue
		wantErr bool
	}{
		{"", []protocol.KeyValue{}, false},
		{"null", []protocol.KeyValue{}, false},
		{"[]", []protocol.KeyValue{}, false},
		{`[{"key":"a","value":"1"}]`, []protocol.KeyValue{{Key: "a", Value: "1"}}, false},
		{"garbage", []protocol.KeyValue{}, true},
	}
	for _, tt := range tests {
		got, err := decodeKV(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("decodeKV(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got == nil {
			t.Errorf("decodeKV(%q) returned nil", tt.raw)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("decodeKV(%q) (-want +got):\n%s", tt.raw, diff)
		}
	}
}

func TestFind(t *testing.T) {
	entries := []Entry{
		sample(protocol.MethodGet, "https://api.example.com/users", 200),
		sample(protocol.MethodPost, "https://api.example.com/orders", 201),
		sample(protocol.MethodDelete, "https://api.example.com/users/1", 204),
	}

	got := Find(entries, "orders")
	if len(got) != 1 || got[0].Request.URL != "https://api.example.com/orders" {
		t.Fatalf("Find(orders) = %+v", got)
	}

	got = Find(entries, "DELETE users")
	if len(got) == 0 || got[0].Request.Method != protocol.MethodDelete {
		t.Fatalf("Find(DELETE users) = %+v", got)
	}

	if got := Find(entries, ""); len(got) != len(entries) {
		t.Fatalf("empty pattern should return all entries, got %d", len(got))
	}
	if got := Find(entries, "zzzz"); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}
