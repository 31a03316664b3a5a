package history

import (
	"context"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/sadopc/reqdesk/internal/protocol"
)

// Filter narrows ListFiltered. Zero fields are ignored.
type Filter struct {
	Method     protocol.Method
	URLPattern string
	StatusCode uint16
	StatusMin  uint16
	StatusMax  uint16
	Since      time.Time
	Limit      int
}

// ListFiltered returns entries matching every set field of f, most recent
// first.
func (s *Store) ListFiltered(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Method.Valid() {
		where = append(where, "method = ?")
		args = append(args, f.Method.String())
	}
	if f.URLPattern != "" {
		where = append(where, `url LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.URLPattern)+"%")
	}
	if f.StatusCode != 0 {
		where = append(where, "status = ?")
		args = append(args, int64(f.StatusCode))
	}
	if f.StatusMin != 0 {
		where = append(where, "status >= ?")
		args = append(args, int64(f.StatusMin))
	}
	if f.StatusMax != 0 {
		where = append(where, "status <= ?")
		args = append(args, int64(f.StatusMax))
	}
	if !f.Since.IsZero() {
		// RFC3339Nano in UTC sorts lexically in time order except for
		// trimmed fractional zeros, so compare on a fixed-width prefix.
		where = append(where, "substr(created_at, 1, 19) >= ?")
		args = append(args, f.Since.UTC().Format("2006-01-02T15:04:05"))
	}

	q := selectColumns
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return s.query(ctx, "filtering history", q, args...)
}

type entrySource []Entry

func (e entrySource) String(i int) string {
	return e[i].Request.Method.String() + " " + e[i].Request.URL
}

func (e entrySource) Len() int { return len(e) }

// Find fuzzy-matches pattern against "METHOD URL" of each entry and returns
// the matches, best first. An empty pattern returns entries unchanged.
func Find(entries []Entry, pattern string) []Entry {
	if strings.TrimSpace(pattern) == "" {
		return entries
	}
	matches := fuzzy.FindFrom(pattern, entrySource(entries))
	out := make([]Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, entries[m.Index])
	}
	return out
}
