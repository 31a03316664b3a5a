// Package runner replays stored history entries headlessly.
package runner

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sadopc/reqdesk/internal/core/history"
	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/logging"
	"github.com/sadopc/reqdesk/internal/protocol"
)

// DefaultConcurrency bounds in-flight requests when Config leaves it unset.
const DefaultConcurrency = 4

// Saver records replayed exchanges.
type Saver interface {
	Append(ctx context.Context, e history.Entry) (int64, error)
}

// Runner dispatches history entries again and collects the outcomes.
type Runner struct {
	dispatcher  protocol.Dispatcher
	saver       Saver
	concurrency int
	logger      *slog.Logger
}

// Config holds runner configuration.
type Config struct {
	Concurrency int
	// Save appends every successful replay to this store when set.
	Save   Saver
	Logger *slog.Logger
}

// Result holds the outcome of replaying one entry.
type Result struct {
	SourceID       int64   `json:"source_id"`
	Method         string  `json:"method"`
	URL            string  `json:"url"`
	Status         uint16  `json:"status"`
	ResponseTimeMs float64 `json:"response_time"`
	Size           int     `json:"size"`
	SavedID        int64   `json:"saved_id,omitempty"`
	Error          error   `json:"-"`
	ErrorString    string  `json:"error,omitempty"`
	ErrorCode      string  `json:"error_code,omitempty"`
	Body           string  `json:"body,omitempty"`

	// Recorded values from the source entry.
	PreviousStatus         uint16  `json:"previous_status"`
	PreviousResponseTimeMs float64 `json:"previous_response_time"`
}

// StatusChanged reports whether the replay got a different status code.
func (r Result) StatusChanged() bool {
	return r.Error == nil && r.Status != r.PreviousStatus
}

// New creates a runner around d.
func New(d protocol.Dispatcher, cfg Config) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return &Runner{
		dispatcher:  d,
		saver:       cfg.Save,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}
}

// Run replays entries with bounded concurrency. Results keep the order of
// entries. A failed request is reported in its Result, not as an error;
// Run only fails when ctx is done before every entry was attempted.
func (r *Runner) Run(ctx context.Context, entries []history.Entry) ([]Result, error) {
	results := make([]Result, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = r.replay(gctx, entries[i])
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return results, errdef.Wrap(errdef.CodeNetwork, err, "replay interrupted")
	}
	return results, nil
}

func (r *Runner) replay(ctx context.Context, e history.Entry) Result {
	req := e.Request.Clone()
	res := Result{
		SourceID:               e.ID,
		Method:                 req.Method.String(),
		URL:                    req.URL,
		PreviousStatus:         e.Response.Status,
		PreviousResponseTimeMs: e.Response.ResponseTimeMs,
	}

	start := time.Now()
	resp, err := r.dispatcher.Dispatch(ctx, &req)
	if err != nil {
		res.Error = err
		res.ErrorString = err.Error()
		res.ErrorCode = string(errdef.CodeOf(err))
		res.ResponseTimeMs = float64(time.Since(start).Microseconds()) / 1000
		r.logger.Warn("replay failed", "source_id", e.ID, "error", err)
		return res
	}

	res.Status = resp.Status
	res.ResponseTimeMs = resp.ResponseTimeMs
	res.Size = len(resp.Body)
	res.Body = resp.Body

	if r.saver != nil {
		id, err := r.saver.Append(ctx, history.Entry{Request: req, Response: *resp})
		if err != nil {
			r.logger.Error("saving replay", "source_id", e.ID, "error", err)
		} else {
			res.SavedID = id
		}
	}
	return res
}
