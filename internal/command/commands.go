package command

import (
	"context"
	"encoding/json"

	"github.com/sadopc/reqdesk/internal/core/history"
	"github.com/sadopc/reqdesk/internal/protocol"
)

// Command names understood by front ends.
const (
	SendRequest   = "send_request"
	SaveRequest   = "save_request"
	GetRequests   = "get_requests"
	HighlightCode = "highlight_code"
)

// HistoryStore is the part of history.Store the commands need.
type HistoryStore interface {
	Append(ctx context.Context, e history.Entry) (int64, error)
	ListAll(ctx context.Context) ([]history.Entry, error)
}

// Renderer highlights code.
type Renderer interface {
	Render(code, language string) (string, error)
}

// Services are the components the default commands run against.
type Services struct {
	Dispatcher  protocol.Dispatcher
	History     HistoryStore
	Highlighter Renderer
}

type sendArgs struct {
	Args protocol.Request `json:"args"`
}

type saveArgs struct {
	Args struct {
		Req  protocol.Request  `json:"req"`
		Resp protocol.Response `json:"resp"`
	} `json:"args"`
}

type highlightArgs struct {
	Code string `json:"code"`
	Lang string `json:"lang"`
}

// RegisterDefaults installs send_request, save_request, get_requests and
// highlight_code for every non-nil service in s.
func RegisterDefaults(r *Registry, s Services) {
	if s.Dispatcher != nil {
		r.Register(SendRequest, func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args sendArgs
			if err := decodeArgs(SendRequest, raw, &args); err != nil {
				return nil, err
			}
			return s.Dispatcher.Dispatch(ctx, &args.Args)
		})
	}

	if s.History != nil {
		r.Register(SaveRequest, func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args saveArgs
			if err := decodeArgs(SaveRequest, raw, &args); err != nil {
				return nil, err
			}
			_, err := s.History.Append(ctx, history.Entry{Request: args.Args.Req, Response: args.Args.Resp})
			return nil, err
		})

		r.Register(GetRequests, func(ctx context.Context, _ json.RawMessage) (any, error) {
			return s.History.ListAll(ctx)
		})
	}

	if s.Highlighter != nil {
		r.Register(HighlightCode, func(_ context.Context, raw json.RawMessage) (any, error) {
			var args highlightArgs
			if err := decodeArgs(HighlightCode, raw, &args); err != nil {
				return nil, err
			}
			return s.Highlighter.Render(args.Code, args.Lang)
		})
	}
}
