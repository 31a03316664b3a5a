package protocol

import (
	"context"
)

// Dispatcher executes a request description over the network.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *Request) (*Response, error)
}

// KeyValue is an ordered key/value pair used for headers and query params.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Request is a declarative description of one HTTP exchange.
type Request struct {
	Method      Method     `json:"method"`
	URL         string     `json:"url"`
	QueryParams []KeyValue `json:"query_params"`
	Headers     []KeyValue `json:"headers"`
	Body        string     `json:"body"`
}

// Clone returns a deep copy so callers can hand out detached snapshots.
func (r Request) Clone() Request {
	r.QueryParams = cloneKV(r.QueryParams)
	r.Headers = cloneKV(r.Headers)
	return r
}

// Response is the timed result of a completed exchange.
type Response struct {
	Status         uint16  `json:"status"`
	Body           string  `json:"body"`
	ResponseTimeMs float64 `json:"response_time"`
}

func cloneKV(kvs []KeyValue) []KeyValue {
	if kvs == nil {
		return nil
	}
	out := make([]KeyValue, len(kvs))
	copy(out, kvs)
	return out
}
