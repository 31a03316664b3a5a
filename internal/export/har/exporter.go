// Package har exports request history as HAR 1.2.
package har

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sadopc/reqdesk/internal/core/history"
	"github.com/sadopc/reqdesk/internal/protocol"
	httpclient "github.com/sadopc/reqdesk/internal/protocol/http"
)

// HAR represents the HAR 1.2 format for export.
type HAR struct {
	Log HARLog `json:"log"`
}

// HARLog is the top-level log object.
type HARLog struct {
	Version string     `json:"version"`
	Creator HARCreator `json:"creator"`
	Entries []HAREntry `json:"entries"`
}

// HARCreator identifies the tool that created the HAR.
type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// HAREntry represents a single request/response pair.
type HAREntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         HARRequest  `json:"request"`
	Response        HARResponse `json:"response"`
	Cache           struct{}    `json:"cache"`
	Timings         HARTimings  `json:"timings"`
}

// HARRequest is the request portion of an entry.
type HARRequest struct {
	Method      string       `json:"method"`
	URL         string       `json:"url"`
	HTTPVersion string       `json:"httpVersion"`
	Cookies     []HARPair    `json:"cookies"`
	Headers     []HARPair    `json:"headers"`
	QueryString []HARPair    `json:"queryString"`
	PostData    *HARPostData `json:"postData,omitempty"`
	HeadersSize int          `json:"headersSize"`
	BodySize    int          `json:"bodySize"`
}

// HARResponse is the response portion of an entry. History keeps no
// response headers, so Headers is always empty.
type HARResponse struct {
	Status      int        `json:"status"`
	StatusText  string     `json:"statusText"`
	HTTPVersion string     `json:"httpVersion"`
	Cookies     []HARPair  `json:"cookies"`
	Headers     []HARPair  `json:"headers"`
	Content     HARContent `json:"content"`
	RedirectURL string     `json:"redirectURL"`
	HeadersSize int        `json:"headersSize"`
	BodySize    int        `json:"bodySize"`
}

// HARPair is a name/value pair for headers and query strings.
type HARPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HARPostData is the body of a request.
type HARPostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// HARContent is the body of a response.
type HARContent struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// HARTimings holds timing info for an entry. Only the total is recorded, so
// it is reported as wait time.
type HARTimings struct {
	Send    float64 `json:"send"`
	Wait    float64 `json:"wait"`
	Receive float64 `json:"receive"`
}

// Export encodes entries as an indented HAR 1.2 document.
func Export(entries []history.Entry, creator, version string) ([]byte, error) {
	har := HAR{
		Log: HARLog{
			Version: "1.2",
			Creator: HARCreator{Name: creator, Version: version},
			Entries: make([]HAREntry, 0, len(entries)),
		},
	}
	for _, e := range entries {
		har.Log.Entries = append(har.Log.Entries, buildEntry(e))
	}
	return json.MarshalIndent(har, "", "  ")
}

func buildEntry(e history.Entry) HAREntry {
	return HAREntry{
		StartedDateTime: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		Time:            e.Response.ResponseTimeMs,
		Request:         buildHARRequest(e.Request),
		Response:        buildHARResponse(e.Response),
		Timings:         HARTimings{Wait: e.Response.ResponseTimeMs},
	}
}

func buildHARRequest(req protocol.Request) HARRequest {
	harReq := HARRequest{
		Method:      req.Method.String(),
		URL:         httpclient.BuildURL(req.URL, req.QueryParams),
		HTTPVersion: "HTTP/1.1",
		Cookies:     []HARPair{},
		Headers:     pairs(req.Headers),
		QueryString: pairs(req.QueryParams),
		HeadersSize: -1,
		BodySize:    0,
	}

	if req.Method.HasBody() && req.Body != "" {
		mimeType := "text/plain"
		for _, h := range req.Headers {
			if http.CanonicalHeaderKey(h.Key) == "Content-Type" {
				mimeType = h.Value
			}
		}
		harReq.PostData = &HARPostData{MimeType: mimeType, Text: req.Body}
		harReq.BodySize = len(req.Body)
	}
	return harReq
}

func buildHARResponse(resp protocol.Response) HARResponse {
	return HARResponse{
		Status:      int(resp.Status),
		StatusText:  http.StatusText(int(resp.Status)),
		HTTPVersion: "HTTP/1.1",
		Cookies:     []HARPair{},
		Headers:     []HARPair{},
		HeadersSize: -1,
		BodySize:    len(resp.Body),
		Content: HARContent{
			Size:     len(resp.Body),
			MimeType: "text/plain",
			Text:     resp.Body,
		},
	}
}

func pairs(kvs []protocol.KeyValue) []HARPair {
	out := make([]HARPair, 0, len(kvs))
	for _, kv := range kvs {
		if kv.Key == "" {
			continue
		}
		out = append(out, HARPair{Name: kv.Key, Value: kv.Value})
	}
	return out
}
