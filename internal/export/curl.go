package export

import (
	"strings"

	"github.com/sadopc/reqdesk/internal/protocol"
	httpclient "github.com/sadopc/reqdesk/internal/protocol/http"
)

// AsCurl renders req as a single-line curl command that sends the same
// request the dispatcher would.
func AsCurl(req protocol.Request) string {
	parts := []string{"curl"}

	if req.Method != protocol.MethodGet {
		parts = append(parts, "-X", req.Method.String())
	}

	for _, h := range req.Headers {
		if h.Key == "" {
			continue
		}
		parts = append(parts, "-H", shellQuote(h.Key+": "+h.Value))
	}

	if req.Method.HasBody() && req.Body != "" {
		parts = append(parts, "--data-raw", shellQuote(req.Body))
	}

	parts = append(parts, shellQuote(httpclient.BuildURL(req.URL, req.QueryParams)))
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
