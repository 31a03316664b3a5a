package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"

	"github.com/sadopc/reqdesk/internal/core/history"
	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/highlight"
	"github.com/sadopc/reqdesk/internal/import/curl"
	"github.com/sadopc/reqdesk/internal/protocol"
	"github.com/sadopc/reqdesk/internal/runner"
)

const sendUsage = `Usage: reqdesk send [flags] [METHOD] <url>

Send one HTTP request and print the response. METHOD defaults to GET.

Examples:
  reqdesk send https://httpbin.org/get -q page=2
  reqdesk send POST https://httpbin.org/post -H 'Content-Type: application/json' -d '{"a":1}' -save
  reqdesk send PUT https://example.com/upload -d @payload.json
  reqdesk send -curl "curl -X DELETE https://example.com/items/3"
`

// kvList collects repeated flag values.
type kvList struct {
	sep  string
	trim bool
	kvs  []protocol.KeyValue
}

func (l *kvList) String() string {
	parts := make([]string, 0, len(l.kvs))
	for _, kv := range l.kvs {
		parts = append(parts, kv.Key+l.sep+kv.Value)
	}
	return strings.Join(parts, ", ")
}

func (l *kvList) Set(s string) error {
	key, value, ok := strings.Cut(s, l.sep)
	if !ok {
		return fmt.Errorf("expected %q in %q", strings.TrimSpace(l.sep), s)
	}
	if l.trim {
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	}
	l.kvs = append(l.kvs, protocol.KeyValue{Key: key, Value: value})
	return nil
}

func sendCmd(ctx context.Context, args []string, e *env) int {
	fs := newFlagSet("send", e, sendUsage)
	c := addCommonFlags(fs)
	params := &kvList{sep: "="}
	headers := &kvList{sep: ":", trim: true}
	fs.Var(params, "q", "Query parameter `key=value` (repeatable)")
	fs.Var(headers, "H", "Header `'Name: value'` (repeatable)")
	bodyFlag := fs.String("d", "", "Request body, @file to read a file, @- for stdin")
	saveFlag := fs.Bool("save", false, "Save the exchange to history")
	highlightFlag := fs.Bool("highlight", false, "Syntax-highlight the response body")
	copyFlag := fs.Bool("copy", false, "Copy the response body to the clipboard")
	jsonFlag := fs.Bool("json", false, "Print the response as JSON")
	rawFlag := fs.Bool("raw", false, "Print the body exactly as received")
	timeoutFlag := fs.Duration("timeout", 0, "Override the request timeout")
	curlFlag := fs.String("curl", "", "Send the request described by a curl command, - for stdin")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	var (
		req protocol.Request
		err error
	)
	if *curlFlag != "" {
		if req, err = requestFromCurl(*curlFlag, e.stdin); err != nil {
			return fail(e, err)
		}
	} else {
		req, err = requestFromArgs(fs.Args(), params.kvs, headers.kvs)
		if err != nil {
			fmt.Fprintf(e.stderr, "Error: %v\n\n", err)
			fs.Usage()
			return exitUsage
		}
		if req.Body, err = readBody(*bodyFlag, e.stdin); err != nil {
			return fail(e, err)
		}
	}

	a := newApp(c, e)
	defer a.Close()
	if *timeoutFlag > 0 {
		a.client.SetTimeout(*timeoutFlag)
	}

	resp, err := a.client.Dispatch(ctx, &req)
	if err != nil {
		return fail(e, err)
	}

	if *saveFlag {
		store, err := a.openStore()
		if err != nil {
			return fail(e, err)
		}
		id, err := store.Append(ctx, history.Entry{Request: req, Response: *resp})
		if err != nil {
			return fail(e, err)
		}
		fmt.Fprintf(e.stderr, "saved as #%d\n", id)
	}

	if *copyFlag {
		if err := clipboard.WriteAll(resp.Body); err != nil {
			a.logger.Warn("clipboard copy failed", "error", err)
			fmt.Fprintf(e.stderr, "Warning: could not copy to clipboard: %v\n", err)
		}
	}

	if *jsonFlag {
		out, err := json.Marshal(resp)
		if err != nil {
			return fail(e, errdef.Wrap(errdef.CodeSerialization, err, "encoding response"))
		}
		e.stdout.Write(pretty.Pretty(out))
		return exitOK
	}

	fmt.Fprintln(e.stderr, statusLine(resp))
	body := resp.Body
	lang := detectLanguage(body)
	if !*rawFlag && lang == "json" {
		body = string(pretty.Pretty([]byte(body)))
	}
	if *highlightFlag {
		if out, err := a.highlighter(highlight.Terminal).Render(body, lang); err == nil {
			body = out
		} else {
			a.logger.Debug("highlight skipped", "lang", lang, "error", err)
		}
	}
	fmt.Fprint(e.stdout, body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		fmt.Fprintln(e.stdout)
	}
	return exitOK
}

// requestFromArgs accepts "<url>" or "<METHOD> <url>". The method is
// case-insensitive on the command line.
func requestFromArgs(args []string, params, headers []protocol.KeyValue) (protocol.Request, error) {
	req := protocol.Request{Method: protocol.MethodGet, QueryParams: params, Headers: headers}
	switch len(args) {
	case 1:
		req.URL = args[0]
	case 2:
		m, err := protocol.ParseMethod(strings.ToUpper(args[0]))
		if err != nil {
			return req, err
		}
		req.Method, req.URL = m, args[1]
	default:
		return req, fmt.Errorf("expected [METHOD] <url>, got %d arguments", len(args))
	}
	return req, nil
}

func requestFromCurl(cmd string, stdin io.Reader) (protocol.Request, error) {
	if cmd == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return protocol.Request{}, fmt.Errorf("reading curl command from stdin: %w", err)
		}
		cmd = string(data)
	}
	return curl.ParseCurl(cmd)
}

func readBody(arg string, stdin io.Reader) (string, error) {
	switch {
	case arg == "@-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading body from stdin: %w", err)
		}
		return string(data), nil
	case strings.HasPrefix(arg, "@"):
		data, err := os.ReadFile(arg[1:])
		if err != nil {
			return "", fmt.Errorf("reading body: %w", err)
		}
		return string(data), nil
	default:
		return arg, nil
	}
}

func statusLine(resp *protocol.Response) string {
	status := fmt.Sprintf("%d %s", resp.Status, http.StatusText(int(resp.Status)))
	return fmt.Sprintf("%s  %s  %s",
		runner.StatusStyle(resp.Status).Render(status),
		runner.FormatMillis(resp.ResponseTimeMs),
		humanize.Bytes(uint64(len(resp.Body))))
}

// detectLanguage guesses a highlight token from a response body, which is
// all history keeps of a response.
func detectLanguage(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed != "" && json.Valid([]byte(trimmed)) && (trimmed[0] == '{' || trimmed[0] == '[') {
		return "json"
	}
	return highlight.LanguageFor(http.DetectContentType([]byte(body)))
}
