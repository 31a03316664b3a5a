package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/tidwall/pretty"

	"github.com/sadopc/reqdesk/internal/core/history"
	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/export"
	"github.com/sadopc/reqdesk/internal/export/codegen"
	"github.com/sadopc/reqdesk/internal/export/har"
	"github.com/sadopc/reqdesk/internal/highlight"
	"github.com/sadopc/reqdesk/internal/protocol"
	"github.com/sadopc/reqdesk/internal/runner"
	"github.com/sadopc/reqdesk/pkg/version"
)

const historyUsage = `Usage: reqdesk history [list|show|curl|code|har] [flags] [id]

List, inspect and export saved requests.

Actions:
  list        List saved requests, newest first (default)
  show <id>   Print one saved request and its response
  curl <id>   Print a saved request as a curl command
  code <id>   Print a saved request as a client snippet (-lang)
  har         Export matching requests as HAR 1.2

Examples:
  reqdesk history -method POST -status 5xx
  reqdesk history -find "users" -limit 10
  reqdesk history code -lang python 42
  reqdesk history har -since 24h -o session.har
`

var (
	idStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	methodCol = lipgloss.NewStyle().Bold(true).Width(7)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

func historyCmd(ctx context.Context, args []string, e *env) int {
	action := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action, args = args[0], args[1:]
	}

	fs := newFlagSet("history "+action, e, historyUsage)
	c := addCommonFlags(fs)
	limit := fs.Int("limit", 50, "Maximum number of entries to list (0 for all)")
	search := fs.String("search", "", "Only entries whose URL contains this text")
	find := fs.String("find", "", "Fuzzy-match entries on \"METHOD URL\"")
	method := fs.String("method", "", "Only entries with this HTTP method")
	status := fs.String("status", "", "Only entries with this status (e.g. 200 or 4xx)")
	since := fs.Duration("since", 0, "Only entries saved within this duration (e.g. 24h)")
	jsonOut := fs.Bool("json", false, "Print entries as JSON")
	lang := fs.String("lang", "curl", "Snippet language for 'code' (go, python, javascript, curl)")
	noColor := fs.Bool("no-highlight", false, "Do not syntax-highlight output")
	outPath := fs.String("o", "", "Write 'har' output to this file instead of stdout")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	filter, err := buildFilter(*method, *status, *search, *since, *limit)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitUsage
	}

	a := newApp(c, e)
	defer a.Close()
	store, err := a.openStore()
	if err != nil {
		return fail(e, err)
	}

	switch action {
	case "list", "ls":
		entries, err := store.ListFiltered(ctx, filter)
		if err != nil {
			return fail(e, err)
		}
		entries = history.Find(entries, *find)
		if *jsonOut {
			return writeJSON(e, entries)
		}
		printEntries(e.stdout, entries, time.Now())
		return exitOK

	case "har":
		entries, err := store.ListFiltered(ctx, filter)
		if err != nil {
			return fail(e, err)
		}
		entries = history.Find(entries, *find)
		// HAR logs read oldest first.
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
		data, err := har.Export(entries, "reqdesk", version.Version)
		if err != nil {
			return fail(e, err)
		}
		if *outPath == "" {
			e.stdout.Write(data)
			return exitOK
		}
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			return fail(e, err)
		}
		fmt.Fprintf(e.stderr, "Exported %d entries to %s\n", len(entries), *outPath)
		return exitOK

	case "show", "curl", "code":
		if fs.NArg() != 1 {
			fmt.Fprintf(e.stderr, "Error: %s needs exactly one entry id\n", action)
			return exitUsage
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(fs.Arg(0), "#"), 10, 64)
		if err != nil {
			fmt.Fprintf(e.stderr, "Error: invalid entry id %q\n", fs.Arg(0))
			return exitUsage
		}
		entry, err := store.Get(ctx, id)
		if err != nil {
			return fail(e, err)
		}

		var hl *highlight.Highlighter
		if !*noColor {
			hl = a.highlighter(highlight.Terminal)
		}
		switch action {
		case "show":
			if *jsonOut {
				return writeJSON(e, entry)
			}
			printEntry(e.stdout, entry, hl)
		case "curl":
			fmt.Fprintln(e.stdout, render(hl, export.AsCurl(entry.Request), "bash"))
		case "code":
			l, err := codegen.ParseLanguage(*lang)
			if err != nil {
				return fail(e, err)
			}
			snippet, err := codegen.Generate(entry.Request, l)
			if err != nil {
				return fail(e, err)
			}
			fmt.Fprint(e.stdout, render(hl, snippet, string(l)))
		}
		return exitOK

	default:
		fmt.Fprintf(e.stderr, "Error: unknown history action %q\n\n", action)
		fs.Usage()
		return exitUsage
	}
}

// buildFilter turns list flags into a history.Filter.
func buildFilter(method, status, search string, since time.Duration, limit int) (history.Filter, error) {
	f := history.Filter{URLPattern: search, Limit: limit}
	if method != "" {
		m, err := protocol.ParseMethod(strings.ToUpper(method))
		if err != nil {
			return f, err
		}
		f.Method = m
	}
	if status != "" {
		lo, hi, err := parseStatus(status)
		if err != nil {
			return f, err
		}
		if lo == hi {
			f.StatusCode = lo
		} else {
			f.StatusMin, f.StatusMax = lo, hi
		}
	}
	if since > 0 {
		f.Since = time.Now().Add(-since)
	}
	return f, nil
}

// parseStatus accepts an exact code ("404") or a class ("4xx").
func parseStatus(s string) (lo, hi uint16, err error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 3 && strings.HasSuffix(s, "xx") && s[0] >= '1' && s[0] <= '5' {
		base := uint16(s[0]-'0') * 100
		return base, base + 99, nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil || n < 100 || n > 599 {
		return 0, 0, fmt.Errorf("invalid status %q: want a code like 200 or a class like 4xx", s)
	}
	return uint16(n), uint16(n), nil
}

func printEntries(w io.Writer, entries []history.Entry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No saved requests.")
		return
	}
	for _, en := range entries {
		fmt.Fprintf(w, "%s  %s %s  %7s  %8s  %s  %s\n",
			idStyle.Render(fmt.Sprintf("#%-4d", en.ID)),
			methodCol.Render(en.Request.Method.String()),
			runner.StatusStyle(en.Response.Status).Render(strconv.Itoa(int(en.Response.Status))),
			runner.FormatMillis(en.Response.ResponseTimeMs),
			humanize.Bytes(uint64(len(en.Response.Body))),
			en.Request.URL,
			dimStyle.Render(humanize.RelTime(en.CreatedAt, now, "ago", "from now")))
	}
}

func printEntry(w io.Writer, en history.Entry, hl *highlight.Highlighter) {
	req := en.Request
	fmt.Fprintf(w, "%s %s\n", headStyle.Render(req.Method.String()), req.URL)
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("#%d saved %s", en.ID, en.CreatedAt.Local().Format(time.DateTime))))
	printKVs(w, "Query", req.QueryParams, "=")
	printKVs(w, "Headers", req.Headers, ": ")
	if req.Method.HasBody() && req.Body != "" {
		fmt.Fprintln(w, headStyle.Render("Body"))
		fmt.Fprintln(w, render(hl, prettyBody(req.Body), detectLanguage(req.Body)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, statusLine(&en.Response))
	if en.Response.Body != "" {
		fmt.Fprintln(w, render(hl, prettyBody(en.Response.Body), detectLanguage(en.Response.Body)))
	}
}

func printKVs(w io.Writer, title string, kvs []protocol.KeyValue, sep string) {
	if len(kvs) == 0 {
		return
	}
	fmt.Fprintln(w, headStyle.Render(title))
	for _, kv := range kvs {
		fmt.Fprintf(w, "  %s%s%s\n", kv.Key, sep, kv.Value)
	}
}

func prettyBody(body string) string {
	if detectLanguage(body) == "json" {
		return strings.TrimRight(string(pretty.Pretty([]byte(body))), "\n")
	}
	return body
}

// render highlights code when hl is set and falls back to the plain text.
func render(hl *highlight.Highlighter, code, lang string) string {
	if hl == nil {
		return code
	}
	out, err := hl.Render(code, lang)
	if err != nil {
		return code
	}
	return out
}

func writeJSON(e *env, v any) int {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(e, errdef.Wrap(errdef.CodeSerialization, err, "encoding output"))
	}
	e.stdout.Write(pretty.Pretty(data))
	return exitOK
}
