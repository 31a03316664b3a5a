package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sadopc/reqdesk/internal/core/history"
	"github.com/sadopc/reqdesk/internal/runner"
)

const replayUsage = `Usage: reqdesk replay [flags] [id...]

Send saved requests again and compare the outcome with what was recorded.
Pass entry ids, or select entries with -all and the filter flags.

Examples:
  reqdesk replay 12 13 14
  reqdesk replay -all -method GET -status 2xx -output junit > report.xml
  reqdesk replay -all -search /api -perf-threshold 25

Exit codes:
  0  every replay succeeded
  1  a replay failed, a status changed (-fail-on-change) or timing regressed
  2  usage error
`

func replayCmd(ctx context.Context, args []string, e *env) int {
	fs := newFlagSet("replay", e, replayUsage)
	c := addCommonFlags(fs)
	all := fs.Bool("all", false, "Replay every entry matching the filter flags")
	search := fs.String("search", "", "Only entries whose URL contains this text")
	method := fs.String("method", "", "Only entries with this HTTP method")
	status := fs.String("status", "", "Only entries with this recorded status (e.g. 200 or 4xx)")
	limit := fs.Int("limit", 0, "Replay at most this many of the most recent matches")
	output := fs.String("output", "text", "Output format: text, json, junit")
	save := fs.Bool("save", false, "Save every successful replay to history")
	concurrency := fs.Int("concurrency", runner.DefaultConcurrency, "Maximum requests in flight")
	threshold := fs.Float64("perf-threshold", 0, "Flag replays slower than recorded by this percentage (0 disables)")
	failOnChange := fs.Bool("fail-on-change", false, "Exit 1 when a status differs from the recorded one")
	verbose := fs.Bool("verbose", false, "Print response bodies")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	switch *output {
	case "text", "json", "junit":
	default:
		fmt.Fprintf(e.stderr, "Error: unknown output format %q\n", *output)
		return exitUsage
	}
	if !*all && fs.NArg() == 0 {
		fmt.Fprintln(e.stderr, "Error: pass entry ids or -all")
		fs.Usage()
		return exitUsage
	}

	var ids []int64
	for _, arg := range fs.Args() {
		id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
		if err != nil {
			fmt.Fprintf(e.stderr, "Error: invalid entry id %q\n", arg)
			return exitUsage
		}
		ids = append(ids, id)
	}
	filter, err := buildFilter(*method, *status, *search, 0, *limit)
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

	var entries []history.Entry
	if *all {
		if entries, err = store.ListFiltered(ctx, filter); err != nil {
			return fail(e, err)
		}
		// Replay in the order the requests were first sent.
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	for _, id := range ids {
		entry, err := store.Get(ctx, id)
		if err != nil {
			return fail(e, err)
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		fmt.Fprintln(e.stderr, "No matching entries.")
		return exitOK
	}

	cfg := runner.Config{Concurrency: *concurrency, Logger: a.logger}
	if *save {
		cfg.Save = store
	}
	a.logger.Info("replaying", "entries", len(entries), "concurrency", *concurrency)
	results, runErr := runner.New(a.client, cfg).Run(ctx, entries)

	switch *output {
	case "json":
		err = runner.PrintJSON(e.stdout, results)
	case "junit":
		err = runner.PrintJUnit(e.stdout, results)
	default:
		runner.PrintText(e.stdout, results, *verbose)
	}
	if err != nil {
		return fail(e, err)
	}
	if runErr != nil {
		return fail(e, runErr)
	}

	code := exitOK
	for _, r := range results {
		if r.Error != nil || (*failOnChange && r.StatusChanged()) {
			code = exitFailure
		}
	}
	if *threshold > 0 {
		comparisons := runner.ComparePerf(results, *threshold)
		runner.PrintPerf(e.stderr, comparisons)
		if runner.HasRegressions(comparisons) {
			code = exitFailure
		}
	}
	return code
}
