package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/sadopc/reqdesk/internal/config"
	"github.com/sadopc/reqdesk/internal/core/history"
	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/highlight"
	"github.com/sadopc/reqdesk/internal/logging"
	httpclient "github.com/sadopc/reqdesk/internal/protocol/http"
	"github.com/sadopc/reqdesk/internal/telemetry"
	"github.com/sadopc/reqdesk/pkg/version"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// env carries the process streams so commands can run under test.
type env struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], &env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr})
	cancel()
	os.Exit(code)
}

func run(ctx context.Context, args []string, e *env) int {
	if len(args) == 0 {
		printHelp(e.stderr)
		return exitUsage
	}
	rest := args[1:]
	switch args[0] {
	case "send":
		return sendCmd(ctx, rest, e)
	case "history":
		return historyCmd(ctx, rest, e)
	case "replay":
		return replayCmd(ctx, rest, e)
	case "highlight":
		return highlightCmd(ctx, rest, e)
	case "invoke":
		return invokeCmd(ctx, rest, e)
	case "completion":
		return completionCmd(rest, e)
	case "version", "--version", "-v":
		fmt.Fprintf(e.stdout, "reqdesk %s\n", version.String())
		return exitOK
	case "help", "--help", "-h":
		printHelp(e.stdout)
		return exitOK
	default:
		fmt.Fprintf(e.stderr, "Error: unknown command %q\n\n", args[0])
		printHelp(e.stderr)
		return exitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `reqdesk - send ad-hoc HTTP requests and keep a searchable history

Usage:
  reqdesk <command> [flags] [args]

Commands:
  send        Send one HTTP request
  history     List, search or export saved requests
  replay      Send saved requests again
  highlight   Syntax-highlight a file or stdin
  invoke      Call a named command with JSON arguments
  completion  Generate shell completion scripts (bash, zsh, fish)
  version     Print version information
  help        Show this help message

Common flags:
  --config <path>   Config file (default ~/.config/reqdesk/config.yaml)
  --db <path>       History database path
  --debug           Verbose logging
  --log-stderr      Log to stderr instead of the log file

Run 'reqdesk <command> --help' for more information about a command.
`)
}

// common are the flags every subcommand accepts.
type common struct {
	configPath string
	dbPath     string
	debug      bool
	logStderr  bool
}

func addCommonFlags(fs *flag.FlagSet) *common {
	c := &common{}
	fs.StringVar(&c.configPath, "config", "", "Config file path")
	fs.StringVar(&c.dbPath, "db", "", "History database path")
	fs.BoolVar(&c.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&c.logStderr, "log-stderr", false, "Log to stderr instead of the log file")
	return c
}

func newFlagSet(name string, e *env, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprint(e.stderr, usage)
		fmt.Fprintf(e.stderr, "\nFlags:\n")
		fs.PrintDefaults()
	}
	return fs
}

// parseFlags parses args and maps flag errors to an exit code. ok is false
// when the caller should return code immediately.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	return exitOK, true
}

// app wires configuration, logging and the core components for one
// command invocation.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	client    *httpclient.Client
	telemetry telemetry.Instrumenter
	dbPath    string
	store     *history.Store
	closers   []io.Closer
}

func newApp(c *common, e *env) *app {
	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(e.stderr, "Warning: %v (using defaults)\n", err)
	}

	opts := logging.Options{Debug: c.debug || cfg.Debug}
	if c.logStderr {
		opts.Writer = e.stderr
	}
	a := &app{cfg: cfg, dbPath: cfg.HistoryPath}
	logger, closer, err := logging.New(config.AppName, opts)
	if err != nil {
		fmt.Fprintf(e.stderr, "Warning: %v (logging disabled)\n", err)
		logger = logging.NewNop()
	} else {
		a.closers = append(a.closers, closer)
	}
	a.logger = logger
	if c.dbPath != "" {
		a.dbPath = c.dbPath
	}

	a.telemetry, err = telemetry.New(cfg.TelemetryConfig(version.Version))
	if err != nil {
		logger.Warn("telemetry disabled", "error", err)
		a.telemetry = telemetry.Noop()
	}

	a.client = httpclient.New()
	a.client.SetLogger(logger)
	a.client.SetTelemetry(a.telemetry)
	a.client.SetTimeout(cfg.DefaultTimeout.Std())
	if cfg.Proxy != "" {
		a.client.SetProxy(cfg.Proxy, cfg.NoProxy)
	}

	logger.Debug("reqdesk starting", "version", version.Version, "history", a.dbPath)
	return a
}

// openStore opens the history database on first use.
func (a *app) openStore() (*history.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := history.NewStore(a.dbPath, history.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

func (a *app) highlighter(output highlight.Output) *highlight.Highlighter {
	return highlight.New(a.cfg.HighlightStyle, output)
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("closing history", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("flushing telemetry", "error", err)
	}
	for _, c := range a.closers {
		c.Close()
	}
}

// fail prints err the way every command reports errors and returns the
// failure exit code.
func fail(e *env, err error) int {
	if code := errdef.CodeOf(err); code != errdef.CodeUnknown {
		fmt.Fprintf(e.stderr, "Error [%s]: %v\n", code, err)
	} else {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
	}
	return exitFailure
}
