package main

import (
	"context"
	"fmt"
	"io"

	"github.com/tidwall/pretty"

	"github.com/sadopc/reqdesk/internal/command"
	"github.com/sadopc/reqdesk/internal/highlight"
)

const invokeUsage = `Usage: reqdesk invoke [flags] <command> [json-args|-]

Call a named command the way a front end would. Arguments are a JSON
object, read from stdin when given as "-". The result is printed as JSON.

Commands:
  send_request    {"args": {"method": "GET", "url": "...", ...}}
  save_request    {"args": {"req": {...}, "resp": {...}}}
  get_requests    no arguments
  highlight_code  {"code": "...", "lang": "json"}

Examples:
  reqdesk invoke get_requests
  echo '{"code":"{\"a\":1}","lang":"json"}' | reqdesk invoke highlight_code -
`

func invokeCmd(ctx context.Context, args []string, e *env) int {
	fs := newFlagSet("invoke", e, invokeUsage)
	c := addCommonFlags(fs)
	list := fs.Bool("list", false, "List registered commands")
	compact := fs.Bool("compact", false, "Print the result without indentation")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	a := newApp(c, e)
	defer a.Close()
	store, err := a.openStore()
	if err != nil {
		return fail(e, err)
	}
	reg := command.NewRegistry(a.logger)
	command.RegisterDefaults(reg, command.Services{
		Dispatcher:  a.client,
		History:     store,
		Highlighter: a.highlighter(highlight.HTML),
	})

	if *list {
		for _, name := range reg.Names() {
			fmt.Fprintln(e.stdout, name)
		}
		return exitOK
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return exitUsage
	}

	payload := []byte("{}")
	switch arg := fs.Arg(1); arg {
	case "":
	case "-":
		if payload, err = io.ReadAll(e.stdin); err != nil {
			return fail(e, err)
		}
	default:
		payload = []byte(arg)
	}

	out, err := reg.Invoke(ctx, fs.Arg(0), payload)
	if err != nil {
		return fail(e, err)
	}
	if *compact {
		fmt.Fprintf(e.stdout, "%s\n", out)
		return exitOK
	}
	e.stdout.Write(pretty.Pretty(out))
	return exitOK
}
