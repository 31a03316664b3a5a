package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/sadopc/reqdesk/internal/highlight"
)

const highlightUsage = `Usage: reqdesk highlight [flags] [file]

Syntax-highlight a file, or stdin when no file is given.

Examples:
  reqdesk highlight -lang json response.json
  curl -s https://httpbin.org/html | reqdesk highlight -lang html -html
  reqdesk highlight -list
`

func highlightCmd(_ context.Context, args []string, e *env) int {
	fs := newFlagSet("highlight", e, highlightUsage)
	c := addCommonFlags(fs)
	lang := fs.String("lang", "", "Language token (guessed from the file name when empty)")
	htmlOut := fs.Bool("html", false, "Emit HTML spans instead of terminal colours")
	style := fs.String("style", "", "Chroma style (defaults to the configured style)")
	list := fs.Bool("list", false, "List supported languages")

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *list {
		for _, name := range highlight.Languages() {
			fmt.Fprintln(e.stdout, name)
		}
		return exitOK
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(e.stderr, "Error: highlight takes at most one file")
		return exitUsage
	}

	var (
		src  []byte
		err  error
		name = fs.Arg(0)
	)
	if name == "" || name == "-" {
		src, err = io.ReadAll(e.stdin)
	} else {
		src, err = os.ReadFile(name)
	}
	if err != nil {
		return fail(e, err)
	}

	language := *lang
	if language == "" {
		language = guessLanguage(name, string(src))
	}

	a := newApp(c, e)
	defer a.Close()
	output := highlight.Terminal
	if *htmlOut {
		output = highlight.HTML
	}
	h := a.highlighter(output)
	if *style != "" {
		h = highlight.New(*style, output)
	}

	out, err := h.Render(string(src), language)
	if err != nil {
		return fail(e, err)
	}
	fmt.Fprint(e.stdout, out)
	if out != "" && !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(e.stdout)
	}
	return exitOK
}

// guessLanguage picks a lexer by file name, then by content.
func guessLanguage(name, src string) string {
	if name != "" && name != "-" {
		if l := lexers.Match(filepath.Base(name)); l != nil {
			return strings.ToLower(l.Config().Name)
		}
	}
	return detectLanguage(src)
}
