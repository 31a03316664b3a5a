// Package highlight turns source text into styled markup using chroma.
package highlight

import (
	"bytes"
	"mime"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/sadopc/reqdesk/internal/errdef"
)

// DefaultStyle is used when no style is configured.
const DefaultStyle = "monokai"

// Output selects the markup a Highlighter produces.
type Output int

const (
	// HTML emits inline-styled spans with no surrounding <pre>.
	HTML Output = iota
	// Terminal emits 256-colour ANSI escapes.
	Terminal
)

// Highlighter renders code with a fixed style. It is immutable once built
// and safe for concurrent use.
type Highlighter struct {
	style     *chroma.Style
	formatter chroma.Formatter
}

// New builds a Highlighter for the named chroma style. Unknown names fall
// back to chroma's fallback style.
func New(styleName string, output Output) *Highlighter {
	if styleName == "" {
		styleName = DefaultStyle
	}
	h := &Highlighter{style: withoutBackground(chromastyles.Get(styleName))}
	switch output {
	case Terminal:
		h.formatter = formatters.Get("terminal256")
	default:
		h.formatter = html.New(html.WithClasses(false), html.PreventSurroundingPre(true))
	}
	return h
}

// StyleName reports the resolved style.
func (h *Highlighter) StyleName() string {
	return h.style.Name
}

// Render highlights code using the grammar registered for language, which
// may be a lexer name, alias or file extension.
func (h *Highlighter) Render(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if language == "" || lexer == nil {
		return "", errdef.New(errdef.CodeUnknownLanguage, "unknown language %q", language)
	}
	lexer = chroma.Coalesce(lexer)

	it, err := lexer.Tokenise(&chroma.TokeniseOptions{State: "root"}, code)
	if err != nil {
		return "", errdef.Wrap(errdef.CodeRender, err, "tokenizing %s", language)
	}
	tokens := it.Tokens()
	if !strings.HasSuffix(code, "\n") {
		tokens = trimAddedNewline(tokens)
	}

	var buf bytes.Buffer
	if err := h.formatter.Format(&buf, h.style, chroma.Literator(tokens...)); err != nil {
		return "", errdef.Wrap(errdef.CodeRender, err, "formatting %s", language)
	}
	return buf.String(), nil
}

// trimAddedNewline drops the newline some lexers append to unterminated
// input so the output keeps the input's line endings.
func trimAddedNewline(tokens []chroma.Token) []chroma.Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Value == "" {
			continue
		}
		if !strings.HasSuffix(tokens[i].Value, "\n") {
			return tokens
		}
		tokens[i].Value = strings.TrimSuffix(tokens[i].Value, "\n")
		if tokens[i].Value == "" {
			tokens = append(tokens[:i], tokens[i+1:]...)
		}
		return tokens
	}
	return tokens
}

// withoutBackground copies style with every background colour removed.
func withoutBackground(base *chroma.Style) *chroma.Style {
	entries := chroma.StyleEntries{}
	for _, tt := range base.Types() {
		e := base.Get(tt)
		e.Background = 0
		entries[tt] = e.String()
	}
	style, err := chroma.NewStyle(base.Name, entries)
	if err != nil {
		return base
	}
	return style
}

// Languages lists the names of every registered grammar.
func Languages() []string {
	return lexers.Names(false)
}

// LanguageFor maps a response Content-Type to a language token.
func LanguageFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch {
	case strings.Contains(mediaType, "json"):
		return "json"
	case strings.Contains(mediaType, "html"):
		return "html"
	case strings.Contains(mediaType, "xml"):
		return "xml"
	case strings.Contains(mediaType, "yaml"):
		return "yaml"
	case mediaType == "text/css":
		return "css"
	case strings.Contains(mediaType, "javascript"):
		return "javascript"
	case strings.Contains(mediaType, "graphql"):
		return "graphql"
	default:
		return "plaintext"
	}
}
