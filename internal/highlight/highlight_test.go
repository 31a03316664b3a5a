package highlight

import (
	"strings"
	"sync"
	"testing"

	chromastyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/sadopc/reqdesk/internal/errdef"
)

func TestRenderJSON(t *testing.T) {
	h := New("", HTML)

	out, err := h.Render(`{"a":1}`, "json")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "a") || !strings.Contains(out, "1") {
		t.Fatalf("markup missing source text: %q", out)
	}
	if !strings.Contains(out, "<span") {
		t.Fatalf("expected styled spans, got %q", out)
	}
	if strings.Contains(out, "<pre") {
		t.Fatalf("markup must not be wrapped in <pre>: %q", out)
	}
	if strings.Contains(out, "background") {
		t.Fatalf("markup must not carry a background colour: %q", out)
	}
	if strings.Contains(out, "class=") {
		t.Fatalf("expected inline styles, got classes: %q", out)
	}
}

func TestRenderAliasesAndExtensions(t *testing.T) {
	h := New(DefaultStyle, HTML)
	for _, lang := range []string{"javascript", "js", "go", "yaml", "yml", "html", "xml", "JSON"} {
		if _, err := h.Render("x = 1", lang); err != nil {
			t.Errorf("Render(%q) failed: %v", lang, err)
		}
	}
}

func TestRenderUnknownLanguage(t *testing.T) {
	h := New(DefaultStyle, HTML)

	for _, lang := range []string{"", "definitely-not-a-language"} {
		_, err := h.Render("hello", lang)
		if !errdef.Is(err, errdef.CodeUnknownLanguage) {
			t.Fatalf("Render(%q) error = %v, want unknown language", lang, err)
		}
	}
}

func TestRenderPreservesLineEndings(t *testing.T) {
	h := New(DefaultStyle, HTML)
	tests := []string{
		"{\n  \"a\": 1\n}",
		"{\n  \"a\": 1\n}\n",
		"{}",
		"\n\n{}\n\n",
	}
	for _, code := range tests {
		out, err := h.Render(code, "json")
		if err != nil {
			t.Fatalf("Render(%q) failed: %v", code, err)
		}
		if got, want := strings.Count(out, "\n"), strings.Count(code, "\n"); got != want {
			t.Errorf("Render(%q): %d newlines, want %d\n%s", code, got, want, out)
		}
	}
}

func TestRenderTerminal(t *testing.T) {
	h := New(DefaultStyle, Terminal)

	out, err := h.Render(`{"a":1}`, "json")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected ANSI escapes, got %q", out)
	}
	if strings.Count(out, "\n") != 0 {
		t.Fatalf("unterminated input gained a newline: %q", out)
	}
}

func TestUnknownStyleFallsBack(t *testing.T) {
	h := New("no-such-style", HTML)
	if h.StyleName() != chromastyles.Fallback.Name {
		t.Fatalf("StyleName() = %q, want %q", h.StyleName(), chromastyles.Fallback.Name)
	}
	if got := New("", HTML).StyleName(); got != DefaultStyle {
		t.Fatalf("default style = %q, want %q", got, DefaultStyle)
	}
}

func TestWithoutBackground(t *testing.T) {
	style := withoutBackground(chromastyles.Get("monokai"))
	for _, tt := range style.Types() {
		if style.Get(tt).Background.IsSet() {
			t.Fatalf("token %v still has a background", tt)
		}
	}
}

func TestRenderConcurrent(t *testing.T) {
	h := New(DefaultStyle, HTML)
	want, err := h.Render(`{"k":[1,2,3]}`, "json")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := h.Render(`{"k":[1,2,3]}`, "json")
			if err != nil {
				t.Error(err)
				return
			}
			if got != want {
				t.Errorf("concurrent render differs:\n%s\n%s", got, want)
			}
		}()
	}
	wg.Wait()
}

func TestLanguages(t *testing.T) {
	langs := Languages()
	if len(langs) == 0 {
		t.Fatal("expected registered languages")
	}
	found := false
	for _, l := range langs {
		if strings.EqualFold(l, "json") {
			found = true
		}
	}
	if !found {
		t.Fatal("expected JSON among registered languages")
	}
}

func TestLanguageFor(t *testing.T) {
	tests := map[string]string{
		"application/json":                "json",
		"application/problem+json":        "json",
		"application/json; charset=utf-8": "json",
		"text/html; charset=UTF-8":        "html",
		"application/xml":                 "xml",
		"application/x-yaml":              "yaml",
		"text/css":                        "css",
		"application/javascript":          "javascript",
		"text/plain":                      "plaintext",
		"":                                "plaintext",
	}
	for ct, want := range tests {
		if got := LanguageFor(ct); got != want {
			t.Errorf("LanguageFor(%q) = %q, want %q", ct, got, want)
		}
	}
}
