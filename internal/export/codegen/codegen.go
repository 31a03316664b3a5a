// Package codegen renders a stored request as a client snippet.
package codegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/export"
	"github.com/sadopc/reqdesk/internal/protocol"
	httpclient "github.com/sadopc/reqdesk/internal/protocol/http"
)

// Language is a target language. Its value doubles as the highlight token.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangCurl       Language = "bash"
)

// Languages returns all supported languages.
func Languages() []Language {
	return []Language{LangGo, LangPython, LangJavaScript, LangCurl}
}

// ParseLanguage accepts a language name or the alias "curl".
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(s) {
	case "go", "golang":
		return LangGo, nil
	case "python", "py":
		return LangPython, nil
	case "javascript", "js":
		return LangJavaScript, nil
	case "curl", "bash", "sh":
		return LangCurl, nil
	}
	return "", errdef.New(errdef.CodeUnknownLanguage, "unsupported snippet language %q", s)
}

// Generate renders req in lang.
func Generate(req protocol.Request, lang Language) (string, error) {
	switch lang {
	case LangGo:
		return generateGo(req), nil
	case LangPython:
		return generatePython(req), nil
	case LangJavaScript:
		return generateJavaScript(req), nil
	case LangCurl:
		return export.AsCurl(req) + "\n", nil
	default:
		return "", errdef.New(errdef.CodeUnknownLanguage, "unsupported snippet language %q", lang)
	}
}

func sendsBody(req protocol.Request) bool {
	return req.Method.HasBody() && req.Body != ""
}

func headers(req protocol.Request) []protocol.KeyValue {
	out := make([]protocol.KeyValue, 0, len(req.Headers))
	for _, h := range req.Headers {
		if h.Key != "" {
			out = append(out, h)
		}
	}
	return out
}

// jsString quotes s as a JavaScript (and Python) string literal.
func jsString(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}

func generateGo(req protocol.Request) string {
	var b strings.Builder
	fullURL := httpclient.BuildURL(req.URL, req.QueryParams)
	hasBody := sendsBody(req)

	b.WriteString("package main\n\n")
	b.WriteString("import (\n")
	b.WriteString("\t\"fmt\"\n")
	b.WriteString("\t\"io\"\n")
	b.WriteString("\t\"net/http\"\n")
	if hasBody {
		b.WriteString("\t\"strings\"\n")
	}
	b.WriteString(")\n\n")
	b.WriteString("func main() {\n")

	if hasBody {
		fmt.Fprintf(&b, "\tbody := strings.NewReader(%q)\n", req.Body)
		fmt.Fprintf(&b, "\treq, err := http.NewRequest(%q, %q, body)\n", req.Method.String(), fullURL)
	} else {
		fmt.Fprintf(&b, "\treq, err := http.NewRequest(%q, %q, nil)\n", req.Method.String(), fullURL)
	}
	b.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n\n")

	hs := headers(req)
	for _, h := range hs {
		fmt.Fprintf(&b, "\treq.Header.Add(%q, %q)\n", h.Key, h.Value)
	}
	if len(hs) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("\tresp, err := http.DefaultClient.Do(req)\n")
	b.WriteString("\tif err != nil {\n\t\tpanic(err)\n\t}\n")
	b.WriteString("\tdefer resp.Body.Close()\n\n")
	b.WriteString("\tdata, _ := io.ReadAll(resp.Body)\n")
	b.WriteString("\tfmt.Println(resp.Status)\n")
	b.WriteString("\tfmt.Println(string(data))\n")
	b.WriteString("}\n")

	return b.String()
}

func generatePython(req protocol.Request) string {
	var b strings.Builder
	fullURL := httpclient.BuildURL(req.URL, req.QueryParams)

	b.WriteString("import requests\n\n")

	hs := headers(req)
	if len(hs) > 0 {
		b.WriteString("headers = [\n")
		for _, h := range hs {
			fmt.Fprintf(&b, "    (%s, %s),\n", jsString(h.Key), jsString(h.Value))
		}
		b.WriteString("]\n\n")
	}

	if sendsBody(req) {
		fmt.Fprintf(&b, "data = %s\n\n", jsString(req.Body))
	}

	args := jsString(req.Method.String()) + ", " + jsString(fullURL)
	if len(hs) > 0 {
		args += ", headers=dict(headers)"
	}
	if sendsBody(req) {
		args += ", data=data"
	}

	fmt.Fprintf(&b, "response = requests.request(%s)\n", args)
	b.WriteString("print(response.status_code)\n")
	b.WriteString("print(response.text)\n")

	return b.String()
}

func generateJavaScript(req protocol.Request) string {
	var b strings.Builder
	fullURL := httpclient.BuildURL(req.URL, req.QueryParams)

	fmt.Fprintf(&b, "const response = await fetch(%s, {\n", jsString(fullURL))
	fmt.Fprintf(&b, "  method: %s,\n", jsString(req.Method.String()))

	if hs := headers(req); len(hs) > 0 {
		b.WriteString("  headers: [\n")
		for _, h := range hs {
			fmt.Fprintf(&b, "    [%s, %s],\n", jsString(h.Key), jsString(h.Value))
		}
		b.WriteString("  ],\n")
	}

	if sendsBody(req) {
		fmt.Fprintf(&b, "  body: %s,\n", jsString(req.Body))
	}

	b.WriteString("});\n\n")
	b.WriteString("const data = await response.text();\n")
	b.WriteString("console.log(response.status, data);\n")

	return b.String()
}
