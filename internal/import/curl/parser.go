// Package curl reads a pasted curl command back into a request.
package curl

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/sadopc/reqdesk/internal/errdef"
	"github.com/sadopc/reqdesk/internal/protocol"
)

// ParseCurl parses a curl command line into a protocol.Request. The query
// string of the URL is split into QueryParams so that export.AsCurl of the
// result reproduces the same target.
func ParseCurl(input string) (protocol.Request, error) {
	var req protocol.Request
	input = strings.TrimSpace(input)
	if input == "" {
		return req, errdef.New(errdef.CodeSerialization, "empty curl command")
	}

	// Handle line continuations
	input = strings.ReplaceAll(input, "\\\r\n", " ")
	input = strings.ReplaceAll(input, "\\\n", " ")

	args := tokenize(input)
	if len(args) > 0 && strings.EqualFold(args[0], "curl") {
		args = args[1:]
	}

	var (
		method   string
		rawURL   string
		data     []string
		getQuery bool
		head     bool
	)
	next := func(i *int) (string, bool) {
		*i++
		if *i < len(args) {
			return args[*i], true
		}
		return "", false
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-X", "--request":
			if v, ok := next(&i); ok {
				method = strings.ToUpper(v)
			}
		case "-H", "--header":
			if v, ok := next(&i); ok {
				if key, val := parseHeader(v); key != "" {
					req.Headers = append(req.Headers, protocol.KeyValue{Key: key, Value: val})
				}
			}
		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii", "--data-urlencode":
			if v, ok := next(&i); ok {
				data = append(data, v)
			}
		case "-u", "--user":
			if v, ok := next(&i); ok {
				req.Headers = append(req.Headers, protocol.KeyValue{
					Key:   "Authorization",
					Value: "Basic " + base64.StdEncoding.EncodeToString([]byte(v)),
				})
			}
		case "-A", "--user-agent":
			if v, ok := next(&i); ok {
				req.Headers = append(req.Headers, protocol.KeyValue{Key: "User-Agent", Value: v})
			}
		case "-e", "--referer":
			if v, ok := next(&i); ok {
				req.Headers = append(req.Headers, protocol.KeyValue{Key: "Referer", Value: v})
			}
		case "--url":
			if v, ok := next(&i); ok {
				rawURL = v
			}
		case "-G", "--get":
			getQuery = true
		case "-I", "--head":
			head = true
		case "-o", "--output", "-m", "--max-time", "--connect-timeout", "-x", "--proxy":
			// Flags with a value that do not change the request.
			i++
		default:
			if !strings.HasPrefix(arg, "-") && rawURL == "" {
				rawURL = arg
			}
		}
	}

	if rawURL == "" {
		return req, errdef.New(errdef.CodeSerialization, "no URL found in curl command")
	}
	req.URL, req.QueryParams = splitQuery(rawURL)

	body := strings.Join(data, "&")
	switch {
	case getQuery && len(data) > 0:
		for _, d := range data {
			key, val, _ := strings.Cut(d, "=")
			req.QueryParams = append(req.QueryParams, protocol.KeyValue{Key: key, Value: val})
		}
		body = ""
	case method == "" && head:
		method = "HEAD"
	case method == "" && len(data) > 0:
		method = "POST"
	}
	if method == "" {
		method = "GET"
	}

	m, err := protocol.ParseMethod(method)
	if err != nil {
		return req, err
	}
	req.Method = m
	if m.HasBody() {
		req.Body = body
	}
	return req, nil
}

// splitQuery separates the query string from rawURL. Pairs keep their order
// and duplicates. A URL that does not parse is returned whole.
func splitQuery(rawURL string) (string, []protocol.KeyValue) {
	base, query, ok := strings.Cut(rawURL, "?")
	if !ok || query == "" {
		return rawURL, nil
	}
	if strings.ContainsRune(query, '#') {
		return rawURL, nil
	}
	var params []protocol.KeyValue
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err1 := url.QueryUnescape(k)
		val, err2 := url.QueryUnescape(v)
		if err1 != nil || err2 != nil {
			return rawURL, nil
		}
		params = append(params, protocol.KeyValue{Key: key, Value: val})
	}
	return base, params
}

// tokenize splits a shell command into tokens, handling single and double quotes.
func tokenize(input string) []string {
	var tokens []string
	var current strings.Builder
	inSingle := false
	inDouble := false
	escaped := false
	quoted := false

	for _, r := range input {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		if r == '\\' && !inSingle {
			escaped = true
			continue
		}

		if r == '\'' && !inDouble {
			inSingle = !inSingle
			quoted = true
			continue
		}

		if r == '"' && !inSingle {
			inDouble = !inDouble
			quoted = true
			continue
		}

		if (r == ' ' || r == '\t' || r == '\n') && !inSingle && !inDouble {
			if current.Len() > 0 || quoted {
				tokens = append(tokens, current.String())
				current.Reset()
				quoted = false
			}
			continue
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 || quoted {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// parseHeader parses "Key: Value" into key and value.
func parseHeader(s string) (string, string) {
	key, val, ok := strings.Cut(s, ":")
	if !ok {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(key), strings.TrimSpace(val)
}
