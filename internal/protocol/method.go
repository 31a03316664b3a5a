package protocol

import (
	"github.com/sadopc/reqdesk/internal/errdef"
)

// Method is the closed set of HTTP methods the dispatcher sends.
type Method uint8

const (
	MethodGet Method = iota + 1
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
	MethodHead
	MethodOptions
	MethodTrace
	MethodConnect
)

type methodInfo struct {
	verb    string
	hasBody bool
}

// methods maps each method to its wire verb and body policy.
var methods = [...]methodInfo{
	MethodGet:     {"GET", false},
	MethodPost:    {"POST", true},
	MethodPut:     {"PUT", true},
	MethodDelete:  {"DELETE", false},
	MethodPatch:   {"PATCH", true},
	MethodHead:    {"HEAD", false},
	MethodOptions: {"OPTIONS", false},
	MethodTrace:   {"TRACE", false},
	MethodConnect: {"CONNECT", false},
}

// Methods returns every supported method in declaration order.
func Methods() []Method {
	out := make([]Method, 0, len(methods)-1)
	for m := MethodGet; int(m) < len(methods); m++ {
		out = append(out, m)
	}
	return out
}

// ParseMethod resolves an uppercase method name.
func ParseMethod(s string) (Method, error) {
	for m := MethodGet; int(m) < len(methods); m++ {
		if methods[m].verb == s {
			return m, nil
		}
	}
	return 0, errdef.New(errdef.CodeSerialization, "unknown HTTP method %q", s)
}

// Valid reports whether m is one of the declared methods.
func (m Method) Valid() bool {
	return m >= MethodGet && int(m) < len(methods)
}

func (m Method) String() string {
	if !m.Valid() {
		return "INVALID"
	}
	return methods[m].verb
}

// HasBody reports whether requests with this method carry the request body.
func (m Method) HasBody() bool {
	return m.Valid() && methods[m].hasBody
}

func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, errdef.New(errdef.CodeSerialization, "invalid HTTP method %d", uint8(m))
	}
	return []byte(methods[m].verb), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
