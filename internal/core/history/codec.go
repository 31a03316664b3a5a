package history

import (
	"encoding/json"

	"github.com/sadopc/reqdesk/internal/protocol"
)

// Query params and headers are stored as a JSON array of {"key","value"}
// objects. The response body is stored as raw text.

func encodeKV(kvs []protocol.KeyValue) (string, error) {
	if kvs == nil {
		kvs = []protocol.KeyValue{}
	}
	data, err := json.Marshal(kvs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeKV never returns nil; a NULL or empty column decodes to an empty
// slice, and malformed text is reported so the caller can fall back.
func decodeKV(raw string) ([]protocol.KeyValue, error) {
	if raw == "" {
		return []protocol.KeyValue{}, nil
	}
	var kvs []protocol.KeyValue
	if err := json.Unmarshal([]byte(raw), &kvs); err != nil {
		return []protocol.KeyValue{}, err
	}
	if kvs == nil {
		kvs = []protocol.KeyValue{}
	}
	return kvs, nil
}
