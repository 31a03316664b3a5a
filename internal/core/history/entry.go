package history

import (
	"time"

	"github.com/sadopc/reqdesk/internal/protocol"
)

// Entry is one completed request/response pair. Entries are append-only.
type Entry struct {
	ID        int64             `json:"id"`
	Request   protocol.Request  `json:"req"`
	Response  protocol.Response `json:"resp"`
	CreatedAt time.Time         `json:"created_at"`
}
