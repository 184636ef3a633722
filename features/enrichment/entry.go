package enrichment

import "time"

// Kind is the type of enrichment work an entry represents.
type Kind string

const (
	KindEmbedding  Kind = "embedding"
	KindProjection Kind = "projection"
	KindMetadata   Kind = "metadata"
)

func (k Kind) Valid() bool {
	switch k {
	case KindEmbedding, KindProjection, KindMetadata:
		return true
	}
	return false
}

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Entry is one unit of enrichment work. At most one pending/processing
// entry exists per (record id, kind); duplicate signals collapse.
type Entry struct {
	ID          int64      `json:"id"`
	RecordID    string     `json:"record_id"`
	Kind        Kind       `json:"kind"`
	Priority    int        `json:"priority"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
