package record

import (
	"encoding/json"
	"time"
)

// Record is a document's metadata row. Embedding and position are filled in
// asynchronously by the enrichment workers; both start out null.
type Record struct {
	ID            string          `json:"id"`
	Source        string          `json:"source"`
	SourceLocalID string          `json:"source_local_id"`
	Title         string          `json:"title"`
	Abstract      string          `json:"abstract"`
	Categories    []string        `json:"categories"`
	PrimaryDate   time.Time       `json:"primary_date"`
	HasEmbedding  bool            `json:"has_embedding"`
	PosX          *float64        `json:"pos_x,omitempty"`
	PosY          *float64        `json:"pos_y,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EnrichSignal is the payload published on every write that leaves a record
// needing enrichment. The signal consumer folds these into the queue.
type EnrichSignal struct {
	RecordID      string `json:"record_id"`
	Kind          string `json:"kind"`
	Priority      int    `json:"priority"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
