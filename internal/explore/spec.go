package explore

import (
	"time"
)

type OrderMode string

const (
	OrderRecency    OrderMode = "recency"
	OrderSimilarity OrderMode = "similarity"
)

// Box is a spatial viewport in projection coordinates. A nil box means the
// whole universe.
type Box struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Empty reports whether the box can contain no point at all. An empty box
// yields zero rows, not an error.
func (b *Box) Empty() bool {
	return b.MinX > b.MaxX || b.MinY > b.MaxY
}

// QuerySpec is the immutable description of one request: spatial viewport,
// categorical/date filters, optional semantic vector, ordering and cap.
// Built fresh per request, never shared.
type QuerySpec struct {
	Box             *Box
	Sources         []string
	Categories      []string
	DateFrom        *time.Time
	DateTo          *time.Time
	Vector          []float32
	SimilarityFloor float32
	Order           OrderMode
	Cap             int
}

// Hit is one result row; Score is set only for semantic queries.
type Hit struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	SourceLocalID string    `json:"source_local_id"`
	Title         string    `json:"title"`
	Abstract      string    `json:"abstract"`
	Categories    []string  `json:"categories"`
	PrimaryDate   time.Time `json:"primary_date"`
	PosX          float64   `json:"pos_x"`
	PosY          float64   `json:"pos_y"`
	Score         float32   `json:"score,omitempty"`
}

// Result distinguishes a complete answer from one truncated by the cap.
type Result struct {
	Hits      []Hit `json:"hits"`
	Truncated bool  `json:"truncated"`
}
