package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Cluster is one group in an on-demand partition of a result set. Results
// are recomputed per request, never persisted; the viewport and the data
// underneath change too often for a cached partition to stay meaningful.
type Cluster struct {
	ID        int        `json:"id"`
	RecordIDs []string   `json:"record_ids"`
	Centroid  [2]float64 `json:"centroid"`
	Boundary  Polygon    `json:"boundary"`
	Label     string     `json:"label,omitempty"`
}

// Labeler is the external summarization collaborator. Labeling is
// best-effort; its failure never invalidates the geometric result.
type Labeler interface {
	Label(ctx context.Context, titles []string) (string, error)
}

const labelTimeout = 15 * time.Second

type Analyzer struct {
	labeler Labeler
}

func NewAnalyzer(labeler Labeler) *Analyzer {
	return &Analyzer{labeler: labeler}
}

// Analyze partitions points into at most k clusters with non-overlapping
// boundary regions, then labels each cluster best-effort.
func (a *Analyzer) Analyze(ctx context.Context, points []Point, k int) ([]Cluster, error) {
	if len(points) == 0 {
		return []Cluster{}, nil
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	k = ClampK(k, len(points))

	assign, centroids := kmeans(points, k)
	polys := boundaries(centroids, points)

	clusters := make([]Cluster, k)
	for c := 0; c < k; c++ {
		clusters[c] = Cluster{
			ID:        c,
			RecordIDs: []string{},
			Centroid:  centroids[c],
			Boundary:  polys[c],
		}
	}
	titles := make([][]string, k)
	for i, p := range points {
		c := assign[i]
		clusters[c].RecordIDs = append(clusters[c].RecordIDs, p.ID)
		if p.Title != "" {
			titles[c] = append(titles[c], p.Title)
		}
	}

	if a.labeler != nil {
		for c := range clusters {
			if len(titles[c]) == 0 {
				continue
			}
			labelCtx, cancel := context.WithTimeout(ctx, labelTimeout)
			label, err := a.labeler.Label(labelCtx, titles[c])
			cancel()
			if err != nil {
				slog.WarnContext(ctx, "cluster labeling failed, returning unlabeled", "cluster", c, "error", err)
				continue
			}
			clusters[c].Label = label
		}
	}

	return clusters, nil
}
