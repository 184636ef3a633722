package cluster

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLabeler struct {
	label string
	err   error
	calls int
}

func (s *stubLabeler) Label(ctx context.Context, titles []string) (string, error) {
	s.calls++
	return s.label, s.err
}

func TestAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("PartitionsAndLabels", func(t *testing.T) {
		labeler := &stubLabeler{label: "machine learning"}
		analyzer := NewAnalyzer(labeler)

		clusters, err := analyzer.Analyze(ctx, threeBlobs(), 3)
		require.NoError(t, err)
		require.Len(t, clusters, 3)

		total := 0
		for _, c := range clusters {
			assert.NotEmpty(t, c.RecordIDs)
			assert.NotEmpty(t, c.Boundary)
			assert.Equal(t, "machine learning", c.Label)
			total += len(c.RecordIDs)
		}
		assert.Equal(t, 15, total)
		assert.Equal(t, 3, labeler.calls)
	})

	t.Run("LabelFailureLeavesClusterUnlabeled", func(t *testing.T) {
		analyzer := NewAnalyzer(&stubLabeler{err: errors.New("provider down")})

		clusters, err := analyzer.Analyze(ctx, threeBlobs(), 3)
		require.NoError(t, err)
		for _, c := range clusters {
			assert.Empty(t, c.Label)
			assert.NotEmpty(t, c.RecordIDs)
		}
	})

	t.Run("NilLabelerSkipsLabeling", func(t *testing.T) {
		analyzer := NewAnalyzer(nil)
		clusters, err := analyzer.Analyze(ctx, threeBlobs(), 2)
		require.NoError(t, err)
		require.Len(t, clusters, 2)
	})

	t.Run("KClampedToInputSize", func(t *testing.T) {
		analyzer := NewAnalyzer(nil)
		points := threeBlobs()[:4] // supports only one cluster of >= 3 points

		clusters, err := analyzer.Analyze(ctx, points, 10)
		require.NoError(t, err)
		assert.Len(t, clusters, 1)
		assert.Len(t, clusters[0].RecordIDs, 4)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		analyzer := NewAnalyzer(nil)
		clusters, err := analyzer.Analyze(ctx, nil, 3)
		require.NoError(t, err)
		assert.Empty(t, clusters)
	})

	t.Run("InvalidK", func(t *testing.T) {
		analyzer := NewAnalyzer(nil)
		_, err := analyzer.Analyze(ctx, threeBlobs(), 0)
		assert.Error(t, err)
	})
}
