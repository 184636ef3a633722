package record_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corpusmap/backend/features/record"
	"corpusmap/backend/internal/testutils"
)

func TestRecordRepoIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	ctx := context.Background()
	repo := record.NewPostgresRepo(suite.DB)

	vec := make([]float32, 1536)
	vec[0] = 1

	base := func() *record.Record {
		return &record.Record{
			Source:        "arxiv",
			SourceLocalID: "2403.0001",
			Title:         "A Study",
			Abstract:      "We study things.",
			Categories:    []string{"cs.LG"},
			PrimaryDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}
	}

	t.Run("UpsertLifecycle", func(t *testing.T) {
		rec := base()
		needs, err := repo.Upsert(ctx, rec)
		require.NoError(t, err)
		assert.True(t, needs)
		require.NotEmpty(t, rec.ID)

		require.NoError(t, repo.SetEmbedding(ctx, rec.ID, vec))
		require.NoError(t, repo.SetPosition(ctx, rec.ID, 1.5, -2.5))

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.True(t, got.HasEmbedding)
		require.NotNil(t, got.PosX)
		assert.InDelta(t, 1.5, *got.PosX, 1e-9)

		// Re-ingesting identical text keeps the enrichment results.
		same := base()
		needs, err = repo.Upsert(ctx, same)
		require.NoError(t, err)
		assert.False(t, needs)
		assert.Equal(t, rec.ID, same.ID)

		// A text change resets embedding and position together.
		changed := base()
		changed.Abstract = "We study different things."
		needs, err = repo.Upsert(ctx, changed)
		require.NoError(t, err)
		assert.True(t, needs)

		got, err = repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.False(t, got.HasEmbedding)
		assert.Nil(t, got.PosX)
		assert.Nil(t, got.PosY)
	})

	t.Run("GetEmbeddingRoundTrip", func(t *testing.T) {
		rec := base()
		rec.SourceLocalID = "2403.0002"
		_, err := repo.Upsert(ctx, rec)
		require.NoError(t, err)

		_, err = repo.GetEmbedding(ctx, rec.ID)
		assert.ErrorIs(t, err, record.ErrNoEmbedding)

		require.NoError(t, repo.SetEmbedding(ctx, rec.ID, vec))
		got, err := repo.GetEmbedding(ctx, rec.ID)
		require.NoError(t, err)
		assert.InDeltaSlice(t, vec, got, 1e-6)
	})

	t.Run("SetPositionWithoutEmbeddingRefused", func(t *testing.T) {
		rec := base()
		rec.SourceLocalID = "2403.0003"
		_, err := repo.Upsert(ctx, rec)
		require.NoError(t, err)

		err = repo.SetPosition(ctx, rec.ID, 1, 1)
		assert.ErrorIs(t, err, record.ErrNoEmbedding)
	})

	t.Run("MetadataUpsert", func(t *testing.T) {
		rec := base()
		rec.SourceLocalID = "2403.0004"
		_, err := repo.Upsert(ctx, rec)
		require.NoError(t, err)

		require.NoError(t, repo.SetMetadata(ctx, rec.ID, "doi", []byte(`"10.1000/x"`)))
		require.NoError(t, repo.SetMetadata(ctx, rec.ID, "doi", []byte(`"10.1000/y"`)))

		got, err := repo.Get(ctx, rec.ID)
		require.NoError(t, err)
		assert.JSONEq(t, `{"doi":"10.1000/y"}`, string(got.Metadata))
	})
}
