package repositories_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/voicesentinel/voicesentinel/internal/models"
	"github.com/voicesentinel/voicesentinel/internal/repositories"
	"github.com/voicesentinel/voicesentinel/internal/testhelpers"
)

func TestProfileRepository(t *testing.T) {
	t.Parallel()

	dbs := newTestDB(t)
	repo := repositories.NewProfileRepository(dbs, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()

	profile, err := repo.Profile(ctx, "12345")
	require.NoError(t, err)
	require.Nil(t, profile)

	want := models.CallerProfile{
		AccountID:         "12345",
		OTP:               "5646",
		FullName:          "Ravi Kumar",
		DateOfBirth:       "15 July 2005",
		RegisteredCountry: "IN",
	}
	require.NoError(t, repo.Upsert(ctx, want))

	profile, err = repo.Profile(ctx, "12345")
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.Equal(t, want, *profile)

	want.OTP = "9999"
	require.NoError(t, repo.Upsert(ctx, want))
	profile, err = repo.Profile(ctx, "12345")
	require.NoError(t, err)
	require.Equal(t, "9999", profile.OTP)
}

func TestBaselineRepository(t *testing.T) {
	t.Parallel()

	dbs := newTestDB(t)
	repo := repositories.NewBaselineRepository(dbs, testhelpers.NewLogger(io.Discard))
	ctx := context.Background()
	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

	embedding, err := repo.Get(ctx, "9310022664")
	require.NoError(t, err)
	require.Nil(t, embedding, "first-time caller has no baseline")

	require.NoError(t, repo.Save(ctx, "9310022664", []float64{0.1, 0.2, 0.3}, now))

	embedding, err = repo.Get(ctx, "9310022664")
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.2, 0.3}, embedding)

	require.NoError(t, repo.Save(ctx, "9310022664", []float64{0.4, 0.5}, now.Add(time.Hour)))
	embedding, err = repo.Get(ctx, "9310022664")
	require.NoError(t, err)
	require.Equal(t, []float64{0.4, 0.5}, embedding)
}
