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

func TestAdminRepository_PurgePhone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dbs := newTestDB(t)
	logger := testhelpers.NewLogger(io.Discard)
	admin := repositories.NewAdminRepository(dbs, logger)
	records := repositories.NewVerificationRepository(dbs, logger)
	memories := repositories.NewMemoryRepository(dbs, logger)
	baselines := repositories.NewBaselineRepository(dbs, logger)

	now := time.Now()
	record := models.VerificationRecord{
		CallID:      "call-1",
		PhoneNumber: "+111",
		RiskLevel:   models.RiskLow,
		Status:      models.StatusVerified,
		CreatedAt:   now,
	}
	require.NoError(t, records.Insert(ctx, &record))
	require.NoError(t, memories.Record(ctx, "+111", "Ada", "1 May 1990", 80, now))
	require.NoError(t, memories.LinkAccount(ctx, "+111", "12345"))
	require.NoError(t, baselines.Save(ctx, "+111", []float64{0.5}, now))

	require.NoError(t, admin.PurgePhone(ctx, "+111"))

	listed, err := records.ListRecent(ctx, "+111", 10)
	require.NoError(t, err)
	require.Empty(t, listed)

	memory, err := memories.Get(ctx, "+111")
	require.NoError(t, err)
	require.Nil(t, memory)

	linked, err := memories.LinkedAccounts(ctx, "+111")
	require.NoError(t, err)
	require.Empty(t, linked)

	baseline, err := baselines.Get(ctx, "+111")
	require.NoError(t, err)
	require.Nil(t, baseline)
}
