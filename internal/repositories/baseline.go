package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/voicesentinel/voicesentinel/internal/db"
	"github.com/voicesentinel/voicesentinel/internal/errors"
)

// BaselineRepository stores the enrolled voice embedding per phone number.
// First contact enrolls; later calls compare against the stored baseline.
type BaselineRepository struct {
	dbs    *db.Database
	logger *slog.Logger
}

func NewBaselineRepository(dbs *db.Database, logger *slog.Logger) *BaselineRepository {
	return &BaselineRepository{
		dbs:    dbs,
		logger: logger.With("source", "BaselineRepository"),
	}
}

// Get returns the enrolled embedding, or nil for a first-time caller.
func (r *BaselineRepository) Get(ctx context.Context, phoneNumber string) ([]float64, error) {
	var raw string
	stmt := `SELECT embedding FROM voice_baselines WHERE phone_number = ?`
	err := r.dbs.ReadOnly.GetContext(ctx, &raw, stmt, phoneNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read voice baseline", slog.String("phone_number", phoneNumber))
	}

	var embedding []float64
	if err = json.Unmarshal([]byte(raw), &embedding); err != nil {
		return nil, errors.Wrap(err, "decode voice baseline", slog.String("phone_number", phoneNumber))
	}
	return embedding, nil
}

// Save enrolls or replaces the baseline embedding for a phone number.
func (r *BaselineRepository) Save(ctx context.Context, phoneNumber string, embedding []float64, at time.Time) error {
	raw, err := json.Marshal(embedding)
	if err != nil {
		return errors.Wrap(err, "encode voice baseline")
	}

	stmt := `INSERT INTO voice_baselines (phone_number, embedding, updated_at) VALUES (?, ?, ?)
ON CONFLICT (phone_number) DO UPDATE SET embedding = excluded.embedding, updated_at = excluded.updated_at`
	if _, err = r.dbs.ReadWrite.ExecContext(ctx, stmt, phoneNumber, string(raw), at); err != nil {
		return errors.Wrap(err, "save voice baseline", slog.String("phone_number", phoneNumber))
	}
	return nil
}
