package repositories

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/voicesentinel/voicesentinel/internal/db"
	"github.com/voicesentinel/voicesentinel/internal/errors"
	"github.com/voicesentinel/voicesentinel/internal/models"
)

// ProfileRepository stores the registered identity callers are validated
// against.
type ProfileRepository struct {
	dbs    *db.Database
	logger *slog.Logger
}

func NewProfileRepository(dbs *db.Database, logger *slog.Logger) *ProfileRepository {
	return &ProfileRepository{
		dbs:    dbs,
		logger: logger.With("source", "ProfileRepository"),
	}
}

// Profile returns the registered profile for an account, or nil when none is
// on record. It satisfies claims.ProfileSource.
func (r *ProfileRepository) Profile(ctx context.Context, accountID string) (*models.CallerProfile, error) {
	stmt := `SELECT account_id, otp, full_name, date_of_birth, registered_country
FROM caller_profiles WHERE account_id = ?`

	var profile models.CallerProfile
	err := r.dbs.ReadOnly.GetContext(ctx, &profile, stmt, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read caller profile", slog.String("account_id", accountID))
	}
	return &profile, nil
}

// Upsert creates or replaces a caller profile.
func (r *ProfileRepository) Upsert(ctx context.Context, profile models.CallerProfile) error {
	stmt := `INSERT INTO caller_profiles (account_id, otp, full_name, date_of_birth, registered_country)
VALUES (:account_id, :otp, :full_name, :date_of_birth, :registered_country)
ON CONFLICT (account_id) DO UPDATE SET
    otp                = excluded.otp,
    full_name          = excluded.full_name,
    date_of_birth      = excluded.date_of_birth,
    registered_country = excluded.registered_country`
	if _, err := r.dbs.ReadWrite.NamedExecContext(ctx, stmt, profile); err != nil {
		return errors.Wrap(err, "upsert caller profile", slog.String("account_id", profile.AccountID))
	}
	return nil
}
