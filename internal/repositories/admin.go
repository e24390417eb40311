package repositories

import (
	"context"
	"log/slog"

	"github.com/voicesentinel/voicesentinel/internal/db"
	"github.com/voicesentinel/voicesentinel/internal/errors"
)

// AdminRepository performs maintenance operations that span the per-phone
// tables. Intended for operator tooling, not the request path.
type AdminRepository struct {
	dbs    *db.Database
	logger *slog.Logger
}

func NewAdminRepository(dbs *db.Database, logger *slog.Logger) *AdminRepository {
	return &AdminRepository{
		dbs:    dbs,
		logger: logger.With("source", "AdminRepository"),
	}
}

// PurgePhone removes every trace of a phone number: verification records,
// cross-call memory, linked accounts and the voice baseline.
func (r *AdminRepository) PurgePhone(ctx context.Context, phoneNumber string) error {
	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin purge transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmts := []string{
		`DELETE FROM verification_records WHERE phone_number = ?`,
		`DELETE FROM cross_call_memory WHERE phone_number = ?`,
		`DELETE FROM linked_accounts WHERE phone_number = ?`,
		`DELETE FROM voice_baselines WHERE phone_number = ?`,
	}
	for _, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt, phoneNumber); err != nil {
			return errors.Wrap(err, "purge phone number", slog.String("phone_number", phoneNumber))
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit purge transaction")
	}
	r.logger.Info("purged phone number", slog.String("phone_number", phoneNumber))
	return nil
}
