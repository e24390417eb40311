// Package repositories persists verification outcomes, cross-call memory,
// voice baselines and caller profiles in SQLite.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/voicesentinel/voicesentinel/internal/db"
	"github.com/voicesentinel/voicesentinel/internal/errors"
	"github.com/voicesentinel/voicesentinel/internal/models"
)

type VerificationRepository struct {
	dbs    *db.Database
	logger *slog.Logger
}

func NewVerificationRepository(dbs *db.Database, logger *slog.Logger) *VerificationRepository {
	return &VerificationRepository{
		dbs:    dbs,
		logger: logger.With("source", "VerificationRepository"),
	}
}

// recordRow mirrors the verification_records table. related_accounts is a
// JSON array in the database.
type recordRow struct {
	Seq                int64     `db:"seq"`
	CallID             string    `db:"call_id"`
	PhoneNumber        string    `db:"phone_number"`
	CountryCode        string    `db:"country_code"`
	OTPVerified        bool      `db:"otp_verified"`
	IdentityMismatches int       `db:"identity_mismatches"`
	SyntheticVoiceProb float64   `db:"synthetic_voice_probability"`
	VoiceMatchScore    float64   `db:"voice_match_score"`
	Intent             string    `db:"intent"`
	RiskPercentage     float64   `db:"risk_percentage"`
	RiskLevel          string    `db:"risk_level"`
	RelatedAccounts    string    `db:"related_accounts"`
	Status             string    `db:"verification_status"`
	AudioRef           string    `db:"audio_ref"`
	CreatedAt          time.Time `db:"created_at"`
}

func (row recordRow) toModel() (models.VerificationRecord, error) {
	var related []string
	if err := json.Unmarshal([]byte(row.RelatedAccounts), &related); err != nil {
		return models.VerificationRecord{}, errors.Wrap(err, "decode related accounts", slog.Int64("seq", row.Seq))
	}
	return models.VerificationRecord{
		Seq:                row.Seq,
		CallID:             row.CallID,
		PhoneNumber:        row.PhoneNumber,
		CountryCode:        row.CountryCode,
		OTPVerified:        row.OTPVerified,
		IdentityMismatches: row.IdentityMismatches,
		SyntheticVoiceProb: row.SyntheticVoiceProb,
		VoiceMatchScore:    row.VoiceMatchScore,
		Intent:             row.Intent,
		RiskPercentage:     row.RiskPercentage,
		RiskLevel:          models.RiskLevel(row.RiskLevel),
		RelatedAccounts:    related,
		Status:             row.Status,
		AudioRef:           row.AudioRef,
		CreatedAt:          row.CreatedAt,
	}, nil
}

// Insert persists an immutable verification record. The database assigns the
// strictly increasing sequence number; the audio reference is derived from it
// once, inside the same transaction, and the row is never touched again.
func (r *VerificationRepository) Insert(ctx context.Context, record *models.VerificationRecord) error {
	related, err := json.Marshal(record.RelatedAccounts)
	if err != nil {
		return errors.Wrap(err, "encode related accounts")
	}
	if record.RelatedAccounts == nil {
		related = []byte("[]")
	}

	tx, err := r.dbs.ReadWrite.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.Error("could not roll back transaction", errors.SlogError(rollbackErr))
		}
	}()

	stmt := `INSERT INTO verification_records
(call_id, phone_number, country_code, otp_verified, identity_mismatches,
 synthetic_voice_probability, voice_match_score, intent, risk_percentage,
 risk_level, related_accounts, verification_status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, stmt,
		record.CallID,
		record.PhoneNumber,
		record.CountryCode,
		record.OTPVerified,
		record.IdentityMismatches,
		record.SyntheticVoiceProb,
		record.VoiceMatchScore,
		record.Intent,
		record.RiskPercentage,
		string(record.RiskLevel),
		string(related),
		record.Status,
		record.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert verification record")
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read sequence number")
	}
	audioRef := AudioRef(seq)

	if _, err = tx.ExecContext(ctx,
		`UPDATE verification_records SET audio_ref = ? WHERE seq = ?`, audioRef, seq); err != nil {
		return errors.Wrap(err, "assign audio reference")
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit verification record")
	}

	record.Seq = seq
	record.AudioRef = audioRef
	return nil
}

// ListRecent returns up to limit records for a phone number, most recent
// first.
func (r *VerificationRepository) ListRecent(ctx context.Context, phoneNumber string, limit int) ([]models.VerificationRecord, error) {
	stmt := `SELECT seq, call_id, phone_number, country_code, otp_verified, identity_mismatches,
       synthetic_voice_probability, voice_match_score, intent, risk_percentage,
       risk_level, related_accounts, verification_status, audio_ref, created_at
FROM verification_records
WHERE phone_number = ?
ORDER BY seq DESC
LIMIT ?`

	var rows []recordRow
	if err := r.dbs.ReadOnly.SelectContext(ctx, &rows, stmt, phoneNumber, limit); err != nil {
		return nil, errors.Wrap(err, "query verification records", slog.String("phone_number", phoneNumber))
	}

	records := make([]models.VerificationRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toModel()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// AudioRef derives the stable audio artifact name for a sequence number.
func AudioRef(seq int64) string {
	return fmt.Sprintf("call_%06d.wav", seq)
}
