package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/voicesentinel/voicesentinel/internal/db"
	"github.com/voicesentinel/voicesentinel/internal/errors"
	"github.com/voicesentinel/voicesentinel/internal/models"
)

// MemoryRepository stores the per-phone-number cross-call memory: the last
// verified identity claims, the append-only trust and timestamp histories and
// the linked-accounts authorization graph.
type MemoryRepository struct {
	dbs    *db.Database
	logger *slog.Logger
}

func NewMemoryRepository(dbs *db.Database, logger *slog.Logger) *MemoryRepository {
	return &MemoryRepository{
		dbs:    dbs,
		logger: logger.With("source", "MemoryRepository"),
	}
}

type memoryRow struct {
	PhoneNumber      string    `db:"phone_number"`
	LastVerifiedName string    `db:"last_verified_name"`
	LastVerifiedDOB  string    `db:"last_verified_dob"`
	TrustScores      string    `db:"trust_scores"`
	CallTimestamps   string    `db:"call_timestamps"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Get returns the memory for a phone number, or nil when the caller has never
// been seen.
func (r *MemoryRepository) Get(ctx context.Context, phoneNumber string) (*models.CrossCallMemory, error) {
	stmt := `SELECT phone_number, last_verified_name, last_verified_dob, trust_scores, call_timestamps, updated_at
FROM cross_call_memory WHERE phone_number = ?`

	var row memoryRow
	err := r.dbs.ReadOnly.GetContext(ctx, &row, stmt, phoneNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read cross-call memory", slog.String("phone_number", phoneNumber))
	}

	memory := models.CrossCallMemory{
		PhoneNumber:      row.PhoneNumber,
		LastVerifiedName: row.LastVerifiedName,
		LastVerifiedDOB:  row.LastVerifiedDOB,
		UpdatedAt:        row.UpdatedAt,
	}
	if err = json.Unmarshal([]byte(row.TrustScores), &memory.TrustScores); err != nil {
		return nil, errors.Wrap(err, "decode trust scores", slog.String("phone_number", phoneNumber))
	}
	if err = json.Unmarshal([]byte(row.CallTimestamps), &memory.CallTimestamps); err != nil {
		return nil, errors.Wrap(err, "decode call timestamps", slog.String("phone_number", phoneNumber))
	}
	return &memory, nil
}

// Record overwrites the last-verified fields and appends a trust score and
// call timestamp to the histories, creating the memory on first contact.
func (r *MemoryRepository) Record(ctx context.Context, phoneNumber, name, dob string, trustScore float64, calledAt time.Time) error {
	return r.update(ctx, phoneNumber, func(memory *models.CrossCallMemory) {
		memory.LastVerifiedName = name
		memory.LastVerifiedDOB = dob
		memory.TrustScores = append(memory.TrustScores, trustScore)
		memory.CallTimestamps = append(memory.CallTimestamps, calledAt)
		memory.UpdatedAt = calledAt
	})
}

// PenalizeTrust appends a penalized trust score, floored at zero.
func (r *MemoryRepository) PenalizeTrust(ctx context.Context, phoneNumber string, penalty float64, at time.Time) error {
	return r.update(ctx, phoneNumber, func(memory *models.CrossCallMemory) {
		penalized := memory.LastTrustScore() - penalty
		if penalized < 0 {
			penalized = 0
		}
		memory.TrustScores = append(memory.TrustScores, penalized)
		memory.UpdatedAt = at
	})
}

// update reads, mutates and writes back a memory document. The read-modify-
// write is safe because the read-write pool holds a single connection and a
// phone number has at most one active session in the intended usage model.
func (r *MemoryRepository) update(ctx context.Context, phoneNumber string, mutate func(*models.CrossCallMemory)) error {
	memory, err := r.Get(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if memory == nil {
		memory = &models.CrossCallMemory{PhoneNumber: phoneNumber}
	}

	mutate(memory)

	trustScores, err := json.Marshal(memory.TrustScores)
	if err != nil {
		return errors.Wrap(err, "encode trust scores")
	}
	callTimestamps, err := json.Marshal(memory.CallTimestamps)
	if err != nil {
		return errors.Wrap(err, "encode call timestamps")
	}

	stmt := `INSERT INTO cross_call_memory (phone_number, last_verified_name, last_verified_dob, trust_scores, call_timestamps, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (phone_number) DO UPDATE SET
    last_verified_name = excluded.last_verified_name,
    last_verified_dob  = excluded.last_verified_dob,
    trust_scores       = excluded.trust_scores,
    call_timestamps    = excluded.call_timestamps,
    updated_at         = excluded.updated_at`
	if _, err = r.dbs.ReadWrite.ExecContext(ctx, stmt,
		memory.PhoneNumber,
		memory.LastVerifiedName,
		memory.LastVerifiedDOB,
		string(trustScores),
		string(callTimestamps),
		memory.UpdatedAt,
	); err != nil {
		return errors.Wrap(err, "upsert cross-call memory", slog.String("phone_number", phoneNumber))
	}
	return nil
}

// LinkedAccounts returns the accounts this phone number is authorized to
// access.
func (r *MemoryRepository) LinkedAccounts(ctx context.Context, phoneNumber string) ([]string, error) {
	var accounts []string
	stmt := `SELECT account_id FROM linked_accounts WHERE phone_number = ?`
	if err := r.dbs.ReadOnly.SelectContext(ctx, &accounts, stmt, phoneNumber); err != nil {
		return nil, errors.Wrap(err, "query linked accounts", slog.String("phone_number", phoneNumber))
	}
	return accounts, nil
}

// LinkAccount adds an account to the phone number's authorization graph.
// Linking an already linked account is a no-op.
func (r *MemoryRepository) LinkAccount(ctx context.Context, phoneNumber, accountID string) error {
	stmt := `INSERT INTO linked_accounts (phone_number, account_id) VALUES (?, ?)
ON CONFLICT (phone_number, account_id) DO NOTHING`
	if _, err := r.dbs.ReadWrite.ExecContext(ctx, stmt, phoneNumber, accountID); err != nil {
		return errors.Wrap(err, "link account",
			slog.String("phone_number", phoneNumber), slog.String("account_id", accountID))
	}
	return nil
}
