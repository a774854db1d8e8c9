package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/bartab/internal/model"
)

// VerificationRepo stores phone verification codes.
type VerificationRepo struct {
	db *sql.DB
}

func NewVerificationRepo(db *sql.DB) *VerificationRepo { return &VerificationRepo{db: db} }

// Create inserts a freshly issued code.
func (r *VerificationRepo) Create(ctx context.Context, v *model.PhoneVerification) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO phone_verifications (phone, code, expires_at, verified, attempts, created_at) VALUES (?,?,?,0,0,?)",
		v.Phone, v.Code, v.ExpiresAt, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)
	return nil
}

// Attempt locks the newest unverified row for phone and hands it to fn.
// Whatever fn changed in Attempts and Verified is written back and
// committed even when fn returns an error, so failed attempts are counted.
// When the row ends up verified, users with that phone are marked
// verified in the same transaction. fn's error is returned unchanged.
func (r *VerificationRepo) Attempt(ctx context.Context, phone string, fn func(v *model.PhoneVerification) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var v model.PhoneVerification
	err = tx.QueryRowContext(ctx, `
		SELECT id, phone, code, expires_at, verified, attempts, created_at
		FROM phone_verifications
		WHERE phone=? AND verified=0
		ORDER BY created_at DESC, id DESC
		LIMIT 1 FOR UPDATE`, phone).
		Scan(&v.ID, &v.Phone, &v.Code, &v.ExpiresAt, &v.Verified, &v.Attempts, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrVerificationNotFound
	}
	if err != nil {
		return err
	}

	before := v
	fnErr := fn(&v)

	if v.Attempts != before.Attempts || v.Verified != before.Verified {
		if _, err := tx.ExecContext(ctx,
			"UPDATE phone_verifications SET attempts=?, verified=? WHERE id=?",
			v.Attempts, v.Verified, v.ID); err != nil {
			return fmt.Errorf("update verification: %w", err)
		}
	}
	if v.Verified && !before.Verified {
		if _, err := tx.ExecContext(ctx,
			"UPDATE users SET phone_verified=1 WHERE phone=?", v.Phone); err != nil {
			return fmt.Errorf("mark phone verified: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return fnErr
}
