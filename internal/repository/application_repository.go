package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/iliyamo/bartab/internal/model"
)

// ApplicationRepo stores venue applications submitted through the public
// sign-up form.
type ApplicationRepo struct {
	db *sql.DB
}

func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

// Create inserts a PENDING application. Email uniqueness is enforced by the
// uq_application_email key and reported as ErrApplicationExists.
func (r *ApplicationRepo) Create(ctx context.Context, a *model.VenueApplication) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.Status = model.ApplicationPending
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO venue_applications (business_name, manager_name, email, phone, address, city, state, zip_code,
		                                pos_system, estimated_volume, notes, status, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.BusinessName, a.ManagerName, a.Email, a.Phone, a.Address, a.City, a.State, a.ZipCode,
		a.POSSystem, nullStr(a.EstimatedVolume), nullStr(a.Notes), a.Status, a.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrApplicationExists
		}
		return fmt.Errorf("insert application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// List returns applications newest first, optionally filtered by status.
func (r *ApplicationRepo) List(ctx context.Context, status string, limit int) ([]model.VenueApplication, error) {
	q := `SELECT id, business_name, manager_name, email, phone, address, city, state, zip_code,
	             pos_system, estimated_volume, notes, status, created_at
	      FROM venue_applications`
	args := []any{}
	if status != "" {
		q += " WHERE status=?"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.VenueApplication{}
	for rows.Next() {
		var (
			a      model.VenueApplication
			volume sql.NullString
			notes  sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.BusinessName, &a.ManagerName, &a.Email, &a.Phone, &a.Address,
			&a.City, &a.State, &a.ZipCode, &a.POSSystem, &volume, &notes, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.EstimatedVolume = strPtr(volume)
		a.Notes = strPtr(notes)
		out = append(out, a)
	}
	return out, rows.Err()
}
