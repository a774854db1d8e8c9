package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/utils"
)

const userColumns = "id, email, password_hash, role, first_name, last_name, phone, phone_verified, default_tip_percent, push_notifications, email_notifications, is_active, created_at, updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(s rowScanner) (model.User, error) {
	var (
		u                  model.User
		first, last, phone sql.NullString
	)
	err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &first, &last, &phone, &u.PhoneVerified,
		&u.DefaultTipPercent, &u.PushNotifications, &u.EmailNotifications, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	u.FirstName, u.LastName, u.Phone = strPtr(first), strPtr(last), strPtr(phone)
	return u, err
}

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email. A missing user is
// ErrUserNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.one(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.one(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) one(ctx context.Context, query string, arg any) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// UpdateProfile applies the non-nil fields of upd. Changing the phone
// number clears phone_verified.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, upd model.ProfileUpdate) (model.User, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+"=?")
		args = append(args, v)
	}
	if upd.FirstName != nil {
		add("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		add("last_name", *upd.LastName)
	}
	if upd.Phone != nil {
		sets = append(sets, "phone_verified = (phone_verified AND phone <=> ?)")
		args = append(args, *upd.Phone)
		add("phone", *upd.Phone)
	}
	if upd.DefaultTipPercent != nil {
		add("default_tip_percent", *upd.DefaultTipPercent)
	}
	if upd.PushNotifications != nil {
		add("push_notifications", *upd.PushNotifications)
	}
	if upd.EmailNotifications != nil {
		add("email_notifications", *upd.EmailNotifications)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return model.User{}, err
		}
	}
	return r.GetByID(ctx, id)
}
