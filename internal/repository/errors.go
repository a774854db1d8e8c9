// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors. NotFound-style errors
// also cover rows that exist but belong to another user, so callers
// cannot probe for other patrons' tabs.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrVenueNotFound        = errors.New("venue not found")
	ErrTableNotFound        = errors.New("table not found")
	ErrTabNotFound          = errors.New("tab not found or closed")
	ErrSplitNotFound        = errors.New("split not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrVerificationNotFound = errors.New("no pending verification for this phone")
	ErrUserNotFound         = errors.New("user not found")
)

// ErrDuplicateOpenTab is returned when inserting a tab collides with the
// one-open-tab-per-venue unique key.
var ErrDuplicateOpenTab = errors.New("an open tab already exists at this venue")

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as a second full payment while one is already
// processing. Handlers translate this into an HTTP 400 response.
var ErrConflict = errors.New("conflict")

// ErrTabClosed is returned when closing a tab that is no longer OPEN.
var ErrTabClosed = fmt.Errorf("%w: tab already closed", ErrConflict)

// ErrSplitPaid is returned when a split already has a successful or
// in-flight payment.
var ErrSplitPaid = fmt.Errorf("%w: split already paid", ErrConflict)

var ErrEmailExists = errors.New("email already exists")

var ErrApplicationExists = errors.New("an application with this email already exists")

// ErrInvalidItem is the sentinel wrapped by InvalidItemError.
var ErrInvalidItem = errors.New("invalid menu item")

// InvalidItemError names the menu item that does not exist at the venue
// or is unavailable.
type InvalidItemError struct {
	MenuItemID uint64
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("menu item %d not found", e.MenuItemID)
}

func (e *InvalidItemError) Unwrap() error { return ErrInvalidItem }

// isDuplicateKey reports whether err is a MySQL unique-key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func nullID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func idPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
