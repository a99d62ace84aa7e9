package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/park-ticketing/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, username, email, password_hash, full_name, phone, address, photo_path, role, created_at`

func scanUser(row interface{ Scan(...any) error }, u *model.User, extra ...any) error {
	var (
		addr  sql.NullString
		photo sql.NullString
	)
	dest := []any{&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone,
		&addr, &photo, &u.Role, &u.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	u.Address = addr.String
	u.PhotoPath = nil
	if photo.Valid && photo.String != "" {
		p := photo.String
		u.PhotoPath = &p
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, args ...any) (model.User, error) {
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", args...), &u)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// FindByUsernameOrEmail fetches a user whose username or email equals
// login.  Emails are compared case-insensitively.
func (r *UserRepo) FindByUsernameOrEmail(ctx context.Context, login string) (model.User, error) {
	login = strings.TrimSpace(login)
	return r.getOne(ctx, "username = ? OR email = ?", login, strings.ToLower(login))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// classifyDuplicate maps a 1062 on the users table to the sentinel of
// the offending key.
func classifyDuplicate(err error) error {
	if !isDuplicate(err) {
		return err
	}
	if strings.Contains(duplicateKey(err), "email") {
		return ErrEmailExists
	}
	return ErrUsernameExists
}

// Create inserts u (PasswordHash already set) and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (uint64, error) {
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, full_name, phone, address, photo_path, role)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Username, strings.ToLower(u.Email), u.PasswordHash, u.FullName, u.Phone, u.Address, u.PhotoPath, u.Role)
	if err != nil {
		return 0, classifyDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = uint64(id)
	return u.ID, nil
}

// patchColumns fixes the order and column of every updatable field.
var patchColumns = []struct {
	column string
	value  func(p model.UserPatch) *string
}{
	{"username", func(p model.UserPatch) *string { return p.Username }},
	{"email", func(p model.UserPatch) *string { return p.Email }},
	{"full_name", func(p model.UserPatch) *string { return p.FullName }},
	{"phone", func(p model.UserPatch) *string { return p.Phone }},
	{"address", func(p model.UserPatch) *string { return p.Address }},
	{"role", func(p model.UserPatch) *string { return p.Role }},
	{"password_hash", func(p model.UserPatch) *string { return p.PasswordHash }},
}

// Update applies the non-nil fields of patch and returns the number of
// rows MySQL reports as changed.  An empty patch yields ErrNoFields.
func (r *UserRepo) Update(ctx context.Context, id uint64, patch model.UserPatch) (int64, error) {
	sets := make([]string, 0, len(patchColumns))
	args := make([]any, 0, len(patchColumns)+1)
	for _, pc := range patchColumns {
		v := pc.value(patch)
		if v == nil {
			continue
		}
		sets = append(sets, pc.column+" = ?")
		if pc.column == "email" {
			args = append(args, strings.ToLower(*v))
		} else {
			args = append(args, *v)
		}
	}
	if len(sets) == 0 {
		return 0, ErrNoFields
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return 0, classifyDuplicate(err)
	}
	return res.RowsAffected()
}

// Delete removes the user and their bookings in one transaction and
// returns how many bookings went with them.
func (r *UserRepo) Delete(ctx context.Context, id uint64) (int64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	res, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE user_id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete bookings: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	res, err = tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrUserNotFound
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return deleted, nil
}

// UserWithStats is a user row as listed to admins.
type UserWithStats struct {
	model.User
	TotalBookings int
	TotalSpent    decimal.Decimal
}

// ListWithStats returns every user with their confirmed booking count
// and spend, newest accounts first.
func (r *UserRepo) ListWithStats(ctx context.Context) ([]UserWithStats, error) {
	const q = `SELECT u.id, u.username, u.email, u.password_hash, u.full_name, u.phone, u.address,
	       u.photo_path, u.role, u.created_at,
	       COUNT(b.id), COALESCE(SUM(b.total_price), 0)
	FROM users u
	LEFT JOIN bookings b ON b.user_id = u.id AND b.booking_status = 'confirmed'
	GROUP BY u.id
	ORDER BY u.created_at DESC, u.id DESC`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []UserWithStats{}
	for rows.Next() {
		var s UserWithStats
		if err := scanUser(rows, &s.User, &s.TotalBookings, &s.TotalSpent); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UsernameTaken reports whether another user (id != excludeID) holds
// username.  Pass 0 to check against every user.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error) {
	return r.taken(ctx, "username = ?", username, excludeID)
}

// EmailTaken is UsernameTaken for email addresses.
func (r *UserRepo) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	return r.taken(ctx, "email = ?", strings.ToLower(email), excludeID)
}

func (r *UserRepo) taken(ctx context.Context, cond, value string, excludeID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE "+cond+" AND id <> ?", value, excludeID).Scan(&n)
	return n > 0, err
}

// HasProfilePhoto reports whether the user has a photo on file.
func (r *UserRepo) HasProfilePhoto(ctx context.Context, userID uint64) (bool, error) {
	return hasProfilePhoto(ctx, r.DB, userID)
}

func hasProfilePhoto(ctx context.Context, q queryRower, userID uint64) (bool, error) {
	var photo sql.NullString
	err := q.QueryRowContext(ctx, "SELECT photo_path FROM users WHERE id = ?", userID).Scan(&photo)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, err
	}
	return photo.Valid && photo.String != "", nil
}

// SetPhoto records the stored photo path for the user.
func (r *UserRepo) SetPhoto(ctx context.Context, userID uint64, path string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET photo_path = ? WHERE id = ?", path, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, gerr := r.GetByID(ctx, userID); errors.Is(gerr, ErrUserNotFound) {
			return ErrUserNotFound
		}
	}
	return nil
}

// UpsertAdmin creates the admin account or, when the username already
// exists, resets its password and promotes it.  It reports whether a
// new row was created.
func (r *UserRepo) UpsertAdmin(ctx context.Context, u *model.User) (bool, error) {
	existing, err := r.FindByUsernameOrEmail(ctx, u.Username)
	switch {
	case errors.Is(err, ErrUserNotFound):
		u.Role = model.RoleAdmin
		if _, err := r.Create(ctx, u); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	}
	role := model.RoleAdmin
	if _, err := r.Update(ctx, existing.ID, model.UserPatch{Role: &role, PasswordHash: &u.PasswordHash}); err != nil {
		return false, err
	}
	u.ID = existing.ID
	return false, nil
}
