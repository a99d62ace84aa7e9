package model

import "time"

// Role names carried in users.role and in the token's role claim.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an application user record as stored in the
// `users` table.  Handlers never serialise this struct directly; they
// build response types that omit PasswordHash.
//
// Fields:
//  ID           – primary key identifier.
//  Username     – unique login name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FullName     – display name.
//  Phone        – contact number.
//  Address      – postal address (may be empty).
//  PhotoPath    – stored profile photo, nil when none was uploaded.
//  Role         – user or admin.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FullName     string    // users.full_name
	Phone        string    // users.phone
	Address      string    // users.address
	PhotoPath    *string   // users.photo_path (nullable)
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}

// HasPhoto reports whether a profile photo is on file.
func (u User) HasPhoto() bool { return u.PhotoPath != nil && *u.PhotoPath != "" }

// ValidRole reports whether r is a role the system knows.
func ValidRole(r string) bool { return r == RoleUser || r == RoleAdmin }

// UserPatch carries an admin update.  A nil field is left untouched;
// PasswordHash is already hashed by the caller.
type UserPatch struct {
	Username     *string
	Email        *string
	FullName     *string
	Phone        *string
	Address      *string
	Role         *string
	PasswordHash *string
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FullName == nil && p.Phone == nil &&
		p.Address == nil && p.Role == nil && p.PasswordHash == nil
}
