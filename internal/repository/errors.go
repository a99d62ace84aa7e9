// Package repository holds the MySQL data access layer.  The sentinel
// values below let higher layers such as the booking service and the
// handlers tell failure scenarios apart without inspecting driver
// messages.  Driver errors are classified once, here, by MySQL error
// number.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrEventNotFound is returned when no event row matches the id.
var ErrEventNotFound = errors.New("event not found")

// ErrPriceNotFound is returned when an event does not sell the
// requested seat type.
var ErrPriceNotFound = errors.New("price not found")

// ErrDuplicateReference is returned when a booking insert collides
// with an existing booking_reference.  The caller may regenerate the
// reference and retry within the same transaction.
var ErrDuplicateReference = errors.New("duplicate booking reference")

// ErrLockTimeout is returned when the event row lock could not be
// acquired in time or the transaction was chosen as a deadlock victim.
var ErrLockTimeout = errors.New("lock wait timeout")

// ErrUserNotFound is returned when no user row matches.
var ErrUserNotFound = errors.New("user not found")

// ErrUsernameExists and ErrEmailExists signal unique key violations
// on the users table.
var (
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already exists")
)

// ErrNoFields is returned by UserRepo.Update for an empty patch.
var ErrNoFields = errors.New("no fields to update")

// MySQL server error numbers the repositories care about.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errLockDeadlock    = 1213
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlErrNumber(err) == errDupEntry }

// isLockFailure reports lock wait timeouts, deadlocks and expired
// request deadlines.
func isLockFailure(err error) bool {
	switch mysqlErrNumber(err) {
	case errLockWaitTimeout, errLockDeadlock:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// duplicateKey extracts the key name from a 1062 message such as
// "Duplicate entry 'x' for key 'users.email'".
func duplicateKey(err error) string {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return ""
	}
	const marker = "for key '"
	i := strings.LastIndex(me.Message, marker)
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(me.Message[i+len(marker):], "'")
}
