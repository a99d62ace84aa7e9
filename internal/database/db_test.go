package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN("park", "pw", "db", "3306", "park")
	assert.Contains(t, dsn, "park:pw@tcp(db:3306)/park?")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestStatementsCoverTables(t *testing.T) {
	stmts := Statements()
	require.Len(t, stmts, 4)
	for i, table := range []string{"users", "events", "prices", "bookings"} {
		assert.Contains(t, stmts[i], "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Contains(t, stmts[3], "UNIQUE KEY booking_reference")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS events").WillReturnError(errors.New("denied"))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}
