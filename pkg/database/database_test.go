package database

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SQLiteMemoryUsesSingleConnection(t *testing.T) {
	db, err := New(WithDataSource(":memory:"), WithMaxOpenConns(10))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)

	_, err = db.Exec(`CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(WithDriver(""))
	assert.ErrorContains(t, err, "driver cannot be empty")

	_, err = New(WithDataSource(""))
	assert.ErrorContains(t, err, "data source cannot be empty")
}

func TestNew_UnknownDriverGivesUp(t *testing.T) {
	_, err := New(WithDriver("nope"), WithDataSource("x"), WithRetry(2, time.Millisecond))
	assert.ErrorContains(t, err, "after 2 attempts")
}

func TestWithQueryParam(t *testing.T) {
	assert.Equal(t, "file:data.db?mode=ro", withQueryParam("data.db", "mode=ro"))
	assert.Equal(t, "file:data.db?cache=shared&mode=ro", withQueryParam("file:data.db?cache=shared", "mode=ro"))
	assert.Equal(t, "file:data.db?mode=ro", withQueryParam("file:data.db?mode=ro", "mode=ro"))
}
