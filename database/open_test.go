package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn, err := DSN(map[string]string{
		"SUPABASE_DB_HOST":     "db.ref.supabase.co",
		"SUPABASE_DB_USER":     "postgres",
		"SUPABASE_DB_PASSWORD": "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "host=db.ref.supabase.co user=postgres password=pw dbname=postgres port=5432 sslmode=require", dsn)

	dsn, err = DSN(map[string]string{"DB_TYPE": "postgres", "DATABASE_URL": "postgres://localhost/portfolio"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/portfolio", dsn)

	_, err = DSN(map[string]string{"DB_TYPE": "postgres"})
	require.Error(t, err)

	_, err = DSN(map[string]string{"DB_TYPE": "sqlite"})
	require.Error(t, err)
}
