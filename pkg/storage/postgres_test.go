package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresProvider(t *testing.T) {
	dsn := os.Getenv("SOLARFLEET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SOLARFLEET_TEST_POSTGRES_DSN not set")
	}

	p := &PostgresProvider{dsn: dsn}
	require.NoError(t, p.Validate())
	require.NoError(t, p.Init(context.Background()))
	defer p.Close()

	testDatabase(t, p)

	t.Run("MarkMalformedID", func(t *testing.T) {
		assert.ErrorIs(t, p.MarkNotificationRead(context.Background(), "not-a-uuid"), ErrNotificationNotFound)
	})
}

func TestPostgresValidate(t *testing.T) {
	assert.Error(t, (&PostgresProvider{}).Validate())
}
