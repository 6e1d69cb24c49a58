package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository/memory"
	"github.com/wadjakorntonsri/pretty-links/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/pretty-links/pkg/config"
)

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	repo, err := New(ctx, &config.Config{StoreBackend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.MemoryRepository{}, repo)
	require.NoError(t, repo.Close())

	repo, err = New(ctx, &config.Config{
		StoreBackend: config.BackendSQLite,
		DatabaseURL:  "file:" + filepath.Join(t.TempDir(), "db.sqlite"),
	})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.SQLiteRepository{}, repo)
	require.NoError(t, repo.Close())
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &config.Config{StoreBackend: "postgres"})
	assert.Error(t, err)
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := New(context.Background(), &config.Config{
		StoreBackend: config.BackendRedis,
		RedisAddr:    "127.0.0.1:1",
	})
	assert.Error(t, err)
}
