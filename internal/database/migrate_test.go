//go:build integration

package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/secondbrain/internal/testutil"
)

func TestRunMigrations_UpDown(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	require.NoError(t, RunMigrations(pc.ConnectionString(), "../../migrations", Up))
	require.NoError(t, RunMigrations(pc.ConnectionString(), "../../migrations", Up), "second run is a no-op")

	pool, err := NewPool(ctx, pc.ConnectionString(), PoolOptions{MaxConns: 2})
	require.NoError(t, err)
	defer pool.Close()

	var exists bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT to_regclass('knowledge_chunks') IS NOT NULL`).Scan(&exists))
	assert.True(t, exists)

	require.NoError(t, RunMigrations(pc.ConnectionString(), "../../migrations", Down))
	require.NoError(t, pool.QueryRow(ctx, `SELECT to_regclass('knowledge_chunks') IS NOT NULL`).Scan(&exists))
	assert.False(t, exists)
}

func TestRunMigrations_UnknownDirection(t *testing.T) {
	err := RunMigrations("postgres://nobody@127.0.0.1:1/none?sslmode=disable", "../../migrations", Direction("sideways"))
	assert.Error(t, err)
}

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), "://not a url", PoolOptions{})
	assert.Error(t, err)
}
