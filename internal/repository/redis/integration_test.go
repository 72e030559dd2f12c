//go:build integration

package redis_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dtroode/tokenkeeper/internal/cryptox"
	"github.com/dtroode/tokenkeeper/internal/model"
	repo "github.com/dtroode/tokenkeeper/internal/repository/redis"
)

var addr string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		panic(err)
	}
	addr = fmt.Sprintf("%s:%s", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, repo.ConnectionConfig{Addr: addr, PoolSize: 4, DialTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	keys, err := cryptox.DeriveKeys(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	sealer, err := cryptox.NewSealer(keys.Encryption)
	require.NoError(t, err)

	store, err := repo.NewStore(conn.Client, sealer, cryptox.NewHasher(keys.Hashing), repo.StoreConfig{Retries: 2})
	require.NoError(t, err)

	session := model.Session{ID: uuid.New(), Subject: uuid.New(), Role: "member", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.PutSession(ctx, "r1", session, time.Minute))

	stored, err := store.GetSession(ctx, "r1")
	require.NoError(t, err)

	ok, err := store.RotateSession(ctx, model.Rotation{
		OldToken:     "r1",
		Expected:     stored.Sealed,
		NewToken:     "r2",
		Next:         session,
		TTL:          time.Minute,
		BlacklistTTL: time.Minute,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	revoked, err := store.IsBlacklisted(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, revoked)

	require.NoError(t, store.RevokeSession(ctx, "r2", time.Minute))
	_, err = store.GetSession(ctx, "r2")
	assert.ErrorIs(t, err, model.ErrNotFound)

	for i := 0; i < 2; i++ {
		allowed, err := store.ConsumeRateLimit(ctx, "client", time.Minute, 2)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := store.ConsumeRateLimit(ctx, "client", time.Minute, 2)
	require.NoError(t, err)
	assert.False(t, allowed)
}
