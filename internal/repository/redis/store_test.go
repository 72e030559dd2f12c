package redis

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/tokenkeeper/internal/cryptox"
	"github.com/dtroode/tokenkeeper/internal/model"
)

func newTestStore(t *testing.T, policy string) (*Store, *miniredis.Miniredis) {
	t.Helper()

	m := miniredis.RunT(t)
	return newStoreFor(t, m, policy), m
}

func newStoreFor(t *testing.T, m *miniredis.Miniredis, policy string) *Store {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{Addr: m.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	keys, err := cryptox.DeriveKeys(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	sealer, err := cryptox.NewSealer(keys.Encryption)
	require.NoError(t, err)

	store, err := NewStore(client, sealer, cryptox.NewHasher(keys.Hashing), StoreConfig{
		Policy:    policy,
		Retries:   1,
		RetryBase: time.Millisecond,
	})
	require.NoError(t, err)

	return store
}

func testSession(subject uuid.UUID) model.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return model.Session{
		ID:        uuid.New(),
		Subject:   subject,
		Role:      "member",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestNewStore(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	defer client.Close()
	sealer, err := cryptox.NewSealer(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	hasher := cryptox.NewHasher([]byte("key"))

	t.Run("defaults to single policy", func(t *testing.T) {
		store, err := NewStore(client, sealer, hasher, StoreConfig{})
		require.NoError(t, err)
		assert.Equal(t, PolicySingle, store.policy)
	})

	t.Run("unknown policy", func(t *testing.T) {
		_, err := NewStore(client, sealer, hasher, StoreConfig{Policy: "per-device"})
		assert.Error(t, err)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewStore(nil, sealer, hasher, StoreConfig{})
		assert.Error(t, err)
	})
}

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store, m := newTestStore(t, PolicySingle)

	session := testSession(uuid.New())
	require.NoError(t, store.PutSession(ctx, "refresh-token", session, 10*time.Minute))

	got, err := store.GetSession(ctx, "refresh-token")
	require.NoError(t, err)
	assert.Equal(t, session, got.Session)
	assert.NotEmpty(t, got.Sealed)

	key := sessionPrefix + store.hasher.Hash("refresh-token")
	assert.Equal(t, 10*time.Minute, m.TTL(key))

	for _, k := range m.Keys() {
		assert.NotContains(t, k, "refresh-token")
	}
	raw, err := m.Get(key)
	require.NoError(t, err)
	assert.NotContains(t, raw, session.Subject.String())

	require.NoError(t, store.DeleteSession(ctx, "refresh-token"))
	_, err = store.GetSession(ctx, "refresh-token")
	assert.ErrorIs(t, err, model.ErrNotFound)

	// deleting twice is fine
	assert.NoError(t, store.DeleteSession(ctx, "refresh-token"))
}

func TestStore_GetSession_NotFound(t *testing.T) {
	store, _ := newTestStore(t, PolicySingle)

	_, err := store.GetSession(context.Background(), "unknown")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_GetSession_Tampered(t *testing.T) {
	ctx := context.Background()
	store, m := newTestStore(t, PolicySingle)

	require.NoError(t, store.PutSession(ctx, "refresh-token", testSession(uuid.New()), time.Minute))

	key := sessionPrefix + store.hasher.Hash("refresh-token")
	raw, err := m.Get(key)
	require.NoError(t, err)

	flipped := []byte(raw)
	flipped[len(flipped)-1] ^= 0x01
	require.NoError(t, m.Set(key, string(flipped)))

	_, err = store.GetSession(ctx, "refresh-token")
	assert.ErrorIs(t, err, model.ErrTamperedData)
}

func TestStore_GetSession_MovedValue(t *testing.T) {
	ctx := context.Background()
	store, m := newTestStore(t, PolicyMulti)

	require.NoError(t, store.PutSession(ctx, "a", testSession(uuid.New()), time.Minute))
	require.NoError(t, store.PutSession(ctx, "b", testSession(uuid.New()), time.Minute))

	raw, err := m.Get(sessionPrefix + store.hasher.Hash("a"))
	require.NoError(t, err)
	require.NoError(t, m.Set(sessionPrefix+store.hasher.Hash("b"), raw))

	_, err = store.GetSession(ctx, "b")
	assert.ErrorIs(t, err, model.ErrTamperedData)
}

func TestStore_SinglePolicyDisplacesPrevious(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, PolicySingle)

	subject := uuid.New()
	require.NoError(t, store.PutSession(ctx, "first", testSession(subject), time.Hour))
	require.NoError(t, store.PutSession(ctx, "second", testSession(subject), time.Hour))

	_, err := store.GetSession(ctx, "first")
	assert.ErrorIs(t, err, model.ErrNotFound)

	revoked, err := store.IsBlacklisted(ctx, "first")
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = store.GetSession(ctx, "second")
	assert.NoError(t, err)
}

func TestStore_MultiPolicyKeepsSessions(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, PolicyMulti)

	subject := uuid.New()
	require.NoError(t, store.PutSession(ctx, "laptop", testSession(subject), time.Hour))
	require.NoError(t, store.PutSession(ctx, "phone", testSession(subject), time.Hour))

	_, err := store.GetSession(ctx, "laptop")
	assert.NoError(t, err)
	_, err = store.GetSession(ctx, "phone")
	assert.NoError(t, err)

	require.NoError(t, store.RevokeSubject(ctx, subject, time.Hour))

	for _, token := range []string{"laptop", "phone"} {
		_, err = store.GetSession(ctx, token)
		assert.ErrorIs(t, err, model.ErrNotFound)

		revoked, err := store.IsBlacklisted(ctx, token)
		require.NoError(t, err)
		assert.True(t, revoked, token)
	}
}

func TestStore_RevokeSubject_Single(t *testing.T) {
	ctx := context.Background()
	store, m := newTestStore(t, PolicySingle)

	subject := uuid.New()
	require.NoError(t, store.PutSession(ctx, "token", testSession(subject), time.Hour))
	require.NoError(t, store.RevokeSubject(ctx, subject, time.Hour))

	_, err := store.GetSession(ctx, "token")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.False(t, m.Exists(subjectPrefix+subject.String()))

	// nothing indexed
	assert.NoError(t, store.RevokeSubject(ctx, uuid.New(), time.Hour))
}

func TestStore_RevokeSession(t *testing.T) {
	ctx := context.Background()
	store, m := newTestStore(t, PolicySingle)

	require.NoError(t, store.PutSession(ctx, "token", testSession(uuid.New()), time.Hour))
	require.NoError(t, store.RevokeSession(ctx, "token", 2*time.Hour))

	_, err := store.GetSession(ctx, "token")
	assert.ErrorIs(t, err, model.ErrNotFound)

	revoked, err := store.IsBlacklisted(ctx, "token")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 2*time.Hour, m.TTL(blacklistPrefix+store.hasher.Hash("token")))

	// revoking an unknown or already revoked token succeeds
	assert.NoError(t, store.RevokeSession(ctx, "token", 2*time.Hour))
	assert.NoError(t, store.RevokeSession(ctx, "never-issued", time.Hour))
}

func TestStore_BlacklistNeverShortens(t *testing.T) {
	ctx := context.Background()
	store, m := newTestStore(t, PolicySingle)

	subject := uuid.New()
	key := blacklistPrefix + store.hasher.Hash("jti")

	require.NoError(t, store.Blacklist(ctx, "jti", subject, 10*time.Minute))
	assert.Equal(t, 10*time.Minute, m.TTL(key))

	require.NoError(t, store.Blacklist(ctx, "jti", subject, time.Minute))
	assert.Equal(t, 10*time.Minute, m.TTL(key))

	require.NoError(t, store.Blacklist(ctx, "jti", subject, 20*time.Minute))
	assert.Equal(t, 20*time.Minute, m.TTL(key))

	value, err := m.Get(key)
	require.NoError(t, err)
	assert.Equal(t, subject.String(), value)

	m.FastForward(21 * time.Minute)
	revoked, err := store.IsBlacklisted(ctx, "jti")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestStore_RotateSession(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, PolicySingle)

	subject := uuid.New()
	session := testSession(subject)
	require.NoError(t, store.PutSession(ctx, "old", session, time.Hour))

	stored, err := store.GetSession(ctx, "old")
	require.NoError(t, err)

	next := session
	next.Generation = 1
	ok, err := store.RotateSession(ctx, model.Rotation{
		OldToken:     "old",
		Expected:     stored.Sealed,
		NewToken:     "new",
		Next:         next,
		TTL:          time.Hour,
		BlacklistTTL: time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.GetSession(ctx, "old")
	assert.ErrorIs(t, err, model.ErrNotFound)

	revoked, err := store.IsBlacklisted(ctx, "old")
	require.NoError(t, err)
	assert.True(t, revoked)

	got, err := store.GetSession(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Generation)

	// a second rotation with the same witness loses
	ok, err = store.RotateSession(ctx, model.Rotation{
		OldToken:     "old",
		Expected:     stored.Sealed,
		NewToken:     "other",
		Next:         next,
		TTL:          time.Hour,
		BlacklistTTL: time.Hour,
	})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.GetSession(ctx, "other")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStore_RotateSession_ConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, PolicySingle)

	session := testSession(uuid.New())
	require.NoError(t, store.PutSession(ctx, "old", session, time.Hour))
	stored, err := store.GetSession(ctx, "old")
	require.NoError(t, err)

	const callers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.RotateSession(ctx, model.Rotation{
				OldToken:     "old",
				Expected:     stored.Sealed,
				NewToken:     fmt.Sprintf("new-%d", i),
				Next:         session,
				TTL:          time.Hour,
				BlacklistTTL: time.Hour,
			})
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestStore_ConsumeRateLimit(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, PolicySingle)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, err := store.ConsumeRateLimit(ctx, "10.0.0.1", time.Minute, 3)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d", i+1)
	}

	allowed, err := store.ConsumeRateLimit(ctx, "10.0.0.1", time.Minute, 3)
	require.NoError(t, err)
	assert.False(t, allowed)

	// other clients are unaffected
	allowed, err = store.ConsumeRateLimit(ctx, "10.0.0.2", time.Minute, 3)
	require.NoError(t, err)
	assert.True(t, allowed)

	now = now.Add(time.Minute + time.Millisecond)
	allowed, err = store.ConsumeRateLimit(ctx, "10.0.0.1", time.Minute, 3)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	m := miniredis.NewMiniRedis()
	require.NoError(t, m.Start())
	store := newStoreFor(t, m, PolicySingle)
	m.Close()

	_, err := store.GetSession(ctx, "token")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	_, err = store.IsBlacklisted(ctx, "token")
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	err = store.PutSession(ctx, "token", testSession(uuid.New()), time.Minute)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	_, err = store.ConsumeRateLimit(ctx, "client", time.Minute, 1)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)

	_, err = store.RotateSession(ctx, model.Rotation{
		OldToken: "a", NewToken: "b", Next: testSession(uuid.New()), TTL: time.Minute, BlacklistTTL: time.Minute,
	})
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestStore_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t, PolicySingle)

	assert.Error(t, store.PutSession(ctx, "t", testSession(uuid.New()), 0))
	assert.Error(t, store.Blacklist(ctx, "t", uuid.Nil, 0))
	assert.Error(t, store.RevokeSession(ctx, "t", -time.Second))
	_, err := store.ConsumeRateLimit(ctx, "k", 0, 1)
	assert.Error(t, err)
	_, err = store.RotateSession(ctx, model.Rotation{OldToken: "a", NewToken: "b"})
	assert.Error(t, err)
}

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(goredis.Nil), model.ErrNotFound)
	err := mapError(fmt.Errorf("dial tcp: connection refused"))
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}
