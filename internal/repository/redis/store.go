package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"

	"github.com/dtroode/tokenkeeper/internal/cryptox"
	"github.com/dtroode/tokenkeeper/internal/model"
)

var _ model.SessionStore = (*Store)(nil)

const (
	sessionPrefix   = "session:"
	blacklistPrefix = "blacklist:"
	subjectPrefix   = "subject:"
	ratePrefix      = "ratelimit:"

	// revokedMarker is stored in blacklist entries whose subject is unknown.
	revokedMarker = "revoked"
)

// Session index policies.
const (
	PolicySingle = "single"
	PolicyMulti  = "multi"
)

// StoreConfig tunes the session store.
type StoreConfig struct {
	// Policy is "single" (a new session displaces the previous one) or "multi".
	Policy string
	// Retries bounds retries of idempotent operations on transport errors.
	Retries   uint64
	RetryBase time.Duration
	// Now is the clock for rate-limit windows. time.Now if nil.
	Now func() time.Time
}

// Store keeps refresh sessions, the blacklist and rate-limit logs in redis.
// Keys are HMAC digests of the raw token; values are sealed with an AEAD
// bound to the key they are stored under.
type Store struct {
	client    goredis.UniversalClient
	sealer    *cryptox.Sealer
	hasher    *cryptox.Hasher
	policy    string
	retries   uint64
	retryBase time.Duration
	now       func() time.Time
}

func NewStore(client goredis.UniversalClient, sealer *cryptox.Sealer, hasher *cryptox.Hasher, cfg StoreConfig) (*Store, error) {
	if client == nil || sealer == nil || hasher == nil {
		return nil, fmt.Errorf("session store requires client, sealer and hasher")
	}

	policy := cfg.Policy
	switch policy {
	case "":
		policy = PolicySingle
	case PolicySingle, PolicyMulti:
	default:
		return nil, fmt.Errorf("unknown session policy %q", policy)
	}

	retryBase := cfg.RetryBase
	if retryBase <= 0 {
		retryBase = 10 * time.Millisecond
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		client:    client,
		sealer:    sealer,
		hasher:    hasher,
		policy:    policy,
		retries:   cfg.Retries,
		retryBase: retryBase,
		now:       now,
	}, nil
}

// PutSession stores a new session under the digest of token.
func (s *Store) PutSession(ctx context.Context, token string, session model.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	digest := s.hasher.Hash(token)
	key := sessionPrefix + digest
	sealed, err := s.seal(key, session)
	if err != nil {
		return err
	}

	return s.withRetry(ctx, func(ctx context.Context) error {
		return putScript.Run(ctx, s.client,
			[]string{key, subjectPrefix + session.Subject.String()},
			sealed, ttl.Milliseconds(), digest, s.policy,
			sessionPrefix, blacklistPrefix, session.Subject.String(), ttl.Milliseconds(),
		).Err()
	})
}

// GetSession returns the session stored for token.
// It returns model.ErrNotFound if there is none.
func (s *Store) GetSession(ctx context.Context, token string) (model.StoredSession, error) {
	key := sessionPrefix + s.hasher.Hash(token)

	var sealed []byte
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		sealed, err = s.client.Get(ctx, key).Bytes()
		return err
	})
	if err != nil {
		return model.StoredSession{}, err
	}

	plain, err := s.sealer.Open(sealed, []byte(key))
	if err != nil {
		return model.StoredSession{}, fmt.Errorf("failed to open session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(plain, &session); err != nil {
		return model.StoredSession{}, fmt.Errorf("failed to decode session: %w", model.ErrTamperedData)
	}

	return model.StoredSession{Session: session, Sealed: sealed}, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	key := sessionPrefix + s.hasher.Hash(token)
	return s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.Del(ctx, key).Err()
	})
}

// RotateSession atomically replaces the old session with the next one if the
// stored ciphertext still matches. The old token is blacklisted on success.
// It returns false if another caller rotated first.
func (s *Store) RotateSession(ctx context.Context, rotation model.Rotation) (bool, error) {
	if rotation.TTL <= 0 || rotation.BlacklistTTL <= 0 {
		return false, fmt.Errorf("rotation ttl must be positive")
	}

	oldDigest := s.hasher.Hash(rotation.OldToken)
	newDigest := s.hasher.Hash(rotation.NewToken)
	newKey := sessionPrefix + newDigest

	sealed, err := s.seal(newKey, rotation.Next)
	if err != nil {
		return false, err
	}

	subject := rotation.Next.Subject.String()
	swapped, err := rotateScript.Run(ctx, s.client,
		[]string{sessionPrefix + oldDigest, newKey, blacklistPrefix + oldDigest, subjectPrefix + subject},
		rotation.Expected, sealed, rotation.TTL.Milliseconds(), rotation.BlacklistTTL.Milliseconds(),
		subject, oldDigest, newDigest, s.policy,
	).Int()
	if err != nil {
		return false, mapError(err)
	}

	return swapped == 1, nil
}

// RevokeSession deletes the session for token and blacklists it.
func (s *Store) RevokeSession(ctx context.Context, token string, blacklistTTL time.Duration) error {
	if blacklistTTL <= 0 {
		return fmt.Errorf("blacklist ttl must be positive")
	}

	digest := s.hasher.Hash(token)
	return s.withRetry(ctx, func(ctx context.Context) error {
		return revokeScript.Run(ctx, s.client,
			[]string{sessionPrefix + digest, blacklistPrefix + digest},
			blacklistTTL.Milliseconds(), revokedMarker,
		).Err()
	})
}

// RevokeSubject deletes and blacklists every indexed session of subject.
func (s *Store) RevokeSubject(ctx context.Context, subject uuid.UUID, blacklistTTL time.Duration) error {
	if blacklistTTL <= 0 {
		return fmt.Errorf("blacklist ttl must be positive")
	}

	return s.withRetry(ctx, func(ctx context.Context) error {
		return revokeSubjectScript.Run(ctx, s.client,
			[]string{subjectPrefix + subject.String()},
			blacklistTTL.Milliseconds(), subject.String(), s.policy, sessionPrefix, blacklistPrefix,
		).Err()
	})
}

// Blacklist marks token as revoked for at least ttl. An existing entry with
// a longer lifetime is left alone.
func (s *Store) Blacklist(ctx context.Context, token string, subject uuid.UUID, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("blacklist ttl must be positive")
	}

	marker := revokedMarker
	if subject != uuid.Nil {
		marker = subject.String()
	}

	key := blacklistPrefix + s.hasher.Hash(token)
	return s.withRetry(ctx, func(ctx context.Context) error {
		return blacklistScript.Run(ctx, s.client, []string{key}, ttl.Milliseconds(), marker).Err()
	})
}

func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	key := blacklistPrefix + s.hasher.Hash(token)

	var n int64
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.client.Exists(ctx, key).Result()
		return err
	})
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// ConsumeRateLimit records an attempt for key and reports whether it is
// within maxAttempts over the trailing window. Rejected attempts are not
// recorded.
func (s *Store) ConsumeRateLimit(ctx context.Context, key string, window time.Duration, maxAttempts int) (bool, error) {
	if window <= 0 || maxAttempts <= 0 {
		return false, fmt.Errorf("rate limit window and max attempts must be positive")
	}

	now := s.now().UnixMilli()
	cutoff := now - window.Milliseconds()

	allowed, err := rateLimitScript.Run(ctx, s.client,
		[]string{ratePrefix + s.hasher.Hash(key)},
		strconv.FormatInt(now, 10), strconv.FormatInt(cutoff, 10), strconv.Itoa(maxAttempts),
		uuid.NewString(), strconv.FormatInt(window.Milliseconds(), 10),
	).Int()
	if err != nil {
		return false, mapError(err)
	}

	return allowed == 1, nil
}

func (s *Store) seal(key string, session model.Session) ([]byte, error) {
	plain, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	sealed, err := s.sealer.Seal(plain, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to seal session: %w", err)
	}

	return sealed, nil
}

// withRetry runs an idempotent operation, retrying transport errors with
// exponential backoff. The returned error is already mapped.
func (s *Store) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.retryBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return mapError(err)
	}

	return nil
}

func retryable(err error) bool {
	if errors.Is(err, goredis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var redisErr goredis.Error
	return !errors.As(err, &redisErr)
}

func mapError(err error) error {
	if errors.Is(err, goredis.Nil) {
		return model.ErrNotFound
	}
	return fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
}

// Ping reports whether the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return mapError(err)
	}
	return nil
}
