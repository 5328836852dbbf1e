package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallbiznis/subtrack/internal/domain/gmail"
	"github.com/smallbiznis/subtrack/internal/repository"
)

const (
	keyPrefix      = "subtrack:session:"
	codeKeyName    = "gmail_auth_code"
	stateKeyName   = "gmail_auth_state"
	createdKeyName = "gmail_auth_created_at" // unix nanoseconds
)

// RedisArtifactStore implements ArtifactStore backed by Redis.
type RedisArtifactStore struct {
	client redis.UniversalClient
}

var _ repository.ArtifactStore = (*RedisArtifactStore)(nil)

// NewRedisArtifactStore constructs a Redis-backed artifact store.
func NewRedisArtifactStore(client redis.UniversalClient) *RedisArtifactStore {
	return &RedisArtifactStore{client: client}
}

// Save writes the code and, when present, the state and creation time under
// fixed per-session keys sharing one TTL.
func (s *RedisArtifactStore) Save(ctx context.Context, sessionID string, artifact gmail.AuthorizationArtifact, ttl time.Duration) error {
	if strings.TrimSpace(artifact.Code) == "" {
		return fmt.Errorf("save artifact: empty code")
	}
	keys := artifactKeys(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keys.code, artifact.Code, ttl)
		if artifact.State != "" {
			pipe.Set(ctx, keys.state, artifact.State, ttl)
		} else {
			pipe.Del(ctx, keys.state)
		}
		if !artifact.CreatedAt.IsZero() {
			pipe.Set(ctx, keys.createdAt, artifact.CreatedAt.UnixNano(), ttl)
		} else {
			pipe.Del(ctx, keys.createdAt)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist artifact: %w", err)
	}
	return nil
}

// Load returns the stored artifact or nil when the session has none.
func (s *RedisArtifactStore) Load(ctx context.Context, sessionID string) (*gmail.AuthorizationArtifact, error) {
	keys := artifactKeys(sessionID)
	values, err := s.client.MGet(ctx, keys.code, keys.state, keys.createdAt).Result()
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	code, _ := values[0].(string)
	if code == "" {
		return nil, nil
	}
	artifact := &gmail.AuthorizationArtifact{Code: code}
	artifact.State, _ = values[1].(string)
	if raw, _ := values[2].(string); raw != "" {
		nanos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("load artifact: created_at %q: %w", raw, err)
		}
		artifact.CreatedAt = time.Unix(0, nanos).UTC()
	}
	return artifact, nil
}

// Clear removes every artifact key of the session.
func (s *RedisArtifactStore) Clear(ctx context.Context, sessionID string) error {
	keys := artifactKeys(sessionID)
	if err := s.client.Del(ctx, keys.code, keys.state, keys.createdAt).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("clear artifact: %w", err)
	}
	return nil
}

type artifactKeySet struct {
	code      string
	state     string
	createdAt string
}

func artifactKeys(sessionID string) artifactKeySet {
	base := keyPrefix + strings.TrimSpace(sessionID) + ":"
	return artifactKeySet{
		code:      base + codeKeyName,
		state:     base + stateKeyName,
		createdAt: base + createdKeyName,
	}
}
