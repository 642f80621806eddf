package orchestrator

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisOptions configures the Redis connection backing a RedisSessionIndex,
// mirroring the teacher's queue.RedisOptions shape.
type RedisOptions struct {
	URL            string
	TLS            *tls.Config
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// RedisSessionIndex mirrors session status into Redis so ListSessions can
// aggregate across orchestrator replicas in a multi-replica deployment.
// It is optional: the orchestrator's in-process map is authoritative on
// its own; this is an additive shared view, grounded on the teacher's
// queue.RedisClient construction (queue/client.go).
type RedisSessionIndex struct {
	client *redis.Client
}

// NewRedisSessionIndex connects to Redis with the given options.
func NewRedisSessionIndex(opts RedisOptions) (*RedisSessionIndex, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to parse redis URL: %w", err)
	}
	redisOpts.TLSConfig = opts.TLS
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("orchestrator: failed to connect to redis: %w", err)
	}

	return &RedisSessionIndex{client: client}, nil
}

func sessionKey(id uuid.UUID) string {
	return fmt.Sprintf("sentinel:session:%s", id)
}

// Put writes the session's current snapshot to Redis with a 24h TTL, so
// stale entries for sessions whose owning replica died eventually expire.
func (r *RedisSessionIndex) Put(ctx context.Context, sess AgentSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("orchestrator: failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(sess.SessionID), data, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("orchestrator: failed to set session %s: %w", sess.SessionID, err)
	}
	if err := r.client.SAdd(ctx, "sentinel:sessions", sess.SessionID.String()).Err(); err != nil {
		return fmt.Errorf("orchestrator: failed to index session %s: %w", sess.SessionID, err)
	}
	return nil
}

// List returns every session mirrored into Redis, optionally filtered by
// tenant ID (empty string means no filter). Entries whose key has expired
// are skipped rather than treated as an error (the index is best-effort).
func (r *RedisSessionIndex) List(ctx context.Context, tenantID string) ([]AgentSession, error) {
	ids, err := r.client.SMembers(ctx, "sentinel:sessions").Result()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: failed to list session ids: %w", err)
	}

	out := make([]AgentSession, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		data, err := r.client.Get(ctx, sessionKey(id)).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("orchestrator: failed to get session %s: %w", id, err)
		}
		var sess AgentSession
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			continue
		}
		if tenantID != "" && sess.TenantID != tenantID {
			continue
		}
		out = append(out, sess)
	}
	return out, nil
}

// Close closes the underlying Redis connection.
func (r *RedisSessionIndex) Close() error {
	return r.client.Close()
}
