package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chat_session:"

// maxCreateRetries bounds the optimistic-locking loop in CreateSession.
const maxCreateRetries = 3

// RedisConfig holds the connection parameters for the durable backend.
// Supplied once at construction, never re-read.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisStore persists each session as one Redis list under
// "chat_session:<id>", one JSON-encoded record per element, appended at the
// tail so LRANGE returns history oldest first. Sessions survive restarts and
// may be shared by several bot processes.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis unavailable at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client (used by tests).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) CreateSession(ctx context.Context, id, systemPrompt string) (*ChatSession, error) {
	key := keyPrefix + id
	seed := seedRecord(systemPrompt)
	payload, err := seed.Encode()
	if err != nil {
		return nil, err
	}

	// WATCH-based check-and-set: two concurrent first-time creators must not
	// both seed the list. The loser of the race re-reads the winner's session.
	var created bool
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			created = false
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, payload)
			return nil
		})
		created = err == nil
		return err
	}

	var txErr error
	for i := 0; i < maxCreateRetries; i++ {
		txErr = s.client.Watch(ctx, txf, key)
		if txErr == nil {
			break
		}
		if errors.Is(txErr, redis.TxFailedErr) {
			continue
		}
		return nil, fmt.Errorf("create session %s: %w", id, txErr)
	}
	if txErr != nil {
		return nil, fmt.Errorf("create session %s: %w", id, txErr)
	}

	if created {
		return &ChatSession{ID: id, History: []Record{seed}}, nil
	}
	// Session already existed: read back the full history.
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Deleted between the transaction and the read-back; treat as lost race.
		return nil, fmt.Errorf("create session %s: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

func (s *RedisStore) AddMessage(ctx context.Context, id string, rec Record) (*ChatSession, error) {
	key := keyPrefix + id
	payload, err := rec.Encode()
	if err != nil {
		return nil, err
	}
	// RPUSHX appends only when the key exists, so the existence check and the
	// append are a single atomic operation against the store.
	n, err := s.client.RPushX(ctx, key, payload).Result()
	if err != nil {
		return nil, fmt.Errorf("append to session %s: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	// Full read-back on every write: simple and correct for chat-length
	// histories, quadratic if sessions grow unbounded.
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *RedisStore) GetSession(ctx context.Context, id string) (*ChatSession, error) {
	key := keyPrefix + id
	vals, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	history := make([]Record, 0, len(vals))
	for i, v := range vals {
		rec, err := DecodeRecord([]byte(v))
		if err != nil {
			return nil, fmt.Errorf("session %s element %d: %w", id, i, err)
		}
		history = append(history, rec)
	}
	return &ChatSession{ID: id, History: history}, nil
}

// AllSessions would require a full keyspace scan; the durable backend does
// not support it.
func (s *RedisStore) AllSessions(context.Context) (map[string]*ChatSession, error) {
	return nil, ErrEnumerationUnsupported
}
