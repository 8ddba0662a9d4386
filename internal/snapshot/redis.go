package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const indexKey = "snapshots:index"

// RedisStore keeps the latest snapshot per session in Redis. Sequence
// numbers come from a per-session INCR counter, so they survive overwrites
// and stay strictly increasing.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func snapshotKey(sessionID string) string {
	return "snapshots:" + sessionID
}

func seqKey(sessionID string) string {
	return "snapshots:" + sessionID + ":seq"
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, state json.RawMessage, takenAt time.Time) (uint64, error) {
	seq, err := s.client.Incr(ctx, seqKey(sessionID)).Uint64()
	if err != nil {
		return 0, err
	}

	rec := Record{Version: Version, Seq: seq, TakenAt: takenAt, State: state}
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, snapshotKey(sessionID), data, 0)
	pipe.SAdd(ctx, indexKey, sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *RedisStore) LoadLatest(ctx context.Context, sessionID string) (Record, error) {
	data, err := s.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return decodeRecord(data)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, snapshotKey(sessionID), seqKey(sessionID))
	pipe.SRem(ctx, indexKey, sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) SessionIDs(ctx context.Context) ([]string, error) {
	return s.client.SMembers(ctx, indexKey).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
