// Package redisstore keeps newsbell's durable state in Redis, with the same
// contract as the SQLite store: atomic commit of checkpoints plus cache,
// checkpoints that never decrease, and an atomic unread counter.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/store"
)

// DefaultPrefix namespaces every key.
const DefaultPrefix = "newsbell"

// commitRetries bounds optimistic-lock retries when a concurrent writer
// touches the checkpoint hash mid-commit.
const commitRetries = 10

// Store is the Redis backend.
type Store struct {
	client *redis.Client
	prefix string
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Open connects to addr and checks the connection.
func Open(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return New(client, DefaultPrefix), nil
}

func (s *Store) checkpointsKey() string { return s.prefix + ":checkpoints" }
func (s *Store) articlesKey() string    { return s.prefix + ":articles" }
func (s *Store) byDateKey() string      { return s.prefix + ":articles:by_date" }
func (s *Store) unreadKey() string      { return s.prefix + ":unread" }

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Checkpoints returns every stored checkpoint.
func (s *Store) Checkpoints(ctx context.Context) (model.Checkpoints, error) {
	return readCheckpoints(ctx, s.client, s.checkpointsKey())
}

type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func readCheckpoints(ctx context.Context, c hashReader, key string) (model.Checkpoints, error) {
	raw, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read checkpoints: %w", err)
	}
	cps := make(model.Checkpoints, len(raw))
	for source, v := range raw {
		ns, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("checkpoint %s: %w", source, err)
		}
		cps[source] = time.Unix(0, ns).UTC()
	}
	return cps, nil
}

// Commit writes the articles and checkpoints in one MULTI/EXEC. The
// checkpoint hash is WATCHed while the stored values are read, so the
// MAX(stored, given) rule holds even against a concurrent committer.
func (s *Store) Commit(ctx context.Context, cps model.Checkpoints, articles []model.Article) error {
	encoded := make(map[string]any, len(articles))
	scores := make([]redis.Z, 0, len(articles))
	for _, a := range articles {
		b, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode article %s: %w", a.ID, err)
		}
		encoded[a.ID] = b
		scores = append(scores, redis.Z{Score: float64(a.Date.UnixMilli()), Member: a.ID})
	}

	txf := func(tx *redis.Tx) error {
		stored, err := readCheckpoints(ctx, tx, s.checkpointsKey())
		if err != nil {
			return err
		}
		next := make(map[string]any, len(cps))
		for source, at := range cps {
			if cur, ok := stored[source]; ok && !at.After(cur) {
				continue
			}
			next[source] = strconv.FormatInt(at.UnixNano(), 10)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(encoded) > 0 {
				pipe.HSet(ctx, s.articlesKey(), encoded)
				pipe.ZAdd(ctx, s.byDateKey(), scores...)
			}
			if len(next) > 0 {
				pipe.HSet(ctx, s.checkpointsKey(), next)
			}
			return nil
		})
		return err
	}

	for i := 0; i < commitRetries; i++ {
		err := s.client.Watch(ctx, txf, s.checkpointsKey())
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	}
	return fmt.Errorf("commit: %w after %d attempts", redis.TxFailedErr, commitRetries)
}

// Articles returns cached articles newest first. limit <= 0 means all.
func (s *Store) Articles(ctx context.Context, limit int) ([]model.Article, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.client.ZRevRange(ctx, s.byDateKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	vals, err := s.client.HMGet(ctx, s.articlesKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}

	articles := make([]model.Article, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue // index entry without a body; pruned concurrently
		}
		var a model.Article
		if err := json.Unmarshal([]byte(str), &a); err != nil {
			return nil, fmt.Errorf("decode article %s: %w", ids[i], err)
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// Article returns one cached article.
func (s *Store) Article(ctx context.Context, id string) (model.Article, error) {
	raw, err := s.client.HGet(ctx, s.articlesKey(), id).Result()
	if errors.Is(err, redis.Nil) {
		return model.Article{}, fmt.Errorf("article %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return model.Article{}, fmt.Errorf("load article %s: %w", id, err)
	}
	var a model.Article
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return model.Article{}, fmt.Errorf("decode article %s: %w", id, err)
	}
	return a, nil
}

// Count returns the number of cached articles.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.articlesKey()).Result()
	return int(n), err
}

// Prune deletes cached articles dated before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.byDateKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.articlesKey(), ids...)
		pipe.ZRem(ctx, s.byDateKey(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return len(ids), nil
}

// AddUnread atomically adds n with INCRBY.
func (s *Store) AddUnread(ctx context.Context, n int) (int, error) {
	v, err := s.client.IncrBy(ctx, s.unreadKey(), int64(n)).Result()
	if err != nil {
		return 0, fmt.Errorf("add unread: %w", err)
	}
	return int(v), nil
}

// ResetUnread sets the counter to zero.
func (s *Store) ResetUnread(ctx context.Context) error {
	if err := s.client.Set(ctx, s.unreadKey(), 0, 0).Err(); err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}
	return nil
}

// Unread returns the counter; a missing key is zero.
func (s *Store) Unread(ctx context.Context) (int, error) {
	v, err := s.client.Get(ctx, s.unreadKey()).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read unread: %w", err)
	}
	return v, nil
}
