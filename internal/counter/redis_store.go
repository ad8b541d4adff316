package counter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/aimhigh31/work-ten-sub018/internal/database"
)

// RedisStore keeps one hash per year ({prefix}:counters:{year}) with one field per
// module type and increments with HINCRBY, which is atomic on the server.
// Durability follows the server's persistence settings (AOF recommended).
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ Backend = (*RedisStore)(nil)

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "codeseq"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) hashKey(year int) string {
	return fmt.Sprintf("%s:counters:%d", s.prefix, year)
}

func (s *RedisStore) IncrementAndGet(ctx context.Context, key Key) (int64, error) {
	n, err := s.client.HIncrBy(ctx, s.hashKey(key.Year), key.ModuleType, 1).Result()
	if err != nil {
		return 0, s.classify(ctx, "increment "+key.String(), err)
	}
	return n, nil
}

func (s *RedisStore) Get(ctx context.Context, key Key) (Record, error) {
	raw, err := s.client.HGet(ctx, s.hashKey(key.Year), key.ModuleType).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, s.classify(ctx, "get "+key.String(), err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("get %s: corrupt counter value %q: %w", key, raw, err)
	}
	return Record{ModuleType: key.ModuleType, Year: key.Year, Value: n}, nil
}

func (s *RedisStore) List(ctx context.Context, year int) ([]Record, error) {
	var keys []string
	if year != 0 {
		keys = []string{s.hashKey(year)}
	} else {
		iter := s.client.Scan(ctx, 0, s.prefix+":counters:*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return nil, s.classify(ctx, "list counters", err)
		}
	}

	recs := []Record{}
	for _, k := range keys {
		y, err := strconv.Atoi(k[strings.LastIndex(k, ":")+1:])
		if err != nil {
			continue
		}
		fields, err := s.client.HGetAll(ctx, k).Result()
		if err != nil {
			return nil, s.classify(ctx, "list counters", err)
		}
		for module, raw := range fields {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("list counters: corrupt value for %s/%d: %w", module, y, err)
			}
			recs = append(recs, Record{ModuleType: module, Year: y, Value: n})
		}
	}
	sortRecords(recs)
	return recs, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) classify(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	var netErr net.Error
	if errors.Is(err, redis.ErrClosed) || errors.Is(err, io.EOF) || errors.As(err, &netErr) ||
		database.IsConnectionError(err) || isRedisBusy(err) {
		return unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isRedisBusy matches server replies that mean "try again later".
func isRedisBusy(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "LOADING") || strings.HasPrefix(msg, "TRYAGAIN") ||
		strings.HasPrefix(msg, "CLUSTERDOWN") || strings.HasPrefix(msg, "MASTERDOWN")
}
