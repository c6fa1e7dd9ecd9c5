package canvas

import (
	"context"
	"errors"
	"io"

	"github.com/go-redis/redis/v8"
)

// RedisStorage keeps the buffer in one redis string key.
type RedisStorage struct {
	rdb *redis.Client
	key string
}

func NewRedisStorage(rdb *redis.Client, key string) *RedisStorage {
	return &RedisStorage{rdb: rdb, key: key}
}

func (rs *RedisStorage) Size(ctx context.Context) (int64, error) {
	return rs.rdb.StrLen(ctx, rs.key).Result()
}

func (rs *RedisStorage) Load(ctx context.Context) ([]byte, error) {
	buf, err := rs.rdb.Get(ctx, rs.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return buf, err
}

func (rs *RedisStorage) ReadByteAt(ctx context.Context, off int64) (byte, error) {
	s, err := rs.rdb.GetRange(ctx, rs.key, off, off).Result()
	if err != nil {
		return 0, err
	}
	if len(s) == 0 {
		return 0, io.ErrUnexpectedEOF
	}
	return s[0], nil
}

func (rs *RedisStorage) WriteAt(ctx context.Context, p []byte, off int64) error {
	return rs.rdb.SetRange(ctx, rs.key, off, string(p)).Err()
}

// Replace relies on SET being atomic.
func (rs *RedisStorage) Replace(ctx context.Context, buf []byte) error {
	return rs.rdb.Set(ctx, rs.key, buf, 0).Err()
}
