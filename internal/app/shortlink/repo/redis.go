package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"shortlink.local/internal/app/shortlink"
)

// Keys share the {sl} hash tag so both scripts stay in one cluster slot.
const (
	redisLinkPrefix = "{sl}:link:"
	redisOrderKey   = "{sl}:order"
)

// SETNX + RPUSH in one script: the code is never bound without being listed, or listed
// without being bound.
var insertScript = redis.NewScript(`
if redis.call("SETNX", KEYS[1], ARGV[1]) == 1 then
  redis.call("RPUSH", KEYS[2], ARGV[2])
  return 1
end
return 0
`)

var snapshotScript = redis.NewScript(`
local codes = redis.call("LRANGE", KEYS[1], 0, -1)
local out = {}
for _, code in ipairs(codes) do
  out[#out + 1] = code
  out[#out + 1] = redis.call("GET", ARGV[1] .. code)
end
return out
`)

// RedisStore keeps bindings as plain string keys plus an insertion-order list.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) InsertIfAbsent(ctx context.Context, code, url string) (bool, error) {
	n, err := insertScript.Run(ctx, s.client, []string{redisLinkPrefix + code, redisOrderKey}, url, code).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Lookup(ctx context.Context, code string) (string, bool, error) {
	url, err := s.client.Get(ctx, redisLinkPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func (s *RedisStore) Snapshot(ctx context.Context) (shortlink.Snapshot, error) {
	res, err := snapshotScript.Run(ctx, s.client, []string{redisOrderKey}, redisLinkPrefix).Slice()
	if err != nil {
		return nil, err
	}
	if len(res)%2 != 0 {
		return nil, fmt.Errorf("unexpected snapshot reply length %d", len(res))
	}

	snap := make(shortlink.Snapshot, 0, len(res)/2)
	for i := 0; i < len(res); i += 2 {
		code, _ := res[i].(string)
		url, ok := res[i+1].(string)
		if !ok {
			// listed but unbound: only possible if someone deleted the key by hand
			continue
		}
		snap = append(snap, shortlink.Link{Code: code, URL: url})
	}
	return snap, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
