package ops

import (
	"context"
	"encoding/json"
	"flag"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"

	"github.com/meshadmin/topomapper/api"
)

var redisAddr = flag.String("redis", "redis://127.0.0.1:6379", "Address to connect to the redis server")
var redisUser = flag.String("redis_user", "", "User for authentication to the redis server, requires password")
var redisPassword = flag.String("redis_password", "", "Password for authentication to the redis server")

const (
	recordKeyPrefix = "topo:"
	recentKey       = "topo:recent"
	recordTTL       = 24 * time.Hour
)

func NewRedisPool(ctx context.Context) (*redis.Pool, error) {
	if *redisAddr == "" {
		return nil, errors.New("redis not configured")
	}

	log.Info(ctx, "redis database configured", j.KV("address", *redisAddr))

	do := []redis.DialOption{
		redis.DialReadTimeout(5 * time.Second),
		redis.DialWriteTimeout(5 * time.Second),
	}
	if *redisUser != "" || *redisPassword != "" {
		if *redisUser == "" || *redisPassword == "" {
			return nil, errors.New("redis username/password misconfiguration")
		}
		do = append(do,
			redis.DialUsername(*redisUser),
			redis.DialPassword(*redisPassword),
		)
	}

	pool := &redis.Pool{
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialURLContext(ctx, *redisAddr, do...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
		MaxIdle:     3,
		MaxActive:   10,
		IdleTimeout: time.Minute,
		Wait:        true,
	}

	conn, err := pool.GetContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer conn.Close()
	if _, err := redis.DoContext(conn, ctx, "PING"); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return pool, nil
}

// RedisTopologyDB stores topology records in redis with a bounded
// recent list, so restarts and replicas share upload history.
type RedisTopologyDB struct {
	pool *redis.Pool

	mu      sync.Mutex
	waiters []chan struct{}
}

func NewRedisTopologyDB(pool *redis.Pool) *RedisTopologyDB {
	return &RedisTopologyDB{pool: pool}
}

func (r *RedisTopologyDB) StoreTopology(ctx context.Context, rec api.TopologyRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "")
	}

	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer conn.Close()

	_, err = redis.DoContext(conn, ctx, "SET", recordKeyPrefix+rec.ID, b,
		"EX", int64(recordTTL.Seconds()))
	if err != nil {
		return errors.Wrap(err, "")
	}
	_, err = redis.DoContext(conn, ctx, "LPUSH", recentKey, rec.ID)
	if err != nil {
		return errors.Wrap(err, "")
	}
	_, err = redis.DoContext(conn, ctx, "LTRIM", recentKey, 0, RecentLimit-1)
	if err != nil {
		return errors.Wrap(err, "")
	}

	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
	return nil
}

func (r *RedisTopologyDB) GetTopology(ctx context.Context, id string) (api.TopologyRecord, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return api.TopologyRecord{}, errors.Wrap(err, "")
	}
	defer conn.Close()
	return getRecord(ctx, conn, id)
}

func (r *RedisTopologyDB) LatestTopology(ctx context.Context) (api.TopologyRecord, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return api.TopologyRecord{}, errors.Wrap(err, "")
	}
	defer conn.Close()

	id, err := redis.String(redis.DoContext(conn, ctx, "LINDEX", recentKey, 0))
	if errors.Is(err, redis.ErrNil) {
		return api.TopologyRecord{}, errors.Wrap(ErrTopologyNotFound, "")
	} else if err != nil {
		return api.TopologyRecord{}, errors.Wrap(err, "")
	}
	return getRecord(ctx, conn, id)
}

func (r *RedisTopologyDB) ListTopologies(ctx context.Context) ([]api.TopologyRecord, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer conn.Close()

	ids, err := redis.Strings(redis.DoContext(conn, ctx, "LRANGE", recentKey, 0, RecentLimit-1))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	ret := make([]api.TopologyRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := getRecord(ctx, conn, id)
		if errors.Is(err, ErrTopologyNotFound) {
			// Expired record still listed, skip it.
			continue
		} else if err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
	return ret, nil
}

// WaitForChanges only observes stores made through this instance.
// Cross-instance replication of the signal isn't needed; viewers
// refresh on their own uploads.
func (r *RedisTopologyDB) WaitForChanges() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.waiters = append(r.waiters, ch)
	return ch
}

func getRecord(ctx context.Context, conn redis.Conn, id string) (api.TopologyRecord, error) {
	b, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", recordKeyPrefix+id))
	if errors.Is(err, redis.ErrNil) {
		return api.TopologyRecord{}, errors.Wrap(ErrTopologyNotFound, "", j.KV("id", id))
	} else if err != nil {
		return api.TopologyRecord{}, errors.Wrap(err, "")
	}
	var rec api.TopologyRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return api.TopologyRecord{}, errors.Wrap(err, "corrupt topology record", j.KV("id", id))
	}
	return rec, nil
}

var _ TopologyDB = (*RedisTopologyDB)(nil)
