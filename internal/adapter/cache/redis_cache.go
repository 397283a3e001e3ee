package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisJobCache mirrors finished jobs into Redis so the POS backend can look
// up a ticket's outcome without calling the helper.
type RedisJobCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisJobCache(rdb *redis.Client, ttl time.Duration) *RedisJobCache {
	return &RedisJobCache{rdb: rdb, ttl: ttl}
}

func jobKey(id string) string { return "printhelper:job:" + id }

func (r *RedisJobCache) PublishJob(ctx context.Context, job entity.PrintJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), b, r.ttl)
	if job.OrderID != "" {
		pipe.Set(ctx, "printhelper:order:"+job.OrderID+":"+string(job.Type), job.ID, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

var _ usecase.JobPublisher = (*RedisJobCache)(nil)
