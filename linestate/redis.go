package linestate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func ordersKey(deptID int64) string {
	return fmt.Sprintf("hullcore:dept:%d:orders", deptID)
}

func metaKey(deptID int64) string {
	return fmt.Sprintf("hullcore:dept:%d:meta", deptID)
}

func countKey(deptID int64) string {
	return fmt.Sprintf("hullcore:dept:%d:count", deptID)
}

const allDeptsKey = "hullcore:departments"

func (r *RedisStore) SetDeptOrders(ctx context.Context, deptID int64, items []LineItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, ordersKey(deptID), data, 0)
	pipe.Set(ctx, countKey(deptID), len(items), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetDeptOrders(ctx context.Context, deptID int64) ([]LineItem, error) {
	data, err := r.client.Get(ctx, ordersKey(deptID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []LineItem
	return items, json.Unmarshal(data, &items)
}

func (r *RedisStore) UpdateDeptMeta(ctx context.Context, deptID int64, meta *DeptMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, metaKey(deptID), data, 0)
	pipe.SAdd(ctx, allDeptsKey, deptID)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetDeptMeta(ctx context.Context, deptID int64) (*DeptMeta, error) {
	data, err := r.client.Get(ctx, metaKey(deptID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta DeptMeta
	return &meta, json.Unmarshal(data, &meta)
}

func (r *RedisStore) GetCount(ctx context.Context, deptID int64) (int, error) {
	val, err := r.client.Get(ctx, countKey(deptID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (r *RedisStore) GetAllDeptIDs(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, allDeptsKey).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *RedisStore) RemoveDept(ctx context.Context, deptID int64) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, ordersKey(deptID), metaKey(deptID), countKey(deptID))
	pipe.SRem(ctx, allDeptsKey, deptID)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisStore) FlushAll(ctx context.Context) error {
	ids, err := r.GetAllDeptIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.RemoveDept(ctx, id)
	}
	return r.client.Del(ctx, allDeptsKey).Err()
}
