// Package redis stores job history in Redis: one JSON document per record,
// sorted sets per status for paging and a hash of counters.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/internal/store"
	"github.com/RezaEskandarii/driveq/types"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "driveq:history"

type RedisJobHistoryStore struct {
	rdb    *goredis.Client
	prefix string
}

var _ store.JobHistoryStore = (*RedisJobHistoryStore)(nil)

func NewRedisJobHistoryStore(rdb *goredis.Client) *RedisJobHistoryStore {
	return &RedisJobHistoryStore{rdb: rdb, prefix: defaultPrefix}
}

func (s *RedisJobHistoryStore) seqKey() string    { return s.prefix + ":seq" }
func (s *RedisJobHistoryStore) countsKey() string { return s.prefix + ":counts" }

func (s *RedisJobHistoryStore) recordKey(id int64) string {
	return fmt.Sprintf("%s:record:%d", s.prefix, id)
}

func (s *RedisJobHistoryStore) indexKey(status state.JobStatus) string {
	if status == "" {
		return s.prefix + ":index:all"
	}
	return s.prefix + ":index:" + status.String()
}

func (s *RedisJobHistoryStore) jobKey(instance string, jobID types.JobID) string {
	return fmt.Sprintf("%s:job:%s:%d", s.prefix, instance, jobID)
}

func (s *RedisJobHistoryStore) BulkInsert(ctx context.Context, records []types.JobRecord) error {
	if len(records) == 0 {
		return nil
	}

	last, err := s.rdb.IncrBy(ctx, s.seqKey(), int64(len(records))).Result()
	if err != nil {
		return fmt.Errorf("allocate history ids: %w", err)
	}
	first := last - int64(len(records)) + 1

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, rec := range records {
			rec.ID = first + int64(i)
			if rec.CreatedAt.IsZero() {
				rec.CreatedAt = rec.FinishedAt
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal history record: %w", err)
			}
			score := float64(rec.FinishedAt.UnixNano())
			member := strconv.FormatInt(rec.ID, 10)

			pipe.Set(ctx, s.recordKey(rec.ID), data, 0)
			pipe.ZAdd(ctx, s.indexKey(""), goredis.Z{Score: score, Member: member})
			pipe.ZAdd(ctx, s.indexKey(rec.Status), goredis.Z{Score: score, Member: member})
			pipe.HIncrBy(ctx, s.countsKey(), rec.Status.String(), 1)
			pipe.Set(ctx, s.jobKey(rec.Instance, rec.JobID), rec.ID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert job history batch: %w", err)
	}
	return nil
}

func (s *RedisJobHistoryStore) List(ctx context.Context, page, pageSize int, status state.JobStatus) (*types.PaginationResult[types.JobRecord], error) {
	if page < 1 {
		page = 1
	}
	index := s.indexKey(status)

	total, err := s.rdb.ZCard(ctx, index).Result()
	if err != nil {
		return nil, err
	}
	start := int64((page - 1) * pageSize)
	members, err := s.rdb.ZRevRange(ctx, index, start, start+int64(pageSize)-1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]types.JobRecord, 0, len(members))
	if len(members) > 0 {
		keys := make([]string, len(members))
		for i, m := range members {
			id, err := strconv.ParseInt(m, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("corrupt history index member %q: %w", m, err)
			}
			keys[i] = s.recordKey(id)
		}
		values, err := s.rdb.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			rec, err := decodeRecord(raw)
			if err != nil {
				return nil, err
			}
			records = append(records, *rec)
		}
	}

	return store.NewPaginationResult(records, int(total), page, pageSize), nil
}

func (s *RedisJobHistoryStore) FindByJobID(ctx context.Context, instance string, jobID types.JobID) (*types.JobRecord, error) {
	id, err := s.rdb.Get(ctx, s.jobKey(instance, jobID)).Int64()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	raw, err := s.rdb.Get(ctx, s.recordKey(id)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(raw)
}

func (s *RedisJobHistoryStore) CountByStatus(ctx context.Context) (map[state.JobStatus]int, error) {
	raw, err := s.rdb.HGetAll(ctx, s.countsKey()).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(raw)
}

func (s *RedisJobHistoryStore) Close() error {
	return s.rdb.Close()
}

func decodeRecord(raw string) (*types.JobRecord, error) {
	var rec types.JobRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode history record: %w", err)
	}
	return &rec, nil
}

func parseCounts(raw map[string]string) (map[state.JobStatus]int, error) {
	result := make(map[state.JobStatus]int, len(store.TerminalStatuses))
	for _, status := range store.TerminalStatuses {
		result[status] = 0
	}
	for status, value := range raw {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("corrupt counter for %s: %w", status, err)
		}
		result[state.JobStatus(status)] = n
	}
	return result, nil
}
