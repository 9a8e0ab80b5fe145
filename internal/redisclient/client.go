package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strconv"
	"time"

	"order-bench/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/record_query.lua
var recordQueryScript string

const strategiesKey = "stats:strategies"

type Client struct {
	rdb         *redis.Client
	recordQuery *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:         rdb,
		recordQuery: redis.NewScript(recordQueryScript),
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func statsKey(strategy string) string {
	return fmt.Sprintf("stats:%s", strategy)
}

// RecordQuery atomically folds one request outcome into the strategy's
// aggregates and returns the new request count.
func (c *Client) RecordQuery(ctx context.Context, strategy string, rows int, latencyMs int64, failed bool) (int64, error) {
	flag := 0
	if failed {
		flag = 1
	}

	result, err := c.recordQuery.Run(ctx, c.rdb,
		[]string{statsKey(strategy), strategiesKey},
		rows, latencyMs, flag, strategy).Result()
	if err != nil {
		return 0, fmt.Errorf("record query script failed: %w", err)
	}

	requests, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result type %T", result)
	}
	return requests, nil
}

// RecordWorkload adds one workload run to the strategy's aggregates
func (c *Client) RecordWorkload(ctx context.Context, strategy string, durationMs int64) error {
	key := statsKey(strategy)

	pipe := c.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, "workloads", 1)
	pipe.HIncrBy(ctx, key, "workload_ms_total", durationMs)
	pipe.SAdd(ctx, strategiesKey, strategy)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record workload: %w", err)
	}
	return nil
}

// MarkEventProcessed records an event id; it returns false when the id was
// already seen within ttl.
func (c *Client) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, eventKey(eventID), "1", ttl).Result()
}

// ReleaseEvent forgets an event id so a redelivery is processed again
func (c *Client) ReleaseEvent(ctx context.Context, eventID string) error {
	return c.rdb.Del(ctx, eventKey(eventID)).Err()
}

func eventKey(eventID string) string {
	return fmt.Sprintf("event:%s", eventID)
}

// GetStrategyStats returns the aggregates of one strategy
func (c *Client) GetStrategyStats(ctx context.Context, strategy string) (*models.StrategyStats, error) {
	result, err := c.rdb.HGetAll(ctx, statsKey(strategy)).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w for strategy %s", models.ErrStatsNotFound, strategy)
	}

	return parseStats(strategy, result), nil
}

// ListStrategyStats returns the aggregates of every strategy seen so far,
// ordered by name.
func (c *Client) ListStrategyStats(ctx context.Context) ([]models.StrategyStats, error) {
	strategies, err := c.rdb.SMembers(ctx, strategiesKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(strategies)

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(strategies))
	for i, strategy := range strategies {
		cmds[i] = pipe.HGetAll(ctx, statsKey(strategy))
	}
	if len(strategies) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to read strategy stats: %w", err)
		}
	}

	stats := make([]models.StrategyStats, 0, len(strategies))
	for i, strategy := range strategies {
		stats = append(stats, *parseStats(strategy, cmds[i].Val()))
	}
	return stats, nil
}

func parseStats(strategy string, fields map[string]string) *models.StrategyStats {
	get := func(name string) int64 {
		v, _ := strconv.ParseInt(fields[name], 10, 64)
		return v
	}

	return &models.StrategyStats{
		Strategy:       strategy,
		Requests:       get("requests"),
		Errors:         get("errors"),
		Rows:           get("rows"),
		LatencyMsTotal: get("latency_ms_total"),
		LatencyMsMax:   get("latency_ms_max"),
		Workloads:      get("workloads"),
		WorkloadMs:     get("workload_ms_total"),
	}
}
