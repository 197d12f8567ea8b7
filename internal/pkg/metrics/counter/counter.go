package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mercatosoft/catalogsync/internal/pkg/cache"
)

const (
	syncProcessedKey = "sync:counters:processed"
	syncIgnoredKey   = "sync:counters:ignored"
	syncFailedKey    = "sync:counters:failed"
)

// field builds the per-(table, eventType) hash field, e.g. "product:INSERT"
func field(table, eventType string) string {
	return fmt.Sprintf("%s:%s", table, eventType)
}

// AddProcessed increments the processed counter for a (table, eventType) pair
func AddProcessed(table, eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, syncProcessedKey, field(table, eventType), 1).Err()
}

// AddIgnored increments the ignored counter for a (table, eventType) pair.
// Ignored events are acknowledged upstream but matched no sync handler.
func AddIgnored(table, eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, syncIgnoredKey, field(table, eventType), 1).Err()
}

// AddFailed increments the failed counter for a (table, eventType) pair
func AddFailed(table, eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, syncFailedKey, field(table, eventType), 1).Err()
}

// Stats holds the per-event sync counters grouped by outcome
type Stats struct {
	Processed map[string]int64 `json:"processed"`
	Ignored   map[string]int64 `json:"ignored"`
	Failed    map[string]int64 `json:"failed"`
}

// GetStats reads all sync counters from Redis
func GetStats() (*Stats, error) {
	processed, err := readHash(syncProcessedKey)
	if err != nil {
		return nil, err
	}
	ignored, err := readHash(syncIgnoredKey)
	if err != nil {
		return nil, err
	}
	failed, err := readHash(syncFailedKey)
	if err != nil {
		return nil, err
	}
	return &Stats{Processed: processed, Ignored: ignored, Failed: failed}, nil
}

func readHash(key string) (map[string]int64, error) {
	ctx := context.Background()
	data, err := cache.GetClient().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(data))
	for f, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		result[f] = n
	}
	return result, nil
}
