package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"babelBridge/api/database"
	"babelBridge/api/models"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 24 * time.Hour
)

var ErrMiss = errors.New("status not cached")

type StatusCache struct {
	cache *database.Cache
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

type entry struct {
	Status       models.JobStatus `json:"status"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

func (sc *StatusCache) Get(ctx context.Context, jobID string) (models.JobStatus, string, error) {
	data, err := sc.cache.Get(ctx, key(jobID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", ErrMiss
		}
		return "", "", err
	}

	var e entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return models.JobStatus(data), "", nil
	}
	return e.Status, e.ErrorMessage, nil
}

func (sc *StatusCache) Set(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	data, err := json.Marshal(entry{Status: status, ErrorMessage: errMsg})
	if err != nil {
		return err
	}
	return sc.cache.Set(ctx, key(jobID), data, statusTTL)
}

func key(jobID string) string {
	return fmt.Sprintf("%s%s", statusKeyPrefix, jobID)
}
