package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-catalog/services"
	"github.com/sirupsen/logrus"
)

type CacheCleanupJob struct {
	CacheService *services.CacheService
}

func NewCacheCleanupJob(cacheService *services.CacheService) *CacheCleanupJob {
	return &CacheCleanupJob{CacheService: cacheService}
}

// Start drops expired query cache entries on every tick until ctx is done
func (j *CacheCleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.Run()
			}
		}
	}()
}

func (j *CacheCleanupJob) Run() int {
	removed := j.CacheService.CleanupExpired()
	logrus.WithFields(logrus.Fields{
		"component": "CacheCleanupJob",
		"removed":   removed,
		"remaining": j.CacheService.Size(),
	}).Debug("Cache cleanup completed")
	return removed
}
