package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

// StartCleanupWorker 启动定时清理，每 24 小时执行一次，阻塞直到 ctx 结束
// days 指定保留天数，超过该天数的事件将被删除
func (c Core) StartCleanupWorker(ctx context.Context, days int) {
	if days <= 0 {
		slog.InfoContext(ctx, "event cleanup disabled", "days", days)
		return
	}

	slog.InfoContext(ctx, "event cleanup worker started", "retain_days", days)

	c.CleanupExpired(ctx, days)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CleanupExpired(ctx, days)
		}
	}
}

// CleanupExpired 分批删除过期事件，返回删除条数
func (c Core) CleanupExpired(ctx context.Context, days int) int {
	cutoffTime := c.engine.Now().AddDate(0, 0, -days)
	cutoff := float64(cutoffTime.Unix())

	const batchSize = 100
	var totalDeleted int
	for ctx.Err() == nil {
		events := make([]*Event, 0, batchSize)
		_, err := c.store.Event().Find(ctx, &events, web.PagerFilter{Size: batchSize}, orm.Where("ts < ?", cutoff))
		if err != nil {
			slog.ErrorContext(ctx, "failed to query expired events", "err", err)
			break
		}
		if len(events) == 0 {
			break
		}

		ids := make([]int64, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}
		err = c.store.Event().Session(ctx, func(tx *gorm.DB) error {
			return tx.Where("id IN ?", ids).Delete(&Event{}).Error
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to batch delete events", "count", len(ids), "err", err)
			break
		}
		totalDeleted += len(ids)
	}

	if totalDeleted > 0 {
		slog.InfoContext(ctx, "event cleanup completed",
			"cutoff_time", cutoffTime.Format(time.DateTime),
			"events_deleted", totalDeleted,
		)
	}
	return totalDeleted
}
