package recording

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/shirou/gopsutil/v4/disk"
	"gorm.io/gorm"
)

const (
	cleanupInterval = 60 * time.Minute
	cleanupBatch    = 100
	minFreeBytes    = 100 * 1024 * 1024
)

// StartCleanupWorker 启动定时清理，阻塞直到 ctx 结束
// 启动时执行一次，随后每 60 分钟执行一次
func (c Core) StartCleanupWorker(ctx context.Context) {
	if c.conf == nil || c.conf.Disabled {
		slog.InfoContext(ctx, "recording cleanup disabled")
		return
	}

	slog.InfoContext(ctx, "recording cleanup worker started",
		"retain_days", c.conf.RetainDays,
		"disk_threshold", c.conf.DiskUsageThreshold,
		"storage_dir", c.conf.StorageDir,
	)

	c.RunCleanup(ctx)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunCleanup(ctx)
		}
	}
}

// RunCleanup 先预标记即将过期的录像，再清理过期录像，最后处理磁盘空间
func (c Core) RunCleanup(ctx context.Context) {
	c.markExpiringRecordings(ctx)
	c.cleanupExpiredRecordings(ctx)
	c.cleanupByDiskUsage(ctx)
}

// markExpiringRecordings 预标记 1 小时内即将过期的录像
func (c Core) markExpiringRecordings(ctx context.Context) {
	if c.conf.RetainDays <= 0 {
		return
	}
	// started_at < (now + 1h - retain_days) 的录像将在 1 小时内过期
	expiryCutoff := c.engine.Now().Add(time.Hour).AddDate(0, 0, -c.conf.RetainDays)

	err := c.store.Recording().Session(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Recording{}).
			Where("delete_flag = ?", false).
			Where("started_at < ?", c.dbTime(expiryCutoff)).
			Update("delete_flag", true).Error
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to mark expiring recordings", "err", err)
	}
}

// cleanupExpiredRecordings 清理超过保留天数的录像
func (c Core) cleanupExpiredRecordings(ctx context.Context) {
	if c.conf.RetainDays <= 0 {
		return
	}
	cutoffTime := c.engine.Now().AddDate(0, 0, -c.conf.RetainDays)

	result := c.batchDeleteRecordings(ctx, orm.Where("started_at < ?", c.dbTime(cutoffTime)))
	if result.deleted > 0 || result.failed > 0 {
		slog.InfoContext(ctx, "expired recording cleanup completed",
			"reason", "retention_policy",
			"retain_days", c.conf.RetainDays,
			"cutoff_time", cutoffTime.Format(time.DateTime),
			"recordings_deleted", result.deleted,
			"files_deleted", result.files,
			"failed_files", result.failed,
			"freed_bytes", result.freed,
		)
	}
}

// cleanupByDiskUsage 磁盘使用率超过阈值时，从最旧的录像开始删除，
// 至少释放最近一小时的写入量，并预标记下一轮可能被删除的录像
func (c Core) cleanupByDiskUsage(ctx context.Context) {
	if c.conf.DiskUsageThreshold <= 0 || c.conf.DiskUsageThreshold >= 100 {
		return
	}
	dir := c.storageDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return
	}

	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		slog.WarnContext(ctx, "failed to get disk usage", "err", err)
		return
	}
	initial := usage.UsedPercent
	if initial < c.conf.DiskUsageThreshold {
		return
	}

	target := c.recentBytes(ctx, time.Hour)
	if target < minFreeBytes {
		target = minFreeBytes
	}

	var total batchResult
	for total.freed < target {
		r := c.deleteBatch(ctx, cleanupBatch/2, orm.OrderBy("started_at ASC"))
		total.add(r)
		if r.deleted == 0 {
			break
		}
		if u, err := disk.UsageWithContext(ctx, dir); err == nil && u.UsedPercent < c.conf.DiskUsageThreshold {
			break
		}
	}
	cleanupEmptyDirs(dir)

	c.markNextDeletionCandidates(ctx, total.freed*2)

	if total.deleted > 0 || total.failed > 0 {
		slog.InfoContext(ctx, "disk usage cleanup completed",
			"reason", "disk_threshold_exceeded",
			"initial_usage", initial,
			"threshold", c.conf.DiskUsageThreshold,
			"recordings_deleted", total.deleted,
			"failed_files", total.failed,
			"freed_bytes", total.freed,
		)
	}
}

// recentBytes 最近 d 时间内写入的录像大小
func (c Core) recentBytes(ctx context.Context, d time.Duration) int64 {
	since := c.dbTime(c.engine.Now().Add(-d))
	var sum int64
	err := c.store.Recording().Session(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Recording{}).
			Where("created_at >= ?", since).
			Select("COALESCE(SUM(size), 0)").
			Scan(&sum).Error
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to sum recent recordings", "err", err)
	}
	return sum
}

// markNextDeletionCandidates 标记最旧的、总大小约等于 targetSize 的录像为待删除
func (c Core) markNextDeletionCandidates(ctx context.Context, targetSize int64) {
	if targetSize <= 0 {
		return
	}

	candidates := make([]*Recording, 0, 200)
	_, err := c.store.Recording().Find(ctx, &candidates, web.PagerFilter{Size: 200},
		orm.Where("delete_flag = ?", false),
		orm.OrderBy("started_at ASC"),
	)
	if err != nil || len(candidates) == 0 {
		return
	}

	var markedSize int64
	markIDs := make([]int64, 0, len(candidates))
	for _, rec := range candidates {
		if markedSize >= targetSize {
			break
		}
		markIDs = append(markIDs, rec.ID)
		markedSize += rec.Size
	}

	_ = c.store.Recording().Session(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Recording{}).Where("id IN ?", markIDs).Update("delete_flag", true).Error
	})
}

type batchResult struct {
	deleted, files, failed int
	freed                  int64
}

func (r *batchResult) add(o batchResult) {
	r.deleted += o.deleted
	r.files += o.files
	r.failed += o.failed
	r.freed += o.freed
}

// batchDeleteRecordings 循环删除满足条件的录像，直到没有剩余
func (c Core) batchDeleteRecordings(ctx context.Context, opts ...orm.QueryOption) batchResult {
	var total batchResult
	for ctx.Err() == nil {
		r := c.deleteBatch(ctx, cleanupBatch, opts...)
		total.add(r)
		if r.deleted == 0 {
			break
		}
	}
	cleanupEmptyDirs(c.storageDir())
	return total
}

// deleteBatch 删除一批录像的文件与数据库记录
// 文件不存在视为已删除，其它删除失败只计数，数据库记录照常移除
func (c Core) deleteBatch(ctx context.Context, size int, opts ...orm.QueryOption) batchResult {
	var r batchResult
	recordings := make([]*Recording, 0, size)
	if _, err := c.store.Recording().Find(ctx, &recordings, web.PagerFilter{Size: size}, opts...); err != nil {
		slog.WarnContext(ctx, "find recordings to delete", "err", err)
		return r
	}
	if len(recordings) == 0 {
		return r
	}

	ids := make([]int64, 0, len(recordings))
	for _, rec := range recordings {
		if err := os.Remove(c.GetFullPath(rec.Path)); err != nil {
			if !os.IsNotExist(err) {
				r.failed++
			}
		} else {
			r.files++
			r.freed += rec.Size
		}
		ids = append(ids, rec.ID)
	}

	err := c.store.Recording().Session(ctx, func(tx *gorm.DB) error {
		return tx.Where("id IN ?", ids).Delete(&Recording{}).Error
	})
	if err != nil {
		slog.WarnContext(ctx, "delete recordings", "err", err)
		return r
	}
	r.deleted = len(ids)
	return r
}

func (c Core) storageDir() string {
	dir := c.conf.StorageDir
	if dir == "" {
		dir = "./recordings"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(system.Getwd(), dir)
}

// cleanupEmptyDirs 递归删除空目录
func cleanupEmptyDirs(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())
		cleanupEmptyDirs(sub)
		if subEntries, err := os.ReadDir(sub); err == nil && len(subEntries) == 0 {
			_ = os.Remove(sub)
		}
	}
}
