// Package cleanup は既読マーカーの保持期間切れを削除するジョブを提供する。
// 保持期間（デフォルト7日）より前に記録されたマーカーを削除する。
// 削除されたマーカーの出品が再び条件を満たせば、その購読者には再通知される。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/dealwatch/internal/metrics"
)

// DefaultRetentionDays は既読マーカーの保持日数のデフォルト値。
const DefaultRetentionDays = 7

// Purger は指定時刻より前の既読マーカーを削除する。
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupJob は既読マーカーの削除ジョブ。冪等で、削除対象がなくてもエラーにならない。
type CleanupJob struct {
	purger        Purger
	logger        *slog.Logger
	metrics       metrics.MetricsCollector
	now           func() time.Time
	RetentionDays int
}

// NewCleanupJob は新しいCleanupJobを生成する。mcがnilの場合はメトリクスを記録しない。
func NewCleanupJob(purger Purger, logger *slog.Logger, mc metrics.MetricsCollector) *CleanupJob {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &CleanupJob{
		purger:        purger,
		logger:        logger,
		metrics:       mc,
		now:           time.Now,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run は保持期間を超過した既読マーカーを削除し、削除件数を返す。
func (j *CleanupJob) Run(ctx context.Context) (int64, error) {
	start := j.now()
	cutoff := start.Add(-time.Duration(j.RetentionDays) * 24 * time.Hour)

	deleted, err := j.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("既読マーカーのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return 0, fmt.Errorf("既読マーカーのクリーンアップに失敗: %w", err)
	}

	j.metrics.RecordSeenPurged(deleted)
	j.logger.Info("既読マーカーのクリーンアップが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Time("cutoff", cutoff),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return deleted, nil
}
