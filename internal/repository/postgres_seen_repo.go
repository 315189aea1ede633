package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresSeenRepo はPostgreSQLを使用した重複排除ストア。
type PostgresSeenRepo struct {
	db *sql.DB
}

// NewPostgresSeenRepo はPostgresSeenRepoを生成する。
func NewPostgresSeenRepo(db *sql.DB) *PostgresSeenRepo {
	return &PostgresSeenRepo{db: db}
}

// HasSeen は組が通知済みかを返す。
func (r *PostgresSeenRepo) HasSeen(ctx context.Context, subscriberID, listingID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM seen_items WHERE subscriber_id = $1 AND listing_id = $2)`,
		subscriberID, listingID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("既読状態の取得に失敗しました: %w", err)
	}
	return exists, nil
}

// MarkSeen は組を通知済みにする。同時に同じ組を挿入しても主キーで1件に収まる。
func (r *PostgresSeenRepo) MarkSeen(ctx context.Context, subscriberID, listingID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO seen_items (subscriber_id, listing_id, seen_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (subscriber_id, listing_id) DO NOTHING`,
		subscriberID, listingID,
	)
	if err != nil {
		return fmt.Errorf("既読の記録に失敗しました: %w", err)
	}
	return nil
}

// PurgeOlderThan はcutoffより前の既読マーカーを削除する。
func (r *PostgresSeenRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM seen_items WHERE seen_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("既読マーカーの削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}
