package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/dealwatch/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知ログ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Save は通知を記録する。
func (r *PostgresNotificationRepo) Save(ctx context.Context, n *model.Notification) error {
	prepareNotification(n, time.Now())

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, subscriber_id, listing_id, message, sent_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.SubscriberID, n.ListingID, n.Message, n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("通知ログの保存に失敗しました: %w", err)
	}
	return nil
}

// prepareNotification は未設定のIDと送信日時を補う。
func prepareNotification(n *model.Notification, now time.Time) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.SentAt.IsZero() {
		n.SentAt = now
	}
}
