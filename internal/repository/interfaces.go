// Package repository はデータ永続化のインターフェースと実装を定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/dealwatch/internal/model"
)

// SubscriberRepository は購読者レジストリ。購読者ごとのFilterProfileを保持する。
type SubscriberRepository interface {
	// ListIDs は登録済みの全購読者IDを昇順で返す。
	ListIDs(ctx context.Context) ([]int64, error)

	// FindProfile は購読者のプロファイルを返す。見つからない場合はnilを返す。
	FindProfile(ctx context.Context, subscriberID int64) (*model.FilterProfile, error)

	// SaveProfile はプロファイルを作成または置き換える。
	SaveProfile(ctx context.Context, profile *model.FilterProfile) error
}

// SeenRepository は通知済み(購読者, 出品)の組を記録する重複排除ストア。
type SeenRepository interface {
	// HasSeen は組が通知済みかを返す。
	HasSeen(ctx context.Context, subscriberID, listingID int64) (bool, error)

	// MarkSeen は組を通知済みにする。既に存在する場合は何もしない（冪等）。
	MarkSeen(ctx context.Context, subscriberID, listingID int64) error

	// PurgeOlderThan はcutoffより前に記録されたマーカーを削除し、削除件数を返す。
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationRepository は送信済み通知のログ。
type NotificationRepository interface {
	// Save は通知を記録する。IDが空の場合は採番する。
	Save(ctx context.Context, n *model.Notification) error
}
