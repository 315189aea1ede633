package model

import "time"

// ScoreResult はスコアリング結果を表す。毎サイクル再計算され、永続化しない。
type ScoreResult struct {
	// Score は[0,100]のスコア。
	Score   float64
	Reasons []string
	// DiscountPotential は値引き見込み（%）。
	DiscountPotential int
}

// Deal は閾値を超えた出品とそのスコアリング結果の組。
type Deal struct {
	Listing Listing
	Result  ScoreResult
}

// SeenRecord は(購読者, 出品)の通知済みマーカー。
// 組ごとに最大1件のみ存在する。
type SeenRecord struct {
	SubscriberID int64
	ListingID    int64
	SeenAt       time.Time
}

// Notification は送信済み通知のログ。
type Notification struct {
	ID           string
	SubscriberID int64
	ListingID    int64
	Message      string
	SentAt       time.Time
}
