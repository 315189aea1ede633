package model

import (
	"errors"
	"fmt"
)

var (
	// ErrSubscriberNotFound は購読者のプロファイルが存在しない場合のエラー。
	ErrSubscriberNotFound = errors.New("subscriber not found")
	// ErrAlreadyRunning はモニターが既に起動済みの場合のエラー。
	ErrAlreadyRunning = errors.New("monitor already running")
	// ErrNotRunning はモニターが起動していない場合のエラー。
	ErrNotRunning = errors.New("monitor not running")
)

// UpstreamFetchError はカテゴリ単位の上流フェッチ失敗（通信・パース）。
// 呼び出し元は空の結果として扱い、購読者には通知しない。
type UpstreamFetchError struct {
	Category   string
	StatusCode int
	// Transport は接続やタイムアウトなど応答を受け取る前の失敗であることを示す。
	Transport bool
	Err       error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream fetch failed for %s: status %d", e.Category, e.StatusCode)
	}
	return fmt.Sprintf("upstream fetch failed for %s: %v", e.Category, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

// SubscriberProcessingError は購読者1人の処理中に発生したエラー。
// サイクルは次の購読者へ進む。
type SubscriberProcessingError struct {
	SubscriberID int64
	Err          error
}

func (e *SubscriberProcessingError) Error() string {
	return fmt.Sprintf("processing subscriber %d: %v", e.SubscriberID, e.Err)
}

func (e *SubscriberProcessingError) Unwrap() error { return e.Err }

// DeliveryError は通知1件の送信失敗。
// 既読マークしないため、次サイクルで自然に再送される。
type DeliveryError struct {
	SubscriberID int64
	ListingID    int64
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivering listing %d to subscriber %d: %v", e.ListingID, e.SubscriberID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// RegistryError は購読者一覧の取得失敗。現在のサイクルのみ中断する。
type RegistryError struct {
	Err error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("listing subscribers: %v", e.Err)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// APIError は管理APIの統一エラーフォーマットを表す。
// 原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, subscriber, system
	Action   string // 対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeSubscriberNotFound = "SUBSCRIBER_NOT_FOUND"
	ErrCodeInvalidSubscriber  = "INVALID_SUBSCRIBER_ID"
	ErrCodeInvalidProfile     = "INVALID_PROFILE"
	ErrCodeUnknownCategory    = "UNKNOWN_CATEGORY"
	ErrCodePreviewFailed      = "PREVIEW_FAILED"
)

// NewSubscriberNotFoundError は購読者未検出エラーを生成する。
func NewSubscriberNotFoundError(subscriberID int64) *APIError {
	return &APIError{
		Code:     ErrCodeSubscriberNotFound,
		Message:  fmt.Sprintf("subscriber %d has no filter profile", subscriberID),
		Category: "subscriber",
		Action:   "Create a profile with PUT /api/subscribers/{id}/profile first.",
	}
}

// NewInvalidSubscriberError は購読者IDが不正な場合のエラーを生成する。
func NewInvalidSubscriberError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSubscriber,
		Message:  fmt.Sprintf("invalid subscriber id: %q", raw),
		Category: "validation",
		Action:   "Use the numeric chat id of the subscriber.",
	}
}

// NewInvalidProfileError はプロファイルの検証エラーを生成する。
func NewInvalidProfileError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfile,
		Message:  fmt.Sprintf("invalid filter profile: %s", reason),
		Category: "validation",
		Action:   "Fix the highlighted field and resubmit the profile.",
	}
}

// NewUnknownCategoryError は未知のカテゴリが指定された場合のエラーを生成する。
func NewUnknownCategoryError(category string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownCategory,
		Message:  fmt.Sprintf("unknown category: %s", category),
		Category: "validation",
		Action:   "Choose categories from the supported catalog.",
	}
}

// NewPreviewFailedError はプレビュー送信の失敗エラーを生成する。
func NewPreviewFailedError() *APIError {
	return &APIError{
		Code:     ErrCodePreviewFailed,
		Message:  "preview notification could not be produced",
		Category: "system",
		Action:   "Check the worker logs and retry later.",
	}
}
