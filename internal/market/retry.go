package market

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/dealwatch/internal/model"
)

// fetchResult はHTTPステータスコードに基づくフェッチ結果の分類。
type fetchResult int

const (
	// fetchResultOK はフェッチ成功（200）。
	fetchResultOK fetchResult = iota
	// fetchResultStop は再試行しても結果が変わらないステータス（401/403/404/410）。
	fetchResultStop
	// fetchResultBackoff は待てば回復しうるステータス（429/5xx）。
	fetchResultBackoff
	// fetchResultUnknown は未知のステータスコード。
	fetchResultUnknown
)

// classifyStatus はHTTPステータスコードをフェッチ結果に分類する。
func classifyStatus(statusCode int) fetchResult {
	switch {
	case statusCode == http.StatusOK:
		return fetchResultOK
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		return fetchResultStop
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fetchResultStop
	case statusCode == http.StatusTooManyRequests:
		return fetchResultBackoff
	case statusCode >= 500:
		return fetchResultBackoff
	default:
		return fetchResultUnknown
	}
}

// RetryPolicy はカテゴリ取得の再試行方針。
// MaxAttemptsが1以下の場合は再試行しない。
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy は1サイクル内で許容する再試行の既定値を返す。
// 初回2秒、2倍ずつ増加、最大10秒で、最大3回まで試行する。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

// backoff は失敗回数に基づいて指数バックオフ遅延を計算する。
func (p RetryPolicy) backoff(failures int) time.Duration {
	delay := p.InitialBackoff
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}

// retryable はエラーが同じサイクル内で再試行に値するかを判定する。
// 通信エラーとバックオフ対象のステータスのみ再試行し、パース失敗や認証エラーは即座に諦める。
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *model.UpstreamFetchError
	if !errors.As(err, &fe) {
		return false
	}
	if fe.StatusCode != 0 {
		return classifyStatus(fe.StatusCode) == fetchResultBackoff
	}
	return fe.Transport
}

// parseRetryAfter はRetry-Afterヘッダーの秒数を解釈する。HTTP日付形式は扱わない。
func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// sleepContext はdだけ待機する。ctxがキャンセルされた場合はその時点でエラーを返す。
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
