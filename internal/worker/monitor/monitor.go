// Package monitor は購読者ごとのディール検出サイクルを実行するオーケストレーターを提供する。
// チェックサイクルとクリーンアップを1つのループで駆動し、両者が同時に走らないようにする。
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/dealwatch/internal/metrics"
	"github.com/hitoshi/dealwatch/internal/model"
	"github.com/hitoshi/dealwatch/internal/notify"
	"github.com/hitoshi/dealwatch/internal/repository"
	"github.com/hitoshi/dealwatch/internal/scoring"
)

// ErrCycleInProgress は前のサイクルが実行中のため開始しなかったことを示す。
var ErrCycleInProgress = errors.New("cycle already in progress")

// ListingSource はカテゴリ別に出品を取得する。
type ListingSource interface {
	Fetch(ctx context.Context, category string, profile *model.FilterProfile) ([]model.Listing, error)
}

// Notifier は購読者にメッセージを送信する。
type Notifier interface {
	Notify(ctx context.Context, subscriberID int64, msg notify.Message) error
}

// MessageRenderer はディールを送信用メッセージに変換する。
type MessageRenderer interface {
	Render(d model.Deal) notify.Message
	RenderPreview(d model.Deal) notify.Message
	NoDeals() notify.Message
}

// Cleaner は保持期間切れの既読マーカーを削除する。
type Cleaner interface {
	Run(ctx context.Context) (int64, error)
}

// Config はモニターの動作設定。
type Config struct {
	CheckInterval         time.Duration
	CleanupInterval       time.Duration
	CategoryDelay         time.Duration
	NotifyDelay           time.Duration
	SubscriberDelay       time.Duration
	MaxDealsPerSubscriber int
	PreviewListingLimit   int
}

// DefaultConfig はデフォルト設定を返す。
func DefaultConfig() Config {
	return Config{
		CheckInterval:         5 * time.Minute,
		CleanupInterval:       24 * time.Hour,
		CategoryDelay:         500 * time.Millisecond,
		NotifyDelay:           500 * time.Millisecond,
		SubscriberDelay:       time.Second,
		MaxDealsPerSubscriber: 5,
		PreviewListingLimit:   10,
	}
}

// Deps はモニターが利用するコラボレーター。
type Deps struct {
	Subscribers   repository.SubscriberRepository
	Seen          repository.SeenRepository
	Notifications repository.NotificationRepository
	Source        ListingSource
	Engine        *scoring.Engine
	Renderer      MessageRenderer
	Notifier      Notifier
	Cleaner       Cleaner
	Metrics       metrics.MetricsCollector
	Logger        *slog.Logger
}

// Monitor はディール検出サイクルのオーケストレーター。
// 実行状態はインスタンスが保持し、Start/Stopの中でのみ遷移する。
type Monitor struct {
	deps Deps
	cfg  Config
	now  func() time.Time

	categoryLimiter   *rate.Limiter
	notifyLimiter     *rate.Limiter
	subscriberLimiter *rate.Limiter

	// cycleMu はチェックサイクルとクリーンアップを単一実行に制限する。
	cycleMu sync.Mutex

	phase      atomic.Int32
	subscriber atomic.Int64

	stateMu sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

// New はMonitorの新しいインスタンスを生成する。
func New(deps Deps, cfg Config) *Monitor {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	def := DefaultConfig()
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.MaxDealsPerSubscriber <= 0 {
		cfg.MaxDealsPerSubscriber = def.MaxDealsPerSubscriber
	}
	if cfg.PreviewListingLimit <= 0 {
		cfg.PreviewListingLimit = def.PreviewListingLimit
	}
	return &Monitor{
		deps:              deps,
		cfg:               cfg,
		now:               time.Now,
		categoryLimiter:   newLimiter(cfg.CategoryDelay),
		notifyLimiter:     newLimiter(cfg.NotifyDelay),
		subscriberLimiter: newLimiter(cfg.SubscriberDelay),
	}
}

// newLimiter は間隔dごとに1回だけ通すリミッターを返す。d<=0 の場合は制限しない。
func newLimiter(d time.Duration) *rate.Limiter {
	if d <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// Start はループを起動する。起動直後に1回チェックサイクルを実行する。
// 既に起動している場合はmodel.ErrAlreadyRunningを返す。
func (m *Monitor) Start(ctx context.Context) error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.runningLocked() {
		return model.ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go m.loop(loopCtx, done)

	m.deps.Logger.Info("モニターを開始しました",
		slog.Duration("check_interval", m.cfg.CheckInterval),
		slog.Duration("cleanup_interval", m.cfg.CleanupInterval),
	)
	return nil
}

// Stop は以降のティックを止め、実行中のサイクルの終了を待つ。
// 待機中もStatusやRunningはブロックしない。
// 起動していない場合はmodel.ErrNotRunningを返す。
func (m *Monitor) Stop() error {
	m.stateMu.Lock()
	cancel, done := m.cancel, m.done
	if cancel == nil {
		m.stateMu.Unlock()
		return model.ErrNotRunning
	}
	m.cancel = nil
	m.stateMu.Unlock()

	cancel()
	<-done

	m.stateMu.Lock()
	if m.done == done {
		m.done = nil
	}
	m.stateMu.Unlock()

	m.deps.Logger.Info("モニターを停止しました")
	return nil
}

// Running はループが動作中かを返す。
func (m *Monitor) Running() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.runningLocked()
}

// runningLocked は親コンテキストのキャンセルで終了したループを停止済みとみなす。
func (m *Monitor) runningLocked() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Done はループ終了時に閉じられるチャネルを返す。起動していない場合はnil。
func (m *Monitor) Done() <-chan struct{} {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.done
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	check := time.NewTicker(m.cfg.CheckInterval)
	defer check.Stop()
	clean := time.NewTicker(m.cfg.CleanupInterval)
	defer clean.Stop()

	m.RunCycle(ctx)
	// 再起動が保持期間より頻繁でも既読マーカーが溜まり続けないようにする
	if ctx.Err() == nil {
		m.RunCleanup(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-check.C:
			m.RunCycle(ctx)
		case <-clean.C:
			m.RunCleanup(ctx)
		}
	}
}

// RunCleanup は保持期間切れの既読マーカーを削除する。
// チェックサイクルの実行中は開始せずErrCycleInProgressを返す。
func (m *Monitor) RunCleanup(ctx context.Context) (int64, error) {
	if !m.cycleMu.TryLock() {
		m.deps.Logger.Warn("サイクル実行中のためクリーンアップをスキップしました")
		return 0, ErrCycleInProgress
	}
	defer m.cycleMu.Unlock()

	m.setPhase(PhaseCleaning, 0)
	defer m.setPhase(PhaseIdle, 0)

	return m.deps.Cleaner.Run(ctx)
}

func (m *Monitor) setPhase(p Phase, subscriberID int64) {
	m.subscriber.Store(subscriberID)
	m.phase.Store(int32(p))
}

// Status は現在のフェーズと処理中の購読者を返す。
func (m *Monitor) Status() Status {
	return Status{
		Running:      m.Running(),
		Phase:        Phase(m.phase.Load()),
		SubscriberID: m.subscriber.Load(),
	}
}

// Status はモニターの観測用スナップショット。
type Status struct {
	Running      bool  `json:"running"`
	Phase        Phase `json:"phase"`
	SubscriberID int64 `json:"subscriber_id,omitempty"`
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
