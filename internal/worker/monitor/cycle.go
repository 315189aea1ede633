package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/dealwatch/internal/metrics"
	"github.com/hitoshi/dealwatch/internal/model"
	"github.com/hitoshi/dealwatch/internal/notify"
)

// CycleReport は1回のチェックサイクルの集計。
type CycleReport struct {
	Subscribers    int
	Processed      int
	Skipped        int
	Failed         int
	DealsFound     int
	Sent           int
	DeliveryFailed int
	AlreadySeen    int
	Duration       time.Duration
}

// subscriberResult は購読者1人分の処理結果。
type subscriberResult struct {
	skipped        bool
	deals          int
	sent           int
	deliveryFailed int
	alreadySeen    int
}

// RunCycle は全購読者に対して fetch → score → 上位抽出 → 重複排除 → 通知 を1回実行する。
// 購読者は逐次処理し、1人の失敗は他の購読者に影響しない。
// 購読者一覧を取得できない場合のみサイクル全体を中断し*model.RegistryErrorを返す。
// 前のサイクルが実行中の場合は開始せずErrCycleInProgressを返す。
func (m *Monitor) RunCycle(ctx context.Context) (CycleReport, error) {
	if !m.cycleMu.TryLock() {
		m.deps.Metrics.RecordCycle(metrics.CycleSkipped, 0)
		m.deps.Logger.Warn("前のチェックサイクルが実行中のためスキップしました")
		return CycleReport{}, ErrCycleInProgress
	}
	defer m.cycleMu.Unlock()
	defer m.setPhase(PhaseIdle, 0)

	start := time.Now()
	var report CycleReport

	ids, err := m.deps.Subscribers.ListIDs(ctx)
	if err != nil {
		rerr := &model.RegistryError{Err: err}
		report.Duration = time.Since(start)
		m.deps.Metrics.RecordCycle(metrics.CycleAborted, report.Duration)
		m.deps.Logger.Error("購読者一覧の取得に失敗したためサイクルを中断しました",
			slog.String("error", err.Error()),
		)
		return report, rerr
	}
	report.Subscribers = len(ids)

	m.deps.Logger.Info("チェックサイクルを開始します",
		slog.Int("subscriber_count", len(ids)),
	)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		res, err := m.processSubscriber(ctx, id)
		if err != nil {
			report.Failed++
			m.deps.Logger.Error("購読者の処理に失敗しました",
				slog.Int64("subscriber_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if res.skipped {
			report.Skipped++
			continue
		}
		report.Processed++
		report.DealsFound += res.deals
		report.Sent += res.sent
		report.DeliveryFailed += res.deliveryFailed
		report.AlreadySeen += res.alreadySeen
	}

	report.Duration = time.Since(start)
	result := metrics.CycleCompleted
	if ctx.Err() != nil {
		result = metrics.CycleAborted
	}
	m.deps.Metrics.RecordCycle(result, report.Duration)

	m.deps.Logger.Info("チェックサイクルが完了しました",
		slog.Int("subscriber_count", report.Subscribers),
		slog.Int("processed", report.Processed),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("deals_found", report.DealsFound),
		slog.Int("sent", report.Sent),
		slog.Int("delivery_failed", report.DeliveryFailed),
		slog.Float64("duration_ms", float64(report.Duration.Milliseconds())),
	)
	return report, ctx.Err()
}

// processSubscriber は購読者1人を処理する。panicは*model.SubscriberProcessingErrorに変換する。
func (m *Monitor) processSubscriber(ctx context.Context, id int64) (res subscriberResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.SubscriberProcessingError{SubscriberID: id, Err: panicError(r)}
		}
	}()

	profile, err := m.deps.Subscribers.FindProfile(ctx, id)
	if err != nil {
		return res, &model.SubscriberProcessingError{SubscriberID: id, Err: err}
	}
	if profile == nil || !profile.NotificationsEnabled {
		res.skipped = true
		return res, nil
	}

	if err := m.subscriberLimiter.Wait(ctx); err != nil {
		return res, &model.SubscriberProcessingError{SubscriberID: id, Err: err}
	}

	m.setPhase(PhaseFetching, id)
	listings := m.fetchAll(ctx, profile)

	m.setPhase(PhaseScoring, id)
	deals := m.deps.Engine.Analyze(listings, profile, m.now())
	res.deals = len(deals)
	m.deps.Metrics.RecordDealsFound(len(deals))

	m.setPhase(PhaseFiltering, id)
	if len(deals) > m.cfg.MaxDealsPerSubscriber {
		deals = deals[:m.cfg.MaxDealsPerSubscriber]
	}

	m.setPhase(PhaseNotifying, id)
	for _, d := range deals {
		seen, err := m.deps.Seen.HasSeen(ctx, id, d.Listing.ID)
		if err != nil {
			return res, &model.SubscriberProcessingError{SubscriberID: id, Err: err}
		}
		if seen {
			res.alreadySeen++
			m.deps.Metrics.RecordNotification(metrics.NotificationAlreadySeen)
			continue
		}

		if err := m.notifyLimiter.Wait(ctx); err != nil {
			return res, &model.SubscriberProcessingError{SubscriberID: id, Err: err}
		}

		msg := m.deps.Renderer.Render(d)
		if err := m.deps.Notifier.Notify(ctx, id, msg); err != nil {
			// 既読にしないので次のサイクルで再送される
			derr := &model.DeliveryError{SubscriberID: id, ListingID: d.Listing.ID, Err: err}
			res.deliveryFailed++
			m.deps.Metrics.RecordNotification(metrics.NotificationFailed)
			m.deps.Logger.Warn("通知の送信に失敗しました",
				slog.Int64("subscriber_id", id),
				slog.Int64("listing_id", d.Listing.ID),
				slog.String("error", derr.Error()),
			)
			continue
		}
		res.sent++
		m.deps.Metrics.RecordNotification(metrics.NotificationSent)

		// 送信済みの記録は停止要求で中断しない
		writeCtx := context.WithoutCancel(ctx)
		if err := m.deps.Seen.MarkSeen(writeCtx, id, d.Listing.ID); err != nil {
			return res, &model.SubscriberProcessingError{SubscriberID: id, Err: fmt.Errorf("既読の記録に失敗: %w", err)}
		}
		m.logNotification(writeCtx, id, d.Listing.ID, msg)
	}

	return res, nil
}

// fetchAll は購読者の全カテゴリの出品を順に取得して連結する。
// 1カテゴリの失敗はそのカテゴリを空として扱う。
func (m *Monitor) fetchAll(ctx context.Context, profile *model.FilterProfile) []model.Listing {
	var all []model.Listing
	for _, category := range profile.Categories {
		if err := m.categoryLimiter.Wait(ctx); err != nil {
			break
		}

		listings, err := m.deps.Source.Fetch(ctx, category, profile)
		if err != nil {
			m.deps.Metrics.RecordFetchFailure(category)
			attrs := []any{
				slog.Int64("subscriber_id", profile.SubscriberID),
				slog.String("category", category),
				slog.String("error", err.Error()),
			}
			var fe *model.UpstreamFetchError
			if errors.As(err, &fe) && fe.StatusCode != 0 {
				attrs = append(attrs, slog.Int("status_code", fe.StatusCode))
			}
			m.deps.Logger.Warn("カテゴリの取得に失敗しました", attrs...)
			continue
		}
		all = append(all, listings...)
	}
	m.deps.Metrics.RecordListingsFetched(len(all))
	return all
}

// logNotification は通知ログを記録する。失敗しても既読状態には影響しない。
func (m *Monitor) logNotification(ctx context.Context, subscriberID, listingID int64, msg notify.Message) {
	if m.deps.Notifications == nil {
		return
	}
	n := &model.Notification{
		SubscriberID: subscriberID,
		ListingID:    listingID,
		Message:      msg.Text,
	}
	if err := m.deps.Notifications.Save(ctx, n); err != nil {
		m.deps.Logger.Warn("通知ログの保存に失敗しました",
			slog.Int64("subscriber_id", subscriberID),
			slog.Int64("listing_id", listingID),
			slog.String("error", err.Error()),
		)
	}
}

// RunOnceFor は購読者1人に対してプレビュー通知を送る。
// 既読状態は参照も更新もしない。取得した出品のうち先頭PreviewListingLimit件をスコアリングし、
// 最上位のディールを送信した場合にtrueを返す。該当がなければその旨を送信してfalseを返す。
// 購読者が存在しない場合はmodel.ErrSubscriberNotFoundを返す。
func (m *Monitor) RunOnceFor(ctx context.Context, subscriberID int64) (bool, error) {
	profile, err := m.deps.Subscribers.FindProfile(ctx, subscriberID)
	if err != nil {
		return false, &model.SubscriberProcessingError{SubscriberID: subscriberID, Err: err}
	}
	if profile == nil {
		return false, model.ErrSubscriberNotFound
	}

	listings := m.fetchAll(ctx, profile)
	if len(listings) > m.cfg.PreviewListingLimit {
		listings = listings[:m.cfg.PreviewListingLimit]
	}
	deals := m.deps.Engine.Analyze(listings, profile, m.now())

	msg := m.deps.Renderer.NoDeals()
	if len(deals) > 0 {
		msg = m.deps.Renderer.RenderPreview(deals[0])
	}

	if err := m.deps.Notifier.Notify(ctx, subscriberID, msg); err != nil {
		var listingID int64
		if len(deals) > 0 {
			listingID = deals[0].Listing.ID
		}
		return false, &model.DeliveryError{SubscriberID: subscriberID, ListingID: listingID, Err: err}
	}

	m.deps.Logger.Info("プレビューを送信しました",
		slog.Int64("subscriber_id", subscriberID),
		slog.Int("listings", len(listings)),
		slog.Int("deals", len(deals)),
	)
	return len(deals) > 0, nil
}
