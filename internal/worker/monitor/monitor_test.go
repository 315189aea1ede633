package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/dealwatch/internal/metrics"
	"github.com/hitoshi/dealwatch/internal/model"
	"github.com/hitoshi/dealwatch/internal/notify"
	"github.com/hitoshi/dealwatch/internal/repository"
	"github.com/hitoshi/dealwatch/internal/scoring"
	"github.com/hitoshi/dealwatch/internal/security"
)

// --- モック定義 ---

// fakeSource はListingSourceのテスト用モック。
type fakeSource struct {
	mu      sync.Mutex
	fetchFn func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error)
	calls   []string
}

func (f *fakeSource) Fetch(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fmt.Sprintf("%d:%s", p.SubscriberID, category))
	f.mu.Unlock()
	if f.fetchFn != nil {
		return f.fetchFn(ctx, category, p)
	}
	return nil, nil
}

type sentMessage struct {
	subscriberID int64
	msg          notify.Message
}

// fakeNotifier はNotifierのテスト用モック。
type fakeNotifier struct {
	mu       sync.Mutex
	notifyFn func(subscriberID int64, msg notify.Message) error
	sent     []sentMessage
	signal   chan struct{}
}

func (f *fakeNotifier) Notify(ctx context.Context, subscriberID int64, msg notify.Message) error {
	if f.notifyFn != nil {
		if err := f.notifyFn(subscriberID, msg); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.sent = append(f.sent, sentMessage{subscriberID: subscriberID, msg: msg})
	f.mu.Unlock()
	if f.signal != nil {
		select {
		case f.signal <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeNotifier) count(subscriberID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s.subscriberID == subscriberID {
			n++
		}
	}
	return n
}

// fakeCleaner はCleanerのテスト用モック。
type fakeCleaner struct {
	mu     sync.Mutex
	calls  int
	signal chan struct{}
}

func (f *fakeCleaner) Run(ctx context.Context) (int64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.signal != nil {
		select {
		case f.signal <- struct{}{}:
		default:
		}
	}
	return 2, nil
}

func (f *fakeCleaner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// failingRegistry は購読者一覧の取得に失敗する。
type failingRegistry struct {
	repository.SubscriberRepository
}

func (failingRegistry) ListIDs(ctx context.Context) ([]int64, error) {
	return nil, errors.New("connection refused")
}

// --- ヘルパー ---

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

type testEnv struct {
	monitor       *Monitor
	subscribers   *repository.MemorySubscriberRepo
	seen          *repository.MemorySeenRepo
	notifications *repository.MemoryNotificationRepo
	source        *fakeSource
	notifier      *fakeNotifier
	cleaner       *fakeCleaner
	registry      *prometheus.Registry
	logs          *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		subscribers:   repository.NewMemorySubscriberRepo(),
		seen:          repository.NewMemorySeenRepo(nil),
		notifications: repository.NewMemoryNotificationRepo(),
		source:        &fakeSource{},
		notifier:      &fakeNotifier{},
		cleaner:       &fakeCleaner{},
		registry:      prometheus.NewRegistry(),
		logs:          &bytes.Buffer{},
	}
	env.monitor = New(Deps{
		Subscribers:   env.subscribers,
		Seen:          env.seen,
		Notifications: env.notifications,
		Source:        env.source,
		Engine:        scoring.NewEngine(scoring.DefaultConfig()),
		Renderer:      notify.NewRenderer(security.NewMessageSanitizer(), security.NewUpstreamGuard()),
		Notifier:      env.notifier,
		Cleaner:       env.cleaner,
		Metrics:       metrics.NewCollector(env.registry),
		Logger:        newTestLogger(env.logs),
	}, Config{})
	return env
}

func (e *testEnv) addSubscriber(t *testing.T, id int64, categories ...string) *model.FilterProfile {
	t.Helper()
	p := model.NewFilterProfile(id)
	p.Categories = categories
	if err := e.subscribers.SaveProfile(context.Background(), p); err != nil {
		t.Fatalf("SaveProfile がエラーを返した: %v", err)
	}
	return p
}

// goodListing はスコア60以上になるプライマリカテゴリの出品を返す。
func goodListing(id int64) model.Listing {
	l := model.Listing{
		ID:        id,
		Category:  model.CategoryTarkov,
		URL:       fmt.Sprintf("https://lzt.market/%d/", id),
		NeverSold: true,
		Seller:    model.Seller{Username: "seller"},
		Tarkov: &model.TarkovAttributes{
			Edition: "edge_of_darkness",
			Level:   35,
			Rubles:  600000,
		},
	}
	l.Price = scoring.NewEngine(scoring.DefaultConfig()).ExpectedPrice(&l, model.CategoryTarkov) * 0.5
	return l
}

// poorListing はスコア60未満の汎用カテゴリの出品を返す。
func poorListing(id int64) model.Listing {
	return model.Listing{ID: id, Category: "steam", Price: 100000, URL: fmt.Sprintf("https://lzt.market/%d/", id)}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// --- チェックサイクル ---

func TestRunCycle_NotifiesOncePerListingAcrossCycles(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		return []model.Listing{goodListing(100), poorListing(200)}, nil
	}

	for i := range 2 {
		if _, err := env.monitor.RunCycle(context.Background()); err != nil {
			t.Fatalf("%d回目の RunCycle がエラーを返した: %v", i+1, err)
		}
	}

	if got := env.notifier.count(1); got != 1 {
		t.Errorf("通知回数 = %d, want 1", got)
	}
	if seen, _ := env.seen.HasSeen(context.Background(), 1, 100); !seen {
		t.Error("送信済みの出品が既読になっていない")
	}
	if seen, _ := env.seen.HasSeen(context.Background(), 1, 200); seen {
		t.Error("閾値未満の出品が既読になっている")
	}
	if got := len(env.notifications.List()); got != 1 {
		t.Errorf("通知ログ件数 = %d, want 1", got)
	}
	if v := counterValue(t, env.registry, "dealwatch_notifications_total", "result", metrics.NotificationAlreadySeen); v != 1 {
		t.Errorf("already_seen = %v, want 1", v)
	}
	if v := counterValue(t, env.registry, "dealwatch_cycles_total", "result", metrics.CycleCompleted); v != 2 {
		t.Errorf("completed cycles = %v, want 2", v)
	}
}

func TestRunCycle_CategoryFailureIsIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, "steam", model.CategoryTarkov)
	env.addSubscriber(t, 2, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		if category == "steam" {
			return nil, &model.UpstreamFetchError{Category: category, StatusCode: 502}
		}
		return []model.Listing{goodListing(p.SubscriberID * 10)}, nil
	}

	report, err := env.monitor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle がエラーを返した: %v", err)
	}

	if env.notifier.count(1) != 1 || env.notifier.count(2) != 1 {
		t.Errorf("通知回数 = (%d, %d), want (1, 1)", env.notifier.count(1), env.notifier.count(2))
	}
	if report.Processed != 2 || report.Failed != 0 {
		t.Errorf("report = %+v", report)
	}
	if v := counterValue(t, env.registry, "dealwatch_fetch_failures_total", "category", "steam"); v != 1 {
		t.Errorf("fetch_failures{steam} = %v, want 1", v)
	}
	if !strings.Contains(env.logs.String(), `"status_code":502`) {
		t.Error("失敗したカテゴリのステータスがログに記録されていない")
	}
}

func TestRunCycle_RegistryErrorAbortsOnlyThisCycle(t *testing.T) {
	env := newTestEnv(t)
	env.monitor.deps.Subscribers = failingRegistry{}

	_, err := env.monitor.RunCycle(context.Background())
	var rerr *model.RegistryError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *RegistryError", err)
	}

	// 次のサイクルは通常どおり実行できる
	env.monitor.deps.Subscribers = env.subscribers
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		return []model.Listing{goodListing(1)}, nil
	}
	if _, err := env.monitor.RunCycle(context.Background()); err != nil {
		t.Fatalf("次のサイクルがエラーを返した: %v", err)
	}
	if env.notifier.count(1) != 1 {
		t.Error("中断後のサイクルで通知されていない")
	}
}

func TestRunCycle_DeliveryFailureIsRetriedNextCycle(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		return []model.Listing{goodListing(100), goodListing(101)}, nil
	}

	attempts := 0
	env.notifier.notifyFn = func(id int64, msg notify.Message) error {
		attempts++
		if attempts == 1 {
			return errors.New("Too Many Requests")
		}
		return nil
	}

	report, err := env.monitor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle がエラーを返した: %v", err)
	}
	if report.DeliveryFailed != 1 || report.Sent != 1 {
		t.Errorf("report = %+v, want 1 failed and 1 sent", report)
	}
	if seen, _ := env.seen.HasSeen(context.Background(), 1, 100); seen {
		t.Error("送信に失敗した出品を既読にしてはならない")
	}
	if !strings.Contains(env.logs.String(), "通知の送信に失敗しました") {
		t.Error("送信失敗がログに記録されていない")
	}

	env.monitor.RunCycle(context.Background())
	if seen, _ := env.seen.HasSeen(context.Background(), 1, 100); !seen {
		t.Error("次のサイクルで再送・既読化されていない")
	}
	if got := env.notifier.count(1); got != 2 {
		t.Errorf("成功した通知数 = %d, want 2", got)
	}
}

func TestRunCycle_LimitsToTopDeals(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		var ls []model.Listing
		for id := int64(1); id <= 8; id++ {
			ls = append(ls, goodListing(id))
		}
		return ls, nil
	}

	report, _ := env.monitor.RunCycle(context.Background())

	if report.DealsFound != 8 {
		t.Errorf("DealsFound = %d, want 8", report.DealsFound)
	}
	var ids []int64
	for _, n := range env.notifications.List() {
		ids = append(ids, n.ListingID)
	}
	// 同点なので入力順の先頭5件
	if !slices.Equal(ids, []int64{1, 2, 3, 4, 5}) {
		t.Errorf("通知した出品 = %v, want [1 2 3 4 5]", ids)
	}
}

func TestRunCycle_SkipsDisabledAndRecoversPanics(t *testing.T) {
	env := newTestEnv(t)
	disabled := env.addSubscriber(t, 1, model.CategoryTarkov)
	disabled.NotificationsEnabled = false
	env.subscribers.SaveProfile(context.Background(), disabled)
	env.addSubscriber(t, 2, model.CategoryTarkov)
	env.addSubscriber(t, 3, model.CategoryTarkov)

	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		if p.SubscriberID == 2 {
			panic("unexpected payload")
		}
		return []model.Listing{goodListing(p.SubscriberID)}, nil
	}

	report, err := env.monitor.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle がエラーを返した: %v", err)
	}
	if report.Skipped != 1 || report.Failed != 1 || report.Processed != 1 {
		t.Errorf("report = %+v, want skipped=1 failed=1 processed=1", report)
	}
	if env.notifier.count(1) != 0 {
		t.Error("通知無効の購読者に送信してはならない")
	}
	if env.notifier.count(3) != 1 {
		t.Error("panic した購読者の後続が処理されていない")
	}
	for _, c := range env.source.calls {
		if strings.HasPrefix(c, "1:") {
			t.Error("通知無効の購読者の出品を取得してはならない")
		}
	}
}

func TestRunCycle_RejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)

	entered := make(chan struct{})
	release := make(chan struct{})
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		close(entered)
		<-release
		return nil, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := env.monitor.RunCycle(context.Background())
		done <- err
	}()
	<-entered

	if st := env.monitor.Status(); st.Phase != PhaseFetching || st.SubscriberID != 1 {
		t.Errorf("Status = %+v, want fetching subscriber 1", st)
	}
	if _, err := env.monitor.RunCycle(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Errorf("重複サイクル err = %v, want ErrCycleInProgress", err)
	}
	if _, err := env.monitor.RunCleanup(context.Background()); !errors.Is(err, ErrCycleInProgress) {
		t.Errorf("サイクル中のクリーンアップ err = %v, want ErrCycleInProgress", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("最初のサイクルがエラーを返した: %v", err)
	}
	if st := env.monitor.Status(); st.Phase != PhaseIdle {
		t.Errorf("サイクル後の Phase = %v, want idle", st.Phase)
	}
	if v := counterValue(t, env.registry, "dealwatch_cycles_total", "result", metrics.CycleSkipped); v != 1 {
		t.Errorf("skipped cycles = %v, want 1", v)
	}
}

// 送信が完了した通知は、直後に停止要求が来ても既読として記録される
func TestRunCycle_SentBeforeStopIsMarkedSeen(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		return []model.Listing{goodListing(100), goodListing(101)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.notifier.notifyFn = func(subscriberID int64, msg notify.Message) error {
		cancel()
		return nil
	}

	_, err := env.monitor.RunCycle(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}

	sent := env.notifier.count(1)
	if sent != 1 {
		t.Errorf("通知回数 = %d, want 1 (停止後は次の通知を送らない)", sent)
	}
	if got := env.seen.Len(); got != sent {
		t.Errorf("既読件数 = %d, want %d (送信済みはすべて既読)", got, sent)
	}
	if got := len(env.notifications.List()); got != sent {
		t.Errorf("通知ログ件数 = %d, want %d", got, sent)
	}
}

func TestRunCleanup_DelegatesToCleaner(t *testing.T) {
	env := newTestEnv(t)

	n, err := env.monitor.RunCleanup(context.Background())
	if err != nil {
		t.Fatalf("RunCleanup がエラーを返した: %v", err)
	}
	if n != 2 || env.cleaner.callCount() != 1 {
		t.Errorf("RunCleanup = %d (calls=%d), want 2 (calls=1)", n, env.cleaner.callCount())
	}
}

// --- プレビュー ---

func TestRunOnceFor_SendsTopDealWithoutDedup(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.seen.MarkSeen(context.Background(), 1, 100)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		return []model.Listing{goodListing(100)}, nil
	}

	for range 2 {
		notified, err := env.monitor.RunOnceFor(context.Background(), 1)
		if err != nil {
			t.Fatalf("RunOnceFor がエラーを返した: %v", err)
		}
		if !notified {
			t.Error("RunOnceFor = false, want true")
		}
	}

	if got := env.notifier.count(1); got != 2 {
		t.Errorf("プレビュー送信数 = %d, want 2 (既読を参照しない)", got)
	}
	if env.seen.Len() != 1 {
		t.Errorf("既読件数 = %d, want 1 (プレビューは既読を書き込まない)", env.seen.Len())
	}
	if !strings.Contains(env.notifier.sent[0].msg.Text, "Preview") {
		t.Error("プレビュー見出しがない")
	}
}

func TestRunOnceFor_OnlyScoresFirstListings(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		var ls []model.Listing
		for id := int64(1); id <= 10; id++ {
			ls = append(ls, poorListing(id))
		}
		return append(ls, goodListing(11)), nil
	}

	notified, err := env.monitor.RunOnceFor(context.Background(), 1)
	if err != nil {
		t.Fatalf("RunOnceFor がエラーを返した: %v", err)
	}
	if notified {
		t.Error("先頭10件に該当がない場合は false を返すべき")
	}
	if env.notifier.count(1) != 1 || env.notifier.sent[0].msg.ButtonURL != "" {
		t.Errorf("該当なしメッセージが送信されていない: %+v", env.notifier.sent)
	}
}

func TestRunOnceFor_UnknownSubscriber(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.monitor.RunOnceFor(context.Background(), 404)
	if !errors.Is(err, model.ErrSubscriberNotFound) {
		t.Errorf("err = %v, want ErrSubscriberNotFound", err)
	}
}

func TestRunOnceFor_DeliveryError(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		return []model.Listing{goodListing(5)}, nil
	}
	env.notifier.notifyFn = func(int64, notify.Message) error { return errors.New("chat not found") }

	notified, err := env.monitor.RunOnceFor(context.Background(), 1)
	var derr *model.DeliveryError
	if !errors.As(err, &derr) || derr.ListingID != 5 {
		t.Errorf("err = %v, want *DeliveryError for listing 5", err)
	}
	if notified {
		t.Error("送信失敗時は false を返すべき")
	}
}

// --- 起動・停止 ---

func TestStartStop(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		return []model.Listing{goodListing(1)}, nil
	}
	env.notifier.signal = make(chan struct{}, 1)

	if err := env.monitor.Stop(); !errors.Is(err, model.ErrNotRunning) {
		t.Errorf("起動前の Stop err = %v, want ErrNotRunning", err)
	}

	if err := env.monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start がエラーを返した: %v", err)
	}
	if err := env.monitor.Start(context.Background()); !errors.Is(err, model.ErrAlreadyRunning) {
		t.Errorf("二重 Start err = %v, want ErrAlreadyRunning", err)
	}

	// 起動直後のサイクルで通知される
	select {
	case <-env.notifier.signal:
	case <-time.After(5 * time.Second):
		t.Fatal("起動直後のサイクルが実行されなかった")
	}

	if err := env.monitor.Stop(); err != nil {
		t.Fatalf("Stop がエラーを返した: %v", err)
	}
	if env.monitor.Running() {
		t.Error("Stop 後も Running() = true")
	}
	if err := env.monitor.Stop(); !errors.Is(err, model.ErrNotRunning) {
		t.Errorf("二重 Stop err = %v, want ErrNotRunning", err)
	}
}

func TestStart_RunsCleanupImmediately(t *testing.T) {
	env := newTestEnv(t)
	env.cleaner.signal = make(chan struct{}, 1)

	if err := env.monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start がエラーを返した: %v", err)
	}
	defer env.monitor.Stop()

	select {
	case <-env.cleaner.signal:
	case <-time.After(5 * time.Second):
		t.Fatal("起動直後にクリーンアップが実行されなかった")
	}
}

// 実行中のサイクルを待つ間もStatusはブロックしない
func TestStop_StatusDoesNotBlockWhileDraining(t *testing.T) {
	env := newTestEnv(t)
	env.addSubscriber(t, 1, model.CategoryTarkov)

	entered := make(chan struct{})
	release := make(chan struct{})
	env.source.fetchFn = func(ctx context.Context, category string, p *model.FilterProfile) ([]model.Listing, error) {
		close(entered)
		<-release
		return nil, nil
	}

	if err := env.monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start がエラーを返した: %v", err)
	}
	<-entered

	stopped := make(chan error, 1)
	go func() { stopped <- env.monitor.Stop() }()
	time.Sleep(50 * time.Millisecond)

	statusCh := make(chan Status, 1)
	go func() { statusCh <- env.monitor.Status() }()
	select {
	case st := <-statusCh:
		if !st.Running {
			t.Error("停止待ちの間は Running = true のはず")
		}
	case <-time.After(time.Second):
		t.Fatal("Stop の待機中に Status がブロックした")
	}

	close(release)
	select {
	case err := <-stopped:
		if err != nil {
			t.Fatalf("Stop がエラーを返した: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop が終了しない")
	}
	if env.monitor.Running() {
		t.Error("Stop 後も Running() = true")
	}
}

func TestStart_ParentCancelEndsLoop(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	if err := env.monitor.Start(ctx); err != nil {
		t.Fatalf("Start がエラーを返した: %v", err)
	}
	done := env.monitor.Done()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("親コンテキストのキャンセルでループが終了しない")
	}
	if env.monitor.Running() {
		t.Error("ループ終了後も Running() = true")
	}
	// 再起動できる
	if err := env.monitor.Start(context.Background()); err != nil {
		t.Fatalf("再 Start がエラーを返した: %v", err)
	}
	env.monitor.Stop()
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "idle"},
		{PhaseFetching, "fetching"},
		{PhaseNotifying, "notifying"},
		{PhaseCleaning, "cleaning"},
		{Phase(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}
