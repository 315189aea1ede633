package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/dealwatch/internal/config"
	"github.com/hitoshi/dealwatch/internal/database"
	"github.com/hitoshi/dealwatch/internal/handler"
	"github.com/hitoshi/dealwatch/internal/logger"
	"github.com/hitoshi/dealwatch/internal/market"
	"github.com/hitoshi/dealwatch/internal/metrics"
	"github.com/hitoshi/dealwatch/internal/middleware"
	"github.com/hitoshi/dealwatch/internal/model"
	"github.com/hitoshi/dealwatch/internal/notify"
	"github.com/hitoshi/dealwatch/internal/repository"
	"github.com/hitoshi/dealwatch/internal/scoring"
	"github.com/hitoshi/dealwatch/internal/security"
	"github.com/hitoshi/dealwatch/internal/worker/cleanup"
	"github.com/hitoshi/dealwatch/internal/worker/monitor"
)

const (
	dbPingTimeout   = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ってJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルを反映する
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("invalid LOG_LEVEL, falling back to info", slog.String("error", err.Error()))
	}
	logger.SetupDefault(w, level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("market_base_url", cfg.MarketBaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// components はserveとworkerで共有する依存関係。
type components struct {
	db       *sql.DB
	registry *prometheus.Registry
	profiles *repository.PostgresSubscriberRepo
	monitor  *monitor.Monitor
}

// buildComponents は設定を検証したうえでDB接続を開き、全依存関係をワイヤリングする。
// 設定の誤りはDBに接続する前に検出する。
func buildComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*components, error) {
	// 1. 設定の検証
	scoringCfg, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		return nil, err
	}
	guard := security.NewUpstreamGuard()
	if err := guard.ValidateBaseURL(cfg.MarketBaseURL); err != nil {
		return nil, fmt.Errorf("invalid market base url: %w", err)
	}

	// 2. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	// 3. リポジトリの初期化
	subscriberRepo := repository.NewPostgresSubscriberRepo(db)
	seenRepo := repository.NewPostgresSeenRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)

	// 4. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mc := metrics.NewCollector(reg)

	// 5. 上流と通知先
	source := market.NewClient(guard.NewSafeClient(cfg.FetchTimeout), log, market.ClientConfig{
		BaseURL:     cfg.MarketBaseURL,
		ItemBaseURL: cfg.MarketItemBaseURL,
		Token:       cfg.MarketAPIToken,
		MaxBodySize: cfg.FetchMaxSize,
		Retry:       market.DefaultRetryPolicy(),
	})
	bot, err := notify.NewBot(cfg.TelegramBotToken)
	if err != nil {
		db.Close()
		return nil, err
	}
	notifier := notify.NewTelegramNotifier(bot, log)
	renderer := notify.NewRenderer(security.NewMessageSanitizer(), guard)

	// 6. クリーンアップとモニター
	cleanupJob := cleanup.NewCleanupJob(seenRepo, log, mc)
	cleanupJob.RetentionDays = cfg.SeenRetentionDays

	mon := monitor.New(monitor.Deps{
		Subscribers:   subscriberRepo,
		Seen:          seenRepo,
		Notifications: notificationRepo,
		Source:        source,
		Engine:        scoring.NewEngine(scoringCfg),
		Renderer:      renderer,
		Notifier:      notifier,
		Cleaner:       cleanupJob,
		Metrics:       mc,
		Logger:        log,
	}, monitor.Config{
		CheckInterval:         cfg.CheckInterval,
		CleanupInterval:       cfg.CleanupInterval,
		CategoryDelay:         cfg.CategoryDelay,
		NotifyDelay:           cfg.NotifyDelay,
		SubscriberDelay:       cfg.SubscriberDelay,
		MaxDealsPerSubscriber: cfg.MaxDealsPerSubscriber,
		PreviewListingLimit:   cfg.PreviewListingLimit,
	})

	return &components{
		db:       db,
		registry: reg,
		profiles: subscriberRepo,
		monitor:  mon,
	}, nil
}

// newServer は管理APIのHTTPサーバーを構築する。
// statusがnilの場合はヘルスチェックにモニター状態を含めない。
func newServer(cfg *config.Config, c *components, status handler.StatusReporter, limiter *middleware.RateLimiter, log *slog.Logger) *http.Server {
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         log,
		DB:             c.db,
		Monitor:        status,
		Metrics:        metrics.Handler(c.registry),
		Profiles:       c.profiles,
		Previewer:      c.monitor,
		PreviewLimiter: limiter,
	})

	return &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// プレビューは上流取得とTelegram送信を含むため長めにとる
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

// serveHTTP はサーバーをバックグラウンドで起動し、起動失敗をerrChに通知する。
func serveHTTP(server *http.Server, log *slog.Logger) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

func shutdownServer(server *http.Server, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("HTTP server stopped gracefully")
	return nil
}

// runServe は管理APIサーバーモードで起動する。
// モニターのループは起動せず、プレビューのみ同じオーケストレーターで実行する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()
	c, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.db.Close()

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), log)
	defer limiter.Stop()

	server := newServer(cfg, c, nil, limiter, log)
	errCh := serveHTTP(server, log)

	select {
	case <-ctx.Done():
		log.Info("shutting down API server...")
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
	}

	return shutdownServer(server, log)
}

// runWorker はワーカーモードで起動する。
// モニターのループ（起動直後に1回、以降CHECK_INTERVAL_MINUTESごとのチェックと
// CLEANUP_INTERVALごとのクリーンアップ）を動かし、同じHTTPサーバーで/metricsと/healthを公開する。
// SIGINTまたはSIGTERMを受信すると、実行中のサイクルの終了を待ってから停止する。
func runWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()
	c, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer c.db.Close()

	limiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), log)
	defer limiter.Stop()

	server := newServer(cfg, c, c.monitor, limiter, log)
	errCh := serveHTTP(server, log)

	if err := c.monitor.Start(ctx); err != nil {
		_ = shutdownServer(server, log)
		return err
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down worker...")
	case <-c.monitor.Done():
		log.Warn("monitor loop exited")
	case err, ok := <-errCh:
		if ok {
			log.Error("server listen error", slog.String("error", err.Error()))
		}
	}

	if err := c.monitor.Stop(); err != nil && !errors.Is(err, model.ErrNotRunning) {
		log.Warn("monitor stop failed", slog.String("error", err.Error()))
	}
	if err := shutdownServer(server, log); err != nil {
		return err
	}

	log.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 引数なしまたは"up"で未適用のマイグレーションをすべて適用し、
// "down N"でN段階ロールバックする。
func runMigrate(cfg *config.Config, args []string) error {
	direction, steps, err := parseMigrateArgs(args)
	if err != nil {
		return err
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.String("direction", direction),
	)

	if direction == migrateDown {
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		slog.Info("database rollback completed successfully", slog.Int("steps", steps))
		return nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
