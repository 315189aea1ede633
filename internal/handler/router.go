package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/dealwatch/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger

	// ヘルスチェック
	DB      Pinger
	Monitor StatusReporter

	// メトリクス（nilの場合は/metricsを公開しない）
	Metrics http.Handler

	// 購読者API
	Profiles  ProfileStore
	Previewer Previewer

	// プレビュー用レート制限（nilの場合は制限しない）
	PreviewLimiter *middleware.RateLimiter
}

// NewRouter は管理APIのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	healthHandler := NewHealthHandler(deps.DB, deps.Monitor)
	r.Get("/health", healthHandler.Health)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	profileHandler := NewProfileHandler(deps.Profiles, deps.Logger)
	previewHandler := NewPreviewHandler(deps.Previewer, deps.Logger)

	r.Route("/api/subscribers/{id}", func(r chi.Router) {
		r.Get("/profile", profileHandler.GetProfile)
		r.Put("/profile", profileHandler.PutProfile)

		// プレビューは上流APIとTelegramを呼ぶため購読者ごとに制限する
		if deps.PreviewLimiter != nil {
			r.With(deps.PreviewLimiter.Middleware("preview", middleware.SubscriberKey)).Post("/preview", previewHandler.Preview)
		} else {
			r.Post("/preview", previewHandler.Preview)
		}
	})

	return r
}
