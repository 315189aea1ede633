package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/dealwatch/internal/middleware"
	"github.com/hitoshi/dealwatch/internal/model"
)

// maxProfileBodySize はプロファイル更新リクエストのボディ上限。
const maxProfileBodySize = 64 << 10

// maxPageSize は上流APIが受け付ける1ページあたりの最大件数。
const maxPageSize = 100

// ProfileStore はプロファイルハンドラーが必要とする永続化インターフェース。
type ProfileStore interface {
	FindProfile(ctx context.Context, subscriberID int64) (*model.FilterProfile, error)
	SaveProfile(ctx context.Context, profile *model.FilterProfile) error
}

// ProfileHandler は購読者のフィルタープロファイルのHTTPハンドラー。
type ProfileHandler struct {
	store  ProfileStore
	logger *slog.Logger
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(store ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, logger: logger}
}

// GetProfile は購読者の現在のプロファイルを返す。
// GET /api/subscribers/{id}/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, apiErr := subscriberIDParam(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	profile, err := h.store.FindProfile(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if profile == nil {
		handleServiceError(w, h.logger, model.NewSubscriberNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// PutProfile はプロファイルを作成または置き換える。
// 省略されたフィールドはデフォルト値になる。
// PUT /api/subscribers/{id}/profile
func (h *ProfileHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	id, apiErr := subscriberIDParam(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	profile := model.NewFilterProfile(id)
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(profile); err != nil {
		handleServiceError(w, h.logger, model.NewInvalidProfileError(fmt.Sprintf("malformed JSON: %v", err)))
		return
	}
	// パスのIDが優先
	profile.SubscriberID = id

	if apiErr := validateProfile(profile); apiErr != nil {
		handleServiceError(w, h.logger, apiErr)
		return
	}

	if err := h.store.SaveProfile(r.Context(), profile); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("プロファイルを保存しました",
		slog.Int64("subscriber_id", id),
		slog.Any("categories", profile.Categories),
	)
	writeJSON(w, http.StatusOK, profile)
}

// validateProfile はカテゴリがカタログに存在することと、価格・レベルの範囲を検証する。
// エディション・地域・入手経路は上流の値をそのまま扱うため検証しない。
func validateProfile(p *model.FilterProfile) *model.APIError {
	if len(p.Categories) == 0 {
		return model.NewInvalidProfileError("at least one category is required")
	}
	seen := make(map[string]bool, len(p.Categories))
	for _, c := range p.Categories {
		if _, ok := model.LookupCategory(c); !ok {
			return model.NewUnknownCategoryError(c)
		}
		if seen[c] {
			return model.NewInvalidProfileError(fmt.Sprintf("duplicate category %q", c))
		}
		seen[c] = true
	}

	if err := checkRange("price", p.MinPrice, p.MaxPrice); err != nil {
		return err
	}
	if err := checkRange("level", p.MinLevel, p.MaxLevel); err != nil {
		return err
	}
	if p.PageSize < 0 || p.PageSize > maxPageSize {
		return model.NewInvalidProfileError(fmt.Sprintf("page_size must be within [0, %d]", maxPageSize))
	}
	if p.DiscountThreshold < 0 || p.DiscountThreshold > 100 {
		return model.NewInvalidProfileError("discount_threshold must be within [0, 100]")
	}
	if p.OrderBy == "" || p.Show == "" {
		return model.NewInvalidProfileError("order_by and show must not be empty")
	}
	return nil
}

func checkRange(name string, lo, hi *int) *model.APIError {
	if lo != nil && *lo < 0 {
		return model.NewInvalidProfileError(fmt.Sprintf("min_%s must not be negative", name))
	}
	if hi != nil && *hi < 0 {
		return model.NewInvalidProfileError(fmt.Sprintf("max_%s must not be negative", name))
	}
	if lo != nil && hi != nil && *lo > *hi {
		return model.NewInvalidProfileError(fmt.Sprintf("min_%s exceeds max_%s", name, name))
	}
	return nil
}
