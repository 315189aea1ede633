package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/dealwatch/internal/middleware"
	"github.com/hitoshi/dealwatch/internal/model"
)

// Previewer は購読者1人にプレビュー通知を送る。
type Previewer interface {
	RunOnceFor(ctx context.Context, subscriberID int64) (bool, error)
}

// PreviewHandler はプレビュー送信のHTTPハンドラー。
type PreviewHandler struct {
	previewer Previewer
	logger    *slog.Logger
}

// NewPreviewHandler はPreviewHandlerを生成する。
func NewPreviewHandler(previewer Previewer, logger *slog.Logger) *PreviewHandler {
	return &PreviewHandler{previewer: previewer, logger: logger}
}

type previewResponse struct {
	Notified bool `json:"notified"`
}

// Preview は購読者の現在のプロファイルで最上位のディールを1件送信する。
// POST /api/subscribers/{id}/preview
func (h *PreviewHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, apiErr := subscriberIDParam(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	notified, err := h.previewer.RunOnceFor(r.Context(), id)
	if err != nil {
		var derr *model.DeliveryError
		switch {
		case errors.Is(err, model.ErrSubscriberNotFound):
			handleServiceError(w, h.logger, model.NewSubscriberNotFoundError(id))
		case errors.As(err, &derr):
			h.logger.Warn("プレビューの送信に失敗しました",
				slog.Int64("subscriber_id", id),
				slog.String("error", err.Error()),
			)
			handleServiceError(w, h.logger, model.NewPreviewFailedError())
		default:
			handleServiceError(w, h.logger, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{Notified: notified})
}
