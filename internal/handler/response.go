package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/dealwatch/internal/middleware"
	"github.com/hitoshi/dealwatch/internal/model"
)

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// subscriberIDParam はルートの{id}を購読者ID（TelegramのチャットID）として解析する。
// チャットIDはグループでは負数になるため0以外を受け付ける。
func subscriberIDParam(r *http.Request) (int64, *model.APIError) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, model.NewInvalidSubscriberError(raw)
	}
	return id, nil
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	logger.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidSubscriber:
		return http.StatusBadRequest
	case model.ErrCodeSubscriberNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidProfile, model.ErrCodeUnknownCategory:
		return http.StatusUnprocessableEntity
	case model.ErrCodePreviewFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
