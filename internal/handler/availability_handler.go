// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/bookman/internal/auth"
	"github.com/hitoshi/bookman/internal/calendar"
	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/slots"
)

// AvailabilityServiceInterface は空き状況ハンドラーが必要とするサービスインターフェース。
type AvailabilityServiceInterface interface {
	// QueryAvailability は指定ウィンドウの使用中区間と空き枠を返す。
	QueryAvailability(ctx context.Context, start, end time.Time) (*slots.Availability, error)
}

// SlotsRecorder は返却した空き枠数のメトリクスを記録する。
// 未設定（nil）の場合は記録しない。
type SlotsRecorder interface {
	RecordSlotsReturned(count int)
}

// AvailabilityHandler は空き状況クエリのHTTPハンドラー。
type AvailabilityHandler struct {
	service  AvailabilityServiceInterface
	recorder SlotsRecorder
}

// NewAvailabilityHandler はAvailabilityHandlerを生成する。recorderはnilでもよい。
func NewAvailabilityHandler(service AvailabilityServiceInterface, recorder SlotsRecorder) *AvailabilityHandler {
	return &AvailabilityHandler{
		service:  service,
		recorder: recorder,
	}
}

// availabilityResponse は空き状況クエリのAPIレスポンス。
// busyとslotsは該当がない場合もnullではなく空配列で返す。
type availabilityResponse struct {
	Busy  []model.BusyInterval `json:"busy"`
	Slots []model.FreeSlot     `json:"slots"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// GetAvailability は空き状況クエリを処理する。
// GET /api/calendar/availability?start_time=...&end_time=...
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	startParam := r.URL.Query().Get("start_time")
	endParam := r.URL.Query().Get("end_time")

	var missing []string
	if startParam == "" {
		missing = append(missing, "start_time")
	}
	if endParam == "" {
		missing = append(missing, "end_time")
	}
	if len(missing) > 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingParamsError(missing...))
		return
	}

	start, err := time.Parse(time.RFC3339, startParam)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTimestampError(startParam))
		return
	}
	end, err := time.Parse(time.RFC3339, endParam)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidTimestampError(endParam))
		return
	}

	availability, err := h.service.QueryAvailability(r.Context(), start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordSlotsReturned(len(availability.Slots))
	}

	resp := availabilityResponse{
		Busy:  availability.Busy,
		Slots: availability.Slots,
	}
	if resp.Busy == nil {
		resp.Busy = []model.BusyInterval{}
	}
	if resp.Slots == nil {
		resp.Slots = []model.FreeSlot{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
//
// 認証エラーの詳細（鍵やプロバイダー応答）はログにのみ記録し、レスポンスには
// 一般的なメッセージだけを含める。プロバイダーが非2xxを返した場合は
// そのステータスコードをそのまま転送する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		slog.Error("provider authentication failed",
			slog.String("reason", authErr.Reason),
			slog.String("error", authErr.Error()),
		)
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewAuthFailedError())
		return
	}

	var provErr *calendar.ProviderError
	if errors.As(err, &provErr) {
		slog.Error("calendar provider rejected request",
			slog.String("endpoint", provErr.Endpoint),
			slog.Int("status_code", provErr.StatusCode),
			slog.String("body", provErr.Body),
		)
		writeAPIErrorResponse(w, provErr.StatusCode, model.NewProviderRejectedError(provErr.StatusCode))
		return
	}

	// ネットワーク到達不能・タイムアウトなどの未分類エラー
	slog.Error("calendar provider unreachable", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusBadGateway, model.NewProviderUnreachableError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeMissingParams, model.ErrCodeInvalidTimestamp,
		model.ErrCodeInvalidTimeRange, model.ErrCodeMissingFields:
		return http.StatusBadRequest
	case model.ErrCodeAuthFailed:
		return http.StatusInternalServerError
	case model.ErrCodeProviderTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
