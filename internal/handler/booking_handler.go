package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/bookman/internal/model"
)

// BookingServiceInterface は予約ハンドラーが必要とするサービスインターフェース。
type BookingServiceInterface interface {
	// CreateBooking は予約を検証し、カレンダーイベントとして作成する。
	CreateBooking(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error)
}

// BookingHandler は予約作成のHTTPハンドラー。
type BookingHandler struct {
	service BookingServiceInterface
}

// NewBookingHandler はBookingHandlerを生成する。
func NewBookingHandler(service BookingServiceInterface) *BookingHandler {
	return &BookingHandler{service: service}
}

// scheduledEvent は作成されたイベントのAPIレスポンス表現。
type scheduledEvent struct {
	EventID string `json:"event_id"`
	Summary string `json:"summary"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// scheduleResponse は予約作成成功時のレスポンス。
type scheduleResponse struct {
	Status string         `json:"status"`
	Event  scheduledEvent `json:"event"`
}

// Schedule は予約作成を処理する。
// POST /api/calendar/schedule
func (h *BookingHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result, err := h.service.CreateBooking(r.Context(), req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(scheduleResponse{
		Status: "scheduled",
		Event: scheduledEvent{
			EventID: result.EventID,
			Summary: result.Summary,
			Start:   result.Start.Format(time.RFC3339),
			End:     result.End.Format(time.RFC3339),
		},
	})
}
