package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/bookman/internal/calendar"
	"github.com/hitoshi/bookman/internal/model"
)

// mockBookingService はBookingServiceInterfaceのモック実装。
type mockBookingService struct {
	createBookingFn func(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error)
}

func (m *mockBookingService) CreateBooking(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error) {
	if m.createBookingFn != nil {
		return m.createBookingFn(ctx, req)
	}
	return nil, nil
}

// --- POST /api/calendar/schedule テスト ---

func TestBookingHandler_Schedule_Success(t *testing.T) {
	start := time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)

	svc := &mockBookingService{
		createBookingFn: func(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error) {
			if req.StartTime != "2026-06-02T10:00:00Z" {
				t.Errorf("StartTime = %q, want %q", req.StartTime, "2026-06-02T10:00:00Z")
			}
			if req.Summary != "初回相談" {
				t.Errorf("Summary = %q, want %q", req.Summary, "初回相談")
			}
			return &model.BookingResult{
				EventID: "evt-123",
				Summary: req.Summary,
				Start:   start,
				End:     start.Add(30 * time.Minute),
			}, nil
		},
	}

	body := `{"start_time":"2026-06-02T10:00:00Z","summary":"初回相談","attendees":[{"email":"taro@example.com","displayName":"田中太郎"}]}`
	h := NewBookingHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/calendar/schedule", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.Schedule(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Event  struct {
			EventID string `json:"event_id"`
			Summary string `json:"summary"`
			Start   string `json:"start"`
			End     string `json:"end"`
		} `json:"event"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "scheduled" {
		t.Errorf("status = %q, want %q", resp.Status, "scheduled")
	}
	if resp.Event.EventID != "evt-123" {
		t.Errorf("event_id = %q, want %q", resp.Event.EventID, "evt-123")
	}
	if resp.Event.End != "2026-06-02T10:30:00Z" {
		t.Errorf("end = %q, want %q", resp.Event.End, "2026-06-02T10:30:00Z")
	}
}

func TestBookingHandler_Schedule_InvalidJSON(t *testing.T) {
	called := false
	svc := &mockBookingService{
		createBookingFn: func(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error) {
			called = true
			return nil, nil
		},
	}

	h := NewBookingHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/calendar/schedule", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	h.Schedule(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if called {
		t.Error("service should not be called for malformed JSON")
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != "INVALID_REQUEST" {
		t.Errorf("code = %q, want INVALID_REQUEST", resp["code"])
	}
}

func TestBookingHandler_Schedule_MissingFields(t *testing.T) {
	svc := &mockBookingService{
		createBookingFn: func(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error) {
			return nil, model.NewMissingFieldsError([]string{"start_time", "summary"})
		},
	}

	h := NewBookingHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/calendar/schedule", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	h.Schedule(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeMissingFields {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeMissingFields)
	}
}

func TestBookingHandler_Schedule_ProviderRejection(t *testing.T) {
	svc := &mockBookingService{
		createBookingFn: func(ctx context.Context, req model.BookingRequest) (*model.BookingResult, error) {
			return nil, &calendar.ProviderError{Endpoint: "insert", StatusCode: http.StatusConflict, Body: "conflict"}
		},
	}

	h := NewBookingHandler(svc)
	body := `{"start_time":"2026-06-02T10:00:00Z","summary":"相談"}`
	req := httptest.NewRequest(http.MethodPost, "/api/calendar/schedule", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.Schedule(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409 (forwarded from provider)", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeProviderRejected {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeProviderRejected)
	}
}
