package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/bookman/internal/auth"
	"github.com/hitoshi/bookman/internal/calendar"
	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/slots"
)

// --- モック定義 ---

// mockAvailabilityService はAvailabilityServiceInterfaceのモック実装。
type mockAvailabilityService struct {
	queryAvailabilityFn func(ctx context.Context, start, end time.Time) (*slots.Availability, error)
}

func (m *mockAvailabilityService) QueryAvailability(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
	if m.queryAvailabilityFn != nil {
		return m.queryAvailabilityFn(ctx, start, end)
	}
	return &slots.Availability{}, nil
}

// mockSlotsRecorder はSlotsRecorderのモック実装。
type mockSlotsRecorder struct {
	recorded []int
}

func (m *mockSlotsRecorder) RecordSlotsReturned(count int) {
	m.recorded = append(m.recorded, count)
}

// --- テストヘルパー ---

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// --- GET /api/calendar/availability テスト ---

func TestAvailabilityHandler_GetAvailability_Success(t *testing.T) {
	busyStart := time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)
	slotStart := time.Date(2026, 6, 2, 11, 0, 0, 0, time.UTC)

	svc := &mockAvailabilityService{
		queryAvailabilityFn: func(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
			wantStart := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
			if !start.Equal(wantStart) {
				t.Errorf("start = %v, want %v", start, wantStart)
			}
			return &slots.Availability{
				Busy:  []model.BusyInterval{{Start: busyStart, End: busyStart.Add(30 * time.Minute)}},
				Slots: []model.FreeSlot{{Start: slotStart}},
			}, nil
		},
	}

	h := NewAvailabilityHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet,
		"/api/calendar/availability?start_time=2026-06-02T09:00:00Z&end_time=2026-06-02T18:00:00Z", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Busy  []model.BusyInterval `json:"busy"`
		Slots []model.FreeSlot     `json:"slots"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Busy) != 1 || !resp.Busy[0].Start.Equal(busyStart) {
		t.Errorf("busy = %+v, want 1 interval starting at %v", resp.Busy, busyStart)
	}
	if len(resp.Slots) != 1 || !resp.Slots[0].Start.Equal(slotStart) {
		t.Errorf("slots = %+v, want 1 slot starting at %v", resp.Slots, slotStart)
	}
}

func TestAvailabilityHandler_GetAvailability_EmptyArraysNotNull(t *testing.T) {
	svc := &mockAvailabilityService{
		queryAvailabilityFn: func(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
			return &slots.Availability{}, nil
		},
	}

	h := NewAvailabilityHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet,
		"/api/calendar/availability?start_time=2026-06-02T09:00:00Z&end_time=2026-06-02T18:00:00Z", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	var resp map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(resp["busy"]) != "[]" {
		t.Errorf("busy = %s, want []", resp["busy"])
	}
	if string(resp["slots"]) != "[]" {
		t.Errorf("slots = %s, want []", resp["slots"])
	}
}

func TestAvailabilityHandler_GetAvailability_MissingParams(t *testing.T) {
	called := false
	svc := &mockAvailabilityService{
		queryAvailabilityFn: func(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
			called = true
			return nil, nil
		},
	}

	h := NewAvailabilityHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/calendar/availability", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if called {
		t.Error("service should not be called when params are missing")
	}

	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeMissingParams {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeMissingParams)
	}
}

func TestAvailabilityHandler_GetAvailability_InvalidTimestamp(t *testing.T) {
	h := NewAvailabilityHandler(&mockAvailabilityService{}, nil)
	req := httptest.NewRequest(http.MethodGet,
		"/api/calendar/availability?start_time=not-a-time&end_time=2026-06-02T18:00:00Z", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeInvalidTimestamp {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeInvalidTimestamp)
	}
}

func TestAvailabilityHandler_GetAvailability_InvalidTimeRange(t *testing.T) {
	svc := &mockAvailabilityService{
		queryAvailabilityFn: func(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
			return nil, model.NewInvalidTimeRangeError()
		},
	}

	h := NewAvailabilityHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet,
		"/api/calendar/availability?start_time=2026-06-02T18:00:00Z&end_time=2026-06-02T09:00:00Z", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeInvalidTimeRange {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeInvalidTimeRange)
	}
}

func TestAvailabilityHandler_GetAvailability_AuthFailure(t *testing.T) {
	svc := &mockAvailabilityService{
		queryAvailabilityFn: func(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
			return nil, &auth.AuthError{Reason: "assertion rejected", Err: errors.New("invalid_grant")}
		},
	}

	h := NewAvailabilityHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet,
		"/api/calendar/availability?start_time=2026-06-02T09:00:00Z&end_time=2026-06-02T18:00:00Z", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeAuthFailed {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeAuthFailed)
	}
	// 内部の認証詳細をレスポンスに含めない
	if resp["message"] == "invalid_grant" {
		t.Error("auth failure details leaked into response")
	}
}

func TestAvailabilityHandler_GetAvailability_ForwardsProviderStatus(t *testing.T) {
	svc := &mockAvailabilityService{
		queryAvailabilityFn: func(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
			return nil, &calendar.ProviderError{Endpoint: "freebusy", StatusCode: http.StatusForbidden, Body: "forbidden"}
		},
	}

	h := NewAvailabilityHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet,
		"/api/calendar/availability?start_time=2026-06-02T09:00:00Z&end_time=2026-06-02T18:00:00Z", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 (forwarded from provider)", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeProviderRejected {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeProviderRejected)
	}
}

func TestAvailabilityHandler_GetAvailability_ProviderUnreachable(t *testing.T) {
	svc := &mockAvailabilityService{
		queryAvailabilityFn: func(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
			return nil, errors.New("freebusy request failed: dial tcp: connection refused")
		},
	}

	h := NewAvailabilityHandler(svc, nil)
	req := httptest.NewRequest(http.MethodGet,
		"/api/calendar/availability?start_time=2026-06-02T09:00:00Z&end_time=2026-06-02T18:00:00Z", nil)
	w := httptest.NewRecorder()
	h.GetAvailability(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeProviderTimeout {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeProviderTimeout)
	}
}

func TestAvailabilityHandler_GetAvailability_RecordsSlotCount(t *testing.T) {
	svc := &mockAvailabilityService{
		queryAvailabilityFn: func(ctx context.Context, start, end time.Time) (*slots.Availability, error) {
			return &slots.Availability{
				Slots: []model.FreeSlot{
					{Start: time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)},
					{Start: time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)},
					{Start: time.Date(2026, 6, 2, 11, 0, 0, 0, time.UTC)},
				},
			}, nil
		},
	}

	recorder := &mockSlotsRecorder{}
	h := NewAvailabilityHandler(svc, recorder)
	req := httptest.NewRequest(http.MethodGet,
		"/api/calendar/availability?start_time=2026-06-02T09:00:00Z&end_time=2026-06-02T18:00:00Z", nil)
	h.GetAvailability(httptest.NewRecorder(), req)

	if len(recorder.recorded) != 1 || recorder.recorded[0] != 3 {
		t.Errorf("recorded = %v, want [3]", recorder.recorded)
	}
}
