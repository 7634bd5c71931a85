package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bookman/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 空き状況
	AvailabilityService AvailabilityServiceInterface
	SlotsRecorder       SlotsRecorder

	// 予約
	BookingService BookingServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → RequestID → SecurityHeaders → Logging → Recovery → RateLimit(General)
//
// ヘルスチェック（/health）はレート制限の外に配置する。
// 予約作成（POST /api/calendar/schedule）には予約専用のレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewRecoveryMiddleware())

	availabilityHandler := NewAvailabilityHandler(deps.AvailabilityService, deps.SlotsRecorder)
	bookingHandler := NewBookingHandler(deps.BookingService)

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/calendar", func(r chi.Router) {
			r.Get("/availability", availabilityHandler.GetAvailability)

			// POST /api/calendar/schedule - 予約作成（予約専用レート制限を追加）
			r.With(deps.RateLimiter.BookingMiddleware()).Post("/schedule", bookingHandler.Schedule)
		})
	})

	return r
}
