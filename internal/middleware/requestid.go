package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// contextKey はコンテキストキーの衝突を避けるための非公開型。
type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader はリクエストIDを返すレスポンスヘッダー名。
const RequestIDHeader = "X-Request-ID"

// NewRequestIDMiddleware はリクエストごとに一意のIDを割り当てるミドルウェアを返す。
// IDはレスポンスヘッダーとリクエストコンテキストの両方に設定する。
func NewRequestIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.New().String()

			w.Header().Set(RequestIDHeader, id)
			ctx := ContextWithRequestID(r.Context(), id)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithRequestID はコンテキストにリクエストIDを設定する。
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext はコンテキストからリクエストIDを取得する。
func RequestIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(requestIDKey).(string)
	if !ok || id == "" {
		return "", fmt.Errorf("request ID not found in context")
	}
	return id, nil
}
