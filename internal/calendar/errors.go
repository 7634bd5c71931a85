package calendar

import "fmt"

// ProviderError はカレンダープロバイダーが返した非2xx応答を表す。
// 元のステータスコードとレスポンスボディを保持し、可能な限り呼び出し元へ転送する。
type ProviderError struct {
	Endpoint   string // "freebusy" または "insert"
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *ProviderError) Error() string {
	return fmt.Sprintf("calendar %s failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
