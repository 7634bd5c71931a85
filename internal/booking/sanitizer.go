package booking

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// InputSanitizer は利用者入力のサニタイズ機能のインターフェースを定義する。
// 予約の件名や参加者表示名はそのままカレンダーイベントに埋め込まれるため、
// HTMLタグをすべて除去した上で使用する。
type InputSanitizer interface {
	// Sanitize は入力からHTMLタグをすべて除去したプレーンテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// inputSanitizer はInputSanitizerの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに処理を行う。
type inputSanitizer struct {
	policy *bluemonday.Policy
}

// NewInputSanitizer はInputSanitizerの新しいインスタンスを生成する。
func NewInputSanitizer() *inputSanitizer {
	return &inputSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からHTMLタグを除去し、前後の空白をトリムして返す。
func (s *inputSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// compile-time interface check
var _ InputSanitizer = (*inputSanitizer)(nil)
