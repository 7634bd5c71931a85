package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, provider, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingParams    = "MISSING_PARAMETERS"
	ErrCodeInvalidTimestamp = "INVALID_TIMESTAMP"
	ErrCodeInvalidTimeRange = "INVALID_TIME_RANGE"
	ErrCodeMissingFields    = "MISSING_FIELDS"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeProviderRejected = "PROVIDER_REJECTED"
	ErrCodeProviderTimeout  = "PROVIDER_UNREACHABLE"
)

// NewMissingParamsError はクエリパラメータ不足エラーを生成する。
func NewMissingParamsError(params ...string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingParams,
		Message:  fmt.Sprintf("必須パラメータが指定されていません: %s", strings.Join(params, ", ")),
		Category: "validation",
		Action:   "start_timeとend_timeをISO 8601形式で指定してください。",
	}
}

// NewInvalidTimestampError はタイムスタンプ解析失敗エラーを生成する。
func NewInvalidTimestampError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimestamp,
		Message:  fmt.Sprintf("タイムスタンプの形式が不正です: %s", value),
		Category: "validation",
		Action:   "RFC 3339形式（例: 2025-06-02T09:00:00Z）で指定してください。",
	}
}

// NewInvalidTimeRangeError は開始と終了が逆転している場合のエラーを生成する。
func NewInvalidTimeRangeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimeRange,
		Message:  "終了時刻は開始時刻より後である必要があります。",
		Category: "validation",
		Action:   "start_timeとend_timeの順序を確認してください。",
	}
}

// NewMissingFieldsError は予約リクエストの必須フィールド不足エラーを生成する。
// 不足しているフィールド名をすべて列挙する。
func NewMissingFieldsError(fields []string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingFields,
		Message:  fmt.Sprintf("必須フィールドが指定されていません: %s", strings.Join(fields, ", ")),
		Category: "validation",
		Action:   "start_timeとsummaryを指定してください。",
	}
}

// NewAuthFailedError はトークン取得失敗エラーを生成する。
// 鍵やプロバイダー側の詳細はログにのみ記録し、ユーザーには一般的なメッセージを返す。
func NewAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  "カレンダープロバイダーの認証に失敗しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。解決しない場合は管理者に連絡してください。",
	}
}

// NewProviderRejectedError はプロバイダーがリクエストを拒否した場合のエラーを生成する。
func NewProviderRejectedError(statusCode int) *APIError {
	return &APIError{
		Code:     ErrCodeProviderRejected,
		Message:  fmt.Sprintf("カレンダープロバイダーがリクエストを拒否しました（ステータス: %d）。", statusCode),
		Category: "provider",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewProviderUnreachableError はプロバイダーに到達できない場合のエラーを生成する。
func NewProviderUnreachableError() *APIError {
	return &APIError{
		Code:     ErrCodeProviderTimeout,
		Message:  "カレンダープロバイダーに接続できませんでした。",
		Category: "provider",
		Action:   "ネットワーク状態を確認し、しばらく待ってから再度お試しください。",
	}
}
