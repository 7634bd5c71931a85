// Package calendar はカレンダープロバイダーAPIのHTTPクライアントを提供する。
//
// free/busyクエリとイベント作成の2操作のみを扱う。いずれも呼び出しごとに
// アクセストークンを取得し直す、ステートレスな単発リクエストである。
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hitoshi/bookman/internal/model"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// TokenProvider はプロバイダーAPIのアクセストークンを供給する。
type TokenProvider interface {
	// Token はBearerトークン文字列を返す。
	Token(ctx context.Context) (string, error)
}

// CallRecorder はプロバイダー呼び出しのメトリクスを記録する。
// 未設定（nil）の場合は記録しない。
type CallRecorder interface {
	RecordProviderStatus(endpoint string, statusCode int)
	RecordProviderLatency(endpoint string, duration time.Duration)
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	CalendarID string

	// テスト用にオーバーライド可能なURL
	BaseURL string

	// HTTPClient は未指定の場合http.DefaultClientを使用する。
	HTTPClient *http.Client

	// Recorder は任意のメトリクス記録先。
	Recorder CallRecorder
}

// Client はカレンダープロバイダーAPIのクライアント。
type Client struct {
	tokens TokenProvider
	config ClientConfig
}

// NewClient はClientを生成する。
func NewClient(tokens TokenProvider, config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	return &Client{tokens: tokens, config: config}
}

// EventDateTime はイベントの開始・終了時刻のワイヤ表現。
type EventDateTime struct {
	DateTime string `json:"dateTime"`
}

// Event はプロバイダーのカレンダーイベント表現。
type Event struct {
	ID          string        `json:"id,omitempty"`
	Summary     string        `json:"summary"`
	Description string        `json:"description,omitempty"`
	Start       EventDateTime `json:"start"`
	End         EventDateTime `json:"end"`
}

// freeBusyRequest はfree/busyクエリのリクエストボディ。
type freeBusyRequest struct {
	TimeMin string              `json:"timeMin"`
	TimeMax string              `json:"timeMax"`
	Items   []freeBusyQueryItem `json:"items"`
}

type freeBusyQueryItem struct {
	ID string `json:"id"`
}

// freeBusyResponse はfree/busyクエリのレスポンス。
type freeBusyResponse struct {
	Calendars map[string]struct {
		Busy []model.BusyInterval `json:"busy"`
	} `json:"calendars"`
}

// FreeBusy は指定ウィンドウの使用中区間をプロバイダーに問い合わせる。
// 対象カレンダーが応答に含まれない場合は空のスライスを返す。
func (c *Client) FreeBusy(ctx context.Context, timeMin, timeMax time.Time) ([]model.BusyInterval, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	reqBody := freeBusyRequest{
		TimeMin: timeMin.Format(time.RFC3339),
		TimeMax: timeMax.Format(time.RFC3339),
		Items:   []freeBusyQueryItem{{ID: c.config.CalendarID}},
	}

	body, err := c.post(ctx, "freebusy", c.config.BaseURL+"/freeBusy", token, reqBody)
	if err != nil {
		return nil, err
	}

	var fbResp freeBusyResponse
	if err := json.Unmarshal(body, &fbResp); err != nil {
		return nil, fmt.Errorf("failed to parse freebusy response: %w", err)
	}

	cal, ok := fbResp.Calendars[c.config.CalendarID]
	if !ok {
		return []model.BusyInterval{}, nil
	}
	return cal.Busy, nil
}

// InsertEvent は設定されたカレンダーにイベントを作成する。
// サーバーサイド予約のため、プロバイダーからの参加者通知は送らない（sendUpdates=none）。
// これはシステム内で唯一の不可逆な操作であり、冪等ではない。
func (c *Client) InsertEvent(ctx context.Context, event *Event) (*Event, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	insertURL := fmt.Sprintf("%s/calendars/%s/events?sendUpdates=none",
		c.config.BaseURL, url.PathEscape(c.config.CalendarID))

	body, err := c.post(ctx, "insert", insertURL, token, event)
	if err != nil {
		return nil, err
	}

	var created Event
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to parse insert response: %w", err)
	}

	return &created, nil
}

// post はJSONボディをPOSTし、2xxの場合のみレスポンスボディを返す。
// 非2xxの場合はステータスとボディを保持した*ProviderErrorを返す。
func (c *Client) post(ctx context.Context, endpoint, requestURL, token string, payload interface{}) ([]byte, error) {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.config.HTTPClient.Do(req)
	if c.config.Recorder != nil {
		c.config.Recorder.RecordProviderLatency(endpoint, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if c.config.Recorder != nil {
		c.config.Recorder.RecordProviderStatus(endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return body, nil
}
