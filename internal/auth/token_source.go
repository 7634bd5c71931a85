package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"

	// カレンダーの読み書きスコープ
	calendarScope = "https://www.googleapis.com/auth/calendar"

	// JWT-bearerグラントタイプ（RFC 7523）
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// アサーションの有効期間。発行時刻 + 3600秒で固定。
	assertionTTL = time.Hour
)

// AuthError はトークン取得の失敗を表す。
// 鍵の不正、プロバイダーによるアサーション拒否、レスポンス形式の不備を含む。
type AuthError struct {
	Reason string
	Err    error
}

// Error はerrorインターフェースを実装する。
func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %s", e.Reason)
}

// Unwrap はラップされたエラーを返す。
func (e *AuthError) Unwrap() error {
	return e.Err
}

// TokenSourceConfig はTokenSourceの設定。
type TokenSourceConfig struct {
	// ClientEmail はアサーションのissuer。
	ClientEmail string
	// Subject は委任先のカレンダーID。
	Subject string

	// テスト用にオーバーライド可能なURL
	TokenURL string

	// HTTPClient は未指定の場合http.DefaultClientを使用する。
	HTTPClient *http.Client

	// Now はテスト用に差し替え可能な現在時刻関数。
	Now func() time.Time
}

// TokenSource は認可アサーションを構築・署名し、アクセストークンに交換する。
// トークンはキャッシュせず、呼び出しごとに取得する。
type TokenSource struct {
	signer AssertionSigner
	config TokenSourceConfig
}

// NewTokenSource はTokenSourceを生成する。
func NewTokenSource(signer AssertionSigner, config TokenSourceConfig) *TokenSource {
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &TokenSource{signer: signer, config: config}
}

// assertionClaims は認可アサーションのクレーム。
type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// tokenResponse はトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Token は署名済みアサーションをアクセストークンに交換して返す。
// 失敗時は*AuthErrorを返す。リトライは行わない。
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	assertion, err := ts.buildAssertion()
	if err != nil {
		return "", &AuthError{Reason: "failed to build assertion", Err: err}
	}

	return ts.exchange(ctx, assertion)
}

// buildAssertion は認可アサーションを構築して署名する。
// 有効期限は発行時刻 + assertionTTL で固定する。
func (ts *TokenSource) buildAssertion() (string, error) {
	now := ts.config.Now()

	claims := assertionClaims{
		Scope: calendarScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.config.ClientEmail,
			Subject:   ts.config.Subject,
			Audience:  jwt.ClaimStrings{ts.config.TokenURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
		},
	}

	return ts.signer.Sign(claims)
}

// exchange は署名済みアサーションをトークンエンドポイントでアクセストークンに交換する。
func (ts *TokenSource) exchange(ctx context.Context, assertion string) (string, error) {
	data := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", &AuthError{Reason: "failed to create token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.config.HTTPClient.Do(req)
	if err != nil {
		return "", &AuthError{Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{Reason: "failed to read token response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &AuthError{Reason: fmt.Sprintf("token exchange failed with status %d: %s", resp.StatusCode, string(body))}
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", &AuthError{Reason: "failed to parse token response", Err: err}
	}

	if tokenResp.AccessToken == "" {
		return "", &AuthError{Reason: "empty access token in response"}
	}

	return tokenResp.AccessToken, nil
}
