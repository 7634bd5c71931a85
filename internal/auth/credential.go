// Package auth はカレンダープロバイダーへのサービスアカウント認証を提供する。
//
// サービスアカウントの秘密鍵でRS256署名した認可アサーション（JWT）を
// プロバイダーのトークンエンドポイントに送り、短命のアクセストークンに交換する。
// トークンは操作ごとに取り直し、キャッシュしない。
package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Credential はサービスアカウント認証情報を表す。
// プロセス起動時に1回読み込み、イミュータブルとして扱う。
type Credential struct {
	ClientEmail string
	PrivateKey  *rsa.PrivateKey
}

// serviceAccountKey はサービスアカウントJSONのうち必要なフィールド。
type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseServiceAccountKey はサービスアカウントJSONからCredentialを生成する。
// rawは生のJSONまたはBase64エンコードされたJSONを受け付ける。
// private_key内のリテラル\nは改行に正規化する。
func ParseServiceAccountKey(raw string) (*Credential, error) {
	if raw == "" {
		return nil, fmt.Errorf("service account key is empty")
	}

	// Base64エンコードされている場合はデコードする
	jsonBytes := []byte(raw)
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 service account key: %w", err)
		}
		jsonBytes = decoded
	}

	var sa serviceAccountKey
	if err := json.Unmarshal(jsonBytes, &sa); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}

	if sa.ClientEmail == "" {
		return nil, fmt.Errorf("client_email is missing in service account key")
	}
	if sa.PrivateKey == "" {
		return nil, fmt.Errorf("private_key is missing in service account key")
	}

	pem := strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Credential{
		ClientEmail: sa.ClientEmail,
		PrivateKey:  key,
	}, nil
}
