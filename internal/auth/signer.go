package auth

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// AssertionSigner は認可アサーションへの署名を行う。
// 暗号バックエンドを差し替え可能にするための抽象化で、
// テストでは生成した鍵やフェイク実装を注入できる。
type AssertionSigner interface {
	// Sign はクレームに署名し、コンパクト形式のJWT文字列を返す。
	Sign(claims jwt.Claims) (string, error)
}

// RS256Signer はRSA秘密鍵によるRS256署名の実装。
type RS256Signer struct {
	key *rsa.PrivateKey
}

// NewRS256Signer はRS256Signerを生成する。
func NewRS256Signer(key *rsa.PrivateKey) *RS256Signer {
	return &RS256Signer{key: key}
}

// Sign はクレームにRS256で署名する。
func (s *RS256Signer) Sign(claims jwt.Claims) (string, error) {
	if s.key == nil {
		return "", fmt.Errorf("signing key is nil")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return signed, nil
}

// compile-time interface check
var _ AssertionSigner = (*RS256Signer)(nil)
