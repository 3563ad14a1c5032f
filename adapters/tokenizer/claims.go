package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with the per-token nonce
type SessionClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}
