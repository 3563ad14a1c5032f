package tokenizer

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/archfirm/gatehouse/core"
)

const (
	AudienceSession = "admin:session"
	DefaultIssuer   = "gatehouse"
	DefaultTTL      = 7 * 24 * time.Hour

	nonceSize = 16
)

// HMACTokenizer issues and verifies HS256 session tokens.
// The same instance backs both the login endpoint and the request gate.
type HMACTokenizer struct {
	key     []byte
	issuer  string
	ttl     time.Duration
	now     func() time.Time
	entropy io.Reader
	parser  *jwt.Parser
}

type Option func(*HMACTokenizer)

// WithClock overrides the time source used for issuing and expiry checks
func WithClock(now func() time.Time) Option {
	return func(t *HMACTokenizer) { t.now = now }
}

// WithEntropy overrides the nonce source
func WithEntropy(r io.Reader) Option {
	return func(t *HMACTokenizer) { t.entropy = r }
}

func WithIssuer(issuer string) Option {
	return func(t *HMACTokenizer) { t.issuer = issuer }
}

func WithTTL(ttl time.Duration) Option {
	return func(t *HMACTokenizer) { t.ttl = ttl }
}

// NewHMACTokenizer creates a tokenizer signing with key
func NewHMACTokenizer(key []byte, opts ...Option) (*HMACTokenizer, error) {
	if len(key) == 0 {
		return nil, errors.New("signing key must not be empty")
	}

	t := &HMACTokenizer{
		key:     key,
		issuer:  DefaultIssuer,
		ttl:     DefaultTTL,
		now:     time.Now,
		entropy: rand.Reader,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", t.ttl)
	}

	t.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(AudienceSession),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
	)

	return t, nil
}

// Issue creates a new session for identity and signs it
func (t *HMACTokenizer) Issue(identity string) (string, *core.Session, error) {
	if strings.TrimSpace(identity) == "" {
		return "", nil, core.ErrInvalidIdentity
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(t.entropy, nonce); err != nil {
		return "", nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// NumericDate has second precision, keep the session in step with the token
	issuedAt := t.now().Truncate(jwt.TimePrecision)
	session := &core.Session{
		ID:        uuid.NewString(),
		Identity:  identity,
		Nonce:     hex.EncodeToString(nonce),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(t.ttl),
	}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   session.Identity,
			Audience:  jwt.ClaimStrings{AudienceSession},
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ID:        session.ID,
		},
		Nonce: session.Nonce,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, session, nil
}

// Verify parses tokenStr and returns its session. Every failure wraps
// core.ErrInvalidToken; expired tokens additionally wrap core.ErrTokenExpired.
func (t *HMACTokenizer) Verify(tokenStr string) (*core.Session, error) {
	if tokenStr == "" {
		return nil, core.ErrInvalidToken
	}

	claims := &SessionClaims{}
	token, err := t.parser.ParseWithClaims(tokenStr, claims, t.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", core.ErrInvalidToken, core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	if claims.Subject == "" || claims.Nonce == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing session claims", core.ErrInvalidToken)
	}

	return &core.Session{
		ID:        claims.ID,
		Identity:  claims.Subject,
		Nonce:     claims.Nonce,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (t *HMACTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return t.key, nil
}
