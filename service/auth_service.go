package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/archfirm/gatehouse/core"
	"github.com/archfirm/gatehouse/internal/redact"
	"github.com/archfirm/gatehouse/ports"
)

// UnknownClient identifies requests whose origin could not be determined.
// They all share one limiter bucket.
const UnknownClient = "unknown"

const (
	msgCredentialsRequired = "Email and password are required"
	msgInvalidEmail        = "Invalid email format"
)

// AdminCredentials describe the single administrator account.
// PasswordHash is a bcrypt hash and wins over Password when set.
type AdminCredentials struct {
	Email        string
	Password     string
	PasswordHash string
}

// LoginInput is a login request as received from the transport
type LoginInput struct {
	Email    string
	Password string
	Client   string
}

// LoginResult is a successfully issued session
type LoginResult struct {
	Token   string
	Session *core.Session
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	attempts  ports.AttemptStore
	audit     ports.AuditPublisher
	metrics   ports.LoginMetrics

	adminEmail     string
	passwordHash   []byte
	passwordDigest [sha256.Size]byte

	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*AuthService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *AuthService) { s.logger = logger }
}

func WithMetrics(metrics ports.LoginMetrics) Option {
	return func(s *AuthService) { s.metrics = metrics }
}

func WithAuditPublisher(audit ports.AuditPublisher) Option {
	return func(s *AuthService) { s.audit = audit }
}

// WithClock sets the time stamped on audit events
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	attempts ports.AttemptStore,
	admin AdminCredentials,
	opts ...Option,
) (*AuthService, error) {
	email := normalizeEmail(admin.Email)
	if email == "" {
		return nil, errors.New("admin email must not be empty")
	}
	if admin.Password == "" && admin.PasswordHash == "" {
		return nil, errors.New("admin password or password hash must be set")
	}
	if admin.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(admin.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
	}

	s := &AuthService{
		tokenizer:      tokenizer,
		attempts:       attempts,
		adminEmail:     email,
		passwordHash:   []byte(admin.PasswordHash),
		passwordDigest: sha256.Sum256([]byte(admin.Password)),
		validate:       validator.New(),
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Login runs one attempt through the limiter, validation and the credential check,
// and issues a session when all of them pass
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	client := in.Client
	if client == "" {
		client = UnknownClient
	}

	// counted before anything else, malformed requests included
	attempt, err := s.attempts.Hit(ctx, client)
	if err != nil {
		s.observe(core.OutcomeError)
		return nil, fmt.Errorf("failed to record login attempt: %w", err)
	}
	if !attempt.Allowed {
		s.observe(core.OutcomeRateLimited)
		s.logger.WarnContext(ctx, "login rate limited",
			slog.String("client", client),
			slog.Int("attempts", attempt.Attempts),
			slog.Duration("retry_after", attempt.RetryAfter),
		)
		s.publish(ctx, core.EventLoginRateLimited, client, "", "too many attempts")
		return nil, &core.RateLimitError{RetryAfter: attempt.RetryAfter}
	}

	email, err := s.validateInput(in)
	if err != nil {
		s.observe(core.OutcomeInvalidInput)
		s.logger.InfoContext(ctx, "login rejected",
			slog.String("client", client),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	if !s.checkCredentials(email, in.Password) {
		s.observe(core.OutcomeInvalidCredentials)
		s.logger.WarnContext(ctx, "login failed",
			slog.String("client", client),
			slog.String("email", displayEmail(email)),
			slog.Int("remaining", attempt.Remaining),
		)
		s.publish(ctx, core.EventLoginFailed, client, email, "invalid credentials")
		return nil, core.ErrInvalidCredentials
	}

	if err := s.attempts.Reset(ctx, client); err != nil {
		s.logger.ErrorContext(ctx, "failed to reset login attempts",
			slog.String("client", client),
			slog.Any("err", err),
		)
	}

	token, session, err := s.tokenizer.Issue(s.adminEmail)
	if err != nil {
		s.observe(core.OutcomeError)
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.observe(core.OutcomeSucceeded)
	s.logger.InfoContext(ctx, "login succeeded",
		slog.String("client", client),
		slog.String("email", displayEmail(email)),
		slog.String("session_id", session.ID),
	)
	s.publish(ctx, core.EventLoginSucceeded, client, email, "")

	return &LoginResult{Token: token, Session: session}, nil
}

// Authenticate verifies a session token
func (s *AuthService) Authenticate(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.Verify(token)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout records the end of a session. Sessions are stateless, so this never fails;
// an invalid token simply produces no audit event.
func (s *AuthService) Logout(ctx context.Context, client, token string) {
	session, err := s.tokenizer.Verify(token)
	if err != nil {
		return
	}

	s.logger.InfoContext(ctx, "logout",
		slog.String("client", client),
		slog.String("email", displayEmail(session.Identity)),
		slog.String("session_id", session.ID),
	)
	s.publish(ctx, core.EventLogout, client, session.Identity, "")
}

func (s *AuthService) validateInput(in LoginInput) (string, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return "", &core.ValidationError{Message: msgCredentialsRequired}
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return "", &core.ValidationError{Message: msgInvalidEmail}
	}
	return email, nil
}

// checkCredentials always evaluates both comparisons. email is already normalized.
func (s *AuthService) checkCredentials(email, password string) bool {
	emailDigest := sha256.Sum256([]byte(email))
	adminDigest := sha256.Sum256([]byte(s.adminEmail))
	emailOK := subtle.ConstantTimeCompare(emailDigest[:], adminDigest[:]) == 1

	passwordOK := s.checkPassword(password)

	return emailOK && passwordOK
}

func (s *AuthService) checkPassword(password string) bool {
	if len(s.passwordHash) > 0 {
		return bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	}
	digest := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(digest[:], s.passwordDigest[:]) == 1
}

func (s *AuthService) observe(outcome core.LoginOutcome) {
	if s.metrics != nil {
		s.metrics.Observe(outcome)
	}
}

func (s *AuthService) publish(ctx context.Context, kind core.AuditEventType, client, email, reason string) {
	if s.audit == nil {
		return
	}

	event := core.AuditEvent{
		ID:     uuid.NewString(),
		Type:   kind,
		Client: client,
		Reason: reason,
		At:     s.now().UTC(),
	}
	if email != "" {
		event.Identity = displayEmail(email)
	}

	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			slog.String("type", string(kind)),
			slog.Any("err", err),
		)
	}
}

// normalizeEmail trims and lower-cases the address. It is compared and issued raw.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// displayEmail is the form that reaches logs and audit events
func displayEmail(email string) string {
	return html.EscapeString(redact.Email(email))
}
