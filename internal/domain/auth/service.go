// Package auth registers tenants and exchanges credentials for tenant JWTs.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainaudit "github.com/safeboy/safeboy/internal/domain/audit"
	"github.com/safeboy/safeboy/internal/infra/sqlite"
	pkgauth "github.com/safeboy/safeboy/pkg/auth"
)

// ErrInvalidCredentials covers both unknown email and wrong password, so callers cannot
// probe which emails exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

var ErrEmailAlreadyExists = errors.New("email already registered")

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned by Register and Login.
//
//nolint:revive // auth.AuthResult is the established name at call sites
type AuthResult struct {
	Token    string
	TenantID string
}

//nolint:revive // see AuthResult
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
}

type auditLogger interface {
	LogWithDetails(
		ctx context.Context,
		tenantID string,
		action string,
		entityType *string,
		entityID *string,
		details *domainaudit.EventDetails,
		outcome domainaudit.Outcome,
	) error
}

type authService struct {
	db          *sql.DB
	auditLogger auditLogger
}

func NewAuthService(db *sql.DB) AuthService {
	return &authService{db: db}
}

func NewAuthServiceWithAudit(db *sql.DB, logger auditLogger) AuthService {
	return &authService{db: db, auditLogger: logger}
}

// Register creates a tenant and returns its first token. Emails are compared case-insensitively.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	hash, err := pkgauth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	tenantID := uuid.Must(uuid.NewV7()).String()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tenant (id, email, password_hash, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, tenantID, email, hash, strings.TrimSpace(input.DisplayName), sqlite.FormatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	token, err := pkgauth.GenerateJWT(tenantID)
	if err != nil {
		s.logAuth(ctx, tenantID, "register", "jwt_generation_failed")
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	s.logAuth(ctx, tenantID, "register", "")
	return &AuthResult{Token: token, TenantID: tenantID}, nil
}

// Login verifies the password with bcrypt and issues a fresh token.
func (s *authService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	var tenantID, passwordHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash FROM tenant WHERE email = ? LIMIT 1
	`, normalizeEmail(input.Email)).Scan(&tenantID, &passwordHash)
	if err != nil {
		s.logAuth(ctx, "unknown", "login", "tenant_not_found_or_query_error")
		return nil, ErrInvalidCredentials
	}

	if !pkgauth.VerifyPassword(passwordHash, input.Password) {
		s.logAuth(ctx, tenantID, "login", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	token, err := pkgauth.GenerateJWT(tenantID)
	if err != nil {
		s.logAuth(ctx, tenantID, "login", "jwt_generation_failed")
		return nil, fmt.Errorf("failed to generate JWT: %w", err)
	}

	s.logAuth(ctx, tenantID, "login", "")
	return &AuthResult{Token: token, TenantID: tenantID}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isUniqueViolation matches the modernc sqlite error text for UNIQUE failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// logAuth records an auth attempt; a non-empty reason marks it as a failure.
func (s *authService) logAuth(ctx context.Context, tenantID, action, reason string) {
	if s.auditLogger == nil {
		return
	}
	outcome := domainaudit.OutcomeSuccess
	var details *domainaudit.EventDetails
	if reason != "" {
		outcome = domainaudit.OutcomeDenied
		details = &domainaudit.EventDetails{Metadata: map[string]any{"reason": reason}}
	}
	entity := "tenant"
	_ = s.auditLogger.LogWithDetails(ctx, tenantID, action, &entity, &tenantID, details, outcome)
}
