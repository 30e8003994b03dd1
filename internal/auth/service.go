package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

// ResetMailer dispatches a password-reset token to the account email.
// Delivery mechanics live behind the job queue; the core only hands off.
type ResetMailer interface {
	EnqueueResetEmail(ctx context.Context, email, token string) error
}

// Service composes credential checks, token issuance and the shared-store
// session state into the authentication flows.
type Service struct {
	repo     Repository
	hasher   *Hasher
	codec    *TokenCodec
	registry *SessionRegistry
	resets   *ResetTokens
	mailer   ResetMailer
	auditor  *shared.AuditLogger
	logger   *slog.Logger

	now func() time.Time
}

// ServiceParams groups Service dependencies. Mailer and Auditor may be
// nil; the related side effects are then skipped.
type ServiceParams struct {
	Repo     Repository
	Hasher   *Hasher
	Codec    *TokenCodec
	Registry *SessionRegistry
	Resets   *ResetTokens
	Mailer   ResetMailer
	Auditor  *shared.AuditLogger
	Logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(p ServiceParams) *Service {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     p.Repo,
		hasher:   p.Hasher,
		codec:    p.Codec,
		registry: p.Registry,
		resets:   p.Resets,
		mailer:   p.Mailer,
		auditor:  p.Auditor,
		logger:   logger,
		now:      time.Now,
	}
}

// DefaultRole is attached to newly registered accounts.
const DefaultRole = "reader"

// Register creates a new account with the default role.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	user := &User{Username: username, Email: email, PasswordHash: hash}
	return s.repo.Create(ctx, user, DefaultRole)
}

// Login validates credentials and issues a session token. Credential
// verification runs before any token work and holds no locks; bcrypt is
// deliberately slow.
func (s *Service) Login(ctx context.Context, identifier, password, ip string) (string, *User, error) {
	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recordAttempt(ctx, user.ID, false, ip)
		return "", nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordAttempt(ctx, user.ID, false, ip)
		return "", nil, shared.ErrInactiveAccount
	}

	token, claims, err := s.codec.Issue(user, s.now())
	if err != nil {
		return "", nil, fmt.Errorf("auth: issue token: %w", err)
	}
	s.recordAttempt(ctx, user.ID, true, ip)
	s.audit(ctx, user.ID, shared.AuditActionLogin, map[string]any{"token_id": claims.ID, "ip": ip})
	return token, user, nil
}

// ValidateToken checks signature, expiry, the revocation set and the
// per-user valid-since cutoff, in that order. Expiry wins over
// revocation state: an expired token reports ErrTokenExpired even if its
// id was also revoked.
func (s *Service) ValidateToken(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.codec.Parse(raw)
	if err != nil {
		return nil, err
	}
	revoked, err := s.registry.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrStoreUnavailable, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	validSince, err := s.registry.ValidSince(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrStoreUnavailable, err)
	}
	if !validSince.IsZero() && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(validSince) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the token id for its remaining lifetime. Revoking an
// already-revoked or expired token is a no-op, keeping logout idempotent.
func (s *Service) Logout(ctx context.Context, tokenID string, userID int64, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := expiresAt.Sub(s.now())
	if err := s.registry.Revoke(ctx, tokenID, ttl); err != nil {
		return err
	}
	s.audit(ctx, userID, shared.AuditActionLogout, map[string]any{"token_id": tokenID})
	return nil
}

// LogoutToken revokes whatever token the caller presents. Only signature
// and expiry are parsed; the revocation registry is deliberately not
// consulted, so revoking an already-revoked token succeeds. Malformed
// and expired tokens are a no-op for the same reason: the desired end
// state, an unusable token, already holds.
func (s *Service) LogoutToken(ctx context.Context, raw string) error {
	claims, err := s.codec.Parse(raw)
	if err != nil {
		return nil
	}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return s.Logout(ctx, claims.ID, claims.UserID, expires)
}

// RequestReset issues a reset token for the account and hands it to the
// mailer. Unknown emails are a silent no-op so the endpoint response does
// not leak account existence.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}
	token, err := s.resets.Request(ctx, user.ID)
	if err != nil {
		return err
	}
	if s.mailer != nil {
		if err := s.mailer.EnqueueResetEmail(ctx, user.Email, token); err != nil {
			s.logger.Warn("enqueue reset email", slog.Any("error", err))
		}
	}
	return nil
}

// ConsumeReset spends the token, replaces the password and force-revokes
// every pre-existing session for the user.
func (s *Service) ConsumeReset(ctx context.Context, token, newPassword string) error {
	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if err := s.registry.RevokeAll(ctx, userID, s.codec.TTL()); err != nil {
		return err
	}
	s.audit(ctx, userID, shared.AuditActionPasswordReset, nil)
	return nil
}

// RevokeAllSessions invalidates every outstanding token for the user.
// Used by admin deactivation in addition to the reset flow.
func (s *Service) RevokeAllSessions(ctx context.Context, userID int64) error {
	return s.registry.RevokeAll(ctx, userID, s.codec.TTL())
}

func (s *Service) recordAttempt(ctx context.Context, userID int64, success bool, ip string) {
	if err := s.repo.RecordLoginAttempt(ctx, userID, success, ip); err != nil {
		s.logger.Warn("record login attempt", slog.Any("error", err))
	}
}

func (s *Service) audit(ctx context.Context, actorID int64, action string, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	entry := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(actorID, 10),
		Meta:     meta,
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
