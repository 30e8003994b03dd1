package users

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/inkwell-blog/inkwell/internal/rbac"
)

// SessionRevoker invalidates every live session of a user.
type SessionRevoker interface {
	RevokeAllSessions(ctx context.Context, userID int64) error
}

// Service handles user management business logic.
type Service struct {
	logger   *slog.Logger
	repo     RepositoryPort
	sessions SessionRevoker
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, sessions SessionRevoker) *Service {
	return &Service{logger: logger, repo: repo, sessions: sessions}
}

func (s *Service) List(ctx context.Context, search string, page, limit int) ([]User, int, error) {
	return s.repo.List(ctx, search, page, limit)
}

func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// SetActive enables or disables an account. Disabling revokes every live
// session so the change takes effect immediately, and the last active
// admin can never be disabled.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !active && slices.Contains(user.Roles, rbac.RoleAdmin) {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		if err := s.sessions.RevokeAllSessions(ctx, id); err != nil {
			return fmt.Errorf("users: revoke sessions: %w", err)
		}
		s.logger.Info("user deactivated", slog.Int64("user_id", id))
	}
	return nil
}

// SetRoles replaces a user's roles. Shrinking a role set revokes live
// sessions so stale tokens cannot keep the old grants.
func (s *Service) SetRoles(ctx context.Context, id int64, roles []string) error {
	for _, role := range roles {
		if !rbac.KnownRole(role) {
			return ErrUnknownRole
		}
	}
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if slices.Contains(user.Roles, rbac.RoleAdmin) && !slices.Contains(roles, rbac.RoleAdmin) {
		if err := s.ensureNotLastAdmin(ctx); err != nil {
			return err
		}
	}
	if err := s.repo.SetRoles(ctx, id, roles); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllSessions(ctx, id); err != nil {
		return fmt.Errorf("users: revoke sessions: %w", err)
	}
	s.logger.Info("user roles updated", slog.Int64("user_id", id), slog.Any("roles", roles))
	return nil
}

func (s *Service) ensureNotLastAdmin(ctx context.Context) error {
	n, err := s.repo.CountWithRole(ctx, rbac.RoleAdmin)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}
