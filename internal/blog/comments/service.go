package comments

import (
	"context"

	blogshared "github.com/inkwell-blog/inkwell/internal/blog/shared"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListByPost returns approved comments only, unless the actor can moderate.
func (s *Service) ListByPost(ctx context.Context, actor *shared.Principal, postID int64, page, limit int) ([]Comment, int, error) {
	filters := ListFilters{
		PostID:       postID,
		ApprovedOnly: !canModerate(actor),
		Page:         page,
		Limit:        limit,
	}
	return s.repo.ListByPost(ctx, filters)
}

// Create stores a new comment. Comments from moderators and admins are
// approved immediately; everyone else waits for moderation.
func (s *Service) Create(ctx context.Context, actor *shared.Principal, postID int64, content string) (Comment, error) {
	return s.repo.Create(ctx, Comment{
		PostID:     postID,
		AuthorID:   actor.UserID,
		AuthorName: actor.Username,
		Content:    content,
		Approved:   canModerate(actor),
	})
}

func (s *Service) Approve(ctx context.Context, id int64) error {
	return s.repo.SetApproved(ctx, id, true)
}

func (s *Service) Reject(ctx context.Context, id int64) error {
	return s.repo.SetApproved(ctx, id, false)
}

// Delete removes a comment. Only the comment's author, a moderator or an
// admin may delete it.
func (s *Service) Delete(ctx context.Context, actor *shared.Principal, id int64) error {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if comment.AuthorID != actor.UserID && !canModerate(actor) {
		return blogshared.ErrNotOwner
	}
	return s.repo.Delete(ctx, id)
}

func canModerate(actor *shared.Principal) bool {
	if actor == nil {
		return false
	}
	return actor.HasRole(rbac.RoleModerator) || actor.HasRole(rbac.RoleAdmin)
}
