package posts

import (
	"context"
	"errors"
	"strings"

	blogshared "github.com/inkwell-blog/inkwell/internal/blog/shared"
	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Service wraps post business rules: slug derivation and ownership.
type Service struct {
	repo  Repository
	likes *LikeStore
}

// NewService constructs a Service.
func NewService(repo Repository, likes *LikeStore) *Service {
	return &Service{repo: repo, likes: likes}
}

func (s *Service) List(ctx context.Context, filters blogshared.ListFilters) ([]Post, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	if id <= 0 {
		return Post{}, blogshared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Post, error) {
	if slug == "" {
		return Post{}, blogshared.ErrNotFound
	}
	return s.repo.GetBySlug(ctx, slug)
}

// Create stores a new post authored by the principal. The slug is
// derived from the title unless one is supplied.
func (s *Service) Create(ctx context.Context, actor *shared.Principal, post Post) (Post, error) {
	post.AuthorID = actor.UserID
	post.Title = strings.TrimSpace(post.Title)
	if post.Title == "" {
		return Post{}, errors.New("posts: title required")
	}
	if post.Slug == "" {
		post.Slug = blogshared.Slugify(post.Title)
	}
	return s.repo.Create(ctx, post)
}

// Update rewrites a post. Authors may only touch their own posts;
// moderators and admins may touch any.
func (s *Service) Update(ctx context.Context, actor *shared.Principal, post Post) error {
	existing, err := s.repo.Get(ctx, post.ID)
	if err != nil {
		return err
	}
	if !canOverride(actor, existing.AuthorID) {
		return blogshared.ErrNotOwner
	}
	post.AuthorID = existing.AuthorID
	if post.Slug == "" {
		post.Slug = blogshared.Slugify(post.Title)
	}
	return s.repo.Update(ctx, post, actor.UserID)
}

// Delete removes a post under the same ownership rule as Update. The
// like set goes with the post; a failure there is logged upstream but
// does not undo the delete.
func (s *Service) Delete(ctx context.Context, actor *shared.Principal, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canOverride(actor, existing.AuthorID) {
		return blogshared.ErrNotOwner
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.likes != nil {
		return s.likes.Clear(ctx, id)
	}
	return nil
}

// ToggleLike flips the actor's like on the post and returns the new
// state and count. Any authenticated principal may like a post.
func (s *Service) ToggleLike(ctx context.Context, actor *shared.Principal, postID int64) (bool, int64, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return false, 0, err
	}
	return s.likes.Toggle(ctx, postID, actor.UserID)
}

// LikeCount returns the post's like count.
func (s *Service) LikeCount(ctx context.Context, postID int64) (int64, error) {
	if _, err := s.Get(ctx, postID); err != nil {
		return 0, err
	}
	return s.likes.Count(ctx, postID)
}

// ListRevisions returns the post's revision history, newest first.
// Revisions carry unpublished drafts, so the ownership rule for
// editing applies to reading them too.
func (s *Service) ListRevisions(ctx context.Context, actor *shared.Principal, postID int64) ([]Revision, error) {
	existing, err := s.repo.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !canOverride(actor, existing.AuthorID) {
		return nil, blogshared.ErrNotOwner
	}
	return s.repo.ListRevisions(ctx, postID)
}

func canOverride(actor *shared.Principal, ownerID int64) bool {
	if actor == nil {
		return false
	}
	if actor.UserID == ownerID {
		return true
	}
	return actor.HasRole(rbac.RoleModerator) || actor.HasRole(rbac.RoleAdmin)
}
