package posts

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/inkwell-blog/inkwell/internal/blog/shared"
	"github.com/inkwell-blog/inkwell/internal/platform/db"
)

// Repository defines persistence operations for posts.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Post, int, error)
	Get(ctx context.Context, id int64) (Post, error)
	GetBySlug(ctx context.Context, slug string) (Post, error)
	Create(ctx context.Context, post Post) (Post, error)
	Update(ctx context.Context, post Post, editorID int64) error
	Delete(ctx context.Context, id int64) error
	ListRevisions(ctx context.Context, postID int64) ([]Revision, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const postSelect = `
SELECT p.id, p.title, p.slug, p.content, p.author_id, p.category_id, p.published, p.created_at, p.updated_at,
       COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS tags
FROM posts p
LEFT JOIN post_tags pt ON pt.post_id = p.id
LEFT JOIN tags t ON t.id = pt.tag_id
`

// List runs the count and the page query concurrently.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Post, int, error) {
	where := ` WHERE p.published`
	args := []any{}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND p.title ILIKE $` + strconv.Itoa(len(args))
	}

	query := postSelect + where + ` GROUP BY p.id ORDER BY p.created_at DESC`
	pageArgs := append([]any{}, args...)
	if filters.Limit > 0 {
		pageArgs = append(pageArgs, filters.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(pageArgs))
		pageArgs = append(pageArgs, filters.Offset())
		query += ` OFFSET $` + strconv.Itoa(len(pageArgs))
	}

	var (
		out   []Post
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			post, err := scanPost(rows)
			if err != nil {
				return err
			}
			out = append(out, post)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get fetches a post by id.
func (r *repository) Get(ctx context.Context, id int64) (Post, error) {
	return r.getOne(ctx, postSelect+` WHERE p.id = $1 GROUP BY p.id`, id)
}

// GetBySlug fetches a post by slug.
func (r *repository) GetBySlug(ctx context.Context, slug string) (Post, error) {
	return r.getOne(ctx, postSelect+` WHERE p.slug = $1 GROUP BY p.id`, slug)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (Post, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, shared.ErrNotFound
		}
		return Post{}, err
	}
	return post, nil
}

// Create inserts the post, attaches its tags and records the initial
// revision in one transaction.
func (r *repository) Create(ctx context.Context, post Post) (Post, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO posts (title, slug, content, author_id, category_id, published, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			 RETURNING id, created_at, updated_at`,
			post.Title, post.Slug, post.Content, post.AuthorID, post.CategoryID, post.Published,
		).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			return err
		}
		if err := attachTags(ctx, tx, post.ID, post.Tags); err != nil {
			return err
		}
		return insertRevision(ctx, tx, post, post.AuthorID)
	})
	if err != nil {
		return Post{}, mapPGError(err)
	}
	return post, nil
}

// Update rewrites the post row, replaces its tag set, and snapshots the
// new content as a revision attributed to the editor.
func (r *repository) Update(ctx context.Context, post Post, editorID int64) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE posts SET title = $1, slug = $2, content = $3, category_id = $4, published = $5, updated_at = NOW()
			 WHERE id = $6`,
			post.Title, post.Slug, post.Content, post.CategoryID, post.Published, post.ID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, post.ID); err != nil {
			return err
		}
		if err := attachTags(ctx, tx, post.ID, post.Tags); err != nil {
			return err
		}
		return insertRevision(ctx, tx, post, editorID)
	})
	return mapPGError(err)
}

// Delete removes the post; tag links cascade.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListRevisions returns the edit history for a post, newest first.
func (r *repository) ListRevisions(ctx context.Context, postID int64) ([]Revision, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, post_id, title, content, editor_id, created_at
		 FROM post_revisions WHERE post_id = $1 ORDER BY created_at DESC, id DESC`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Revision
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.ID, &rev.PostID, &rev.Title, &rev.Content, &rev.EditorID, &rev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

func insertRevision(ctx context.Context, tx pgx.Tx, post Post, editorID int64) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO post_revisions (post_id, title, content, editor_id, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		post.ID, post.Title, post.Content, editorID,
	)
	return err
}

func attachTags(ctx context.Context, tx pgx.Tx, postID int64, tags []string) error {
	for _, name := range tags {
		if _, err := tx.Exec(ctx,
			`INSERT INTO post_tags (post_id, tag_id)
			 SELECT $1, id FROM tags WHERE name = $2
			 ON CONFLICT DO NOTHING`,
			postID, name,
		); err != nil {
			return err
		}
	}
	return nil
}

func scanPost(row pgx.Row) (Post, error) {
	var post Post
	err := row.Scan(
		&post.ID, &post.Title, &post.Slug, &post.Content, &post.AuthorID,
		&post.CategoryID, &post.Published, &post.CreatedAt, &post.UpdatedAt, &post.Tags,
	)
	return post, err
}

func mapPGError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicateSlug
	}
	return err
}
