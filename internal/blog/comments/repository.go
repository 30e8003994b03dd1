package comments

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/blog/shared"
)

type ListFilters struct {
	PostID       int64
	ApprovedOnly bool
	Page         int
	Limit        int
}

type Repository interface {
	ListByPost(ctx context.Context, filters ListFilters) ([]Comment, int, error)
	Get(ctx context.Context, id int64) (Comment, error)
	Create(ctx context.Context, comment Comment) (Comment, error)
	SetApproved(ctx context.Context, id int64, approved bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const commentSelect = `
SELECT c.id, c.post_id, c.author_id, u.username, c.content, c.approved, c.created_at
FROM comments c
JOIN users u ON u.id = c.author_id`

func (r *repository) ListByPost(ctx context.Context, filters ListFilters) ([]Comment, int, error) {
	query := commentSelect + ` WHERE c.post_id = $1`
	countQuery := `SELECT COUNT(*) FROM comments c WHERE c.post_id = $1`
	args := []any{filters.PostID}
	argCount := 1

	if filters.ApprovedOnly {
		query += ` AND c.approved`
		countQuery += ` AND c.approved`
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY c.created_at ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Content, &c.Approved, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Comment, error) {
	var c Comment
	err := r.pool.QueryRow(ctx, commentSelect+` WHERE c.id = $1`, id).
		Scan(&c.ID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.Content, &c.Approved, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Comment{}, shared.ErrNotFound
	}
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, comment Comment) (Comment, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO comments (post_id, author_id, content, approved, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at`,
		comment.PostID, comment.AuthorID, comment.Content, comment.Approved,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return Comment{}, err
	}
	return comment, nil
}

func (r *repository) SetApproved(ctx context.Context, id int64, approved bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE comments SET approved = $1 WHERE id = $2`, approved, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
