package tags

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/blog/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Tag, int, error)
	GetBySlug(ctx context.Context, slug string) (Tag, error)
	Create(ctx context.Context, tag Tag) (Tag, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const tagSelect = `
SELECT t.id, t.name, t.slug,
       (SELECT COUNT(*) FROM post_tags pt WHERE pt.tag_id = t.id) AS post_count
FROM tags t`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Tag, int, error) {
	query := tagSelect + ` WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM tags t WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND t.name ILIKE $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY t.name ASC`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.PostCount); err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Tag, error) {
	var t Tag
	err := r.pool.QueryRow(ctx, tagSelect+` WHERE t.slug = $1`, slug).
		Scan(&t.ID, &t.Name, &t.Slug, &t.PostCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tag{}, shared.ErrNotFound
	}
	if err != nil {
		return Tag{}, err
	}
	return t, nil
}

func (r *repository) Create(ctx context.Context, tag Tag) (Tag, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tags (name, slug) VALUES ($1, $2)
		RETURNING id`,
		tag.Name, tag.Slug,
	).Scan(&tag.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Tag{}, shared.ErrDuplicateSlug
		}
		return Tag{}, err
	}
	return tag, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
