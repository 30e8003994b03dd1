package users

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/platform/db"
)

// RepositoryPort defines data access methods for user management.
type RepositoryPort interface {
	List(ctx context.Context, search string, page, limit int) ([]User, int, error)
	Get(ctx context.Context, id int64) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetRoles(ctx context.Context, id int64, roles []string) error
	CountWithRole(ctx context.Context, role string) (int, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userSelect = `
SELECT u.id, u.username, u.email,
       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}'),
       u.is_active, u.created_at, u.updated_at
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id`

func (r *Repository) List(ctx context.Context, search string, page, limit int) ([]User, int, error) {
	query := userSelect + ` WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM users u WHERE 1=1`
	args := []any{}
	argCount := 0

	if search != "" {
		argCount++
		clause := ` AND (u.username ILIKE $` + strconv.Itoa(argCount) + ` OR u.email ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` GROUP BY u.id ORDER BY u.id`
	if limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (page - 1) * limit
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

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1 GROUP BY u.id`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.Roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRoles replaces the user's role set atomically. Unknown role names
// fail the whole transaction.
func (r *Repository) SetRoles(ctx context.Context, id int64, roles []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return err
		}
		for _, role := range roles {
			ct, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id)
				SELECT $1, r.id FROM roles r WHERE r.name = $2`,
				id, role,
			)
			if err != nil {
				return err
			}
			if ct.RowsAffected() == 0 {
				return ErrUnknownRole
			}
		}
		_, err := tx.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, id)
		return err
	})
}

func (r *Repository) CountWithRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		JOIN users u ON u.id = ur.user_id
		WHERE r.name = $1 AND u.is_active`, role,
	).Scan(&n)
	return n, err
}
