package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-blog/inkwell/internal/platform/db"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, user *User, roleName string) (*User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	RecordLoginAttempt(ctx context.Context, userID int64, success bool, ip string) error
}

const userSelect = `
SELECT u.id, u.username, u.email, u.password_hash, u.is_active, u.created_at, u.updated_at,
       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), '{}') AS roles
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByIdentifier fetches a user by username or email.
func (r *PGRepository) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return r.findOne(ctx, userSelect+` WHERE u.username = $1 OR u.email = $1 GROUP BY u.id`, identifier)
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, userSelect+` WHERE u.email = $1 GROUP BY u.id`, email)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, userSelect+` WHERE u.id = $1 GROUP BY u.id`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt, &user.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create inserts a user and attaches the named default role in one
// transaction. Unique violations surface as ErrDuplicateUser.
func (r *PGRepository) Create(ctx context.Context, user *User, roleName string) (*User, error) {
	now := time.Now().UTC()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (username, email, password_hash, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, TRUE, $4, $4) RETURNING id`,
			user.Username, user.Email, user.PasswordHash, now,
		).Scan(&user.ID)
		if err != nil {
			return err
		}
		if roleName == "" {
			return nil
		}
		tag, err := tx.Exec(ctx,
			`INSERT INTO user_roles (user_id, role_id)
			 SELECT $1, id FROM roles WHERE name = $2`,
			user.ID, roleName,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			user.Roles = []string{roleName}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now
	return user, nil
}

// UpdatePassword replaces the stored password hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		passwordHash, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RecordLoginAttempt appends a row to login_attempts for audit and
// brute-force analysis.
func (r *PGRepository) RecordLoginAttempt(ctx context.Context, userID int64, success bool, ip string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_attempts (user_id, success, ip_address, created_at) VALUES ($1, $2, $3, $4)`,
		userID, success, ip, time.Now().UTC(),
	)
	return err
}

var _ Repository = (*PGRepository)(nil)
