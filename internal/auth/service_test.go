package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/shared"
)

type memoryAuthRepo struct {
	users    map[int64]*User
	nextID   int64
	attempts []loginAttempt
}

type loginAttempt struct {
	userID  int64
	success bool
	ip      string
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{users: make(map[int64]*User), nextID: 1}
}

func (r *memoryAuthRepo) add(user *User) *User {
	u := *user
	u.ID = r.nextID
	r.nextID++
	r.users[u.ID] = &u
	return &u
}

func (r *memoryAuthRepo) FindByIdentifier(_ context.Context, identifier string) (*User, error) {
	for _, u := range r.users {
		if u.Username == identifier || u.Email == identifier {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryAuthRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryAuthRepo) FindByID(_ context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryAuthRepo) Create(_ context.Context, user *User, roleName string) (*User, error) {
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, ErrDuplicateUser
		}
	}
	user.IsActive = true
	if roleName != "" {
		user.Roles = []string{roleName}
	}
	return r.add(user), nil
}

func (r *memoryAuthRepo) UpdatePassword(_ context.Context, userID int64, hash string) error {
	u, ok := r.users[userID]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *memoryAuthRepo) RecordLoginAttempt(_ context.Context, userID int64, success bool, ip string) error {
	r.attempts = append(r.attempts, loginAttempt{userID: userID, success: success, ip: ip})
	return nil
}

type captureMailer struct {
	email string
	token string
}

func (m *captureMailer) EnqueueResetEmail(_ context.Context, email, token string) error {
	m.email = email
	m.token = token
	return nil
}

type authFixture struct {
	service *Service
	repo    *memoryAuthRepo
	mailer  *captureMailer
	mr      *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryAuthRepo()
	mailer := &captureMailer{}
	service := NewService(ServiceParams{
		Repo:     repo,
		Hasher:   NewHasher(bcryptTestCost),
		Codec:    NewTokenCodec("test-secret", time.Hour),
		Registry: NewSessionRegistry(client),
		Resets:   NewResetTokens(client, 30*time.Minute),
		Mailer:   mailer,
	})
	return &authFixture{service: service, repo: repo, mailer: mailer, mr: mr}
}

// bcrypt.MinCost keeps the hashing in tests fast.
const bcryptTestCost = 4

func (f *authFixture) seedUser(t *testing.T, username, email, password string, active bool, roles ...string) *User {
	t.Helper()
	hash, err := NewHasher(bcryptTestCost).Hash(password)
	require.NoError(t, err)
	return f.repo.add(&User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		IsActive:     active,
	})
}

func TestServiceRegisterAssignsDefaultRole(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.service.Register(context.Background(), "newbie", "newbie@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, []string{DefaultRole}, user.Roles)
	require.True(t, user.IsActive)
}

func TestServiceLoginByUsernameAndEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "writer", "writer@example.com", "hunter22", true, "author")
	ctx := context.Background()

	token, user, err := f.service.Login(ctx, "writer", "hunter22", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "writer", user.Username)

	token, _, err = f.service.Login(ctx, "writer@example.com", "hunter22", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestServiceLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "writer", "writer@example.com", "hunter22", true)

	_, _, err := f.service.Login(context.Background(), "writer", "wrong", "10.0.0.1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	require.Len(t, f.repo.attempts, 1)
	require.False(t, f.repo.attempts[0].success)
}

func TestServiceLoginUnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.service.Login(context.Background(), "ghost", "whatever", "10.0.0.1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestServiceLoginInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "banned", "banned@example.com", "hunter22", false)

	_, _, err := f.service.Login(context.Background(), "banned", "hunter22", "10.0.0.1")
	require.ErrorIs(t, err, shared.ErrInactiveAccount)
}

func TestServiceValidateToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "writer", "writer@example.com", "hunter22", true, "author")
	ctx := context.Background()

	token, _, err := f.service.Login(ctx, "writer", "hunter22", "")
	require.NoError(t, err)

	claims, err := f.service.ValidateToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "writer", claims.Username)
	require.Equal(t, []string{"author"}, claims.Roles)
}

func TestServiceLogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "writer", "writer@example.com", "hunter22", true)
	ctx := context.Background()

	token, _, err := f.service.Login(ctx, "writer", "hunter22", "")
	require.NoError(t, err)
	claims, err := f.service.ValidateToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, claims.ID, user.ID, claims.ExpiresAt.Time))

	_, err = f.service.ValidateToken(ctx, token)
	require.ErrorIs(t, err, ErrTokenRevoked)

	// Logout is idempotent.
	require.NoError(t, f.service.Logout(ctx, claims.ID, user.ID, claims.ExpiresAt.Time))
}

func TestServiceRequestResetUnknownEmailSilent(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.service.RequestReset(context.Background(), "nobody@example.com"))
	require.Empty(t, f.mailer.token)
}

func TestServiceResetFlowRevokesSessions(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "writer", "writer@example.com", "oldpass99", true)
	ctx := context.Background()

	token, _, err := f.service.Login(ctx, "writer", "oldpass99", "")
	require.NoError(t, err)

	require.NoError(t, f.service.RequestReset(ctx, "writer@example.com"))
	require.Equal(t, "writer@example.com", f.mailer.email)
	require.NotEmpty(t, f.mailer.token)

	require.NoError(t, f.service.ConsumeReset(ctx, f.mailer.token, "newpass99"))

	_, err = f.service.ValidateToken(ctx, token)
	require.ErrorIs(t, err, ErrTokenRevoked)

	_, _, err = f.service.Login(ctx, "writer", "oldpass99", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = f.service.Login(ctx, "writer", "newpass99", "")
	require.NoError(t, err)
}

func TestServiceRevokeAllCatchesSameSecondToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "writer", "writer@example.com", "hunter22", true)
	ctx := context.Background()

	// JWT issued-at claims are truncated to whole seconds; a revocation
	// one nanosecond after issuance must still reject the token.
	issuedAt := time.Now()
	f.service.now = func() time.Time { return issuedAt }
	token, user, err := f.service.Login(ctx, "writer", "hunter22", "")
	require.NoError(t, err)

	f.service.registry.now = func() time.Time { return issuedAt.Add(time.Nanosecond) }
	require.NoError(t, f.service.RevokeAllSessions(ctx, user.ID))

	_, err = f.service.ValidateToken(ctx, token)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestServiceConsumeResetBadToken(t *testing.T) {
	f := newAuthFixture(t)

	err := f.service.ConsumeReset(context.Background(), "bogus", "newpass99")
	require.ErrorIs(t, err, ErrResetTokenInvalid)
}
