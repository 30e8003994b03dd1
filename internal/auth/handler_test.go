package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/ratelimit"
	_ "github.com/inkwell-blog/inkwell/internal/testing/guard"
)

type handlerFixture struct {
	router  http.Handler
	repo    *memoryAuthRepo
	service *Service
	mailer  *captureMailer
	mr      *miniredis.Miniredis
}

func newHandlerFixture(t *testing.T) *handlerFixture {
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

	limiter := ratelimit.NewLimiter(client, map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassLogin: {Requests: 3, Window: time.Minute},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rateMW := ratelimit.Middleware{Limiter: limiter, Logger: logger}

	handler := NewHandler(logger, service, rateMW.Limit(ratelimit.ClassLogin))
	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)

	return &handlerFixture{router: router, repo: repo, service: service, mailer: mailer, mr: mr}
}

func (f *handlerFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHandlerRegisterAndLogin(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "newbie",
		"email":    "newbie@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	token := f.login(t, "newbie", "secret123")

	rec = f.do(t, http.MethodGet, "/auth/session/verify", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var verify struct {
		Valid bool `json:"valid"`
		User  struct {
			Username string   `json:"username"`
			Roles    []string `json:"roles"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verify))
	require.True(t, verify.Valid)
	require.Equal(t, "newbie", verify.User.Username)
	require.Equal(t, []string{DefaultRole}, verify.User.Roles)
}

func TestHandlerRegisterDuplicate(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedHandlerUser(t, "taken", "taken@example.com", "secret123")

	rec := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "taken",
		"email":    "other@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerRegisterValidation(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "ok",
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerLoginBadCredentials(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedHandlerUser(t, "writer", "writer@example.com", "hunter22")

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "writer",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerLoginRateLimited(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedHandlerUser(t, "writer", "writer@example.com", "hunter22")

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
			"username": "writer",
			"password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "writer",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHandlerLogoutInvalidatesSession(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedHandlerUser(t, "writer", "writer@example.com", "hunter22")

	token := f.login(t, "writer", "hunter22")

	rec := f.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/auth/session/verify", token, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Token Revoked")
}

func TestHandlerLogoutIdempotent(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedHandlerUser(t, "writer", "writer@example.com", "hunter22")

	token := f.login(t, "writer", "hunter22")

	rec := f.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The same, now-revoked token logs out again with success.
	rec = f.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Unknown tokens succeed too; only a missing credential is rejected.
	rec = f.do(t, http.MethodPost, "/auth/logout", "garbage", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerVerifyRejectsGarbageToken(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/session/verify", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/auth/session/verify", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerResetPasswordFlow(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedHandlerUser(t, "writer", "writer@example.com", "oldpass99")

	rec := f.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{
		"email": "writer@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, f.mailer.token)

	rec = f.do(t, http.MethodPost, "/auth/reset-password/"+f.mailer.token, "", map[string]string{
		"password": "newpass99",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Token is single use.
	rec = f.do(t, http.MethodPost, "/auth/reset-password/"+f.mailer.token, "", map[string]string{
		"password": "anotherpass",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Already Used")

	f.login(t, "writer", "newpass99")
}

func TestHandlerResetRequestUniformResponse(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedHandlerUser(t, "writer", "writer@example.com", "hunter22")

	known := f.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"email": "writer@example.com"})
	unknown := f.do(t, http.MethodPost, "/auth/reset-password", "", map[string]string{"email": "ghost@example.com"})

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())
}

func (f *handlerFixture) seedHandlerUser(t *testing.T, username, email, password string) *User {
	t.Helper()
	hash, err := NewHasher(bcryptTestCost).Hash(password)
	require.NoError(t, err)
	return f.repo.add(&User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{DefaultRole},
		IsActive:     true,
	})
}
