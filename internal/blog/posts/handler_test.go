package posts

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-blog/inkwell/internal/rbac"
	"github.com/inkwell-blog/inkwell/internal/shared"
)

type handlerFixture struct {
	router    chi.Router
	service   *Service
	principal *shared.Principal
}

// newHandlerFixture mounts the post routes behind a gate that injects
// whatever principal the test sets, standing in for the authenticate
// and rate-limit stages.
func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{service: newTestService(t, newMemoryPostRepo())}
	gate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if f.principal == nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), f.principal)))
		})
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, f.service, gate, rbac.Middleware{})
	f.router = chi.NewRouter()
	f.router.Route("/posts", handler.MountRoutes)
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerGetUnknownPost(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/posts/404", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Not Found", problem.Title)
}

func TestHandlerDuplicateSlugConflict(t *testing.T) {
	f := newHandlerFixture(t)
	f.principal = author

	rec := f.do(t, http.MethodPost, "/posts", `{"title":"Same Title","content":"x"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/posts", `{"title":"Same Title","content":"y"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var problem struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Conflict", problem.Title)
}

func TestHandlerUpdateByNonOwnerForbidden(t *testing.T) {
	f := newHandlerFixture(t)
	f.principal = author

	rec := f.do(t, http.MethodPost, "/posts", `{"title":"Mine","content":"x"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	f.principal = otherUser
	rec = f.do(t, http.MethodPut, fmt.Sprintf("/posts/%d", created.ID), `{"title":"Mine","content":"stolen"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerLikeToggleRoundTrip(t *testing.T) {
	f := newHandlerFixture(t)
	f.principal = author

	rec := f.do(t, http.MethodPost, "/posts", `{"title":"Likeable","content":"x"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	f.principal = otherUser
	rec = f.do(t, http.MethodPost, fmt.Sprintf("/posts/%d/like", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled struct {
		Liked bool  `json:"liked"`
		Likes int64 `json:"likes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	require.True(t, toggled.Liked)
	require.EqualValues(t, 1, toggled.Likes)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/posts/%d/like", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	require.False(t, toggled.Liked)
	require.EqualValues(t, 0, toggled.Likes)

	// Counting likes needs no session.
	f.principal = nil
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/posts/%d/likes", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerRevisionsRequireEditRights(t *testing.T) {
	f := newHandlerFixture(t)
	f.principal = author

	rec := f.do(t, http.MethodPost, "/posts", `{"title":"History","content":"v1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = f.do(t, http.MethodPut, fmt.Sprintf("/posts/%d", created.ID), `{"title":"History","content":"v2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/posts/%d/revisions", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Revisions []Revision `json:"revisions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Revisions, 2)
	require.Equal(t, "v2", listing.Revisions[0].Content)

	f.principal = otherUser
	rec = f.do(t, http.MethodGet, fmt.Sprintf("/posts/%d/revisions", created.ID), "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}
