package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/genomeai/platform/cmd/api/models"
	"github.com/genomeai/platform/cmd/api/service"
	"github.com/genomeai/platform/common/clients"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	tokens map[string]*models.User
	err    error
}

func (f *fakeVerifier) Verify(ctx context.Context, raw string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.tokens[raw]
	if !ok {
		return nil, service.Unauthorized("Invalid token")
	}
	return user, nil
}

func TestBearerAuth(t *testing.T) {
	alice := &models.User{ID: "u-1", Username: "alice", Role: models.RoleEditor}
	verifier := &fakeVerifier{tokens: map[string]*models.User{"good": alice}}

	var seenUser *models.User
	var seenCtxID string
	next := func(c echo.Context) error {
		seenUser = CurrentUser(c)
		seenCtxID, _ = clients.GetUserID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}

	tests := []struct {
		name   string
		header string
		detail string
	}{
		{"no header", "", "Missing bearer token"},
		{"wrong scheme", "Basic abc", "Missing bearer token"},
		{"empty token", "Bearer ", "Missing bearer token"},
		{"unknown token", "Bearer bad", "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()

			err := BearerAuth(verifier)(next)(e.NewContext(req, rec))

			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, http.StatusUnauthorized, he.Code)
			assert.Equal(t, tt.detail, he.Message)
			assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
		})
	}

	t.Run("valid token", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "bearer good")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		require.NoError(t, BearerAuth(verifier)(next)(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Same(t, alice, seenUser)
		assert.Equal(t, "u-1", seenCtxID)
		assert.Equal(t, "u-1", CurrentUserID(c))
	})

	t.Run("verifier failure passes through", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer good")
		rec := httptest.NewRecorder()

		broken := &fakeVerifier{err: errors.New("db down")}
		err := BearerAuth(broken)(next)(e.NewContext(req, rec))
		assert.EqualError(t, err, "db down")
	})
}

func TestCurrentUser_Unauthenticated(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Nil(t, CurrentUser(c))
	assert.Equal(t, "", CurrentUserID(c))
}
