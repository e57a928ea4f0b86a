package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-dorm/internal/auth"
	"github.com/weiawesome/wes-io-dorm/internal/domain"
	"github.com/weiawesome/wes-io-dorm/pkg/jwt"
)

var errMissing = errors.New("missing")

type users map[string]*domain.User

func (u users) GetByUsername(_ context.Context, name string) (*domain.User, error) {
	if v, ok := u[name]; ok {
		return v, nil
	}
	return nil, errMissing
}

func (u users) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, errMissing
}

func setup(t *testing.T, gates ...auth.Gate) (*gin.Engine, *jwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := jwt.NewManager("mw-secret", time.Hour)
	require.NoError(t, err)
	store := users{
		"alice": {ID: 1, Username: "alice", IsActive: true, Role: domain.RoleUser},
		"root":  {ID: 2, Username: "root", IsActive: true, Role: domain.RoleAdmin},
		"ghost": {ID: 3, Username: "ghost", IsActive: false, Role: domain.RoleAdmin},
	}
	resolver := auth.NewResolver(tokens, store, func(err error) bool { return errors.Is(err, errMissing) })

	r := gin.New()
	r.GET("/me", RequireUser(resolver, gates...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "username": CurrentUser(c).Username})
	})
	return r, tokens
}

func do(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(AuthHeaderKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, tokens *jwt.Manager, subject string) string {
	t.Helper()
	tok, _, err := tokens.IssueAccessToken(subject)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestRequireUserAccepts(t *testing.T) {
	r, tokens := setup(t, auth.ActiveUser...)

	w := do(r, bearer(t, tokens, "alice"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"username":"alice"}`, w.Body.String())

	w = do(r, "bearer "+bearer(t, tokens, "alice")[len(BearerPrefix):])
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireUserRejectsBadCredentials(t *testing.T) {
	r, tokens := setup(t, auth.ActiveUser...)

	for name, header := range map[string]string{
		"missing":         "",
		"basic scheme":    "Basic YWxpY2U6cHc=",
		"garbage":         "Bearer nope",
		"unknown subject": bearer(t, tokens, "mallory"),
	} {
		w := do(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
		assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"), name)
		assert.Contains(t, w.Body.String(), string(domain.KindInvalidCredentials), name)
	}
}

func TestRequireUserGates(t *testing.T) {
	r, tokens := setup(t, auth.AdminUser...)

	w := do(r, bearer(t, tokens, "ghost"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.KindAccountDisabled))

	w = do(r, bearer(t, tokens, "alice"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), string(domain.KindForbidden))

	w = do(r, bearer(t, tokens, "root"))
	assert.Equal(t, http.StatusOK, w.Code)
}
