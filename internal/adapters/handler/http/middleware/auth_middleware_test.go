package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-habits/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/core/services"
)

// stubValidator accepts exactly one token.
type stubValidator struct {
	token  string
	userID string
	err    error
	calls  int
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if token != s.token {
		return "", fmt.Errorf("%w: unknown token", domain.ErrInvalidToken)
	}
	return s.userID, nil
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func protectedRouter(tokens TokenValidator) *gin.Engine {
	router := gin.New()
	router.GET("/me", AuthMiddleware(tokens), func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, userID)
	})
	return router
}

func callMe(router http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_HeaderParsing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"Success: Canonical scheme", "Bearer good-token", http.StatusOK, "user-42"},
		{"Success: Lowercase scheme", "bearer good-token", http.StatusOK, "user-42"},
		{"Success: Surrounding whitespace", "  Bearer   good-token  ", http.StatusOK, "user-42"},
		{"Fail: Missing header", "", http.StatusUnauthorized, "authorization header required"},
		{"Fail: Scheme only", "Bearer", http.StatusUnauthorized, "invalid authorization header format"},
		{"Fail: Wrong scheme", "Token good-token", http.StatusUnauthorized, "invalid authorization header format"},
		{"Fail: No separator", "Bearergood-token", http.StatusUnauthorized, "invalid authorization header format"},
		{"Fail: Extra credentials", "Bearer good-token extra", http.StatusUnauthorized, "invalid authorization header format"},
		{"Fail: Unknown token", "Bearer other-token", http.StatusUnauthorized, "invalid or expired token"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			router := protectedRouter(&stubValidator{token: "good-token", userID: "user-42"})

			w := callMe(router, tc.header)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestAuthMiddleware_ValidatorFailure(t *testing.T) {
	t.Parallel()

	t.Run("Fail: Validator outage is a 503 and is recorded", func(t *testing.T) {
		t.Parallel()
		stub := &stubValidator{err: errors.New("connection refused")}

		router := gin.New()
		var recorded []*gin.Error
		router.Use(func(c *gin.Context) {
			c.Next()
			recorded = c.Errors
		})
		router.GET("/me", AuthMiddleware(stub), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := callMe(router, "Bearer anything")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		require.Len(t, recorded, 1)
		assert.EqualError(t, recorded[0].Err, "connection refused")
	})

	t.Run("Fail: Malformed header never reaches the validator", func(t *testing.T) {
		t.Parallel()
		stub := &stubValidator{token: "good-token", userID: "user-42"}

		callMe(protectedRouter(stub), "Basic dXNlcjpwYXNz")

		assert.Zero(t, stub.calls)
	})
}

func TestAuthMiddleware_WithTokenService(t *testing.T) {
	t.Parallel()

	store := repository.NewMemoryStore()
	users := store.Users()

	alive, err := domain.NewUser("user-alive", "alive@kanso.app")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), alive))

	tokens := services.NewTokenService("middleware-secret", "kanso-test", time.Hour, users)
	router := protectedRouter(tokens)

	t.Run("Success: Token of an existing user", func(t *testing.T) {
		token, _, err := tokens.GenerateToken("user-alive")
		require.NoError(t, err)

		w := callMe(router, "Bearer "+token)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-alive", w.Body.String())
	})

	t.Run("Fail: Token of a deleted user", func(t *testing.T) {
		token, _, err := tokens.GenerateToken("user-gone")
		require.NoError(t, err)

		w := callMe(router, "Bearer "+token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Fail: Token signed with another secret", func(t *testing.T) {
		forger := services.NewTokenService("not-the-secret", "kanso-test", time.Hour, users)
		token, _, _ := forger.GenerateToken("user-alive")

		w := callMe(router, "Bearer "+token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired token")
	})

	t.Run("Fail: Expired token", func(t *testing.T) {
		expired := services.NewTokenService("middleware-secret", "kanso-test", -time.Second, users)
		token, _, _ := expired.GenerateToken("user-alive")

		w := callMe(router, "Bearer "+token)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
