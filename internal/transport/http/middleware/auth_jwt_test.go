package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"

	"go-gin-auth-backend/internal/core/auth"
	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/internal/service"
)

type stubAuth map[string]error

func (s stubAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	if err, ok := s[token]; ok {
		return nil, err
	}
	return &domain.User{ID: "u1", Email: "a@x.com"}, nil
}

func gateEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthJWT(stubAuth{
		"expired": auth.ErrTokenExpired,
		"forged":  fmt.Errorf("verify: %w", auth.ErrTokenInvalidSignature),
		"garbage": auth.ErrTokenMalformed,
		"ghost":   service.ErrUserNotFound,
		"broken":  errors.New("store down"),
	}, nil), func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "uid": c.GetString(KeyUserID)})
	})
	return r
}

func TestAuthJWT_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing header", "", http.StatusUnauthorized, "Access denied. No token provided."},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Access denied. No token provided."},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "Access denied. No token provided."},
		{"expired", "Bearer expired", http.StatusUnauthorized, "Token expired"},
		{"bad signature", "Bearer forged", http.StatusUnauthorized, "Invalid token"},
		{"malformed", "Bearer garbage", http.StatusUnauthorized, "Invalid token"},
		{"user gone", "Bearer ghost", http.StatusUnauthorized, "Invalid token. User not found."},
		{"store failure", "Bearer broken", http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := apitest.New().Handler(gateEngine()).Get("/me")
			if tc.header != "" {
				req = req.Header("Authorization", tc.header)
			}
			req.Expect(t).
				Status(tc.status).
				Assert(jsonpath.Equal(`$.success`, false)).
				Assert(jsonpath.Equal(`$.message`, tc.msg)).
				End()
		})
	}
}

func TestAuthJWT_AttachesUser(t *testing.T) {
	apitest.New().
		Handler(gateEngine()).
		Get("/me").
		Header("Authorization", "bearer good").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"id":"u1","uid":"u1"}`).
		End()
}
