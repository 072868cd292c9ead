package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/internal/service"
	httpez "go-gin-auth-backend/internal/transport/http/ez"
	mdw "go-gin-auth-backend/internal/transport/http/middleware"
	"go-gin-auth-backend/pkg/utils"
)

type registerReq struct {
	Email    string  `json:"email"    binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,maxbytes=72"`
	Name     *string `json:"name"     binding:"omitempty,min=2,max=50"` // nil when absent
}

type loginReq struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenReq struct {
	RefreshToken string `json:"refreshToken"`
}

type authOut struct {
	User         any    `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type tokensOut struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type meOut struct {
	User domain.ProfileView `json:"user"`
}

type AuthHandler struct {
	svc   *service.AuthService
	opt   httpez.Options
	limit gin.HandlerFunc
	gate  gin.HandlerFunc
}

// NewAuthHandler wires the auth routes. limit guards register and login,
// gate protects /me.
func NewAuthHandler(svc *service.AuthService, o httpez.Options, limit, gate gin.HandlerFunc) *AuthHandler {
	return &AuthHandler{svc: svc, opt: o, limit: limit, gate: gate}
}

// MountAPI registers the /auth routes under g.
func (h *AuthHandler) MountAPI(g *gin.RouterGroup) {
	ez := httpez.New(g.Group("/auth"), h.opt)

	httpez.RegisterAction(ez, httpez.Action[registerReq, authOut]{
		Method:     http.MethodPost,
		Path:       "/register",
		Binder:     httpez.BindStrictJSON,
		Status:     http.StatusCreated,
		Message:    "User registered successfully",
		Middleware: chain(h.limit),
		Handler:    h.register,
	})
	httpez.RegisterAction(ez, httpez.Action[loginReq, authOut]{
		Method:     http.MethodPost,
		Path:       "/login",
		Binder:     httpez.BindStrictJSON,
		Message:    "Login successful",
		Middleware: chain(h.limit),
		Handler:    h.login,
	})
	httpez.RegisterAction(ez, httpez.Action[tokenReq, any]{
		Method:  http.MethodPost,
		Path:    "/logout",
		Binder:  httpez.BindOptionalJSON,
		Message: "Logout successful",
		Handler: h.logout,
	})
	httpez.RegisterAction(ez, httpez.Action[struct{}, meOut]{
		Method:     http.MethodGet,
		Path:       "/me",
		Binder:     httpez.BindNone,
		Middleware: chain(h.gate),
		Handler:    h.me,
	})
	httpez.RegisterAction(ez, httpez.Action[tokenReq, tokensOut]{
		Method:  http.MethodPost,
		Path:    "/refresh",
		Binder:  httpez.BindOptionalJSON,
		Message: "Token refreshed successfully",
		Handler: h.refresh,
	})
}

func (h *AuthHandler) register(c *gin.Context, in *registerReq) (authOut, error) {
	var name string
	if in.Name != nil {
		name = *in.Name
	}
	res, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email:    in.Email,
		Password: in.Password,
		Name:     name,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			mdw.RecordAuthEvent("register", "rejected")
			return authOut{}, httpez.BadRequest("User with this email already exists")
		}
		if errors.Is(err, service.ErrPasswordTooLong) {
			mdw.RecordAuthEvent("register", "rejected")
			return authOut{}, httpez.InvalidField("password", "maxbytes",
				fmt.Sprintf(`"password" length must be less than or equal to %d bytes long`, utils.MaxPasswordBytes))
		}
		mdw.RecordAuthEvent("register", "error")
		return authOut{}, err
	}
	mdw.RecordAuthEvent("register", "success")
	return authOut{
		User:         res.User.NewUserView(),
		Token:        res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, nil
}

func (h *AuthHandler) login(c *gin.Context, in *loginReq) (authOut, error) {
	res, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			mdw.RecordAuthEvent("login", "rejected")
			return authOut{}, httpez.Unauthorized("Invalid email or password", err)
		}
		mdw.RecordAuthEvent("login", "error")
		return authOut{}, err
	}
	mdw.RecordAuthEvent("login", "success")
	return authOut{
		User:         res.User.LoginView(),
		Token:        res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
	}, nil
}

func (h *AuthHandler) logout(c *gin.Context, in *tokenReq) (any, error) {
	if err := h.svc.Logout(c.Request.Context(), in.RefreshToken); err != nil {
		mdw.RecordAuthEvent("logout", "error")
		return nil, err
	}
	mdw.RecordAuthEvent("logout", "success")
	return nil, nil
}

func (h *AuthHandler) me(c *gin.Context, _ *struct{}) (meOut, error) {
	u, err := h.svc.Me(c.Request.Context(), c.GetString(mdw.KeyUserID))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return meOut{}, httpez.NotFound("User not found")
		}
		return meOut{}, err
	}
	return meOut{User: u.ProfileView()}, nil
}

func (h *AuthHandler) refresh(c *gin.Context, in *tokenReq) (tokensOut, error) {
	pair, err := h.svc.Refresh(c.Request.Context(), in.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrRefreshTokenMissing):
		mdw.RecordAuthEvent("refresh", "rejected")
		return tokensOut{}, httpez.Unauthorized("Refresh token required", err)
	case errors.Is(err, service.ErrRefreshTokenInvalid):
		mdw.RecordAuthEvent("refresh", "rejected")
		return tokensOut{}, httpez.Unauthorized("Invalid refresh token", err)
	default:
		mdw.RecordAuthEvent("refresh", "error")
		return tokensOut{}, err
	}
	mdw.RecordAuthEvent("refresh", "success")
	return tokensOut{Token: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func chain(hs ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(hs))
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}
