package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-auth-backend/internal/domain"
	"go-gin-auth-backend/internal/service"
	httpez "go-gin-auth-backend/internal/transport/http/ez"
)

type usersOut struct {
	Total int                  `json:"total"`
	Users []domain.ProfileView `json:"users"`
}

type deletedOut struct {
	ID string `json:"id"`
}

type AdminHandler struct {
	users *service.UserService
	opt   httpez.Options
}

func NewAdminHandler(users *service.UserService, o httpez.Options) *AdminHandler {
	return &AdminHandler{users: users, opt: o}
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	ez := httpez.New(g, h.opt)

	httpez.RegisterAction(ez, httpez.Action[struct{}, usersOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (usersOut, error) {
			us, err := h.users.List(c.Request.Context())
			if err != nil {
				return usersOut{}, err
			}
			out := usersOut{Total: len(us), Users: make([]domain.ProfileView, 0, len(us))}
			for _, u := range us {
				out.Users = append(out.Users, u.ProfileView())
			}
			return out, nil
		},
	})

	httpez.RegisterAction(ez, httpez.Action[struct{}, deletedOut]{
		Method:  http.MethodDelete,
		Path:    "/users/:id",
		Binder:  httpez.BindNone,
		Message: "User deleted",
		Handler: func(c *gin.Context, _ *struct{}) (deletedOut, error) {
			id := c.Param("id")
			if err := h.users.Delete(c.Request.Context(), id); err != nil {
				if errors.Is(err, service.ErrUserNotFound) {
					return deletedOut{}, httpez.NotFound("User not found")
				}
				return deletedOut{}, err
			}
			return deletedOut{ID: id}, nil
		},
	})
}
