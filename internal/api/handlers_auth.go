package api

import (
	"errors"
	"net/http"

	"wrapreel/internal/auth"
	"wrapreel/internal/model"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// member is a shop account as seen by its teammates.
type member struct {
	model.User
	Permissions []auth.Permission `json:"permissions"`
}

func memberView(u model.User) member {
	return member{User: u, Permissions: auth.Permissions(u.Role)}
}

type session struct {
	auth.Tokens
	User member `json:"user"`
}

func (s *Server) login(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req, "email and password are required") {
		return
	}
	user, tokens, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", false, nil)
		return
	}
	writeData(c, http.StatusOK, session{Tokens: tokens, User: memberView(user)})
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req, "refresh_token is required") {
		return
	}
	tokens, err := s.auth.Refresh(req.RefreshToken)
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token expired", false, nil)
	case err != nil:
		writeUnauthorized(c)
	default:
		writeData(c, http.StatusOK, tokens)
	}
}

func (s *Server) logout(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req, "refresh_token is required") {
		return
	}
	if err := s.auth.Logout(req.RefreshToken); err != nil {
		writeUnauthorized(c)
		return
	}
	writeData(c, http.StatusOK, gin.H{"ok": true})
}

func (s *Server) me(c *gin.Context) {
	user, err := s.store.GetUserByID(userIDFromContext(c))
	if err != nil || user.Status != model.UserActive {
		writeUnauthorized(c)
		return
	}
	writeData(c, http.StatusOK, memberView(user))
}

func (s *Server) listMembers(c *gin.Context) {
	users := s.auth.ShopMembers(shopIDFromContext(c))
	items := make([]member, 0, len(users))
	for _, u := range users {
		items = append(items, memberView(u))
	}
	writeData(c, http.StatusOK, gin.H{"items": items})
}

func (s *Server) addStaff(c *gin.Context) {
	var req credentials
	if !bindJSON(c, &req, "email and password are required") {
		return
	}
	user, err := s.auth.AddStaff(claimsFromContext(c), req.Email, req.Password)
	if err != nil {
		writeStaffError(c, err)
		return
	}
	writeData(c, http.StatusCreated, memberView(user))
}

func (s *Server) disableStaff(c *gin.Context) {
	user, err := s.auth.DisableStaff(claimsFromContext(c), c.Param("user_id"))
	if err != nil {
		writeStaffError(c, err)
		return
	}
	writeData(c, http.StatusOK, memberView(user))
}

func writeStaffError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(c, http.StatusConflict, "EMAIL_TAKEN", "Email is already registered", false, nil)
	case errors.Is(err, auth.ErrWeakPassword):
		writeError(c, http.StatusBadRequest, "WEAK_PASSWORD", "Password must be at least 8 characters", false, nil)
	case errors.Is(err, auth.ErrNotStaff):
		writeError(c, http.StatusNotFound, "STAFF_NOT_FOUND", "Staff member not found", false, nil)
	case errors.Is(err, auth.ErrForbidden):
		writeError(c, http.StatusForbidden, "ROLE_FORBIDDEN", "Your role cannot do this", false, nil)
	default:
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update staff", true, nil)
	}
}

// bindJSON decodes the request body into dst and answers 400 or 415 itself
// when it cannot.
func bindJSON(c *gin.Context, dst any, invalid string) bool {
	if !requireJSON(c) {
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", invalid, false, nil)
		return false
	}
	return true
}
