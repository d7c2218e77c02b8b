package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kpiboard/internal/apperr"
	"kpiboard/internal/auth"
	"kpiboard/internal/logger"
	"kpiboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error
}

type TokenIssuer interface {
	GenerateToken(userID uuid.UUID, role model.Role) (string, error)
}

type RoleChecker interface {
	RequireRole(user *model.User, roles ...model.Role) error
}

type UserHandler struct {
	users  UserStore
	tokens TokenIssuer
	roles  RoleChecker
	log    *logger.Logger
}

func NewUserHandler(users UserStore, tokens TokenIssuer, roles RoleChecker, log *logger.Logger) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, roles: roles, log: log}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SetRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin editor viewer"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

// Register creates a viewer account and signs the caller in.
//
// @Summary  Register a new user
// @Tags     Users
// @Accept   json
// @Produce  json
// @Param    request body RegisterRequest true "Account details"
// @Success  201 {object} AuthResponse
// @Failure  409 {object} map[string]string
// @Router   /register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	user := &model.User{
		ID:             uuid.New(),
		Email:          req.Email,
		Name:           req.Name,
		HashedPassword: hash,
		Role:           model.RoleViewer,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		respondError(c, h.log, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login exchanges credentials for an access token.
//
// @Summary  Log in
// @Tags     Users
// @Accept   json
// @Produce  json
// @Param    request body LoginRequest true "Credentials"
// @Success  200 {object} AuthResponse
// @Failure  401 {object} map[string]string
// @Router   /login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid input")
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if user == nil || !auth.VerifyPassword(user.HashedPassword, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

// Me returns the authenticated user.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// SetRole changes another user's role. Admin only.
//
// @Summary   Change a user's role
// @Tags      Users
// @Security  BearerAuth
// @Param     id path string true "User ID"
// @Param     request body SetRoleRequest true "New role"
// @Success   204
// @Router    /users/{id}/role [put]
func (h *UserHandler) SetRole(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.roles.RequireRole(user, model.RoleAdmin); err != nil {
		respondError(c, h.log, err)
		return
	}
	targetID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if targetID == user.ID && model.Role(req.Role) != model.RoleAdmin {
		badRequest(c, "Admins cannot demote themselves")
		return
	}

	if err := h.users.UpdateRole(c.Request.Context(), targetID, model.Role(req.Role)); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("user role changed", "user_id", targetID.String(), "role", req.Role, "changed_by", user.ID.String())
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) respondWithToken(c *gin.Context, status int, user *model.User) {
	token, err := h.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: toUserResponse(user)})
}
