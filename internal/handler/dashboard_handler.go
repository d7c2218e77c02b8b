package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kpiboard/internal/apperr"
	"kpiboard/internal/logger"
	"kpiboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DashboardStore interface {
	Create(ctx context.Context, dashboard *model.Dashboard) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Dashboard, error)
	GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Dashboard, error)
	GetShared(ctx context.Context, userID uuid.UUID) ([]model.Dashboard, error)
	GetAll(ctx context.Context) ([]model.Dashboard, error)
	Update(ctx context.Context, dashboard *model.Dashboard) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AccessStore interface {
	Grant(ctx context.Context, dashboardID, userID uuid.UUID, level model.PermissionLevel) error
	Revoke(ctx context.Context, dashboardID, userID uuid.UUID) error
	ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]model.DashboardAccess, error)
}

type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Permissions is the part of the permission resolver handlers rely on.
type Permissions interface {
	RoleChecker
	DashboardLevel(ctx context.Context, user *model.User, dashboardID uuid.UUID) (model.PermissionLevel, error)
	RequireDashboardPermission(ctx context.Context, user *model.User, dashboardID uuid.UUID, required model.PermissionLevel) error
	RequireKpiAccess(ctx context.Context, user *model.User, kpiID uuid.UUID) error
	RequireKpiWrite(ctx context.Context, user *model.User, kpiID uuid.UUID) (*model.Kpi, error)
}

type DashboardHandler struct {
	dashboards DashboardStore
	access     AccessStore
	users      UserFinder
	perms      Permissions
	log        *logger.Logger
}

func NewDashboardHandler(dashboards DashboardStore, access AccessStore, users UserFinder, perms Permissions, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		access:     access,
		users:      users,
		perms:      perms,
		log:        log,
	}
}

type DashboardRequest struct {
	Name   string         `json:"name" binding:"required,max=255"`
	Layout []model.Widget `json:"layout"`
}

type DashboardResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	OwnerID   string         `json:"owner_id"`
	Layout    []model.Widget `json:"layout"`
	Level     string         `json:"level,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

type AddViewerRequest struct {
	Email string `json:"email" binding:"required,email"`
	Level string `json:"level" binding:"omitempty,oneof=viewer editor"`
}

type AccessResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Level  string `json:"level"`
}

func toDashboardResponse(d *model.Dashboard, level model.PermissionLevel) DashboardResponse {
	layout := d.Layout
	if layout == nil {
		layout = []model.Widget{}
	}
	return DashboardResponse{
		ID:        d.ID.String(),
		Name:      d.Name,
		OwnerID:   d.OwnerID.String(),
		Layout:    layout,
		Level:     string(level),
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
	}
}

func toDashboardResponses(dashboards []model.Dashboard, level model.PermissionLevel) []DashboardResponse {
	out := make([]DashboardResponse, 0, len(dashboards))
	for i := range dashboards {
		out = append(out, toDashboardResponse(&dashboards[i], level))
	}
	return out
}

// checkLayout rejects widgets pointing at KPIs that do not exist or that
// the user cannot read.
func (h *DashboardHandler) checkLayout(ctx context.Context, user *model.User, layout []model.Widget) error {
	seen := make(map[uuid.UUID]bool, len(layout))
	for _, w := range layout {
		if w.KpiID == uuid.Nil {
			return apperr.Validation("widget is missing kpi_id")
		}
		if w.Position < 0 {
			return apperr.Validation("widget position must not be negative")
		}
		if seen[w.KpiID] {
			continue
		}
		seen[w.KpiID] = true

		if err := h.perms.RequireKpiAccess(ctx, user, w.KpiID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Validation("widget references unknown kpi %s", w.KpiID)
			}
			return err
		}
	}
	return nil
}

// Create adds a dashboard owned by the caller. Editors and admins only.
//
// @Summary   Create a dashboard
// @Tags      Dashboards
// @Security  BearerAuth
// @Param     request body DashboardRequest true "Dashboard"
// @Success   201 {object} DashboardResponse
// @Router    /dashboards [post]
func (h *DashboardHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.perms.RequireRole(user, model.RoleEditor, model.RoleAdmin); err != nil {
		respondError(c, h.log, err)
		return
	}

	var req DashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if err := h.checkLayout(c.Request.Context(), user, req.Layout); err != nil {
		respondError(c, h.log, err)
		return
	}

	dashboard := &model.Dashboard{
		ID:      uuid.New(),
		Name:    strings.TrimSpace(req.Name),
		Layout:  req.Layout,
		OwnerID: user.ID,
	}
	if err := h.dashboards.Create(c.Request.Context(), dashboard); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, toDashboardResponse(dashboard, model.LevelOwner))
}

// GetAll lists the caller's own dashboards. Admins may pass all=true to
// list every dashboard.
func (h *DashboardHandler) GetAll(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var (
		dashboards []model.Dashboard
		err        error
	)
	if c.Query("all") == "true" && user.IsAdmin() {
		dashboards, err = h.dashboards.GetAll(c.Request.Context())
	} else {
		dashboards, err = h.dashboards.GetOwned(c.Request.Context(), user.ID)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toDashboardResponses(dashboards, model.LevelOwner))
}

// GetShared lists dashboards the caller reaches through a grant.
func (h *DashboardHandler) GetShared(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	dashboards, err := h.dashboards.GetShared(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toDashboardResponses(dashboards, ""))
}

// GetByID returns one dashboard with the caller's effective level.
//
// @Summary   Get a dashboard
// @Tags      Dashboards
// @Security  BearerAuth
// @Param     id path string true "Dashboard ID"
// @Success   200 {object} DashboardResponse
// @Failure   403 {object} map[string]string
// @Router    /dashboards/{id} [get]
func (h *DashboardHandler) GetByID(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	level, err := h.perms.DashboardLevel(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !level.Satisfies(model.LevelViewer) {
		respondError(c, h.log, fmt.Errorf("%w: no access to dashboard %s", apperr.ErrAccessDenied, id))
		return
	}

	dashboard, err := h.dashboards.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toDashboardResponse(dashboard, level))
}

// Update renames the dashboard and replaces its layout. Owner only.
func (h *DashboardHandler) Update(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireDashboardPermission(c.Request.Context(), user, id, model.LevelOwner); err != nil {
		respondError(c, h.log, err)
		return
	}

	var req DashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	if err := h.checkLayout(c.Request.Context(), user, req.Layout); err != nil {
		respondError(c, h.log, err)
		return
	}

	dashboard, err := h.dashboards.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	dashboard.Name = strings.TrimSpace(req.Name)
	dashboard.Layout = req.Layout
	if err := h.dashboards.Update(c.Request.Context(), dashboard); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toDashboardResponse(dashboard, model.LevelOwner))
}

// Delete removes the dashboard with its grants and share links. Owner only.
func (h *DashboardHandler) Delete(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireDashboardPermission(c.Request.Context(), user, id, model.LevelOwner); err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.dashboards.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("dashboard deleted", "dashboard_id", id.String(), "user_id", user.ID.String())
	c.Status(http.StatusNoContent)
}

// AddViewer grants a registered user access by email.
//
// @Summary   Grant dashboard access
// @Tags      Dashboard Sharing
// @Security  BearerAuth
// @Param     id path string true "Dashboard ID"
// @Param     request body AddViewerRequest true "Grantee"
// @Success   200 {object} AccessResponse
// @Router    /dashboards/{id}/viewers [post]
func (h *DashboardHandler) AddViewer(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireDashboardPermission(c.Request.Context(), user, id, model.LevelOwner); err != nil {
		respondError(c, h.log, err)
		return
	}

	var req AddViewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	level := model.LevelViewer
	if req.Level != "" {
		level = model.PermissionLevel(req.Level)
	}

	target, err := h.users.FindByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	dashboard, err := h.dashboards.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if target.ID == dashboard.OwnerID {
		badRequest(c, "Cannot share a dashboard with its owner")
		return
	}

	if err := h.access.Grant(c.Request.Context(), id, target.ID, level); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info("dashboard access granted",
		"dashboard_id", id.String(),
		"grantee_id", target.ID.String(),
		"level", string(level),
		"user_id", user.ID.String(),
	)
	c.JSON(http.StatusOK, AccessResponse{
		UserID: target.ID.String(),
		Email:  target.Email,
		Name:   target.Name,
		Level:  string(level),
	})
}

// RemoveViewer revokes a user's grant. Owner only.
func (h *DashboardHandler) RemoveViewer(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}
	if err := h.perms.RequireDashboardPermission(c.Request.Context(), user, id, model.LevelOwner); err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.access.Revoke(c.Request.Context(), id, targetID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListViewers returns every explicit grant on the dashboard. Owner only.
func (h *DashboardHandler) ListViewers(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireDashboardPermission(c.Request.Context(), user, id, model.LevelOwner); err != nil {
		respondError(c, h.log, err)
		return
	}

	grants, err := h.access.ListByDashboard(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]AccessResponse, 0, len(grants))
	for _, g := range grants {
		out = append(out, AccessResponse{
			UserID: g.UserID.String(),
			Email:  g.User.Email,
			Name:   g.User.Name,
			Level:  string(g.Level),
		})
	}
	c.JSON(http.StatusOK, out)
}
