package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"kpiboard/internal/logger"
	"kpiboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ShareLinks interface {
	Generate(ctx context.Context, user *model.User, dashboardID uuid.UUID, ttlDays int) (*model.ShareToken, error)
	Redeem(ctx context.Context, user *model.User, token string) (uuid.UUID, error)
	ListActive(ctx context.Context, user *model.User, dashboardID uuid.UUID) ([]model.ShareToken, error)
	Revoke(ctx context.Context, user *model.User, tokenID uuid.UUID) error
}

type ShareLinkHandler struct {
	links ShareLinks
	log   *logger.Logger
}

func NewShareLinkHandler(links ShareLinks, log *logger.Logger) *ShareLinkHandler {
	return &ShareLinkHandler{links: links, log: log}
}

type GenerateShareLinkRequest struct {
	TTLDays int `json:"ttl_days" binding:"gte=0"`
}

type RedeemShareLinkRequest struct {
	Token string `json:"token" binding:"required"`
}

type ShareLinkResponse struct {
	ID          string `json:"id"`
	DashboardID string `json:"dashboard_id"`
	Token       string `json:"token,omitempty"`
	ExpiresAt   string `json:"expires_at"`
	CreatedAt   string `json:"created_at"`
}

// Generate issues a single-use link to the dashboard. The secret appears
// only in this response.
//
// @Summary   Generate a share link
// @Tags      Dashboard Sharing
// @Security  BearerAuth
// @Param     id path string true "Dashboard ID"
// @Param     request body GenerateShareLinkRequest false "Lifetime in days"
// @Success   201 {object} ShareLinkResponse
// @Router    /dashboards/{id}/share-links [post]
func (h *ShareLinkHandler) Generate(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	dashboardID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	// the body is optional; an empty one selects the default lifetime
	var req GenerateShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request")
		return
	}

	token, err := h.links.Generate(c.Request.Context(), user, dashboardID, req.TTLDays)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, ShareLinkResponse{
		ID:          token.ID.String(),
		DashboardID: token.DashboardID.String(),
		Token:       token.Token,
		ExpiresAt:   token.ExpiresAt.Format(time.RFC3339),
		CreatedAt:   token.CreatedAt.Format(time.RFC3339),
	})
}

// List returns the dashboard's outstanding links without their secrets.
func (h *ShareLinkHandler) List(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	dashboardID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	tokens, err := h.links.ListActive(c.Request.Context(), user, dashboardID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]ShareLinkResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, ShareLinkResponse{
			ID:          t.ID.String(),
			DashboardID: t.DashboardID.String(),
			ExpiresAt:   t.ExpiresAt.Format(time.RFC3339),
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *ShareLinkHandler) Revoke(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.links.Revoke(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Redeem consumes a link and grants the caller viewer access.
//
// @Summary   Redeem a share link
// @Tags      Dashboard Sharing
// @Security  BearerAuth
// @Param     request body RedeemShareLinkRequest true "Share token"
// @Success   200 {object} map[string]string
// @Failure   400 {object} map[string]string
// @Router    /share-links/redeem [post]
func (h *ShareLinkHandler) Redeem(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req RedeemShareLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	dashboardID, err := h.links.Redeem(c.Request.Context(), user, req.Token)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboard_id": dashboardID.String()})
}
