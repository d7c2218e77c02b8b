// Package sharelink issues and redeems time-limited, single-use share links.
// A link is active until it is redeemed or expires; redemption converts it
// into a permanent viewer grant and deletes it, expiry leaves it for the
// periodic cleanup.
package sharelink

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"kpiboard/internal/apperr"
	"kpiboard/internal/clock"
	"kpiboard/internal/logger"
	"kpiboard/internal/metrics"
	"kpiboard/internal/model"

	"github.com/google/uuid"
)

// TokenBytes is the amount of randomness in every share token.
const TokenBytes = 32

type TokenStore interface {
	Create(ctx context.Context, token *model.ShareToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ShareToken, error)
	ListActive(ctx context.Context, dashboardID uuid.UUID, now time.Time) ([]model.ShareToken, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Redeem atomically deletes the unexpired token and grants userID
	// viewer access to its dashboard. It fails with an
	// apperr.ErrInvalidOrExpiredToken error when no such token exists.
	Redeem(ctx context.Context, token string, userID uuid.UUID, now time.Time) (*model.ShareToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Authorizer interface {
	RequireDashboardPermission(ctx context.Context, user *model.User, dashboardID uuid.UUID, required model.PermissionLevel) error
}

type Config struct {
	DefaultTTLDays int
	MaxTTLDays     int
}

type Service struct {
	tokens TokenStore
	auth   Authorizer
	clock  clock.Clock
	random io.Reader
	cfg    Config
	logger *logger.Logger
}

// NewService wires the lifecycle. A nil random source falls back to
// crypto/rand.
func NewService(tokens TokenStore, auth Authorizer, clk clock.Clock, random io.Reader, cfg Config, log *logger.Logger) *Service {
	if random == nil {
		random = rand.Reader
	}
	if cfg.DefaultTTLDays <= 0 {
		cfg.DefaultTTLDays = 7
	}
	if cfg.MaxTTLDays < cfg.DefaultTTLDays {
		cfg.MaxTTLDays = 365
	}
	return &Service{
		tokens: tokens,
		auth:   auth,
		clock:  clk,
		random: random,
		cfg:    cfg,
		logger: log.With("component", "sharelink"),
	}
}

// Generate issues a link to the dashboard valid for ttlDays. Only the
// dashboard owner or an admin may do so. A ttlDays of zero or less selects
// the configured default.
func (s *Service) Generate(ctx context.Context, user *model.User, dashboardID uuid.UUID, ttlDays int) (*model.ShareToken, error) {
	if err := s.auth.RequireDashboardPermission(ctx, user, dashboardID, model.LevelOwner); err != nil {
		return nil, err
	}
	if ttlDays <= 0 {
		ttlDays = s.cfg.DefaultTTLDays
	}
	if ttlDays > s.cfg.MaxTTLDays {
		return nil, apperr.Validation("ttl of %d days exceeds the maximum of %d", ttlDays, s.cfg.MaxTTLDays)
	}

	secret, err := s.newSecret()
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	token := &model.ShareToken{
		ID:          uuid.New(),
		DashboardID: dashboardID,
		Token:       secret,
		CreatedBy:   user.ID,
		ExpiresAt:   now.AddDate(0, 0, ttlDays),
		CreatedAt:   now,
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("store share link: %w", err)
	}

	metrics.ShareLinksGeneratedTotal.Inc()
	s.logger.Info("share link generated",
		"share_link_id", token.ID.String(),
		"dashboard_id", dashboardID.String(),
		"user_id", user.ID.String(),
		"expires_at", token.ExpiresAt,
	)
	return token, nil
}

// Redeem consumes the link and returns the dashboard the user can now view.
// A link redeems exactly once; every later attempt fails with
// apperr.ErrInvalidOrExpiredToken.
func (s *Service) Redeem(ctx context.Context, user *model.User, token string) (uuid.UUID, error) {
	if user == nil {
		return uuid.Nil, apperr.ErrAuthenticationRequired
	}
	if token == "" {
		metrics.ShareLinkRedemptionsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
		return uuid.Nil, apperr.ErrInvalidOrExpiredToken
	}

	redeemed, err := s.tokens.Redeem(ctx, token, user.ID, s.clock.Now())
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
			metrics.ShareLinkRedemptionsTotal.WithLabelValues(metrics.ResultInvalid).Inc()
			return uuid.Nil, err
		}
		metrics.ShareLinkRedemptionsTotal.WithLabelValues(metrics.ResultError).Inc()
		return uuid.Nil, fmt.Errorf("redeem share link: %w", err)
	}

	metrics.ShareLinkRedemptionsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	s.logger.Info("share link redeemed",
		"share_link_id", redeemed.ID.String(),
		"dashboard_id", redeemed.DashboardID.String(),
		"user_id", user.ID.String(),
	)
	return redeemed.DashboardID, nil
}

// IsExpired reports whether the link is past its expiry right now.
func (s *Service) IsExpired(token *model.ShareToken) bool {
	return token.IsExpired(s.clock.Now())
}

// ListActive returns the dashboard's links that can still be redeemed.
func (s *Service) ListActive(ctx context.Context, user *model.User, dashboardID uuid.UUID) ([]model.ShareToken, error) {
	if err := s.auth.RequireDashboardPermission(ctx, user, dashboardID, model.LevelOwner); err != nil {
		return nil, err
	}
	return s.tokens.ListActive(ctx, dashboardID, s.clock.Now())
}

// Revoke deletes an outstanding link before it is used.
func (s *Service) Revoke(ctx context.Context, user *model.User, tokenID uuid.UUID) error {
	if user == nil {
		return apperr.ErrAuthenticationRequired
	}
	token, err := s.tokens.GetByID(ctx, tokenID)
	if err != nil {
		return err
	}
	if err := s.auth.RequireDashboardPermission(ctx, user, token.DashboardID, model.LevelOwner); err != nil {
		return err
	}
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		return err
	}
	s.logger.Info("share link revoked", "share_link_id", tokenID.String(), "user_id", user.ID.String())
	return nil
}

// CleanupExpired deletes every expired link and returns how many were removed.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		metrics.ShareLinkCleanupErrorsTotal.Inc()
		return 0, fmt.Errorf("delete expired share links: %w", err)
	}
	metrics.ShareLinksExpiredTotal.Add(float64(n))
	return n, nil
}

func (s *Service) newSecret() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
