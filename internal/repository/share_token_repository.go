package repository

import (
	"context"
	"time"

	"kpiboard/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShareTokenRepository struct {
	db *gorm.DB
}

func NewShareTokenRepository(db *gorm.DB) *ShareTokenRepository {
	return &ShareTokenRepository{db: db}
}

// Create stores a new token. A clash on the token string yields ErrTokenCollision.
func (r *ShareTokenRepository) Create(ctx context.Context, token *model.ShareToken) error {
	return translate(r.db.WithContext(ctx).Create(token).Error, nil, ErrTokenCollision)
}

func (r *ShareTokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ShareToken, error) {
	var token model.ShareToken
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&token).Error; err != nil {
		return nil, translate(err, ErrShareTokenNotFound, nil)
	}
	return &token, nil
}

// ListActive returns the dashboard's tokens that are still redeemable at now.
func (r *ShareTokenRepository) ListActive(ctx context.Context, dashboardID uuid.UUID, now time.Time) ([]model.ShareToken, error) {
	var tokens []model.ShareToken
	err := r.db.WithContext(ctx).
		Where("dashboard_id = ? AND expires_at > ?", dashboardID, now).
		Order("expires_at").
		Find(&tokens).Error
	return tokens, err
}

// Delete revokes a token by id.
func (r *ShareTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ShareToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrShareTokenNotFound
	}
	return nil
}

// Redeem consumes the token and grants userID viewer access to its
// dashboard, all in one transaction. The conditional delete is the
// linearization point: of two concurrent redemptions only the one whose
// DELETE removes the row proceeds, the other sees zero rows and gets
// ErrShareTokenUnavailable. An existing grant is left untouched, so a
// higher level is never downgraded, and the dashboard owner gets no grant.
func (r *ShareTokenRepository) Redeem(ctx context.Context, token string, userID uuid.UUID, now time.Time) (*model.ShareToken, error) {
	var redeemed []model.ShareToken

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Returning{}).
			Where("token = ? AND expires_at > ?", token, now).
			Delete(&redeemed)
		if result.Error != nil {
			return result.Error
		}
		if len(redeemed) == 0 {
			return ErrShareTokenUnavailable
		}

		var dashboard model.Dashboard
		if err := tx.Select("owner_id").Where("id = ?", redeemed[0].DashboardID).Take(&dashboard).Error; err != nil {
			return err
		}
		// owners already hold the highest level
		if dashboard.OwnerID == userID {
			return nil
		}

		grant := model.DashboardAccess{
			ID:          uuid.New(),
			DashboardID: redeemed[0].DashboardID,
			UserID:      userID,
			Level:       model.LevelViewer,
		}
		return tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "dashboard_id"}, {Name: "user_id"}},
				DoNothing: true,
			}).
			Create(&grant).Error
	})
	if err != nil {
		return nil, err
	}
	return &redeemed[0], nil
}

// DeleteExpired removes every token whose expiry is at or before now and
// reports how many were removed.
func (r *ShareTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.ShareToken{})
	return result.RowsAffected, result.Error
}
