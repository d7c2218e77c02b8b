// Package permission decides whether a user may view or change a dashboard
// or KPI. Admins bypass every check, owners hold the highest level on what
// they own, everyone else needs an explicit dashboard grant.
package permission

import (
	"context"
	"fmt"

	"kpiboard/internal/apperr"
	"kpiboard/internal/metrics"
	"kpiboard/internal/model"

	"github.com/google/uuid"
)

type DashboardStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Dashboard, error)
	// KpiVisibleTo reports whether the KPI sits on a dashboard the user
	// owns or holds a grant on.
	KpiVisibleTo(ctx context.Context, userID, kpiID uuid.UUID) (bool, error)
}

type AccessStore interface {
	// GetLevel returns "" when the user has no grant on the dashboard.
	GetLevel(ctx context.Context, dashboardID, userID uuid.UUID) (model.PermissionLevel, error)
}

type KpiStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Kpi, error)
}

type Resolver struct {
	dashboards DashboardStore
	access     AccessStore
	kpis       KpiStore
}

func NewResolver(dashboards DashboardStore, access AccessStore, kpis KpiStore) *Resolver {
	return &Resolver{
		dashboards: dashboards,
		access:     access,
		kpis:       kpis,
	}
}

// DashboardLevel returns the effective level the user holds on the
// dashboard, or "" when the user has none.
func (r *Resolver) DashboardLevel(ctx context.Context, user *model.User, dashboardID uuid.UUID) (model.PermissionLevel, error) {
	if user == nil {
		return "", nil
	}
	if user.IsAdmin() {
		return model.LevelOwner, nil
	}

	dashboard, err := r.dashboards.GetByID(ctx, dashboardID)
	if err != nil {
		return "", err
	}
	if dashboard.OwnerID == user.ID {
		return model.LevelOwner, nil
	}

	level, err := r.access.GetLevel(ctx, dashboardID, user.ID)
	if err != nil {
		return "", fmt.Errorf("look up grant on dashboard %s: %w", dashboardID, err)
	}
	return level, nil
}

// HasDashboardPermission reports whether the user holds at least the
// required level on the dashboard.
func (r *Resolver) HasDashboardPermission(ctx context.Context, user *model.User, dashboardID uuid.UUID, required model.PermissionLevel) (bool, error) {
	if !required.IsValid() {
		return false, apperr.Validation("unknown permission level %q", required)
	}

	level, err := r.DashboardLevel(ctx, user, dashboardID)
	if err != nil {
		record("dashboard", false, err)
		return false, err
	}
	allowed := level.Satisfies(required)
	record("dashboard", allowed, nil)
	return allowed, nil
}

// HasKpiAccess reports whether the user may read the KPI: admins, the
// KPI owner and anyone who can see a dashboard whose layout uses the KPI.
func (r *Resolver) HasKpiAccess(ctx context.Context, user *model.User, kpiID uuid.UUID) (bool, error) {
	allowed, err := r.hasKpiAccess(ctx, user, kpiID)
	record("kpi", allowed, err)
	return allowed, err
}

func (r *Resolver) hasKpiAccess(ctx context.Context, user *model.User, kpiID uuid.UUID) (bool, error) {
	if user == nil {
		return false, nil
	}
	if user.IsAdmin() {
		return true, nil
	}

	kpi, err := r.kpis.GetByID(ctx, kpiID)
	if err != nil {
		return false, err
	}
	if kpi.OwnerID == user.ID {
		return true, nil
	}

	visible, err := r.dashboards.KpiVisibleTo(ctx, user.ID, kpiID)
	if err != nil {
		return false, fmt.Errorf("resolve dashboards using kpi %s: %w", kpiID, err)
	}
	return visible, nil
}

// RequireRole fails unless the user holds one of roles.
func (r *Resolver) RequireRole(user *model.User, roles ...model.Role) error {
	if user == nil {
		return apperr.ErrAuthenticationRequired
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%w: role %s may not perform this action", apperr.ErrAccessDenied, user.Role)
}

// RequireDashboardPermission is HasDashboardPermission that turns a
// negative answer into an error.
func (r *Resolver) RequireDashboardPermission(ctx context.Context, user *model.User, dashboardID uuid.UUID, required model.PermissionLevel) error {
	if user == nil {
		return apperr.ErrAuthenticationRequired
	}
	ok, err := r.HasDashboardPermission(ctx, user, dashboardID, required)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s level required on dashboard %s", apperr.ErrAccessDenied, required, dashboardID)
	}
	return nil
}

// RequireKpiAccess is HasKpiAccess that turns a negative answer into an error.
func (r *Resolver) RequireKpiAccess(ctx context.Context, user *model.User, kpiID uuid.UUID) error {
	if user == nil {
		return apperr.ErrAuthenticationRequired
	}
	ok, err := r.HasKpiAccess(ctx, user, kpiID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: kpi %s", apperr.ErrAccessDenied, kpiID)
	}
	return nil
}

// RequireKpiWrite allows changes to a KPI and its entries only to the KPI
// owner or an admin. It returns the loaded KPI.
func (r *Resolver) RequireKpiWrite(ctx context.Context, user *model.User, kpiID uuid.UUID) (*model.Kpi, error) {
	if user == nil {
		return nil, apperr.ErrAuthenticationRequired
	}
	kpi, err := r.kpis.GetByID(ctx, kpiID)
	if err != nil {
		record("kpi_write", false, err)
		return nil, err
	}
	if !user.IsAdmin() && kpi.OwnerID != user.ID {
		record("kpi_write", false, nil)
		return nil, fmt.Errorf("%w: only the owner may modify kpi %s", apperr.ErrAccessDenied, kpiID)
	}
	record("kpi_write", true, nil)
	return kpi, nil
}

func record(resource string, allowed bool, err error) {
	result := metrics.ResultDenied
	switch {
	case err != nil:
		result = metrics.ResultError
	case allowed:
		result = metrics.ResultAllowed
	}
	metrics.PermissionChecksTotal.WithLabelValues(resource, result).Inc()
}
