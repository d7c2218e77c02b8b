package permission_test

import (
	"context"
	"errors"
	"testing"

	"kpiboard/internal/apperr"
	"kpiboard/internal/model"
	"kpiboard/internal/permission"
	"kpiboard/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDashboardStore struct {
	mock.Mock
}

func (m *MockDashboardStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Dashboard, error) {
	args := m.Called(ctx, id)
	dashboard := args.Get(0)
	if dashboard == nil {
		return nil, args.Error(1)
	}
	return dashboard.(*model.Dashboard), args.Error(1)
}

func (m *MockDashboardStore) KpiVisibleTo(ctx context.Context, userID, kpiID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, kpiID)
	return args.Bool(0), args.Error(1)
}

type MockAccessStore struct {
	mock.Mock
}

func (m *MockAccessStore) GetLevel(ctx context.Context, dashboardID, userID uuid.UUID) (model.PermissionLevel, error) {
	args := m.Called(ctx, dashboardID, userID)
	return args.Get(0).(model.PermissionLevel), args.Error(1)
}

type MockKpiStore struct {
	mock.Mock
}

func (m *MockKpiStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Kpi, error) {
	args := m.Called(ctx, id)
	kpi := args.Get(0)
	if kpi == nil {
		return nil, args.Error(1)
	}
	return kpi.(*model.Kpi), args.Error(1)
}

type fixture struct {
	dashboards *MockDashboardStore
	access     *MockAccessStore
	kpis       *MockKpiStore
	resolver   *permission.Resolver
}

func setup() fixture {
	f := fixture{
		dashboards: new(MockDashboardStore),
		access:     new(MockAccessStore),
		kpis:       new(MockKpiStore),
	}
	f.resolver = permission.NewResolver(f.dashboards, f.access, f.kpis)
	return f
}

func user(role model.Role) *model.User {
	return &model.User{ID: uuid.New(), Role: role}
}

func TestHasDashboardPermission_AdminBypasses(t *testing.T) {
	f := setup()

	ok, err := f.resolver.HasDashboardPermission(context.Background(), user(model.RoleAdmin), uuid.New(), model.LevelOwner)

	require.NoError(t, err)
	assert.True(t, ok)
	f.dashboards.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestHasDashboardPermission_OwnerIgnoresGrants(t *testing.T) {
	f := setup()
	owner := user(model.RoleViewer)
	dashboard := &model.Dashboard{ID: uuid.New(), OwnerID: owner.ID}
	f.dashboards.On("GetByID", mock.Anything, dashboard.ID).Return(dashboard, nil)

	for _, level := range []model.PermissionLevel{model.LevelViewer, model.LevelEditor, model.LevelOwner} {
		ok, err := f.resolver.HasDashboardPermission(context.Background(), owner, dashboard.ID, level)
		require.NoError(t, err)
		assert.True(t, ok, level)
	}
	f.access.AssertNotCalled(t, "GetLevel", mock.Anything, mock.Anything, mock.Anything)
}

func TestHasDashboardPermission_GrantLevels(t *testing.T) {
	f := setup()
	member := user(model.RoleEditor)
	dashboard := &model.Dashboard{ID: uuid.New(), OwnerID: uuid.New()}
	f.dashboards.On("GetByID", mock.Anything, dashboard.ID).Return(dashboard, nil)
	f.access.On("GetLevel", mock.Anything, dashboard.ID, member.ID).Return(model.LevelEditor, nil)

	ok, err := f.resolver.HasDashboardPermission(context.Background(), member, dashboard.ID, model.LevelViewer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasDashboardPermission(context.Background(), member, dashboard.ID, model.LevelEditor)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasDashboardPermission(context.Background(), member, dashboard.ID, model.LevelOwner)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasDashboardPermission_NoGrantDenied(t *testing.T) {
	f := setup()
	stranger := user(model.RoleEditor)
	dashboard := &model.Dashboard{ID: uuid.New(), OwnerID: uuid.New()}
	f.dashboards.On("GetByID", mock.Anything, dashboard.ID).Return(dashboard, nil)
	f.access.On("GetLevel", mock.Anything, dashboard.ID, stranger.ID).Return(model.PermissionLevel(""), nil)

	ok, err := f.resolver.HasDashboardPermission(context.Background(), stranger, dashboard.ID, model.LevelViewer)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasDashboardPermission_UnknownDashboard(t *testing.T) {
	f := setup()
	id := uuid.New()
	f.dashboards.On("GetByID", mock.Anything, id).Return(nil, repository.ErrDashboardNotFound)

	_, err := f.resolver.HasDashboardPermission(context.Background(), user(model.RoleViewer), id, model.LevelViewer)

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRequireDashboardPermission_Errors(t *testing.T) {
	f := setup()
	stranger := user(model.RoleViewer)
	dashboard := &model.Dashboard{ID: uuid.New(), OwnerID: uuid.New()}
	f.dashboards.On("GetByID", mock.Anything, dashboard.ID).Return(dashboard, nil)
	f.access.On("GetLevel", mock.Anything, dashboard.ID, stranger.ID).Return(model.LevelViewer, nil)

	err := f.resolver.RequireDashboardPermission(context.Background(), nil, dashboard.ID, model.LevelViewer)
	assert.True(t, errors.Is(err, apperr.ErrAuthenticationRequired))

	err = f.resolver.RequireDashboardPermission(context.Background(), stranger, dashboard.ID, model.LevelEditor)
	assert.True(t, errors.Is(err, apperr.ErrAccessDenied))

	err = f.resolver.RequireDashboardPermission(context.Background(), stranger, dashboard.ID, model.LevelViewer)
	assert.NoError(t, err)
}

func TestHasKpiAccess(t *testing.T) {
	f := setup()
	owner := user(model.RoleEditor)
	viewer := user(model.RoleViewer)
	outsider := user(model.RoleViewer)
	kpi := &model.Kpi{ID: uuid.New(), OwnerID: owner.ID}
	f.kpis.On("GetByID", mock.Anything, kpi.ID).Return(kpi, nil)
	f.dashboards.On("KpiVisibleTo", mock.Anything, viewer.ID, kpi.ID).Return(true, nil)
	f.dashboards.On("KpiVisibleTo", mock.Anything, outsider.ID, kpi.ID).Return(false, nil)

	ok, err := f.resolver.HasKpiAccess(context.Background(), owner, kpi.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasKpiAccess(context.Background(), viewer, kpi.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.resolver.HasKpiAccess(context.Background(), outsider, kpi.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.resolver.HasKpiAccess(context.Background(), user(model.RoleAdmin), uuid.New())
	require.NoError(t, err)
	assert.True(t, ok)

	err = f.resolver.RequireKpiAccess(context.Background(), outsider, kpi.ID)
	assert.True(t, errors.Is(err, apperr.ErrAccessDenied))
}

func TestHasKpiAccess_StoreFailurePropagates(t *testing.T) {
	f := setup()
	u := user(model.RoleViewer)
	kpi := &model.Kpi{ID: uuid.New(), OwnerID: uuid.New()}
	f.kpis.On("GetByID", mock.Anything, kpi.ID).Return(kpi, nil)
	f.dashboards.On("KpiVisibleTo", mock.Anything, u.ID, kpi.ID).Return(false, assert.AnError)

	ok, err := f.resolver.HasKpiAccess(context.Background(), u, kpi.ID)

	assert.False(t, ok)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRequireKpiWrite(t *testing.T) {
	f := setup()
	owner := user(model.RoleEditor)
	kpi := &model.Kpi{ID: uuid.New(), OwnerID: owner.ID}
	f.kpis.On("GetByID", mock.Anything, kpi.ID).Return(kpi, nil)

	got, err := f.resolver.RequireKpiWrite(context.Background(), owner, kpi.ID)
	require.NoError(t, err)
	assert.Equal(t, kpi, got)

	_, err = f.resolver.RequireKpiWrite(context.Background(), user(model.RoleEditor), kpi.ID)
	assert.True(t, errors.Is(err, apperr.ErrAccessDenied))

	_, err = f.resolver.RequireKpiWrite(context.Background(), user(model.RoleAdmin), kpi.ID)
	assert.NoError(t, err)
}

func TestRequireRole(t *testing.T) {
	f := setup()

	assert.True(t, errors.Is(f.resolver.RequireRole(nil, model.RoleEditor), apperr.ErrAuthenticationRequired))
	assert.True(t, errors.Is(f.resolver.RequireRole(user(model.RoleViewer), model.RoleEditor, model.RoleAdmin), apperr.ErrAccessDenied))
	assert.NoError(t, f.resolver.RequireRole(user(model.RoleEditor), model.RoleEditor, model.RoleAdmin))
}
