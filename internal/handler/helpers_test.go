package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"kpiboard/internal/middleware"
	"kpiboard/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockPermissions struct {
	mock.Mock
}

func (m *MockPermissions) RequireRole(user *model.User, roles ...model.Role) error {
	args := m.Called(user, roles)
	return args.Error(0)
}

func (m *MockPermissions) DashboardLevel(ctx context.Context, user *model.User, dashboardID uuid.UUID) (model.PermissionLevel, error) {
	args := m.Called(ctx, user, dashboardID)
	return args.Get(0).(model.PermissionLevel), args.Error(1)
}

func (m *MockPermissions) RequireDashboardPermission(ctx context.Context, user *model.User, dashboardID uuid.UUID, required model.PermissionLevel) error {
	args := m.Called(ctx, user, dashboardID, required)
	return args.Error(0)
}

func (m *MockPermissions) RequireKpiAccess(ctx context.Context, user *model.User, kpiID uuid.UUID) error {
	args := m.Called(ctx, user, kpiID)
	return args.Error(0)
}

func (m *MockPermissions) RequireKpiWrite(ctx context.Context, user *model.User, kpiID uuid.UUID) (*model.Kpi, error) {
	args := m.Called(ctx, user, kpiID)
	kpi := args.Get(0)
	if kpi == nil {
		return nil, args.Error(1)
	}
	return kpi.(*model.Kpi), args.Error(1)
}

// newRouter returns a test engine that authenticates every request as user.
func newRouter(user *model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if user != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.UserIDKey, user.ID)
			c.Set(middleware.CurrentUserKey, user)
			c.Next()
		})
	}
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decode[T any](resp *httptest.ResponseRecorder) T {
	var out T
	_ = json.Unmarshal(resp.Body.Bytes(), &out)
	return out
}
