package handler_test

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"kpiboard/internal/aggregation"
	"kpiboard/internal/apperr"
	"kpiboard/internal/handler"
	"kpiboard/internal/logger"
	"kpiboard/internal/model"
	"kpiboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockKpiStore struct {
	mock.Mock
}

func (m *MockKpiStore) Create(ctx context.Context, kpi *model.Kpi) error {
	return m.Called(ctx, kpi).Error(0)
}

func (m *MockKpiStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Kpi, error) {
	args := m.Called(ctx, id)
	kpi := args.Get(0)
	if kpi == nil {
		return nil, args.Error(1)
	}
	return kpi.(*model.Kpi), args.Error(1)
}

func (m *MockKpiStore) GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Kpi, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]model.Kpi), args.Error(1)
}

func (m *MockKpiStore) Update(ctx context.Context, kpi *model.Kpi) error {
	return m.Called(ctx, kpi).Error(0)
}

func (m *MockKpiStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockEntryStore struct {
	mock.Mock
}

func (m *MockEntryStore) Create(ctx context.Context, entry *model.KpiEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockEntryStore) GetByID(ctx context.Context, id uuid.UUID) (*model.KpiEntry, error) {
	args := m.Called(ctx, id)
	entry := args.Get(0)
	if entry == nil {
		return nil, args.Error(1)
	}
	return entry.(*model.KpiEntry), args.Error(1)
}

func (m *MockEntryStore) ListByKpi(ctx context.Context, kpiID uuid.UUID, start, end *time.Time) ([]model.KpiEntry, error) {
	args := m.Called(ctx, kpiID, start, end)
	return args.Get(0).([]model.KpiEntry), args.Error(1)
}

func (m *MockEntryStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type kpiFixture struct {
	router  *gin.Engine
	kpis    *MockKpiStore
	entries *MockEntryStore
	perms   *MockPermissions
}

func setupKpiTest(user *model.User) kpiFixture {
	f := kpiFixture{
		router:  newRouter(user),
		kpis:    new(MockKpiStore),
		entries: new(MockEntryStore),
		perms:   new(MockPermissions),
	}
	h := handler.NewKpiHandler(f.kpis, f.entries, aggregation.NewEngine(f.entries), f.perms, logger.NewNop())
	f.router.POST("/kpis", h.Create)
	f.router.GET("/kpis", h.GetAll)
	f.router.GET("/kpis/:id", h.GetByID)
	f.router.PUT("/kpis/:id", h.Update)
	f.router.DELETE("/kpis/:id", h.Delete)
	f.router.GET("/kpis/:id/status", h.Status)
	f.router.GET("/kpis/:id/aggregate", h.Aggregate)
	f.router.GET("/kpis/:id/missing-dates", h.MissingDates)
	f.router.POST("/kpis/:id/entries", h.CreateEntry)
	f.router.GET("/kpis/:id/entries", h.ListEntries)
	f.router.DELETE("/entries/:id", h.DeleteEntry)
	return f
}

func ptr(v float64) *float64 { return &v }

func day(s string) time.Time {
	d, _ := time.Parse(model.DateLayout, s)
	return d
}

func salesEntries(kpiID uuid.UUID) []model.KpiEntry {
	return []model.KpiEntry{
		{KpiID: kpiID, Date: day("2024-01-01"), Value: 100},
		{KpiID: kpiID, Date: day("2024-01-03"), Value: 150},
		{KpiID: kpiID, Date: day("2024-01-05"), Value: 200},
		{KpiID: kpiID, Date: day("2024-01-06"), Value: 50},
	}
}

func TestCreateKpi(t *testing.T) {
	editor := &model.User{ID: uuid.New(), Role: model.RoleEditor}
	f := setupKpiTest(editor)
	f.perms.On("RequireRole", editor, mock.Anything).Return(nil)
	f.kpis.On("Create", mock.Anything, mock.MatchedBy(func(k *model.Kpi) bool {
		return k.OwnerID == editor.ID && k.Direction == model.HigherIsBetter
	})).Return(nil)

	resp := doJSON(f.router, http.MethodPost, "/kpis", handler.KpiRequest{
		Name:      "Revenue",
		Direction: "higher_is_better",
		RagRed:    ptr(100),
		RagAmber:  ptr(150),
	})

	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Revenue", decode[handler.KpiResponse](resp).Name)
	f.kpis.AssertExpectations(t)
}

func TestCreateKpi_Invalid(t *testing.T) {
	editor := &model.User{ID: uuid.New(), Role: model.RoleEditor}
	f := setupKpiTest(editor)
	f.perms.On("RequireRole", editor, mock.Anything).Return(nil)

	resp := doJSON(f.router, http.MethodPost, "/kpis", handler.KpiRequest{
		Name:      "Revenue",
		Direction: "higher_is_better",
		RagRed:    ptr(100),
		RagAmber:  ptr(100),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "rag_red and rag_amber must differ")

	resp = doJSON(f.router, http.MethodPost, "/kpis", handler.KpiRequest{
		Name:      "Revenue",
		Direction: "sideways",
		RagRed:    ptr(1),
		RagAmber:  ptr(2),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(f.router, http.MethodPost, "/kpis", map[string]any{"name": "Revenue", "direction": "higher_is_better"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	f.kpis.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetKpi_AccessDenied(t *testing.T) {
	viewer := &model.User{ID: uuid.New(), Role: model.RoleViewer}
	f := setupKpiTest(viewer)
	id := uuid.New()
	f.perms.On("RequireKpiAccess", mock.Anything, viewer, id).Return(apperr.ErrAccessDenied)

	resp := doJSON(f.router, http.MethodGet, "/kpis/"+id.String(), nil)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	f.kpis.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUpdateKpi(t *testing.T) {
	owner := &model.User{ID: uuid.New(), Role: model.RoleEditor}
	f := setupKpiTest(owner)
	kpi := &model.Kpi{ID: uuid.New(), OwnerID: owner.ID, Name: "Old", Direction: model.HigherIsBetter, RagRed: 1, RagAmber: 2}
	f.perms.On("RequireKpiWrite", mock.Anything, owner, kpi.ID).Return(kpi, nil)
	f.kpis.On("Update", mock.Anything, mock.MatchedBy(func(k *model.Kpi) bool {
		return k.Name == "New" && k.Direction == model.LowerIsBetter && k.RagRed == 10
	})).Return(nil)

	resp := doJSON(f.router, http.MethodPut, "/kpis/"+kpi.ID.String(), handler.KpiRequest{
		Name:      "New",
		Direction: "lower_is_better",
		RagRed:    ptr(10),
		RagAmber:  ptr(5),
	})

	assert.Equal(t, http.StatusOK, resp.Code)
	f.kpis.AssertExpectations(t)
}

func TestDeleteKpi_InUse(t *testing.T) {
	owner := &model.User{ID: uuid.New(), Role: model.RoleEditor}
	f := setupKpiTest(owner)
	kpi := &model.Kpi{ID: uuid.New(), OwnerID: owner.ID}
	f.perms.On("RequireKpiWrite", mock.Anything, owner, kpi.ID).Return(kpi, nil)
	f.kpis.On("Delete", mock.Anything, kpi.ID).Return(repository.ErrKpiInUse)

	resp := doJSON(f.router, http.MethodDelete, "/kpis/"+kpi.ID.String(), nil)

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestKpiStatus(t *testing.T) {
	viewer := &model.User{ID: uuid.New(), Role: model.RoleViewer}
	f := setupKpiTest(viewer)
	kpi := &model.Kpi{ID: uuid.New(), Direction: model.HigherIsBetter, RagRed: 100, RagAmber: 150}
	f.perms.On("RequireKpiAccess", mock.Anything, viewer, kpi.ID).Return(nil)
	f.kpis.On("GetByID", mock.Anything, kpi.ID).Return(kpi, nil)
	f.entries.On("ListByKpi", mock.Anything, kpi.ID, (*time.Time)(nil), (*time.Time)(nil)).Return(salesEntries(kpi.ID), nil)

	resp := doJSON(f.router, http.MethodGet, "/kpis/"+kpi.ID.String()+"/status?value=120", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body := decode[handler.StatusResponse](resp)
	require.NotNil(t, body.Status)
	assert.Equal(t, "amber", *body.Status)

	resp = doJSON(f.router, http.MethodGet, "/kpis/"+kpi.ID.String()+"/status", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	body = decode[handler.StatusResponse](resp)
	require.NotNil(t, body.Value)
	assert.Equal(t, 50.0, *body.Value)
	assert.Equal(t, "red", *body.Status)

	resp = doJSON(f.router, http.MethodGet, "/kpis/"+kpi.ID.String()+"/status?value=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	for _, raw := range []string{"NaN", "Inf", "+Inf", "-Inf", "1e400"} {
		resp = doJSON(f.router, http.MethodGet, "/kpis/"+kpi.ID.String()+"/status?value="+url.QueryEscape(raw), nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code, raw)
		assert.Contains(t, resp.Body.String(), "error", raw)
	}
}

func TestKpiStatus_NoData(t *testing.T) {
	viewer := &model.User{ID: uuid.New(), Role: model.RoleViewer}
	f := setupKpiTest(viewer)
	kpi := &model.Kpi{ID: uuid.New(), Direction: model.HigherIsBetter, RagRed: 100, RagAmber: 150}
	f.perms.On("RequireKpiAccess", mock.Anything, viewer, kpi.ID).Return(nil)
	f.kpis.On("GetByID", mock.Anything, kpi.ID).Return(kpi, nil)
	f.entries.On("ListByKpi", mock.Anything, kpi.ID, mock.Anything, mock.Anything).Return([]model.KpiEntry{}, nil)

	resp := doJSON(f.router, http.MethodGet, "/kpis/"+kpi.ID.String()+"/status", nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"kpi_id":"`+kpi.ID.String()+`","value":null,"status":null}`, resp.Body.String())
}

func TestKpiAggregate(t *testing.T) {
	viewer := &model.User{ID: uuid.New(), Role: model.RoleViewer}
	f := setupKpiTest(viewer)
	kpiID := uuid.New()
	f.perms.On("RequireKpiAccess", mock.Anything, viewer, kpiID).Return(nil)
	f.entries.On("ListByKpi", mock.Anything, kpiID, mock.Anything, mock.Anything).Return(salesEntries(kpiID), nil)

	cases := map[string]float64{
		"sum":     500,
		"average": 125,
		"min":     50,
		"max":     200,
		"count":   4,
		"latest":  50,
	}
	for typ, want := range cases {
		resp := doJSON(f.router, http.MethodGet, "/kpis/"+kpiID.String()+"/aggregate?type="+typ+"&start=2024-01-01&end=2024-01-31", nil)
		require.Equal(t, http.StatusOK, resp.Code, typ)
		body := decode[handler.AggregateResponse](resp)
		require.NotNil(t, body.Value, typ)
		assert.Equal(t, want, *body.Value, typ)
		assert.Equal(t, "2024-01-01", *body.Start)
	}

	resp := doJSON(f.router, http.MethodGet, "/kpis/"+kpiID.String()+"/aggregate?type=median", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(f.router, http.MethodGet, "/kpis/"+kpiID.String()+"/aggregate?type=sum&start=2024-13-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(f.router, http.MethodGet, "/kpis/"+kpiID.String()+"/aggregate?type=sum&start=2024-02-01&end=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestKpiMissingDates(t *testing.T) {
	viewer := &model.User{ID: uuid.New(), Role: model.RoleViewer}
	f := setupKpiTest(viewer)
	kpiID := uuid.New()
	f.perms.On("RequireKpiAccess", mock.Anything, viewer, kpiID).Return(nil)
	f.entries.On("ListByKpi", mock.Anything, kpiID, mock.Anything, mock.Anything).Return(salesEntries(kpiID)[:3], nil)

	resp := doJSON(f.router, http.MethodGet, "/kpis/"+kpiID.String()+"/missing-dates?start=2024-01-01&end=2024-01-05", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"kpi_id":"`+kpiID.String()+`","missing_dates":["2024-01-02","2024-01-04"]}`, resp.Body.String())

	resp = doJSON(f.router, http.MethodGet, "/kpis/"+kpiID.String()+"/missing-dates?start=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateEntry(t *testing.T) {
	owner := &model.User{ID: uuid.New(), Role: model.RoleEditor}
	f := setupKpiTest(owner)
	kpi := &model.Kpi{ID: uuid.New(), OwnerID: owner.ID}
	f.perms.On("RequireKpiWrite", mock.Anything, owner, kpi.ID).Return(kpi, nil)
	f.entries.On("Create", mock.Anything, mock.MatchedBy(func(e *model.KpiEntry) bool {
		return e.KpiID == kpi.ID && e.Value == 0 && e.Date.Equal(day("2024-01-02"))
	})).Return(nil)

	resp := doJSON(f.router, http.MethodPost, "/kpis/"+kpi.ID.String()+"/entries", handler.EntryRequest{Date: "2024-01-02", Value: ptr(0)})
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "2024-01-02", decode[handler.EntryResponse](resp).Date)

	resp = doJSON(f.router, http.MethodPost, "/kpis/"+kpi.ID.String()+"/entries", handler.EntryRequest{Date: "02/01/2024", Value: ptr(1)})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = doJSON(f.router, http.MethodPost, "/kpis/"+kpi.ID.String()+"/entries", map[string]string{"date": "2024-01-02"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	f.entries.AssertNumberOfCalls(t, "Create", 1)
}

func TestCreateEntry_NotOwner(t *testing.T) {
	viewer := &model.User{ID: uuid.New(), Role: model.RoleViewer}
	f := setupKpiTest(viewer)
	kpiID := uuid.New()
	f.perms.On("RequireKpiWrite", mock.Anything, viewer, kpiID).Return(nil, apperr.ErrAccessDenied)

	resp := doJSON(f.router, http.MethodPost, "/kpis/"+kpiID.String()+"/entries", handler.EntryRequest{Date: "2024-01-02", Value: ptr(3)})

	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestListAndDeleteEntries(t *testing.T) {
	owner := &model.User{ID: uuid.New(), Role: model.RoleEditor}
	f := setupKpiTest(owner)
	kpi := &model.Kpi{ID: uuid.New(), OwnerID: owner.ID}
	entry := &model.KpiEntry{ID: uuid.New(), KpiID: kpi.ID, Date: day("2024-01-01"), Value: 7}
	f.perms.On("RequireKpiAccess", mock.Anything, owner, kpi.ID).Return(nil)
	f.perms.On("RequireKpiWrite", mock.Anything, owner, kpi.ID).Return(kpi, nil)
	f.entries.On("ListByKpi", mock.Anything, kpi.ID, mock.Anything, mock.Anything).Return([]model.KpiEntry{*entry}, nil)
	f.entries.On("GetByID", mock.Anything, entry.ID).Return(entry, nil)
	f.entries.On("Delete", mock.Anything, entry.ID).Return(nil)

	resp := doJSON(f.router, http.MethodGet, "/kpis/"+kpi.ID.String()+"/entries?start=2024-01-01", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]handler.EntryResponse](resp), 1)

	resp = doJSON(f.router, http.MethodDelete, "/entries/"+entry.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	f.entries.AssertExpectations(t)
}
