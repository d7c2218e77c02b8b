package repository_test

import (
	"context"
	"errors"
	"testing"

	"kpiboard/internal/apperr"
	"kpiboard/internal/model"
	"kpiboard/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardRepository_Create_IndexesWidgets(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewDashboardRepository(gormDB)

	dashboardID, kpiA, kpiB := uuid.New(), uuid.New(), uuid.New()
	dashboard := &model.Dashboard{
		ID:      dashboardID,
		Name:    "Sales",
		OwnerID: uuid.New(),
		Layout: []model.Widget{
			{KpiID: kpiA, Position: 0},
			{KpiID: kpiB, Position: 1},
			{KpiID: kpiA, Position: 2},
		},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "dashboards"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(dashboardID.String()))
	mock.ExpectExec(`DELETE FROM "dashboard_widgets" WHERE dashboard_id = `).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "dashboard_widgets"`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), dashboard)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_GetByID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewDashboardRepository(gormDB)

	mock.ExpectQuery(`SELECT .* FROM "dashboards" WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	dashboard, err := repo.GetByID(context.Background(), uuid.New())

	assert.Nil(t, dashboard)
	assert.True(t, errors.Is(err, repository.ErrDashboardNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_Delete_NotFoundRollsBack(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewDashboardRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "dashboard_access"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "share_tokens"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "dashboard_widgets"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM "dashboards"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), uuid.New())

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDashboardRepository_KpiVisibleTo(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewDashboardRepository(gormDB)

	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	visible, err := repo.KpiVisibleTo(context.Background(), uuid.New(), uuid.New())

	require.NoError(t, err)
	assert.True(t, visible)
	assert.NoError(t, mock.ExpectationsWereMet())
}
