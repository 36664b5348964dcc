package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gym-contracts-backend/internal/api"
	"gym-contracts-backend/internal/calendar"
	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/db"
	"gym-contracts-backend/internal/eligibility"
	"gym-contracts-backend/internal/lifecycle"
	"gym-contracts-backend/internal/model"
	"gym-contracts-backend/internal/store"
	"gym-contracts-backend/internal/sweeper"
)

// TestContractLifecycle runs a contract through suspension, early stop, a
// scheduled suspension picked up by the sweeper, enrollment checks and a
// scheduled cancellation, verifying the database state at each step.
func TestContractLifecycle(t *testing.T) {
	// --- Test Setup ---

	// 1. Setup an in-memory SQLite database for testing.
	testDB, err := gorm.Open(sqlite.Open("file:contract_lifecycle?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to the in-memory database")
	sqlDB, _ := testDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, db.Migrate(testDB))

	ctx := context.Background()
	d := calendar.MustParse
	st := store.NewGormStore(testDB)

	require.NoError(t, st.CreateContract(ctx, contract.Instance{
		ID:        "ct-1",
		ClientID:  "cl-1",
		Status:    contract.StatusActive,
		StartDate: d("2025-01-01"),
		EndDate:   d("2025-06-30"),
		Terms: contract.Terms{
			AllowSuspension:      true,
			SuspensionMaxDays:    30,
			AllowedWeekDays:      []int{1, 3, 5},
			MaxWeeklyEnrollments: 2,
		},
	}))
	monday := 1
	require.NoError(t, testDB.Create(&model.Enrollment{
		ID: "e-1", ClientID: "cl-1", ActivityID: "pilates", Status: "Ativo", Weekday: &monday,
	}).Error)

	serviceOn := func(day string) *lifecycle.Service {
		return lifecycle.NewService(st, calendar.FixedDay(d(day)), nil, zap.NewNop())
	}
	var afterSweep func(contract.Instance)
	sweepOn := func(day string) sweeper.Report {
		life := serviceOn(day)
		if afterSweep != nil {
			life.OnSweepCommit(afterSweep)
		}
		return sweeper.NewService(st, life, nil, time.Minute, time.Minute, zap.NewNop()).SweepOnce(ctx)
	}
	loadRow := func() model.ClientContract {
		var row model.ClientContract
		require.NoError(t, testDB.First(&row, "id = ?", "ct-1").Error)
		return row
	}

	// --- Step 1: immediate suspension, stopped early ---
	svc := serviceOn("2025-05-01")
	sched, err := svc.ScheduleSuspension(ctx, "ct-1", contract.SuspensionRequest{
		StartDate: d("2025-05-01"),
		EndDate:   d("2025-05-10"),
		Reason:    "travel",
	})
	require.NoError(t, err)
	assert.Equal(t, d("2025-07-10"), sched.Contract.EndDate)

	row := loadRow()
	assert.Equal(t, "suspended", row.Status)
	assert.Equal(t, 10, row.TotalSuspendedDays)
	assert.Equal(t, int64(2), row.Version)

	stop, err := serviceOn("2025-05-04").StopSuspension(ctx, "ct-1", sched.Suspension.ID, d("2025-05-04"))
	require.NoError(t, err)
	assert.Equal(t, 6, stop.UnusedDays)

	row = loadRow()
	assert.Equal(t, "active", row.Status)
	assert.Equal(t, "2025-07-04", calendar.FromTime(row.EndDate).String())
	assert.Equal(t, 4, row.TotalSuspendedDays)

	var stored model.Suspension
	require.NoError(t, testDB.First(&stored, "id = ?", sched.Suspension.ID).Error)
	assert.Equal(t, "stopped", stored.Status)
	assert.Equal(t, 4, stored.DaysUsed)
	assert.Equal(t, "2025-05-03", calendar.FromTime(stored.EndDate).String())

	// --- Step 2: future suspension picked up by the sweeper ---
	future, err := svc.ScheduleSuspension(ctx, "ct-1", contract.SuspensionRequest{
		StartDate: d("2025-06-10"),
		EndDate:   d("2025-06-14"),
	})
	require.NoError(t, err)
	assert.Equal(t, contract.SuspensionScheduled, future.Suspension.Status)
	assert.Equal(t, 5, loadRow().PendingSuspensionDays)

	_, err = svc.ScheduleSuspension(ctx, "ct-1", contract.SuspensionRequest{
		StartDate: d("2025-09-01"),
		EndDate:   d("2025-09-30"),
	})
	assert.ErrorIs(t, err, contract.ErrSuspensionLimitExceeded)

	_, err = svc.ScheduleSuspension(ctx, "ct-1", contract.SuspensionRequest{
		StartDate: d("2025-06-12"),
		EndDate:   d("2025-06-16"),
	})
	assert.ErrorIs(t, err, contract.ErrInvalidRange)
	assert.Equal(t, 5, loadRow().PendingSuspensionDays)

	assert.Equal(t, sweeper.Report{}, sweepOn("2025-06-09"))
	assert.Equal(t, sweeper.Report{Activated: 1}, sweepOn("2025-06-10"))

	row = loadRow()
	assert.Equal(t, "suspended", row.Status)
	assert.Equal(t, 0, row.PendingSuspensionDays)
	assert.Equal(t, 9, row.TotalSuspendedDays)
	assert.Equal(t, "2025-07-09", calendar.FromTime(row.EndDate).String())

	assert.Equal(t, sweeper.Report{Completed: 1}, sweepOn("2025-06-15"))
	assert.Equal(t, "active", loadRow().Status)

	// --- Step 3: enrollment eligibility ---
	wednesday, friday := 3, 5
	svc = serviceOn("2025-06-16")
	dec, err := svc.ValidateEnrollment(ctx, eligibility.Request{
		ClientID: "cl-1",
		Sessions: []eligibility.Session{{ClassID: "yoga", Weekday: &wednesday}},
		Kind:     eligibility.KindRegular,
	})
	require.NoError(t, err)
	require.True(t, dec.OK, "unexpected rejection: %s", dec.Message)
	assert.Equal(t, "ct-1", dec.Governing.ContractID)
	assert.Equal(t, d("2025-07-09"), dec.Governing.EndDate)

	dec, err = svc.ValidateEnrollment(ctx, eligibility.Request{
		ClientID: "cl-1",
		Sessions: []eligibility.Session{{ClassID: "yoga", Weekday: &wednesday}, {ClassID: "spin", Weekday: &friday}},
		Kind:     eligibility.KindRegular,
	})
	require.NoError(t, err)
	assert.False(t, dec.OK)
	assert.Equal(t, contract.CodeWeeklyCapExceeded, dec.Code)

	// --- Step 4: scheduled cancellation over HTTP, finalized by the sweeper ---
	gin.SetMode(gin.TestMode)
	responses := api.NewResponseCache(time.Minute)
	router := api.NewRouter(svc, st, nil, api.RouterConfig{RateLimit: 100, Burst: 100, CacheTTL: time.Minute, Responses: responses}, zap.NewNop())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/contracts/ct-1/cancel",
		strings.NewReader(`{"reason":"moving away","schedule":true,"cancelDate":"2025-06-30"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	row = loadRow()
	assert.Equal(t, "scheduled_cancellation", row.Status)
	require.NotNil(t, row.CancelDate)

	// Warm the response cache, then let the sweeper finalize behind it.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/contracts/ct-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"scheduled_cancellation"`)
	afterSweep = api.InvalidateContract(responses)

	assert.Equal(t, sweeper.Report{}, sweepOn("2025-06-29"))
	assert.Equal(t, sweeper.Report{Finalized: 1}, sweepOn("2025-06-30"))
	assert.Equal(t, "canceled", loadRow().Status)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/contracts/ct-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"), "the sweep must have dropped the cached view")
	var view map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "canceled", view["status"])
	assert.Equal(t, "moving away", view["cancelReason"])

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/contracts/ct-1/suspensions",
		strings.NewReader(`{"startDate":"2025-07-01","endDate":"2025-07-02"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"ContractAlreadyTerminal"`)
}
