package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/propdocs-maintenance/internal/auth"
	"github.com/ukydev/propdocs-maintenance/internal/config"
	"github.com/ukydev/propdocs-maintenance/internal/db/memstore"
	"github.com/ukydev/propdocs-maintenance/internal/maintenance"
	"github.com/ukydev/propdocs-maintenance/internal/middleware"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"github.com/ukydev/propdocs-maintenance/internal/notify"
	"github.com/ukydev/propdocs-maintenance/internal/service"
)

func newTestRouter(t *testing.T) (http.Handler, *auth.Service) {
	t.Helper()
	store := memstore.New()
	engine, err := maintenance.NewEngine(maintenance.DefaultRules(), maintenance.SystemClock{})
	require.NoError(t, err)
	svc := service.New(service.Collections{
		Properties:     store,
		Assets:         store,
		Schedules:      store,
		Tasks:          store,
		ServiceRecords: store,
		Notifications:  store,
		Activity:       store,
	}, engine, nil)
	tokens := auth.NewService("test-secret", time.Hour)
	return newRouter(svc, tokens, nil), tokens
}

func TestRouter_HealthIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_RequiresToken(t *testing.T) {
	router, tokens := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/properties", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tokens.GenerateToken("user-1", "owner@example.com", models.TierFree)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/properties", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router, tokens := newTestRouter(t)
	token, err := tokens.GenerateToken("user-1", "", models.TierFree)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/api/properties", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestLoadRules(t *testing.T) {
	rules, err := loadRules("")
	require.NoError(t, err)
	assert.Equal(t, maintenance.DefaultRules().FrequencyDays, rules.FrequencyDays)

	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"warranty_reminder_days":[60,10]}`), 0o600))
	rules, err = loadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []int{60, 10}, rules.WarrantyReminderDays)
	assert.Equal(t, 7, rules.FrequencyDays[models.FrequencyWeekly])

	_, err = loadRules(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewDispatcher_WithoutBroker(t *testing.T) {
	d, closeFn := newDispatcher(config.MQTTConfig{})
	assert.IsType(t, notify.LogDispatcher{}, d)
	closeFn()
}
