package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/dto"
	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/service"
	"github.com/campushq/timetable-api/pkg/jobs"
)

func TestTimetableHandlerSubstituteInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(nil, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/tenants/tenant-1/timetable/substitute", bytes.NewReader([]byte(`not json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "tenantId", Value: "tenant-1"}}

	handler.Substitute(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGenerateAsyncWithoutQueue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(nil, nil, nil, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/tenants/tenant-1/timetable/generate?async=true", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "tenantId", Value: "tenant-1"}}

	handler.Generate(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestTimetableHandlerGenerateAsyncDuplicateTenant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	release := make(chan struct{})
	queue := jobs.NewQueue("test", func(ctx context.Context, job jobs.Job) error {
		<-release
		return nil
	}, jobs.QueueConfig{Workers: 1})
	queue.Start(context.Background())
	defer queue.Stop()
	defer close(release)

	handler := NewTimetableHandler(nil, nil, nil, nil, queue)

	first := httptest.NewRecorder()
	c1, _ := gin.CreateTestContext(first)
	req1, _ := http.NewRequest(http.MethodPost, "/tenants/tenant-1/timetable/generate?async=true", nil)
	c1.Request = req1
	c1.Params = gin.Params{{Key: "tenantId", Value: "tenant-1"}}
	handler.Generate(c1)
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(second)
	req2, _ := http.NewRequest(http.MethodPost, "/tenants/tenant-1/timetable/generate?async=true", nil)
	c2.Request = req2
	c2.Params = gin.Params{{Key: "tenantId", Value: "tenant-1"}}
	handler.Generate(c2)
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestCatalogHandlerCreatePeriod(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog := service.NewCatalogService(&handlerPeriodStub{}, nil, nil, nil, zap.NewNop())
	handler := NewCatalogHandler(catalog)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CreatePeriodRequest{DayOfWeek: 1, StartTime: "08:00", EndTime: "08:45"})
	req, _ := http.NewRequest(http.MethodPost, "/tenants/tenant-1/periods", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "tenantId", Value: "tenant-1"}}

	handler.CreatePeriod(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.Period `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "tenant-1", envelope.Data.TenantID)
	assert.NotEmpty(t, envelope.Data.ID)
}

func TestCatalogHandlerCreatePeriodInvalidDay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog := service.NewCatalogService(&handlerPeriodStub{}, nil, nil, nil, zap.NewNop())
	handler := NewCatalogHandler(catalog)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.CreatePeriodRequest{DayOfWeek: 7, StartTime: "08:00", EndTime: "08:45"})
	req, _ := http.NewRequest(http.MethodPost, "/tenants/tenant-1/periods", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "tenantId", Value: "tenant-1"}}

	handler.CreatePeriod(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type handlerPeriodStub struct {
	items []models.Period
}

func (s *handlerPeriodStub) ListByTenant(ctx context.Context, tenantID string) ([]models.Period, error) {
	return s.items, nil
}

func (s *handlerPeriodStub) FindByID(ctx context.Context, id string) (*models.Period, error) {
	return nil, sql.ErrNoRows
}

func (s *handlerPeriodStub) Exists(ctx context.Context, tenantID string, dayOfWeek int, startTime string) (bool, error) {
	return false, nil
}

func (s *handlerPeriodStub) Create(ctx context.Context, period *models.Period) error {
	period.ID = "p-created"
	s.items = append(s.items, *period)
	return nil
}

func (s *handlerPeriodStub) Delete(ctx context.Context, tenantID, id string) error {
	return nil
}
