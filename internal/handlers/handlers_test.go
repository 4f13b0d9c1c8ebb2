package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/config"
	"github.com/justsurfingit/applytrail/internal/database"
	"github.com/justsurfingit/applytrail/internal/dtos"
	"github.com/justsurfingit/applytrail/internal/models"
	"github.com/justsurfingit/applytrail/internal/services"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

type stubSyncer struct {
	result *services.SyncResult
	err    error
	calls  []uuid.UUID
}

func (s *stubSyncer) SyncNow(_ context.Context, userID uuid.UUID) (*services.SyncResult, error) {
	s.calls = append(s.calls, userID)
	return s.result, s.err
}

type HandlersSuite struct {
	suite.Suite
	router *gin.Engine
	syncer *stubSyncer
	users  *database.UserStore
	user   *models.User
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *HandlersSuite) SetupTest() {
	db, err := database.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())))
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(db))
	s.T().Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s.users = database.NewUserStore(db)
	s.user = &models.User{Name: "Dev", Email: "dev@example.com", GoogleRefreshToken: "token"}
	s.Require().NoError(s.users.Create(context.Background(), s.user))

	s.syncer = &stubSyncer{result: &services.SyncResult{}}
	jobs := NewJobHandler(services.NewJobService(database.NewJobStore(db), services.NewRealClock()), zap.NewNop())
	s.router = NewRouter(config.ServerConfig{}, s.users, jobs, NewSyncHandler(s.syncer, zap.NewNop()), zap.NewNop())
}

func (s *HandlersSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(UserHeader, s.user.ID.String())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersSuite) decode(w *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), v))
}

func (s *HandlersSuite) TestHealth() {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())
}

func (s *HandlersSuite) TestRequireUser() {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "malformed", header: "not-a-uuid"},
		{name: "unknown", header: uuid.NewString()},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
			if tt.header != "" {
				req.Header.Set(UserHeader, tt.header)
			}
			w := httptest.NewRecorder()
			s.router.ServeHTTP(w, req)
			s.Equal(http.StatusUnauthorized, w.Code)
		})
	}
}

func (s *HandlersSuite) TestSync_ReportsNewRecords() {
	s.syncer.result = &services.SyncResult{NewRecordsCount: 2}

	w := s.do(http.MethodPost, "/api/v1/jobs/sync", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dtos.SyncResponse
	s.decode(w, &resp)
	s.Equal(2, resp.NewRecordsCount)
	s.Equal("Sync complete. Found and added 2 new job(s).", resp.Message)
	s.Equal([]uuid.UUID{s.user.ID}, s.syncer.calls)
}

func (s *HandlersSuite) TestSync_NothingNew() {
	w := s.do(http.MethodPost, "/api/v1/jobs/sync", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dtos.SyncResponse
	s.decode(w, &resp)
	s.Equal(0, resp.NewRecordsCount)
	s.Equal("Sync complete. No new job applications were found.", resp.Message)
}

func (s *HandlersSuite) TestSync_ErrorMapping() {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "not connected", err: &services.AuthError{UserID: uuid.New(), Err: services.ErrNoRefreshToken}, code: http.StatusBadRequest},
		{name: "revoked", err: &services.AuthError{UserID: uuid.New(), Err: errors.New("invalid_grant")}, code: http.StatusBadRequest},
		{name: "provider down", err: &services.TransientNetworkError{Op: "list messages", Err: errors.New("timeout")}, code: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.syncer.result, s.syncer.err = nil, tt.err

			w := s.do(http.MethodPost, "/api/v1/jobs/sync", nil)

			s.Equal(tt.code, w.Code)
			var resp dtos.ErrorResponse
			s.decode(w, &resp)
			s.NotEmpty(resp.Error)
		})
	}
}

func (s *HandlersSuite) TestSync_NotConnectedMessage() {
	s.syncer.result, s.syncer.err = nil, &services.AuthError{UserID: s.user.ID, Err: services.ErrNoRefreshToken}

	w := s.do(http.MethodPost, "/api/v1/jobs/sync", nil)

	s.Equal(http.StatusBadRequest, w.Code)
	s.JSONEq(`{"error":"Google account not connected or refresh token is missing."}`, w.Body.String())
}

func (s *HandlersSuite) TestJobLifecycle() {
	w := s.do(http.MethodPost, "/api/v1/jobs", map[string]any{
		"company":  "Acme Corp",
		"position": "Software Engineer",
		"location": "Remote",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created models.JobApplication
	s.decode(w, &created)
	s.Equal(models.StatusApplied, created.Status)
	s.Equal(models.SourceManual, created.Source)

	w = s.do(http.MethodPut, "/api/v1/jobs/"+created.ID.String(), map[string]any{"status": "Interview"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated models.JobApplication
	s.decode(w, &updated)
	s.Equal(models.StatusInterview, updated.Status)
	s.Equal("Remote", updated.Location)

	w = s.do(http.MethodGet, "/api/v1/jobs", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var list []models.JobApplication
	s.decode(w, &list)
	s.Require().Len(list, 1)
	s.Equal(created.ID, list[0].ID)

	w = s.do(http.MethodDelete, "/api/v1/jobs/"+created.ID.String(), nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/jobs/"+created.ID.String(), nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersSuite) TestCreateJob_Validation() {
	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing company", body: map[string]any{"position": "Engineer"}},
		{name: "missing position", body: map[string]any{"company": "Acme"}},
		{name: "unknown status", body: map[string]any{"company": "Acme", "position": "Engineer", "status": "Ghosted"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			w := s.do(http.MethodPost, "/api/v1/jobs", tt.body)
			s.Equal(http.StatusBadRequest, w.Code)
		})
	}
}

func (s *HandlersSuite) TestCreateJob_Duplicate() {
	body := map[string]any{"company": "Acme", "position": "Engineer"}
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, "/api/v1/jobs", body).Code)

	w := s.do(http.MethodPost, "/api/v1/jobs", body)
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlersSuite) TestUpdateJob_BadID() {
	w := s.do(http.MethodPut, "/api/v1/jobs/42", map[string]any{"notes": "x"})
	s.Equal(http.StatusBadRequest, w.Code)
}
