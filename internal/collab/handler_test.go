package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"offer-collab-service/internal/domain"
	apiError "offer-collab-service/internal/errors"
	"offer-collab-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateOffer(ctx context.Context, fields domain.FieldMap) (*domain.Offer, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockService) GetOffer(ctx context.Context, docID uint64) (*domain.Offer, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockService) StartSession(ctx context.Context, docID, userID uint64, role string) (*domain.EditSession, error) {
	args := m.Called(ctx, docID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EditSession), args.Error(1)
}

func (m *MockService) Heartbeat(ctx context.Context, sessionID string, editingFields []string) error {
	args := m.Called(ctx, sessionID, editingFields)
	return args.Error(0)
}

func (m *MockService) EndSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockService) ListActiveEditors(ctx context.Context, docID uint64) ([]domain.EditSession, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return []domain.EditSession{}, args.Error(1)
	}
	return args.Get(0).([]domain.EditSession), args.Error(1)
}

func (m *MockService) SubmitUpdate(ctx context.Context, docID uint64, sessionID string, changes domain.FieldMap, expectedVersion uint64) (*UpdateResult, error) {
	args := m.Called(ctx, docID, sessionID, changes, expectedVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*UpdateResult), args.Error(1)
}

func (m *MockService) ReadHistory(ctx context.Context, docID uint64, limit, offset int) (*HistoryPage, error) {
	args := m.Called(ctx, docID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HistoryPage), args.Error(1)
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())

	authStub := func(c *gin.Context) {
		c.Set("user_id", uint64(10))
		c.Set("user_role", domain.RoleMarketer)
	}

	router.POST("/offers/:id/sessions", authStub, handler.StartSession)
	router.GET("/offers/:id/sessions", authStub, handler.ListActiveEditors)
	router.POST("/offers/:id/updates", authStub, handler.SubmitUpdate)
	router.GET("/offers/:id/history", authStub, handler.ShowHistory)
	router.POST("/sessions/:sessionId/heartbeat", authStub, handler.Heartbeat)
	router.DELETE("/sessions/:sessionId", authStub, handler.EndSession)
	return router
}

func doJSON(router *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewBuffer(b)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStartSession_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("StartSession", mock.Anything, uint64(1), uint64(10), domain.RoleMarketer).
		Return(&domain.EditSession{SessionID: "sess-1", DocumentID: 1, UserID: 10, Role: domain.RoleMarketer}, nil)

	w := doJSON(router, "POST", "/offers/1/sessions", nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	var got domain.EditSession
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "sess-1", got.SessionID)
	mockService.AssertExpectations(t)
}

func TestStartSession_InvalidOfferID(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	w := doJSON(router, "POST", "/offers/abc/sessions", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitUpdate_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("SubmitUpdate", mock.Anything, uint64(1), "sess-1",
		domain.FieldMap{"price": float64(150)}, uint64(0)).
		Return(&UpdateResult{
			Success:        true,
			Version:        1,
			AppliedFields:  []string{"price"},
			RejectedFields: []RejectedField{},
		}, nil)

	w := doJSON(router, "POST", "/offers/1/updates", gin.H{
		"session_id":       "sess-1",
		"changes":          gin.H{"price": 150},
		"expected_version": 0,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	var got UpdateResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, uint64(1), got.Version)
	mockService.AssertExpectations(t)
}

func TestSubmitUpdate_ConflictReturns409(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("SubmitUpdate", mock.Anything, uint64(1), "sess-1",
		mock.Anything, uint64(0)).
		Return(&UpdateResult{
			Success:        false,
			Version:        3,
			AppliedFields:  []string{},
			RejectedFields: []RejectedField{},
			Conflict: &ConflictInfo{
				Version: 3,
				Fields:  domain.FieldMap{"price": float64(150)},
			},
		}, nil)

	w := doJSON(router, "POST", "/offers/1/updates", gin.H{
		"session_id":       "sess-1",
		"changes":          gin.H{"price": 120},
		"expected_version": 0,
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	var got UpdateResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.Success)
	assert.NotNil(t, got.Conflict)
	assert.Equal(t, uint64(3), got.Conflict.Version)
	assert.Equal(t, float64(150), got.Conflict.Fields["price"])
}

func TestSubmitUpdate_SessionExpiredReturns410(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("SubmitUpdate", mock.Anything, uint64(1), "stale",
		mock.Anything, uint64(2)).
		Return(nil, apiError.SessionExpired(nil))

	w := doJSON(router, "POST", "/offers/1/updates", gin.H{
		"session_id":       "stale",
		"changes":          gin.H{"price": 120},
		"expected_version": 2,
	})

	assert.Equal(t, http.StatusGone, w.Code)
}

func TestSubmitUpdate_MissingExpectedVersion(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	// expected_version is mandatory: an update without it can't be checked
	w := doJSON(router, "POST", "/offers/1/updates", gin.H{
		"session_id": "sess-1",
		"changes":    gin.H{"price": 120},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubmitUpdate_ExpectedVersionZeroIsValid(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("SubmitUpdate", mock.Anything, uint64(1), "sess-1",
		mock.Anything, uint64(0)).
		Return(&UpdateResult{Success: true, Version: 1, AppliedFields: []string{"price"}, RejectedFields: []RejectedField{}}, nil)

	w := doJSON(router, "POST", "/offers/1/updates", gin.H{
		"session_id":       "sess-1",
		"changes":          gin.H{"price": 120},
		"expected_version": 0,
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHeartbeat_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("Heartbeat", mock.Anything, "sess-1", []string{"price", "deliverables"}).Return(nil)

	w := doJSON(router, "POST", "/sessions/sess-1/heartbeat", gin.H{
		"editing_fields": []string{"price", "deliverables"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestHeartbeat_Expired(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("Heartbeat", mock.Anything, "gone", mock.Anything).
		Return(apiError.SessionExpired(nil))

	w := doJSON(router, "POST", "/sessions/gone/heartbeat", gin.H{
		"editing_fields": []string{},
	})

	assert.Equal(t, http.StatusGone, w.Code)
}

func TestEndSession_Success(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("EndSession", mock.Anything, "sess-1").Return(nil)

	w := doJSON(router, "DELETE", "/sessions/sess-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestListActiveEditors(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("ListActiveEditors", mock.Anything, uint64(1)).
		Return([]domain.EditSession{
			{SessionID: "s1", DocumentID: 1, UserID: 10, Role: domain.RoleMarketer, EditingFields: []string{"price"}},
			{SessionID: "s2", DocumentID: 1, UserID: 20, Role: domain.RoleCreator},
		}, nil)

	w := doJSON(router, "GET", "/offers/1/sessions", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Sessions []domain.EditSession `json:"sessions"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got.Sessions, 2)
}

func TestShowHistory_PaginationParams(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("ReadHistory", mock.Anything, uint64(1), 2, 2).
		Return(&HistoryPage{
			Entries: []domain.EditHistoryEntry{{DocumentID: 1, Version: 3}, {DocumentID: 1, Version: 2}},
			HasMore: true,
		}, nil)

	w := doJSON(router, "GET", "/offers/1/history?limit=2&offset=2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got HistoryPage
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.HasMore)
	assert.Len(t, got.Entries, 2)
	mockService.AssertExpectations(t)
}

func TestShowHistory_DefaultParams(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService))

	mockService.On("ReadHistory", mock.Anything, uint64(1), 20, 0).
		Return(&HistoryPage{Entries: []domain.EditHistoryEntry{}, HasMore: false}, nil)

	w := doJSON(router, "GET", "/offers/1/history", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}
