package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emra-dev/lms-api/internal/dto"
	"github.com/emra-dev/lms-api/internal/middleware"
	"github.com/emra-dev/lms-api/internal/models"
	"github.com/emra-dev/lms-api/internal/service"
	appErrors "github.com/emra-dev/lms-api/pkg/errors"
)

type responseEnvelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

type fakeCourseSrv struct {
	detail     *dto.CourseDetail
	err        error
	lastViewer service.Viewer
	lastID     int64
	lastSlug   string
	created    *dto.CourseTreeInput
}

func (f *fakeCourseSrv) List(ctx context.Context, viewer service.Viewer, filter models.CourseFilter) ([]dto.CourseSummary, *models.Pagination, error) {
	return nil, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, f.err
}

func (f *fakeCourseSrv) Categories(context.Context) ([]string, error) {
	return []string{"programming"}, f.err
}

func (f *fakeCourseSrv) Create(ctx context.Context, viewer service.Viewer, input dto.CourseTreeInput) (*dto.CourseDetail, error) {
	f.lastViewer = viewer
	f.created = &input
	return f.detail, f.err
}

func (f *fakeCourseSrv) Update(ctx context.Context, viewer service.Viewer, courseID int64, input dto.CourseTreeInput) (*dto.CourseDetail, error) {
	f.lastViewer = viewer
	f.lastID = courseID
	return f.detail, f.err
}

func (f *fakeCourseSrv) Delete(ctx context.Context, viewer service.Viewer, courseID int64) error {
	f.lastID = courseID
	return f.err
}

func (f *fakeCourseSrv) GetDetail(ctx context.Context, viewer service.Viewer, courseID int64) (*dto.CourseDetail, error) {
	f.lastViewer = viewer
	f.lastID = courseID
	return f.detail, f.err
}

func (f *fakeCourseSrv) GetDetailBySlug(ctx context.Context, viewer service.Viewer, slug string) (*dto.CourseDetail, error) {
	f.lastViewer = viewer
	f.lastSlug = slug
	return f.detail, f.err
}

func courseDetailFixture() *dto.CourseDetail {
	return &dto.CourseDetail{
		CourseSummary: dto.CourseSummary{ID: 7, Title: "Go 101", Slug: "go-101"},
	}
}

func TestCourseHandlerGetByID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeCourseSrv{detail: courseDetailFixture()}
	handler := NewCourseHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/courses/7", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), srv.lastID)
	assert.Equal(t, "stud-1", srv.lastViewer.UserID)
}

func TestCourseHandlerGetBySlug(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeCourseSrv{detail: courseDetailFixture()}
	handler := NewCourseHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/courses/go-101", nil)
	c.Params = gin.Params{{Key: "id", Value: "go-101"}}

	handler.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "go-101", srv.lastSlug)
	assert.Equal(t, "", srv.lastViewer.UserID)
}

func TestCourseHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeCourseSrv{err: appErrors.Clone(appErrors.ErrNotFound, "course not found")}
	handler := NewCourseHandler(srv)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/courses/999", nil)
	c.Params = gin.Params{{Key: "id", Value: "999"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.Equal(t, "NOT_FOUND", envelope.Code)
}

func TestCourseHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCourseHandler(&fakeCourseSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/courses", strings.NewReader(`{}`))

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCourseHandlerCreateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewCourseHandler(&fakeCourseSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/courses", strings.NewReader(`{not json`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "inst-1", Role: models.RoleTeacher})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCourseHandlerCreateSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeCourseSrv{detail: courseDetailFixture()}
	handler := NewCourseHandler(srv)

	body := `{"title":"Go 101","description":"Les bases","category":"programming","sections":[{"title":"Intro","lessons":[{"title":"Hello","lesson_type":"video"}]}]}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/courses", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "inst-1", Role: models.RoleTeacher})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, srv.created)
	assert.Equal(t, "Go 101", srv.created.Title)
	require.Len(t, srv.created.Sections, 1)
	_, resolved := srv.created.Sections[0].Lessons[0].ID.Int64()
	assert.False(t, resolved)
}
