package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	handler "noticeboard/internal/notice"
	"noticeboard/internal/notice/model"
	"noticeboard/internal/notice/repository"
	"noticeboard/internal/notice/service"
	"noticeboard/socket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestAPI(t *testing.T) (http.Handler, *service.NoticeService) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewSQLRepository(db, repository.DialectSQLite)
	require.NoError(t, repo.EnsureSchema(context.Background()))

	hub := socket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := service.NewNoticeService(repo, hub)
	return Setup(handler.NewNoticeHandler(svc), hub, Options{}), svc
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// The walkthrough from the API contract: create, list, update, delete, get.
func TestNoticeLifecycle(t *testing.T) {
	api, svc := newTestAPI(t)

	older, err := svc.CreateNotice(context.Background(), model.NoticeRequest{Title: "Older", Content: "posted first"})
	require.NoError(t, err)
	svc.Now = func() time.Time { return older.CreatedAt.Add(time.Minute) }

	rec := do(t, api, http.MethodPost, "/api/notes", map[string]string{"title": "Meeting", "content": "10am standup"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	created := decode[model.NoticeResponse](t, rec)
	assert.Equal(t, "Notice created successfully", created.Message)
	assert.NotEmpty(t, created.Note.ID)
	assert.Equal(t, created.Note.CreatedAt, created.Note.UpdatedAt)

	rec = do(t, api, http.MethodGet, "/api/notes/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Notice](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, created.Note.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)

	svc.Now = func() time.Time { return created.Note.UpdatedAt.Add(time.Minute) }
	rec = do(t, api, http.MethodPut, "/api/notes/"+created.Note.ID,
		map[string]string{"title": "Meeting", "content": "10am standup (moved to 11)"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.NoticeResponse](t, rec)
	assert.Equal(t, "Notice updated successfully", updated.Message)
	assert.Equal(t, "10am standup (moved to 11)", updated.Note.Content)
	assert.True(t, updated.Note.UpdatedAt.After(created.Note.UpdatedAt))
	assert.Equal(t, created.Note.CreatedAt, updated.Note.CreatedAt)

	rec = do(t, api, http.MethodDelete, "/api/notes/"+created.Note.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[model.NoticeResponse](t, rec)
	assert.Equal(t, "Notice deleted successfully", deleted.Message)
	assert.Equal(t, updated.Note, deleted.Note)

	rec = do(t, api, http.MethodGet, "/api/notes/"+created.Note.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	errBody := decode[model.ErrorResponse](t, rec)
	assert.Equal(t, "Notice not found", errBody.Message)
	assert.NotEmpty(t, errBody.Error)
}

func TestListEmptyIsArray(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := do(t, api, http.MethodGet, "/api/notes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateValidation(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := do(t, api, http.MethodPost, "/api/notes", map[string]string{"title": "  ", "content": "body"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[model.ErrorResponse](t, rec)
	assert.Equal(t, "Title and content are required", body.Message)

	rec = do(t, api, http.MethodGet, "/api/notes", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMalformedBody(t *testing.T) {
	api, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/notes", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decode[model.ErrorResponse](t, rec).Message)
}

func TestMissingIDs(t *testing.T) {
	api, _ := newTestAPI(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := do(t, api, method, "/api/notes/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
	}
	rec := do(t, api, http.MethodPut, "/api/notes/nope", map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := do(t, api, http.MethodPatch, "/api/notes/abc", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := do(t, api, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCustomPrefix(t *testing.T) {
	hub := socket.NewHub()
	h := Setup(handler.NewNoticeHandler(nil), hub, Options{Prefix: "/v2/notices/"})

	rec := do(t, h, http.MethodGet, "/api/notes", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
