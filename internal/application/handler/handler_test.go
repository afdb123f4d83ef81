package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/interntrack/tracker/internal/application"
	"github.com/interntrack/tracker/internal/application/repository"
	"github.com/interntrack/tracker/internal/application/service"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{ *repository.MemoryStore }

func (brokenStore) Put(context.Context, string, []byte) error { return errors.New("read-only") }

// linkArchiver accepts every export and links it under a fixed host.
type linkArchiver struct{ err error }

func (linkArchiver) Archive(context.Context, string, []byte) error { return nil }

func (l linkArchiver) PresignedURL(_ context.Context, name string, _ time.Duration) (string, error) {
	return "https://archive.test/exports/" + name, l.err
}

func setup(t *testing.T, store repository.Store, opts ...service.Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]service.Option{service.WithClock(func() time.Time { return now })}, opts...)
	tr := service.NewTracker(context.Background(),
		repository.NewJSONRepository(store, "apps", "test"), opts...)
	g := gin.New()
	RegisterApplicationRoutes(g, tr)
	return g
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	g.ServeHTTP(w, req)
	return w
}

func TestApplicationHandler_CRUD(t *testing.T) {
	g := setup(t, repository.NewMemoryStore())

	// create
	w := do(g, http.MethodPost, "/api/applications",
		`{"companyName":"Acme","position":"Intern","appliedOn":"2024-05-01","applicationType":"Job Posting","status":"Applied","source":"LinkedIn"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created application.Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	// get
	w = do(g, http.MethodGet, "/api/applications/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	// update
	w = do(g, http.MethodPut, "/api/applications/"+created.ID,
		`{"companyName":"Acme","position":"Intern","applicationType":"Job Posting","status":"Offer"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated application.Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, application.StatusOffer, updated.Status)
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	// list with filters
	w = do(g, http.MethodGet, "/api/applications?status=Offer&sort=oldest", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []application.Application
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = do(g, http.MethodGet, "/api/applications?status=Applied", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]", w.Body.String())

	// options
	w = do(g, http.MethodGet, "/api/applications/options", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"sources":["LinkedIn"]`)
}

func TestApplicationHandler_Errors(t *testing.T) {
	g := setup(t, repository.NewMemoryStore())

	w := do(g, http.MethodPost, "/api/applications", `{"position":"Intern","applicationType":"Job Posting","status":"Applied"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `"field":"companyName"`)

	w = do(g, http.MethodPost, "/api/applications", `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(g, http.MethodGet, "/api/applications/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, http.MethodPut, "/api/applications/nope", `{"companyName":"A","position":"B","applicationType":"Spontaneous","status":"Draft"}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(g, http.MethodGet, "/api/applications?sort=sideways", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApplicationHandler_PersistenceFailure(t *testing.T) {
	g := setup(t, brokenStore{repository.NewMemoryStore()})

	w := do(g, http.MethodPost, "/api/applications", `{"companyName":"Acme","position":"Intern","applicationType":"Spontaneous","status":"Draft"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), `"persisted":false`)

	// the record is still served from memory
	w = do(g, http.MethodGet, "/api/applications", "")
	require.Contains(t, w.Body.String(), "Acme")
}

func TestApplicationHandler_ExportImport(t *testing.T) {
	g := setup(t, repository.NewMemoryStore())
	w := do(g, http.MethodPost, "/api/applications", `{"companyName":"Acme","position":"Intern","applicationType":"Spontaneous","status":"Draft"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(g, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="internship-applications-2024-06-01.json"`, w.Header().Get("Content-Disposition"))
	require.Empty(t, w.Header().Get(ArchiveURLHeader))
	exported := w.Body.String()

	// raw body into a fresh server
	other := setup(t, repository.NewMemoryStore())
	w = do(other, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"added":1,"duplicates":0,"rejected":0,"total":1}`, w.Body.String())

	// multipart upload of the same file reports duplicates only
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "export.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(exported))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	other.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"added":0,"duplicates":1,"rejected":0,"total":1}`, w.Body.String())

	w = do(other, http.MethodPost, "/api/import", `{"foo":"bar"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"Invalid file format"}`, w.Body.String())

	w = do(other, http.MethodPost, "/api/import", `[{"id":"x"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"added":0,"duplicates":0,"rejected":1,"total":1}`, w.Body.String())
}

func TestApplicationHandler_ExportLinksArchive(t *testing.T) {
	g := setup(t, repository.NewMemoryStore(), service.WithArchiver(linkArchiver{}))
	w := do(g, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://archive.test/exports/internship-applications-2024-06-01.json", w.Header().Get(ArchiveURLHeader))
	require.Equal(t, "[]\n", w.Body.String())

	g = setup(t, repository.NewMemoryStore(), service.WithArchiver(linkArchiver{err: errors.New("signing failed")}))
	w = do(g, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get(ArchiveURLHeader))
}
