package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"secureshield/internal/core/domain"
	"secureshield/internal/core/ports"
	"secureshield/internal/core/services"
	"secureshield/internal/infrastructure/repositories/memory"
	"secureshield/internal/infrastructure/repositories/seed"
	"secureshield/pkg/config"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

type testServer struct {
	router *gin.Engine
	store  *memory.Store
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Media.Dir = filepath.Join(t.TempDir(), "media")
	cfg.Media.MaxUploadBytes = 64 << 10

	clk := clock.NewMock()
	log := zaptest.NewLogger(t).Sugar()
	store := memory.NewStore(clk)
	metrics := ports.NopMetrics{}

	audit := services.NewAuditService(store, clk)
	hub := services.NewNotificationHub(clk, 0, 4, metrics, log)
	sessions := services.NewSessionService(store, audit, services.SessionConfig{
		TickInterval: cfg.Session.TickInterval,
		Retention:    cfg.Session.Retention,
	}, clk, metrics, log)
	t.Cleanup(sessions.Shutdown)

	router := NewRouter(cfg, Dependencies{
		Auth:      services.NewAuthService(store, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, clk, metrics, log),
		Catalog:   services.NewCatalogService(store),
		Ingestion: services.NewIngestionService(store, hub, clk, metrics, log),
		Sessions:  sessions,
		Audit:     audit,
		Logger:    log,
	})
	return &testServer{router: router, store: store, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path, token string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	body, _ := json.Marshal(LoginRequest{Email: email, Password: seed.DemoPassword})
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", body, "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type uploadForm struct {
	title, description, kind string
	roles                    []string
	filename                 string
	file                     []byte
}

func (f uploadForm) encode(t *testing.T) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", f.title))
	require.NoError(t, mw.WriteField("description", f.description))
	require.NoError(t, mw.WriteField("kind", f.kind))
	for _, r := range f.roles {
		require.NoError(t, mw.WriteField("allowed_roles", r))
	}
	if f.file != nil {
		part, err := mw.CreateFormFile("file", f.filename)
		require.NoError(t, err)
		_, err = part.Write(f.file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "",
		[]byte(`{"email":"admin@enterprise.com","password":"nope-nope"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "",
		[]byte(`{"email":"Fresh@Corp.io","password":"secret1","role":"viewer"}`), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[TokenResponse](t, w)
	assert.Equal(t, "fresh@corp.io", resp.User.Email)
	assert.Equal(t, domain.RoleViewer, resp.User.Role)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotContains(t, w.Body.String(), "password_hash")

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "",
		[]byte(`{"email":"fresh@corp.io","password":"secret1","role":"VIEWER"}`), "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/register", "",
		[]byte(`{"email":"x@corp.io","password":"secret1","role":"OWNER"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/me", resp.AccessToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fresh@corp.io")
}

func TestNavigationIsRoleGated(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		email string
		items int
	}{
		{"admin@enterprise.com", 3},
		{"uploader@enterprise.com", 2},
		{"viewer@enterprise.com", 1},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/v1/me/navigation", s.login(t, tt.email), nil, "")
			require.Equal(t, http.StatusOK, w.Code)
			resp := decode[struct {
				Items []domain.NavItem `json:"items"`
			}](t, w)
			assert.Len(t, resp.Items, tt.items)
		})
	}
}

func TestContentListing(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/content", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/content", s.login(t, "viewer@enterprise.com"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[services.CatalogPage](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.ContentID("c1"), page.Items[0].ID)

	w = s.do(t, http.MethodGet, "/api/v1/content?q=ROADMAP", s.login(t, "admin@enterprise.com"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	page = decode[services.CatalogPage](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.ContentID("c2"), page.Items[0].ID)

	w = s.do(t, http.MethodGet, "/api/v1/content/stats", s.login(t, "viewer@enterprise.com"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[services.CatalogStats](t, w)
	assert.Equal(t, 2, stats.TotalAssets)
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)
	uploader := s.login(t, "uploader@enterprise.com")

	valid := uploadForm{
		title: "Chart", description: "Org chart", kind: "image",
		roles: []string{"ADMIN,VIEWER"}, filename: "../../org chart.png", file: pngBytes,
	}

	t.Run("viewer forbidden", func(t *testing.T) {
		body, ct := valid.encode(t)
		w := s.do(t, http.MethodPost, "/api/v1/content", s.login(t, "viewer@enterprise.com"), body, ct)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		form := valid
		form.file = nil
		body, ct := form.encode(t)
		w := s.do(t, http.MethodPost, "/api/v1/content", uploader, body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), domain.ErrFileRequired.Error())
	})

	t.Run("wrong media type", func(t *testing.T) {
		form := valid
		form.file = []byte("just some plain text, not an image")
		body, ct := form.encode(t)
		w := s.do(t, http.MethodPost, "/api/v1/content", uploader, body, ct)
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("too large", func(t *testing.T) {
		form := valid
		form.file = append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{1}, int(s.cfg.Media.MaxUploadBytes))...)
		body, ct := form.encode(t)
		w := s.do(t, http.MethodPost, "/api/v1/content", uploader, body, ct)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("blank title removes stored file", func(t *testing.T) {
		form := valid
		form.title = " "
		body, ct := form.encode(t)
		w := s.do(t, http.MethodPost, "/api/v1/content", uploader, body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		entries, _ := os.ReadDir(s.cfg.Media.Dir)
		assert.Empty(t, entries)
	})

	items, err := s.store.Content(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	t.Run("accepted", func(t *testing.T) {
		body, ct := valid.encode(t)
		w := s.do(t, http.MethodPost, "/api/v1/content", uploader, body, ct)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		resp := decode[struct {
			Item domain.ContentItem `json:"item"`
		}](t, w)
		assert.Equal(t, []domain.Role{domain.RoleAdmin, domain.RoleViewer}, resp.Item.AllowedRoles)
		assert.Regexp(t, `^/media/[0-9a-f-]{36}_org_chart\.png$`, resp.Item.StorageURL)

		items, err := s.store.Content(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, resp.Item.ID, items[0].ID)

		w = s.do(t, http.MethodGet, resp.Item.StorageURL, uploader, nil, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, pngBytes, w.Body.Bytes())

		w = s.do(t, http.MethodGet, resp.Item.StorageURL, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(t, "admin@enterprise.com")
	viewer := s.login(t, "viewer@enterprise.com")

	w := s.do(t, http.MethodPost, "/api/v1/content/c1/sessions", admin, nil, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	granted := decode[services.SessionSnapshot](t, w)
	assert.Equal(t, domain.PresentViewer, granted.Presentation)
	assert.Len(t, granted.Token, 8)
	assert.Equal(t, domain.SessionLifetime, granted.Remaining)

	w = s.do(t, http.MethodPost, "/api/v1/content/c2/sessions", viewer, nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	denied := decode[services.SessionSnapshot](t, w)
	assert.Equal(t, domain.PresentDenied, denied.Presentation)
	assert.Equal(t, services.DeniedMessage, denied.Message)
	assert.NotContains(t, w.Body.String(), "forbidden")

	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+string(granted.ID), viewer, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/sessions/"+string(granted.ID)+"/download", admin, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs", viewer, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/logs", admin, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	report := decode[services.AuditReport](t, w)
	require.Len(t, report.Entries, 2)
	assert.Equal(t, domain.ActionDownloadAttempt, report.Entries[0].Action)
	assert.Equal(t, 1, report.Summary.SecurityAlerts)

	w = s.do(t, http.MethodDelete, "/api/v1/sessions/"+string(granted.ID), admin, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/sessions/"+string(granted.ID), admin, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
