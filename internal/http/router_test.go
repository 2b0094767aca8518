package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/agro-classifieds/internal/auth"
	"github.com/tbourn/agro-classifieds/internal/config"
	"github.com/tbourn/agro-classifieds/internal/domain"
	"github.com/tbourn/agro-classifieds/internal/http/middleware"
	"github.com/tbourn/agro-classifieds/internal/media"
	"github.com/tbourn/agro-classifieds/internal/repo"
)

// --- fake image store to satisfy services.ImageStore ---
type fakeImages struct{ n int }

func (f *fakeImages) Ingest(_ context.Context, v domain.Variant, uploads []media.Upload) ([]media.Stored, error) {
	out := make([]media.Stored, len(uploads))
	for i := range uploads {
		f.n++
		out[i] = media.Stored{
			URL:          fmt.Sprintf("/uploads/%s_%d.jpg", v.FilePrefix(), f.n),
			ThumbnailURL: fmt.Sprintf("/uploads/%s_%d_thumb.jpg", v.FilePrefix(), f.n),
		}
	}
	return out, nil
}
func (f *fakeImages) Discard(context.Context, []media.Stored) {}
func (f *fakeImages) Remove(context.Context, string, string)  {}
func (f *fakeImages) MaxFiles() int                           { return 10 }

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     100,
		RateBurst:   10,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
		Auth:        config.AuthConfig{HeaderIdentity: true},
		Images:      config.ImagesConfig{MaxUploadBytes: 1 << 20},
	}
}

func newRouter(t *testing.T, cfg config.Config, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if deps.DB == nil {
		deps.DB = newTestDB(t)
	}
	if deps.Images == nil {
		deps.Images = &fakeImages{}
	}
	RegisterRoutes(r, deps, cfg)
	return r
}

func createRequest(t *testing.T, path, title string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	payload, _ := json.Marshal(map[string]any{
		"title":       title,
		"price_cents": 1500000,
		"state":       "GO",
		"city":        "Rio Verde",
		"property":    map[string]any{"total_area": 120.5},
	})
	_ = mw.WriteField("payload", string(payload))
	fw, _ := mw.CreateFormFile("images[]", "fazenda.jpg")
	_, _ = fw.Write([]byte{0xff, 0xd8, 0xff})
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.HeaderUserID, "u1")
	return req
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r := newRouter(t, testConfig(), Deps{})

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := newRouter(t, cfg, Deps{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_CreateReplayAndFeed(t *testing.T) {
	r := newRouter(t, testConfig(), Deps{})

	w := httptest.NewRecorder()
	req := createRequest(t, "/api/v1/ads/properties", "Fazenda Boa Vista")
	req.Header.Set(middleware.HeaderIdempotencyKey, "create-0001")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("write responses must not be cached, got %q", cc)
	}

	// Same key: the lookup sees the stored record and the service replays.
	w = httptest.NewRecorder()
	req = createRequest(t, "/api/v1/ads/properties", "Fazenda Boa Vista")
	req.Header.Set(middleware.HeaderIdempotencyKey, "create-0001")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("replay status=%d header=%q", w.Code, w.Header().Get("Idempotent-Replayed"))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/feeds/properties", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("feed status=%d", w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("feeds must be revalidatable, got %q", cc)
	}
	var page struct {
		Items []struct {
			Slug string `json:"slug"`
		} `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Slug != "fazenda-boa-vista" {
		t.Fatalf("unexpected feed: %+v", page.Items)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/feeds/properties", nil)
	req.Header.Set("If-None-Match", w.Header().Get("ETag"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("conditional feed status=%d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/compare/properties?slugs=fazenda-boa-vista", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fazenda-boa-vista") {
		t.Fatalf("compare status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_BearerTokens(t *testing.T) {
	tokens := auth.NewService("router-secret", time.Hour)
	cfg := testConfig()
	cfg.Auth.HeaderIdentity = false
	r := newRouter(t, cfg, Deps{Tokens: tokens})

	modToken, err := tokens.Issue(domain.Actor{ID: "m1", Name: "Mod", Role: domain.RoleModerator})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	userToken, _ := tokens.Issue(domain.Actor{ID: "u1", Role: domain.RoleUser})

	get := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/listings", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := get(modToken); code != http.StatusOK {
		t.Fatalf("moderator token: %d", code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+modToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("moderator stats: %d", w.Code)
	}
	if code := get(userToken); code != http.StatusForbidden {
		t.Fatalf("user token: %d", code)
	}
	if code := get("not-a-jwt"); code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", code)
	}
	if code := get(""); code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", code)
	}

	// Header identity is disabled: X-User-ID alone is anonymous.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me/listings", nil)
	req.Header.Set(middleware.HeaderUserID, "u1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("header identity should be ignored, got %d", w.Code)
	}
}

func TestRegisterRoutes_IdempotencyLookupError(t *testing.T) {
	db := newTestDB(t)
	r := newRouter(t, testConfig(), Deps{DB: db})

	// Force queries to fail by closing the underlying connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()

	// The lookup error is logged, not surfaced; the handler still runs and
	// rejects the non-multipart body.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ads/machines", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, "u1")
	req.Header.Set(middleware.HeaderIdempotencyKey, "force-error")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func Test_createScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	scope := createScope("/api/v1/")
	var got string
	capture := func(c *gin.Context) { got = scope(c) }
	r.POST("/api/v1/ads/:variant", capture)
	r.PUT("/api/v1/listings/:id", capture)

	cases := []struct {
		method, path, want string
	}{
		{http.MethodPost, "/api/v1/ads/machines", "listing.create.machine"},
		{http.MethodPost, "/api/v1/ads/property", "listing.create.property"},
		{http.MethodPost, "/api/v1/ads/boats", ""},
		{http.MethodPut, "/api/v1/listings/abc", ""},
	}
	for _, tc := range cases {
		got = "unset"
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))
		if got != tc.want {
			t.Fatalf("%s %s: scope=%q want %q", tc.method, tc.path, got, tc.want)
		}
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}
