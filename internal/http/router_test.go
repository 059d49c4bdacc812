package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-contactlog-backend/internal/auth"
	"github.com/tbourn/go-contactlog-backend/internal/config"
	"github.com/tbourn/go-contactlog-backend/internal/domain"
	"github.com/tbourn/go-contactlog-backend/internal/flash"
	"github.com/tbourn/go-contactlog-backend/internal/http/middleware"
	"github.com/tbourn/go-contactlog-backend/internal/repo"
	"github.com/tbourn/go-contactlog-backend/internal/services"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
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
		APIBasePath:    "/api/v1",
		RateRPS:        100,
		RateBurst:      10,
		CORS:           config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:       config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
		Location:       time.UTC,
		IdempotencyTTL: time.Hour,
	}
}

func serve(r *gin.Engine, method, path string, body []byte, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), testConfig(), nil, nil)

	// /health works
	w := serve(r, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = serve(r, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	if w = serve(r, http.MethodGet, "/nope", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	if w = serve(r, http.MethodPost, "/health", nil, nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Swagger disabled by default
	if w = serve(r, http.MethodGet, "/swagger/index.html", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	RegisterRoutes(r, newTestDB(t), cfg, nil, nil)

	// Any request runs through CORS middleware; header should reflect origin.
	w := serve(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	// Routes are mounted under the configured base.
	if w = serve(r, http.MethodGet, "/api/v2/contacts", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("GET /api/v2/contacts = %d", w.Code)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	RegisterRoutes(r, newTestDB(t), cfg, nil, nil)

	w := serve(r, http.MethodGet, "/swagger/doc.json", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/contact_log/{log_id}/delete"]; !ok {
		t.Fatalf("delete route missing from doc")
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
		rec := serve(r, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses the otel + request id + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := testConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	RegisterRoutes(r, newTestDB(t), cfg, nil, nil)

	w := serve(r, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
	// Health is not an API route: no CSP, cacheable.
	if w.Header().Get("Content-Security-Policy") != "" {
		t.Fatalf("CSP should be scoped to the API group")
	}

	w = serve(r, http.MethodGet, "/api/v1/contacts", nil, nil)
	if w.Header().Get("Content-Security-Policy") != middleware.APIContentSecurityPolicy {
		t.Fatalf("API CSP = %q", w.Header().Get("Content-Security-Policy"))
	}
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("API Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}

func TestPipeline_Gzip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), testConfig(), nil, nil)

	w := serve(r, http.MethodGet, "/api/v1/contacts", nil, map[string]string{"Accept-Encoding": "gzip"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET contacts = %d", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, got %q", w.Header().Get("Content-Encoding"))
	}
}

func Test_termRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shim := termRepoShim{}

	created, err := shim.CreateTerm(ctx, db, domain.VocabularyTypeOfContact, nil, "Phone", 0)
	if err != nil || created.ID == "" {
		t.Fatalf("CreateTerm: %v %+v", err, created)
	}
	if _, err := shim.CreateTerm(ctx, db, domain.VocabularyTypeOfContact, &created.ID, "Mobile", 0); err != nil {
		t.Fatalf("CreateTerm child: %v", err)
	}

	n, err := shim.CountTerms(ctx, db, domain.VocabularyTypeOfContact)
	if err != nil || n != 2 {
		t.Fatalf("CountTerms = %d %v", n, err)
	}
	top, err := shim.ListTopLevelTerms(ctx, db, domain.VocabularyTypeOfContact)
	if err != nil || len(top) != 1 || top[0].Name != "Phone" {
		t.Fatalf("ListTopLevelTerms = %+v %v", top, err)
	}
}

// End-to-end: seed taxonomy, create (with replay), edit form, delete, report.
func TestRegisterRoutes_ContactLogFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := NewTaxonomyService(db).SeedDefaults(ctx, domain.VocabularyTypeOfContact, services.DefaultContactTypes); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := flash.NewMemoryStore(time.Hour)
	RegisterRoutes(r, db, testConfig(), store, nil)

	w := serve(r, http.MethodGet, "/api/v1/taxonomy/type_of_contact/options", nil, nil)
	var opts struct {
		Options []services.TermOption `json:"options"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &opts)
	if w.Code != http.StatusOK || len(opts.Options) != len(services.DefaultContactTypes) {
		t.Fatalf("options -> %d %s", w.Code, w.Body.String())
	}

	now := time.Now().UTC()
	body, _ := json.Marshal(map[string]string{
		"contact_date":             now.Format("02/01/2006"),
		"type_of_contact":          opts.Options[0].ID,
		"contact_name":             "Jane Doe",
		"contact_note":             "Discussed dosage",
		"adverse_event_identified": "No",
	})
	hdr := map[string]string{auth.HeaderUserID: "u1", auth.HeaderUserName: "User One", middleware.HeaderIdempotencyKey: "k-1"}

	w = serve(r, http.MethodPost, "/api/v1/contacts/add", body, hdr)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ContactLog domain.ContactLog `json:"contact_log"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ContactLog.AuthorName != "User One" {
		t.Fatalf("author = %q", created.ContactLog.AuthorName)
	}

	w = serve(r, http.MethodPost, "/api/v1/contacts/add", body, hdr)
	if w.Code != http.StatusOK || w.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("replay -> %d", w.Code)
	}

	// Malformed key rejected by the validator.
	bad := map[string]string{middleware.HeaderIdempotencyKey: "has space"}
	if w = serve(r, http.MethodPost, "/api/v1/contacts/add", body, bad); w.Code != http.StatusBadRequest {
		t.Fatalf("bad key -> %d", w.Code)
	}

	id := created.ContactLog.ID
	w = serve(r, http.MethodGet, "/api/v1/contact/"+id, nil, hdr)
	if w.Code != http.StatusOK {
		t.Fatalf("edit form -> %d", w.Code)
	}
	var form struct {
		Breadcrumbs []struct {
			Href string `json:"href"`
		} `json:"breadcrumbs"`
		State services.FormState `json:"state"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &form)
	if len(form.Breadcrumbs) != 3 || form.Breadcrumbs[2].Href != "/contact/"+id {
		t.Fatalf("breadcrumbs = %+v", form.Breadcrumbs)
	}
	if !form.State.DeleteVisible {
		t.Fatalf("fresh record should be deletable")
	}

	w = serve(r, http.MethodPost, "/api/v1/contact_log/"+id+"/delete", nil, hdr)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"status":"ok"`)) {
		t.Fatalf("delete -> %d %s", w.Code, w.Body.String())
	}
	if w = serve(r, http.MethodGet, "/api/v1/contact/"+id, nil, hdr); w.Code != http.StatusNotFound {
		t.Fatalf("deleted edit form -> %d", w.Code)
	}

	// Created, then deleted: both notifications are delivered once.
	w = serve(r, http.MethodGet, "/api/v1/contacts", nil, hdr)
	var list struct {
		Messages []flash.Message `json:"messages"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Messages) != 2 || list.Messages[1].Text != services.MsgDeleted {
		t.Fatalf("messages = %+v", list.Messages)
	}

	w = serve(r, http.MethodGet, "/api/v1/contacts/report.xlsx", nil, hdr)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("report -> %d", w.Code)
	}
}

func TestRegisterRoutes_JWTRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "test-secret", JWTIssuer: "contactlog"})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	RegisterRoutes(r, newTestDB(t), testConfig(), nil, m)

	// Header identity is ignored once tokens are configured.
	w := serve(r, http.MethodGet, "/api/v1/contacts", nil, map[string]string{auth.HeaderUserID: "u1"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token -> %d", w.Code)
	}

	tok, err := m.Issue(time.Now(), "u1", "User One", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	w = serve(r, http.MethodGet, "/api/v1/contacts", nil, map[string]string{"Authorization": "Bearer " + tok})
	if w.Code != http.StatusOK {
		t.Fatalf("with token -> %d", w.Code)
	}

	// Operational routes stay public.
	if w = serve(r, http.MethodGet, "/health", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("health -> %d", w.Code)
	}
}

func TestRegisterRoutes_IdempotencyLookup_ErrorBranch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)

	// Wire routes first...
	RegisterRoutes(r, db, testConfig(), nil, nil)

	// ...then force queries to fail by closing the underlying connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	_ = sqlDB.Close()

	// The lookup error is swallowed; the handler then fails on the closed DB.
	w := serve(r, http.MethodPost, "/api/v1/contacts/add", []byte(`{}`),
		map[string]string{middleware.HeaderIdempotencyKey: "force-error"})
	if w.Code == http.StatusBadRequest {
		t.Fatalf("lookup error must not reject the request")
	}
}
