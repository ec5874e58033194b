package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asmaravianti/ecg-compression/internal/config"
	"github.com/asmaravianti/ecg-compression/internal/database"
	"github.com/asmaravianti/ecg-compression/internal/handlers"
	"github.com/asmaravianti/ecg-compression/internal/middleware"
	"github.com/asmaravianti/ecg-compression/internal/models"
	"github.com/asmaravianti/ecg-compression/internal/routes"
	"github.com/asmaravianti/ecg-compression/internal/services"
	"github.com/asmaravianti/ecg-compression/internal/storage"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakePlatform is the integration stand-in for Codabench. It assigns a
// fixed id and reports a scripted status.
type fakePlatform struct {
	submitID  string
	submitErr error
	status    *services.StatusResult
	entries   []services.LeaderboardEntry
	lbErr     error
}

func (f *fakePlatform) Submit(ctx context.Context, req services.SubmitRequest) (string, error) {
	return f.submitID, f.submitErr
}

func (f *fakePlatform) Status(ctx context.Context, id string) (*services.StatusResult, error) {
	if f.status == nil {
		return &services.StatusResult{Status: "running"}, nil
	}
	return f.status, nil
}

func (f *fakePlatform) Leaderboard(ctx context.Context) ([]services.LeaderboardEntry, error) {
	return f.entries, f.lbErr
}

func (f *fakePlatform) TestConnection(ctx context.Context) error { return f.lbErr }

// setupRouter builds the full API surface against an in-memory database,
// mirroring the wiring in cmd/server.
func setupRouter(t *testing.T, fake *fakePlatform) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.AppConfig = &config.Config{
		JWTSecret:               "integration_secret_key",
		TokenTTLHours:           24,
		MaxUploadSize:           50 * 1024 * 1024,
		SubmitDegradeGracefully: true,
	}

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.Team{}, &models.Upload{}, &models.Submission{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	database.DB = db

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create upload store: %v", err)
	}

	tracker := services.NewTracker(fake, time.Hour, 1)
	t.Cleanup(tracker.Stop)
	handlers.Init(fake, tracker, store)

	r := gin.New()
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(gin.Recovery())

	api := r.Group("/api")
	routes.RegisterAuthRoutes(api)
	routes.RegisterPortalRoutes(api)
	return r
}

func performJSON(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func performUpload(r *gin.Engine, token, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("algorithm", filename)
	part.Write(content)
	mw.Close()

	req, _ := http.NewRequest("POST", "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates a team through the public endpoints and returns
// its session token.
func registerAndLogin(t *testing.T, r *gin.Engine, teamName, email string) string {
	t.Helper()

	w := performJSON(r, "POST", "/api/register", map[string]string{
		"teamName": teamName,
		"email":    email,
		"password": "Integration1pass",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", w.Code, w.Body.String())
	}

	w = performJSON(r, "POST", "/api/login", map[string]string{
		"email":    email,
		"password": "Integration1pass",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Token == "" {
		t.Fatal("login returned no token")
	}
	return resp.Token
}
