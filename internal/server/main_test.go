package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"snapshare/internal/config"
	"snapshare/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "Snapshare-demo-1!"

type testEnv struct {
	server *Server
	app    *fiber.App
	db     *gorm.DB
	cfg    *config.Config
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            "0",
		JWTSecret:       "test-secret-key-that-is-at-least-32-chars",
		AllowedOrigins:  "http://localhost:5173",
		UploadDir:       t.TempDir(),
		UploadMaxSizeMB: 2,
		EventsSink:      "none",
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:srv_%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func newTestEnv(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()
	cfg := testConfig(t)
	db := setupTestDB(t)
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testEnv{server: srv, app: srv.NewApp(), db: db, cfg: cfg}
}

// do sends a JSON request and returns the status and decoded body.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// register creates an account and returns its token.
func (e *testEnv) register(t *testing.T, username string) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/users", "", fiber.Map{
		"user": fiber.Map{
			"username": username,
			"email":    username + "@example.com",
			"password": testPassword,
		},
	})
	require.Equal(t, http.StatusCreated, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// createPost publishes a post through the JSON route and returns its slug.
func (e *testEnv) createPost(t *testing.T, token, description string, tags ...string) string {
	t.Helper()
	if tags == nil {
		tags = []string{}
	}
	status, body := e.do(t, http.MethodPost, "/api/posts", token, fiber.Map{
		"post": fiber.Map{
			"description": description,
			"tagList":     tags,
			"imageRef":    "photo.jpg",
		},
	})
	require.Equal(t, http.StatusCreated, status, body)
	return postField(t, body, "slug").(string)
}

func postField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	post, ok := body["post"].(map[string]any)
	require.True(t, ok, body)
	return post[key]
}

func postSlugs(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["posts"].([]any)
	require.True(t, ok, body)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.(map[string]any)["slug"].(string))
	}
	return out
}
