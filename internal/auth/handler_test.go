package auth_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"karigar-backend/internal/auth"
	"karigar-backend/internal/config"
	"karigar-backend/internal/database"
)

func newAuthTestApp(t *testing.T) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.DB = db

	cfg := &config.Config{JWTSecret: "test-secret-test-secret-test-secret!"}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Unexpected server error"})
		},
	})

	api := app.Group("/api")
	api.Post("/setup", auth.SetupHandler())
	api.Post("/auth/login", auth.LoginHandler(cfg))

	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))
	protected.Get("/auth/me", auth.MeHandler())

	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]any
	_ = json.Unmarshal(raw, &parsed)
	return resp, parsed
}

func TestSetupThenLogin(t *testing.T) {
	app := newAuthTestApp(t)

	resp, body := postJSON(t, app, "/api/setup", map[string]any{
		"email":    "Owner@Example.com",
		"password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "owner@example.com", body["email"])
	assert.Equal(t, "ADMIN", body["role"])

	// second setup is refused
	resp, _ = postJSON(t, app, "/api/setup", map[string]any{
		"email": "evil@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// wrong password
	resp, _ = postJSON(t, app, "/api/auth/login", map[string]any{
		"email": "owner@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// correct login yields a token that works against /auth/me
	resp, body = postJSON(t, app, "/api/auth/login", map[string]any{
		"email": "owner@example.com", "password": "hunter2hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	var me map[string]any
	require.NoError(t, json.Unmarshal(raw, &me))
	assert.Equal(t, "owner@example.com", me["email"])
	assert.Equal(t, "ADMIN", me["role"])
}

func TestProtectedRouteRejectsBadTokens(t *testing.T) {
	app := newAuthTestApp(t)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	res, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req = httptest.NewRequest("GET", "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
