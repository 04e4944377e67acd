package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/farm2consumer/backend/internal/config"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return signed
}

func newTestApp(auth *Authenticator, extra ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := append([]fiber.Handler{auth.Protected()}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.JSON(GetSession(c))
	})
	app.Get("/me", handlers...)
	app.Get("/public", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"anonymous": GetSession(c).IsAnonymous()})
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestProtectedBuildsSession(t *testing.T) {
	app := newTestApp(NewSecretAuthenticator(testSecret))
	token := signToken(t, jwt.MapClaims{"user_id": "farmer-1", "role": "Farmer"}, testSecret)

	resp := doGet(t, app, "/me", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got session.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "farmer-1", got.UserID)
	assert.Equal(t, session.RoleFarmer, got.Role)
	assert.Equal(t, token, got.Token)
}

func TestProtectedFallsBackToSubAndConsumer(t *testing.T) {
	app := newTestApp(NewSecretAuthenticator(testSecret))
	token := signToken(t, jwt.MapClaims{"sub": "user-9", "role": "superuser"}, testSecret)

	resp := doGet(t, app, "/me", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got session.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "user-9", got.UserID)
	assert.Equal(t, session.RoleConsumer, got.Role)
}

func TestProtectedRejects(t *testing.T) {
	app := newTestApp(NewSecretAuthenticator(testSecret))

	cases := map[string]string{
		"missing header": "",
		"wrong secret":   signToken(t, jwt.MapClaims{"sub": "u"}, []byte("other")),
		"expired":        signToken(t, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret),
		"no subject":     signToken(t, jwt.MapClaims{"role": "farmer"}, testSecret),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			resp := doGet(t, app, "/me", token)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedWithoutConfiguration(t *testing.T) {
	auth, err := NewAuthenticator(&config.Config{})
	require.NoError(t, err)

	app := newTestApp(auth)
	resp := doGet(t, app, "/me", "whatever")
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestRequireRole(t *testing.T) {
	app := newTestApp(NewSecretAuthenticator(testSecret), RequireRole(session.RoleFarmer))

	consumer := signToken(t, jwt.MapClaims{"sub": "c1", "role": "consumer"}, testSecret)
	assert.Equal(t, fiber.StatusForbidden, doGet(t, app, "/me", consumer).StatusCode)

	farmer := signToken(t, jwt.MapClaims{"sub": "f1", "role": "farmer"}, testSecret)
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/me", farmer).StatusCode)

	admin := signToken(t, jwt.MapClaims{"sub": "a1", "role": "admin"}, testSecret)
	assert.Equal(t, fiber.StatusOK, doGet(t, app, "/me", admin).StatusCode)
}

func TestGetSessionOnPublicRoute(t *testing.T) {
	app := newTestApp(NewSecretAuthenticator(testSecret))

	resp := doGet(t, app, "/public", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["anonymous"])
}
