/**
 * @description
 * Authentication middleware for marketplace JWTs.
 * Validates Bearer tokens with either a shared HMAC secret or a JWKS endpoint and
 * stores the caller's session.Session in the request context.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2: HTTP Context
 * - github.com/golang-jwt/jwt/v5: JWT parsing
 * - github.com/MicahParks/keyfunc/v2: JWKS fetching and caching
 *
 * @notes
 * - JWKS_URL wins over JWT_SECRET when both are configured.
 * - The user ID is read from the "user_id" claim, falling back to "sub".
 */

package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/farm2consumer/backend/internal/config"
	"github.com/farm2consumer/backend/internal/logger"
	"github.com/farm2consumer/backend/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const sessionKey = "session"

// Authenticator validates bearer tokens
type Authenticator struct {
	keyfunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
}

// NewAuthenticator builds an Authenticator from config. With no secret and no
// JWKS URL it still returns a usable value whose protected routes answer 500.
func NewAuthenticator(cfg *config.Config) (*Authenticator, error) {
	if cfg.Auth.JWKSURL != "" {
		// Refresh the JWKS every hour.
		jwks, err := keyfunc.Get(cfg.Auth.JWKSURL, keyfunc.Options{
			RefreshInterval: time.Hour,
			RefreshErrorHandler: func(err error) {
				logger.Error("There was an error with the JWKS refresh: %v", err)
			},
		})
		if err != nil {
			return &Authenticator{}, err
		}
		logger.Info("Auth Middleware Initialized with JWKS")
		return &Authenticator{keyfunc: jwks.Keyfunc, jwks: jwks}, nil
	}

	if cfg.Auth.Secret != "" {
		logger.Info("Auth Middleware Initialized with shared secret")
		return NewSecretAuthenticator([]byte(cfg.Auth.Secret)), nil
	}

	logger.Warn("Neither JWKS_URL nor JWT_SECRET is set. Auth validation will fail.")
	return &Authenticator{}, nil
}

// NewSecretAuthenticator accepts HS256 tokens signed with secret.
func NewSecretAuthenticator(secret []byte) *Authenticator {
	return &Authenticator{
		keyfunc: func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return secret, nil
		},
	}
}

// Close stops the JWKS background refresh, if any.
func (a *Authenticator) Close() {
	if a != nil && a.jwks != nil {
		a.jwks.EndBackground()
	}
}

// Protected protects routes requiring authentication
func (a *Authenticator) Protected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a == nil || a.keyfunc == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Auth configuration not initialized",
			})
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token format"})
		}

		token, err := jwt.Parse(tokenString, a.keyfunc)
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
		}

		sess, err := sessionFromClaims(claims, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(sessionKey, sess)
		return c.Next()
	}
}

func sessionFromClaims(claims jwt.MapClaims, token string) (session.Session, error) {
	userID := claimString(claims, "user_id")
	if userID == "" {
		userID = claimString(claims, "sub")
	}
	if userID == "" {
		return session.Session{}, errors.New("Token missing subject")
	}

	role := session.Role(strings.ToLower(claimString(claims, "role")))
	switch role {
	case session.RoleFarmer, session.RoleAdmin:
	default:
		role = session.RoleConsumer
	}

	return session.Session{UserID: userID, Role: role, Token: token}, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// RequireRole rejects sessions whose role is not one of roles. Admins always pass.
// It must run after Protected.
func RequireRole(roles ...session.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := GetSession(c)
		if sess.IsAnonymous() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		if sess.Role == session.RoleAdmin {
			return c.Next()
		}
		for _, r := range roles {
			if sess.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
}

// GetSession returns the caller's session, or session.Anonymous on public routes.
func GetSession(c *fiber.Ctx) session.Session {
	sess, ok := c.Locals(sessionKey).(session.Session)
	if !ok {
		return session.Anonymous
	}
	return sess
}
