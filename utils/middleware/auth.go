package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"github.com/sahilchouksey/ai-course-generator/utils/response"
)

// UserMirror creates the local user row for an identity on first contact
type UserMirror interface {
	EnsureUser(ctx context.Context, id auth.Identity) (*model.User, error)
}

// AuthMiddleware validates identity-provider tokens
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	users      UserMirror
	log        *utils.Logger
}

// NewAuthMiddleware creates a new auth middleware. users may be nil, in
// which case no local row is created.
func NewAuthMiddleware(jwtManager *auth.JWTManager, users UserMirror, log *utils.Logger) *AuthMiddleware {
	if log == nil {
		log = utils.NopLogger()
	}
	return &AuthMiddleware{
		jwtManager: jwtManager,
		users:      users,
		log:        log,
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Required is middleware that requires a valid token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}
		tokenString, ok := bearerToken(c)
		if !ok {
			return response.Unauthorized(c, "Invalid authorization format")
		}

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid token")
		}

		id := claims.Identity()
		if m.users != nil {
			user, err := m.users.EnsureUser(c.UserContext(), id)
			if err != nil {
				m.log.Error("failed to mirror user", "email", id.Email, "error", err)
				return response.InternalServerError(c, "Failed to load user")
			}
			c.Locals("user", user)
		}

		setIdentity(c, id)
		return c.Next()
	}
}

// Optional is middleware that allows requests with or without a token
func (m *AuthMiddleware) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return c.Next()
		}
		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			return c.Next()
		}
		setIdentity(c, claims.Identity())
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, id auth.Identity) {
	c.Locals("identity", &id)
	c.Locals("user_email", id.Email)
}

// GetIdentity extracts the authenticated caller from context
func GetIdentity(c *fiber.Ctx) (*auth.Identity, bool) {
	id, ok := c.Locals("identity").(*auth.Identity)
	return id, ok && id != nil
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *fiber.Ctx) (string, bool) {
	email, ok := c.Locals("user_email").(string)
	return email, ok && email != ""
}

// GetUser extracts the mirrored user row from context
func GetUser(c *fiber.Ctx) (*model.User, bool) {
	user, ok := c.Locals("user").(*model.User)
	return user, ok && user != nil
}
