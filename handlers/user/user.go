package user

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/handlers"
	"github.com/sahilchouksey/ai-course-generator/services"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/middleware"
	"github.com/sahilchouksey/ai-course-generator/utils/response"
	"github.com/sahilchouksey/ai-course-generator/utils/validation"
)

// UserHandler exposes the local user mirror
type UserHandler struct {
	users     *services.UserService
	validator *validation.Validator
	log       *utils.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService, log *utils.Logger) *UserHandler {
	return &UserHandler{
		users:     users,
		validator: validation.NewValidator(),
		log:       log,
	}
}

// UpsertUserRequest represents the request body for POST /api/v1/user
type UpsertUserRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"max=255"`
}

// UpsertUser handles POST /api/v1/user. The email always comes from the
// token; a body email that differs is rejected.
func (h *UserHandler) UpsertUser(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpsertUserRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
		if err := h.validator.ValidateStruct(req); err != nil {
			return handlers.ValidationFailed(c, err)
		}
	}
	if req.Email != "" && !strings.EqualFold(req.Email, id.Email) {
		return response.Forbidden(c, "Email does not match the signed-in user")
	}

	identity := *id
	name := validation.SanitizeString(req.Name)
	if name == "" {
		// the auth middleware already mirrored this identity
		if user, ok := middleware.GetUser(c); ok {
			return response.Success(c, user)
		}
	} else {
		identity.Name = name
	}

	user, err := h.users.EnsureUser(c.UserContext(), identity)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, user)
}
