package enrollment

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/handlers"
	"github.com/sahilchouksey/ai-course-generator/services"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/middleware"
	"github.com/sahilchouksey/ai-course-generator/utils/response"
	"github.com/sahilchouksey/ai-course-generator/utils/validation"
)

// EnrollmentHandler handles enrollment and progress requests
type EnrollmentHandler struct {
	service   *services.EnrollmentService
	validator *validation.Validator
	log       *utils.Logger
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(service *services.EnrollmentService, log *utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service:   service,
		validator: validation.NewValidator(),
		log:       log,
	}
}

// EnrollRequest represents the request body for enrolling
type EnrollRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

// UpdateProgressRequest represents the request body for replacing progress
type UpdateProgressRequest struct {
	CourseID          string `json:"courseId" validate:"required"`
	CompletedChapters []int  `json:"completedChapters" validate:"required,max=100"`
}

// ToggleChapterRequest represents the request body for one chapter
type ToggleChapterRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// Enroll handles POST /api/v1/enrollments
func (h *EnrollmentHandler) Enroll(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req EnrollRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.ValidationFailed(c, err)
	}

	enrollment, err := h.service.Enroll(c.UserContext(), email, req.CourseID)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Created(c, enrollment)
}

// ListEnrollments handles GET /api/v1/enrollments
func (h *EnrollmentHandler) ListEnrollments(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrollments, err := h.service.ListEnrollments(c.UserContext(), email)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, enrollments)
}

// GetEnrollment handles GET /api/v1/enrollments/:cid
func (h *EnrollmentHandler) GetEnrollment(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	enrollment, err := h.service.GetEnrollment(c.UserContext(), email, c.Params("cid"))
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, enrollment)
}

// UpdateProgress handles PUT /api/v1/enrollments/progress
func (h *EnrollmentHandler) UpdateProgress(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.ValidationFailed(c, err)
	}

	enrollment, err := h.service.UpdateProgress(c.UserContext(), email, req.CourseID, req.CompletedChapters)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, enrollment)
}

// SetChapter handles PATCH /api/v1/enrollments/:cid/chapters/:index
func (h *EnrollmentHandler) SetChapter(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return response.BadRequest(c, "Chapter index must be a number")
	}

	var req ToggleChapterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.ValidationFailed(c, err)
	}

	enrollment, err := h.service.SetChapterCompleted(c.UserContext(), email, c.Params("cid"), index, *req.Completed)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, enrollment)
}
