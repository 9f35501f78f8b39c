package course

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/handlers"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/services"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/middleware"
	"github.com/sahilchouksey/ai-course-generator/utils/response"
	"github.com/sahilchouksey/ai-course-generator/utils/validation"
)

// CourseHandler handles course generation, editing and reads
type CourseHandler struct {
	layouts   *services.CourseLayoutService
	contents  *services.CourseContentService
	topics    *services.TopicEditor
	queries   *services.CourseQueryService
	validator *validation.Validator
	log       *utils.Logger
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(
	layouts *services.CourseLayoutService,
	contents *services.CourseContentService,
	topics *services.TopicEditor,
	queries *services.CourseQueryService,
	log *utils.Logger,
) *CourseHandler {
	if log == nil {
		log = utils.NopLogger()
	}
	return &CourseHandler{
		layouts:   layouts,
		contents:  contents,
		topics:    topics,
		queries:   queries,
		validator: validation.NewValidator(),
		log:       log,
	}
}

// GenerateContentRequest represents the request body for content generation
type GenerateContentRequest struct {
	CourseJSON      json.RawMessage `json:"courseJson"`
	CourseTitle     string          `json:"courseTitle"`
	CourseID        string          `json:"courseId"`
	ClientRequestID string          `json:"clientRequestId"`
}

// CreateLayout handles POST /api/v1/courses/layout
func (h *CourseHandler) CreateLayout(c *fiber.Ctx) error {
	var req services.CreateLayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	// the token is checked before anything else so replays are cheap
	if strings.TrimSpace(req.ClientRequestID) == "" {
		return response.MissingField(c, "clientRequestId is required")
	}
	req.Name = validation.SanitizeString(req.Name)
	req.Level = strings.ToLower(strings.TrimSpace(req.Level))
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.ValidationFailed(c, err)
	}

	caller, _ := middleware.GetIdentity(c)
	result, err := h.layouts.CreateLayout(c.UserContext(), caller, req)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	if result.Reused {
		return response.Success(c, result)
	}
	return c.Status(fiber.StatusCreated).JSON(response.Response{
		Success: true,
		Message: "Course layout generated",
		Data:    result,
	})
}

// GenerateContent handles POST /api/v1/courses/content
func (h *CourseHandler) GenerateContent(c *fiber.Ctx) error {
	var req GenerateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.CourseID) == "" || strings.TrimSpace(req.ClientRequestID) == "" {
		return response.MissingField(c, "courseId and clientRequestId are required")
	}

	chapters, err := services.ParseCourseJSON(req.CourseJSON)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	caller, _ := middleware.GetIdentity(c)
	result, err := h.contents.GenerateContent(c.UserContext(), caller, services.ContentInput{
		Chapters:        chapters,
		CourseTitle:     req.CourseTitle,
		CourseID:        req.CourseID,
		ClientRequestID: req.ClientRequestID,
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	return response.Success(c, result)
}

// EditTopic handles PUT /api/v1/courses/topics
func (h *CourseHandler) EditTopic(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.EditTopicRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	if err := h.validator.ValidateStruct(req); err != nil {
		return handlers.ValidationFailed(c, err)
	}

	result, err := h.topics.EditTopic(c.UserContext(), email, req)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	return response.Success(c, result)
}

// ListMyCourses handles GET /api/v1/courses
func (h *CourseHandler) ListMyCourses(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	courses, err := h.queries.ListMine(c.UserContext(), email)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, courses)
}

// CourseView is a course as seen by the caller of a public read
type CourseView struct {
	model.Course
	IsOwner bool `json:"isOwner"`
}

func viewFor(c *fiber.Ctx, course model.Course) CourseView {
	email, _ := middleware.GetUserEmail(c)
	return CourseView{Course: course, IsOwner: email != "" && email == course.UserEmail}
}

// Explore handles GET /api/v1/courses/explore
func (h *CourseHandler) Explore(c *fiber.Ctx) error {
	courses, err := h.queries.Explore(c.UserContext())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	views := make([]CourseView, 0, len(courses))
	for _, course := range courses {
		views = append(views, viewFor(c, course))
	}
	return response.Success(c, views)
}

// GetCourse handles GET /api/v1/courses/:cid. A signed-in owner sees
// isOwner set so the client can offer editing.
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	course, err := h.queries.GetByCID(c.UserContext(), c.Params("cid"))
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, viewFor(c, *course))
}
