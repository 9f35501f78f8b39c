package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/services"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/response"
	"github.com/sahilchouksey/ai-course-generator/utils/validation"
)

// ServiceError maps a service error to the response envelope. Unknown
// errors are logged and reported without their text.
func ServiceError(c *fiber.Ctx, log *utils.Logger, err error) error {
	switch {
	case errors.Is(err, services.ErrMissingField):
		return response.MissingField(c, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		return response.Unauthorized(c, "")
	case errors.Is(err, services.ErrForbidden):
		return response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrCourseNotFound):
		return response.NotFound(c, "Course not found")
	case errors.Is(err, services.ErrEnrollmentNotFound):
		return response.NotFound(c, "Enrollment not found")
	case errors.Is(err, services.ErrDuplicateName):
		return response.DuplicateName(c, err.Error())
	case errors.Is(err, services.ErrQuotaExceeded):
		return response.QuotaExceeded(c, "Your plan allows one course. Upgrade to premium to create more.")
	case errors.Is(err, services.ErrRequestInProgress),
		errors.Is(err, services.ErrAlreadyEnrolled),
		errors.Is(err, services.ErrStructureLocked):
		return response.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidIndex),
		errors.Is(err, services.ErrChapterMismatch),
		errors.Is(err, services.ErrInvalidAction):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrGenerationFailed):
		return response.UpstreamFailure(c, "The model provider is busy. Please try again in a minute.")
	case errors.Is(err, services.ErrMalformedOutput):
		return response.UpstreamFailure(c, "The model returned an unusable answer. Please try again.")
	case errors.Is(err, services.ErrUpstreamFailure):
		return response.UpstreamFailure(c, "")
	case errors.Is(err, context.DeadlineExceeded):
		return response.ServiceUnavailable(c, "Request timed out")
	}

	if log != nil {
		log.Error("request failed", "path", c.Path(), "error", err)
	}
	return response.InternalServerError(c, "")
}

// ValidationFailed renders validator errors as one readable line
func ValidationFailed(c *fiber.Ctx, err error) error {
	return response.ErrorWithDetails(c, fiber.StatusUnprocessableEntity,
		"Validation failed", response.CodeValidation, validation.Summary(err))
}
