package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/ai-course-generator/services/llm"
	"github.com/sahilchouksey/ai-course-generator/utils"
)

// Service errors. Handlers map these to response codes with errors.Is.
var (
	ErrMissingField       = errors.New("missing required field")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("only the course owner can do this")
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrDuplicateName      = errors.New("a course with this name already exists")
	ErrQuotaExceeded      = errors.New("course limit reached for your plan")
	ErrRequestInProgress  = errors.New("a request with this id is already in progress")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrStructureLocked    = errors.New("topics cannot be added or removed once content exists")
	ErrInvalidIndex       = errors.New("index out of range")
	ErrChapterMismatch    = errors.New("chapters do not match the stored layout")
	ErrInvalidAction      = errors.New("invalid action")
	ErrUpstreamFailure    = errors.New("model provider request failed")

	// Re-exported so callers only need this package
	ErrGenerationFailed = llm.ErrGenerationFailed
	ErrMalformedOutput  = utils.ErrMalformedOutput
)

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}

// upstream tags provider errors that are not already classified
func upstream(err error) error {
	if errors.Is(err, ErrGenerationFailed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstreamFailure, err)
}
