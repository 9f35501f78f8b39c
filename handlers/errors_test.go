package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/services"
	"github.com/sahilchouksey/ai-course-generator/utils/response"
)

func TestServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing field", fmt.Errorf("%w: name", services.ErrMissingField), 400, response.CodeMissingField},
		{"unauthorized", services.ErrUnauthorized, 401, response.CodeUnauthorized},
		{"forbidden", services.ErrForbidden, 403, response.CodeForbidden},
		{"course not found", services.ErrCourseNotFound, 404, response.CodeNotFound},
		{"duplicate name", services.ErrDuplicateName, 409, response.CodeDuplicateName},
		{"quota", services.ErrQuotaExceeded, 403, response.CodeQuotaExceeded},
		{"in progress", services.ErrRequestInProgress, 409, response.CodeConflict},
		{"locked", services.ErrStructureLocked, 409, response.CodeConflict},
		{"bad index", services.ErrInvalidIndex, 400, response.CodeBadRequest},
		{"retries exhausted", fmt.Errorf("layout: %w", services.ErrGenerationFailed), 502, response.CodeUpstream},
		{"malformed", services.ErrMalformedOutput, 502, response.CodeUpstream},
		{"upstream", services.ErrUpstreamFailure, 502, response.CodeUpstream},
		{"timeout", context.DeadlineExceeded, 503, response.CodeUnavailable},
		{"unknown", errors.New("disk on fire"), 500, response.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return ServiceError(c, nil, tt.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status %d, want %d", resp.StatusCode, tt.status)
			}
			var body response.Response
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Success || body.Error == nil || body.Error.Code != tt.code {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}
