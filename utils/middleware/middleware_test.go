package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
)

type fakeMirror struct {
	seen []auth.Identity
	err  error
}

func (f *fakeMirror) EnsureUser(ctx context.Context, id auth.Identity) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.seen = append(f.seen, id)
	return &model.User{Email: id.Email, Name: id.Name}, nil
}

func newJWT() *auth.JWTManager {
	return auth.NewJWTManager(auth.JWTConfig{Secret: "test-secret", Issuer: "test", Expiry: time.Hour})
}

func TestRequiredAuth(t *testing.T) {
	jwt := newJWT()
	mirror := &fakeMirror{}
	mw := NewAuthMiddleware(jwt, mirror, nil)

	app := fiber.New()
	app.Get("/me", mw.Required(), func(c *fiber.Ctx) error {
		id, ok := GetIdentity(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		if _, ok := GetUser(c); !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendString(id.Email)
	})

	token, err := jwt.GenerateToken("Ada@Example.com", "Ada", "")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"bad format", "Token abc", fiber.StatusUnauthorized},
		{"bad token", "Bearer nope", fiber.StatusUnauthorized},
		{"valid", "Bearer " + token, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Fatalf("status %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.status == fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != "ada@example.com" {
					t.Fatalf("unexpected body %q", body)
				}
			}
		})
	}

	if len(mirror.seen) != 1 || mirror.seen[0].Email != "ada@example.com" {
		t.Fatalf("user not mirrored: %+v", mirror.seen)
	}
}

func TestRequiredAuthMirrorFailure(t *testing.T) {
	jwt := newJWT()
	mw := NewAuthMiddleware(jwt, &fakeMirror{err: errors.New("db down")}, nil)
	app := fiber.New()
	app.Get("/me", mw.Required(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	token, _ := jwt.GenerateToken("ada@example.com", "Ada", "")
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.StatusCode)
	}
}

func TestOptionalAuth(t *testing.T) {
	jwt := newJWT()
	mw := NewAuthMiddleware(jwt, nil, nil)
	app := fiber.New()
	app.Get("/", mw.Optional(), func(c *fiber.Ctx) error {
		if email, ok := GetUserEmail(c); ok {
			return c.SendString(email)
		}
		return c.SendString("anonymous")
	})

	resp, _ := app.Test(httptest.NewRequest("GET", "/", nil))
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "anonymous" {
		t.Fatalf("unexpected body %q", body)
	}

	token, _ := jwt.GenerateToken("grace@example.com", "Grace", "")
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, _ = app.Test(req)
	body, _ = io.ReadAll(resp.Body)
	if string(body) != "grace@example.com" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestInFlightTracker(t *testing.T) {
	tracker := NewInFlightTracker()
	updates, cancel := tracker.Subscribe("ada")
	defer cancel()

	if n := <-updates; n != 0 {
		t.Fatalf("initial count %d", n)
	}

	end1 := tracker.Begin("ada")
	if n := <-updates; n != 1 {
		t.Fatalf("after begin %d", n)
	}
	end2 := tracker.Begin("ada")
	end1()
	end1()
	// only the newest value is buffered
	if n := <-updates; n != 1 {
		t.Fatalf("after second begin and one end %d", n)
	}
	if tracker.Count("ada") != 1 || tracker.Count("grace") != 0 {
		t.Fatalf("unexpected counts")
	}

	tracker.Reset("ada")
	if n := <-updates; n != 0 {
		t.Fatalf("after reset %d", n)
	}
	end2()
	if tracker.Count("ada") != 0 {
		t.Fatalf("count must not go negative")
	}
}

func TestTrackMiddleware(t *testing.T) {
	tracker := NewInFlightTracker()
	app := fiber.New()
	var during int
	app.Post("/work", func(c *fiber.Ctx) error {
		c.Locals("user_email", "ada@example.com")
		return c.Next()
	}, tracker.Track(), func(c *fiber.Ctx) error {
		during = tracker.Count("ada@example.com")
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/work", strings.NewReader("")))
	if err != nil || resp.StatusCode != fiber.StatusOK {
		t.Fatalf("request failed: %v", err)
	}
	if during != 1 || tracker.Count("ada@example.com") != 0 {
		t.Fatalf("during=%d after=%d", during, tracker.Count("ada@example.com"))
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil)})
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })

	resp, _ := app.Test(httptest.NewRequest("GET", "/missing", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("GET", "/boom", nil))
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusInternalServerError || !strings.Contains(string(body), "INTERNAL_ERROR") || strings.Contains(string(body), "boom") {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, body)
	}
}
