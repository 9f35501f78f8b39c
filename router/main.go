package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/database"
	"github.com/sahilchouksey/ai-course-generator/handlers"
	activity_handlers "github.com/sahilchouksey/ai-course-generator/handlers/activity"
	course_handlers "github.com/sahilchouksey/ai-course-generator/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/ai-course-generator/handlers/enrollment"
	user_handlers "github.com/sahilchouksey/ai-course-generator/handlers/user"
	"github.com/sahilchouksey/ai-course-generator/utils/middleware"
)

// Dependencies carries everything the routes need. Built by app.Setup.
type Dependencies struct {
	Store          database.Storage
	Auth           *middleware.AuthMiddleware
	Tracker        *middleware.InFlightTracker
	Courses        *course_handlers.CourseHandler
	Enrollments    *enrollment_handlers.EnrollmentHandler
	Users          *user_handlers.UserHandler
	Activity       *activity_handlers.ActivityHandler
	AllowedOrigins string
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    deps.AllowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return handlers.HandleCheckHealth(c, deps.Store)
	})

	// API v1 group
	api := app.Group("/api/v1")
	required := deps.Auth.Required()
	optional := deps.Auth.Optional()

	// User mirror
	api.Post("/user", required, deps.Users.UpsertUser)

	// Courses routes
	courses := api.Group("/courses")
	courses.Get("/", required, deps.Courses.ListMyCourses)                                 // Protected: caller's courses
	courses.Get("/explore", optional, deps.Courses.Explore)                                // Public: latest courses
	courses.Post("/layout", required, deps.Tracker.Track(), deps.Courses.CreateLayout)     // Protected: generate layout
	courses.Post("/content", required, deps.Tracker.Track(), deps.Courses.GenerateContent) // Protected: expand chapters
	courses.Put("/topics", required, deps.Courses.EditTopic)                               // Protected: edit one topic
	courses.Get("/:cid", optional, deps.Courses.GetCourse)                                 // Public: course by cid

	// Enrollment routes (all protected)
	enrollments := api.Group("/enrollments", required)
	enrollments.Post("/", deps.Enrollments.Enroll)
	enrollments.Get("/", deps.Enrollments.ListEnrollments)
	enrollments.Put("/progress", deps.Enrollments.UpdateProgress)
	enrollments.Get("/:cid", deps.Enrollments.GetEnrollment)
	enrollments.Patch("/:cid/chapters/:index", deps.Enrollments.SetChapter)

	// Generation activity
	activity := api.Group("/activity", required)
	activity.Get("/stream", deps.Activity.Stream)
	activity.Post("/reset", deps.Activity.Reset)
}
