package activity

import (
	"bufio"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/utils/middleware"
	"github.com/sahilchouksey/ai-course-generator/utils/response"
	"github.com/sahilchouksey/ai-course-generator/utils/sse"
)

const keepAliveInterval = 15 * time.Second

// ActivityHandler exposes the caller's in-flight generation count
type ActivityHandler struct {
	tracker *middleware.InFlightTracker
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(tracker *middleware.InFlightTracker) *ActivityHandler {
	return &ActivityHandler{tracker: tracker}
}

// Snapshot is the payload of every activity event
type Snapshot struct {
	InFlight int  `json:"inFlight"`
	Loading  bool `json:"loading"`
}

// Stream handles GET /api/v1/activity/stream
func (h *ActivityHandler) Stream(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	updates, cancel := h.tracker.Subscribe(email)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		_ = streamActivity(w, updates, ticker.C)
	})
	return nil
}

// Reset handles POST /api/v1/activity/reset, sent by clients on navigation
func (h *ActivityHandler) Reset(c *fiber.Ctx) error {
	email, ok := middleware.GetUserEmail(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	h.tracker.Reset(email)
	return response.Success(c, Snapshot{})
}

// streamActivity writes one event per count change until updates closes or
// the client goes away.
func streamActivity(w *bufio.Writer, updates <-chan int, keepAlive <-chan time.Time) error {
	for {
		select {
		case n, ok := <-updates:
			if !ok {
				return nil
			}
			if err := sse.Send(w, sse.Event{Event: "activity", Data: Snapshot{InFlight: n, Loading: n > 0}}); err != nil {
				return err
			}
		case <-keepAlive:
			if err := sse.SendKeepAlive(w); err != nil {
				return err
			}
		}
	}
}
