package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/services/llm"
)

// chapterCompleter answers each chapter prompt with generated topics and
// fails the chapters listed in failing.
func chapterCompleter(failing ...string) *fakeCompleter {
	return &fakeCompleter{fn: func(prompt string) (string, error) {
		for _, name := range failing {
			if strings.Contains(prompt, fmt.Sprintf(`"chapterName":%q`, name)) {
				return "", &llm.APIError{StatusCode: 500, Body: "model crashed"}
			}
		}
		start := strings.Index(prompt, `"chapterName":"`) + len(`"chapterName":"`)
		name := prompt[start : start+strings.Index(prompt[start:], `"`)]
		return fmt.Sprintf(`{"chapterName":%q,"topics":[{"topic":"Overview","content":"<div><h2><u>%s</u></h2><script>x()</script><p>Body</p></div>"}]}`, name, name), nil
	}}
}

func newContentService(t *testing.T, completer Completer) *CourseContentService {
	t.Helper()
	return NewCourseContentService(ContentServiceConfig{
		DB:     openTestDB(t),
		LLM:    completer,
		Videos: fakeVideos{},
		Retry:  fastRetry(),
	})
}

func TestGenerateContentIsolatesChapterFailures(t *testing.T) {
	completer := chapterCompleter("B")
	svc := newContentService(t, completer)
	chapters := []model.LayoutChapter{chapter("A", "a1"), chapter("B", "b1"), chapter("C", "c1")}
	seedCourse(t, svc.db, "cid-1", "Go Basics", "ada@example.com", chapters...)

	res, err := svc.GenerateContent(context.Background(), identity("ada@example.com", ""), ContentInput{
		Chapters:        chapters,
		CourseTitle:     "Go Basics",
		CourseID:        "cid-1",
		ClientRequestID: "content-1",
	})
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}

	if len(res.Content) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(res.Content))
	}
	for i, name := range []string{"A", "B", "C"} {
		entry := res.Content[i]
		if entry.CourseData.ChapterName != name {
			t.Fatalf("entry %d has chapter %q, want %q", i, entry.CourseData.ChapterName, name)
		}
		if len(entry.YoutubeVideo) != 1 || entry.YoutubeVideo[0].VideoID != "vid-"+strings.ToLower(name) {
			t.Fatalf("entry %d videos %+v", i, entry.YoutubeVideo)
		}
	}
	if got := res.Content[1].CourseData.Topics[0].Topic; got != "Error" {
		t.Fatalf("expected placeholder at index 1, got topic %q", got)
	}
	for _, i := range []int{0, 2} {
		content := res.Content[i].CourseData.Topics[0].Content
		if strings.Contains(content, "script") || !strings.Contains(content, "<p>Body</p>") {
			t.Fatalf("entry %d content not sanitized: %q", i, content)
		}
	}

	var stored model.Course
	if err := svc.db.Where("cid = ?", "cid-1").First(&stored).Error; err != nil {
		t.Fatalf("load course: %v", err)
	}
	if !stored.HasContent || len(stored.Content) != 3 {
		t.Fatalf("content not persisted: has=%v len=%d", stored.HasContent, len(stored.Content))
	}
	if stored.ContentRequestID == nil || *stored.ContentRequestID != "content-1" {
		t.Fatalf("content token not stored")
	}
}

func TestGenerateContentReturnsCachedResult(t *testing.T) {
	completer := chapterCompleter()
	svc := newContentService(t, completer)
	chapters := []model.LayoutChapter{chapter("A", "a1"), chapter("B", "b1")}
	seedCourse(t, svc.db, "cid-1", "Go Basics", "ada@example.com", chapters...)
	in := ContentInput{Chapters: chapters, CourseID: "cid-1", ClientRequestID: "content-1"}

	first, err := svc.GenerateContent(context.Background(), identity("ada@example.com", ""), in)
	if err != nil {
		t.Fatalf("GenerateContent returned error: %v", err)
	}
	if first.CourseName != "Go Basics" {
		t.Fatalf("course name should fall back to the stored name, got %q", first.CourseName)
	}
	calls := completer.calls.Load()

	second, err := svc.GenerateContent(context.Background(), identity("ada@example.com", ""), in)
	if err != nil {
		t.Fatalf("second GenerateContent returned error: %v", err)
	}
	if !second.Cached || len(second.Content) != 2 {
		t.Fatalf("expected cached content, got %+v", second)
	}
	if completer.calls.Load() != calls {
		t.Fatalf("cached request must not call the model")
	}
}

func TestGenerateContentPreconditions(t *testing.T) {
	svc := newContentService(t, chapterCompleter())
	chapters := []model.LayoutChapter{chapter("A", "a1"), chapter("B", "b1")}
	seedCourse(t, svc.db, "cid-1", "Go Basics", "ada@example.com", chapters...)
	ctx := context.Background()
	owner := identity("ada@example.com", "")

	tests := []struct {
		name   string
		caller bool
		in     ContentInput
		want   error
	}{
		{"missing course id", true, ContentInput{Chapters: chapters, ClientRequestID: "t"}, ErrMissingField},
		{"missing token", true, ContentInput{Chapters: chapters, CourseID: "cid-1"}, ErrMissingField},
		{"no chapters", true, ContentInput{CourseID: "cid-1", ClientRequestID: "t"}, ErrMissingField},
		{"anonymous", false, ContentInput{Chapters: chapters, CourseID: "cid-1", ClientRequestID: "t"}, ErrUnauthorized},
		{"unknown course", true, ContentInput{Chapters: chapters, CourseID: "nope", ClientRequestID: "t"}, ErrCourseNotFound},
		{"chapter mismatch", true, ContentInput{Chapters: chapters[:1], CourseID: "cid-1", ClientRequestID: "t"}, ErrChapterMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := owner
			if !tt.caller {
				caller = nil
			}
			if _, err := svc.GenerateContent(ctx, caller, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	_, err := svc.GenerateContent(ctx, identity("mallory@example.com", ""), ContentInput{Chapters: chapters, CourseID: "cid-1", ClientRequestID: "t"})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}
}

func TestParseCourseJSON(t *testing.T) {
	doc := `{"course":{"name":"X","chapters":[{"chapterName":"A","topics":["t"]}]}}`
	inner := `{"name":"X","chapters":[{"chapterName":"A","topics":["t"]},{"chapterName":"B"}]}`

	chapters, err := ParseCourseJSON(json.RawMessage(doc))
	if err != nil || len(chapters) != 1 {
		t.Fatalf("layout document: %v %v", chapters, err)
	}
	chapters, err = ParseCourseJSON(json.RawMessage(inner))
	if err != nil || len(chapters) != 2 {
		t.Fatalf("inner course: %v %v", chapters, err)
	}
	if _, err := ParseCourseJSON(json.RawMessage(`{"name":"X"}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if _, err := ParseCourseJSON(nil); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField for empty input, got %v", err)
	}

	// decoder detail stays out of the message returned to callers
	_, err = ParseCourseJSON(json.RawMessage(`{"chapters":"one"}`))
	if !errors.Is(err, ErrMissingField) || err.Error() != "missing required field: courseJson is not a valid layout" {
		t.Fatalf("unexpected error for mistyped chapters: %v", err)
	}
}
