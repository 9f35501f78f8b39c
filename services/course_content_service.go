package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/services/llm"
	"github.com/sahilchouksey/ai-course-generator/services/media"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"github.com/sahilchouksey/ai-course-generator/utils/htmlclean"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentInput is the content generation input
type ContentInput struct {
	Chapters        []model.LayoutChapter
	CourseTitle     string
	CourseID        string
	ClientRequestID string
}

// ContentResult is returned by GenerateContent
type ContentResult struct {
	CourseName string                 `json:"courseName"`
	Content    []model.ChapterContent `json:"content"`
	Cached     bool                   `json:"cached"`
}

// ParseCourseJSON accepts either the layout document ({"course": {...}})
// or its inner course object and returns the chapters.
func ParseCourseJSON(raw json.RawMessage) ([]model.LayoutChapter, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, missingField("courseJson")
	}

	var doc struct {
		Course   *model.LayoutCourse   `json:"course"`
		Chapters []model.LayoutChapter `json:"chapters"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: courseJson is not a valid layout", ErrMissingField)
	}
	if doc.Course != nil && len(doc.Course.Chapters) > 0 {
		return doc.Course.Chapters, nil
	}
	if len(doc.Chapters) == 0 {
		return nil, missingField("courseJson.chapters")
	}
	return doc.Chapters, nil
}

// ContentServiceConfig wires the content expander's collaborators
type ContentServiceConfig struct {
	DB     *gorm.DB
	LLM    Completer
	Videos media.VideoSearcher
	Lock   RequestLock
	Retry  llm.RetryPolicy
	Cache  *CourseCache
	Log    *utils.Logger
}

// CourseContentService expands every chapter of a layout into HTML lessons
type CourseContentService struct {
	db     *gorm.DB
	llm    Completer
	videos media.VideoSearcher
	lock   RequestLock
	retry  llm.RetryPolicy
	cache  *CourseCache
	log    *utils.Logger
}

// NewCourseContentService creates a new content expander
func NewCourseContentService(cfg ContentServiceConfig) *CourseContentService {
	if cfg.Videos == nil {
		cfg.Videos = media.NoVideos{}
	}
	if cfg.Lock == nil {
		cfg.Lock = NewMemoryLock()
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if cfg.Log == nil {
		cfg.Log = utils.NopLogger()
	}
	return &CourseContentService{
		db:     cfg.DB,
		llm:    cfg.LLM,
		videos: cfg.Videos,
		lock:   cfg.Lock,
		retry:  cfg.Retry,
		cache:  cfg.Cache,
		log:    cfg.Log,
	}
}

// GenerateContent fans out one model call per chapter and stores the
// assembled content in a single update. A chapter that fails is replaced
// by a placeholder; the result always has one entry per chapter.
func (s *CourseContentService) GenerateContent(ctx context.Context, caller *auth.Identity, in ContentInput) (*ContentResult, error) {
	courseID := strings.TrimSpace(in.CourseID)
	token := strings.TrimSpace(in.ClientRequestID)
	switch {
	case courseID == "":
		return nil, missingField("courseId")
	case token == "":
		return nil, missingField("clientRequestId")
	case len(in.Chapters) == 0:
		return nil, missingField("courseJson.chapters")
	}

	if cached, err := findCourseByToken(ctx, s.db, contentTokenColumn, token); err != nil {
		return nil, fmt.Errorf("failed to look up request: %w", err)
	} else if cached != nil {
		return cachedContent(cached), nil
	}

	if caller == nil || caller.Email == "" {
		return nil, ErrUnauthorized
	}

	unlock, err := s.lock.TryLock(ctx, contentLockKey(token), DefaultLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if cached, err := findCourseByToken(ctx, s.db, contentTokenColumn, token); err != nil {
		return nil, fmt.Errorf("failed to look up request: %w", err)
	} else if cached != nil {
		return cachedContent(cached), nil
	}

	course, err := loadCourse(ctx, s.db, courseID)
	if err != nil {
		return nil, err
	}
	if course.UserEmail != caller.Email {
		return nil, ErrForbidden
	}
	if stored := course.Layout.Data().Course.Chapters; len(stored) != len(in.Chapters) {
		return nil, fmt.Errorf("%w: got %d chapters, course has %d", ErrChapterMismatch, len(in.Chapters), len(stored))
	}

	courseName := strings.TrimSpace(in.CourseTitle)
	if courseName == "" {
		courseName = course.Name
	}

	log := s.log.With("request_id", token, "cid", course.CID)
	content := s.expand(ctx, log, courseName, in.Chapters)

	err = s.db.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", course.ID).
		Updates(map[string]interface{}{
			"course_content":   datatypes.NewJSONSlice(content),
			"has_content":      true,
			contentTokenColumn: token,
		}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if winner, lookupErr := findCourseByToken(ctx, s.db, contentTokenColumn, token); lookupErr == nil && winner != nil {
				return cachedContent(winner), nil
			}
		}
		return nil, fmt.Errorf("failed to save course content: %w", err)
	}
	s.cache.Invalidate(ctx, course.CID)

	log.Info("course content generated", "chapters", len(content))
	return &ContentResult{CourseName: courseName, Content: content}, nil
}

func (s *CourseContentService) expand(ctx context.Context, log *utils.Logger, courseName string, chapters []model.LayoutChapter) []model.ChapterContent {
	content := make([]model.ChapterContent, len(chapters))

	// chapter failures become placeholders, so no goroutine returns an error
	var g errgroup.Group
	for i, chapter := range chapters {
		g.Go(func() error {
			content[i] = s.expandChapter(ctx, log.With("chapter", i), courseName, chapter)
			return nil
		})
	}
	_ = g.Wait()

	return content
}

func (s *CourseContentService) expandChapter(ctx context.Context, log *utils.Logger, courseName string, chapter model.LayoutChapter) (entry model.ChapterContent) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while generating chapter", "panic", r)
			entry = model.PlaceholderChapter(chapter.ChapterName)
		}
	}()

	body, err := s.generateChapter(ctx, log, chapter)
	if err != nil {
		log.Warn("chapter generation failed, using placeholder", "error", err)
		entry = model.PlaceholderChapter(chapter.ChapterName)
	} else {
		entry = model.ChapterContent{CourseData: *body}
	}

	entry.YoutubeVideo = s.videos.SearchVideos(ctx, chapter.ChapterName, courseName, media.DefaultVideosPerChapter)
	if entry.YoutubeVideo == nil {
		entry.YoutubeVideo = []model.Video{}
	}
	return entry
}

func (s *CourseContentService) generateChapter(ctx context.Context, log *utils.Logger, chapter model.LayoutChapter) (*model.ChapterBody, error) {
	prompt := buildChapterPrompt(chapter)
	raw, err := llm.Retry(ctx, retryWithLog(s.retry, log), func(ctx context.Context) (string, error) {
		return s.llm.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}

	var body model.ChapterBody
	if err := utils.ExtractJSONTo(raw, &body); err != nil {
		log.Debug("unparseable chapter output", "raw", truncateRaw(raw))
		return nil, err
	}
	if len(body.Topics) == 0 {
		return nil, &utils.MalformedOutputError{Raw: raw, Reason: "chapter has no topics"}
	}

	if body.ChapterName == "" {
		body.ChapterName = chapter.ChapterName
	}
	for i := range body.Topics {
		body.Topics[i].Content = htmlclean.Sanitize(body.Topics[i].Content)
	}
	return &body, nil
}

func cachedContent(c *model.Course) *ContentResult {
	content := []model.ChapterContent(c.Content)
	if content == nil {
		content = []model.ChapterContent{}
	}
	return &ContentResult{CourseName: c.Name, Content: content, Cached: true}
}
