package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/services/llm"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Completer is the text-generation provider
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BannerGenerator returns a banner URL and never fails
type BannerGenerator interface {
	BannerURL(ctx context.Context, prompt string) string
}

// CreateLayoutRequest is the layout generation input
type CreateLayoutRequest struct {
	Name            string `json:"name" validate:"required,max=255"`
	Description     string `json:"description" validate:"max=2000"`
	Category        string `json:"category" validate:"max=255"`
	Level           string `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	IncludeVideo    bool   `json:"includeVideo"`
	NoOfChapters    int    `json:"noOfChapters" validate:"required,min=1,max=20"`
	ClientRequestID string `json:"clientRequestId"`
}

// LayoutResult is returned by CreateLayout
type LayoutResult struct {
	CID    string             `json:"cid"`
	Course model.CourseLayout `json:"course"`
	// Reused is true when the token matched an existing course
	Reused bool `json:"reused"`
}

// LayoutServiceConfig wires the layout generator's collaborators
type LayoutServiceConfig struct {
	DB     *gorm.DB
	LLM    Completer
	Banner BannerGenerator
	Lock   RequestLock
	Quota  *QuotaPolicy
	Retry  llm.RetryPolicy
	Cache  *CourseCache
	Log    *utils.Logger
}

// CourseLayoutService generates course outlines
type CourseLayoutService struct {
	db     *gorm.DB
	llm    Completer
	banner BannerGenerator
	lock   RequestLock
	quota  *QuotaPolicy
	retry  llm.RetryPolicy
	cache  *CourseCache
	log    *utils.Logger
}

// NewCourseLayoutService creates a new layout generator
func NewCourseLayoutService(cfg LayoutServiceConfig) *CourseLayoutService {
	if cfg.Lock == nil {
		cfg.Lock = NewMemoryLock()
	}
	if cfg.Quota == nil {
		cfg.Quota = NewQuotaPolicy(NewGormUsage(cfg.DB))
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if cfg.Log == nil {
		cfg.Log = utils.NopLogger()
	}
	return &CourseLayoutService{
		db:     cfg.DB,
		llm:    cfg.LLM,
		banner: cfg.Banner,
		lock:   cfg.Lock,
		quota:  cfg.Quota,
		retry:  cfg.Retry,
		cache:  cfg.Cache,
		log:    cfg.Log,
	}
}

// CreateLayout runs the guards in order (token, replay, auth, name, quota)
// and only then calls the model. caller is nil for anonymous requests.
func (s *CourseLayoutService) CreateLayout(ctx context.Context, caller *auth.Identity, req CreateLayoutRequest) (*LayoutResult, error) {
	token := strings.TrimSpace(req.ClientRequestID)
	if token == "" {
		return nil, missingField("clientRequestId")
	}

	if existing, err := findCourseByToken(ctx, s.db, layoutTokenColumn, token); err != nil {
		return nil, fmt.Errorf("failed to look up request: %w", err)
	} else if existing != nil {
		return reusedLayout(existing), nil
	}

	if caller == nil || caller.Email == "" {
		return nil, ErrUnauthorized
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, missingField("name")
	}

	unlock, err := s.lock.TryLock(ctx, layoutLockKey(token), DefaultLockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// the previous holder may have finished between the lookup and the lock
	if existing, err := findCourseByToken(ctx, s.db, layoutTokenColumn, token); err != nil {
		return nil, fmt.Errorf("failed to look up request: %w", err)
	} else if existing != nil {
		return reusedLayout(existing), nil
	}

	var taken int64
	if err := s.db.WithContext(ctx).Model(&model.Course{}).Where("name = ?", name).Count(&taken).Error; err != nil {
		return nil, fmt.Errorf("failed to check course name: %w", err)
	}
	if taken > 0 {
		return nil, ErrDuplicateName
	}

	allowed, err := s.quota.CanCreateCourse(ctx, caller.Email, caller)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrQuotaExceeded
	}

	log := s.log.With("request_id", token, "user", caller.Email)
	prompt := buildLayoutPrompt(layoutInput{
		Name:         name,
		Description:  req.Description,
		Category:     req.Category,
		Level:        req.Level,
		IncludeVideo: req.IncludeVideo,
		NoOfChapters: req.NoOfChapters,
	})

	raw, err := llm.Retry(ctx, s.withLog(log), func(ctx context.Context) (string, error) {
		return s.llm.Complete(ctx, prompt)
	})
	if err != nil {
		log.Error("layout generation failed", "error", err)
		return nil, upstream(err)
	}

	var layout model.CourseLayout
	if err := utils.ExtractJSONTo(raw, &layout); err != nil {
		log.Error("layout output could not be parsed", "error", err, "raw", truncateRaw(raw))
		return nil, err
	}
	if len(layout.Course.Chapters) == 0 {
		log.Error("layout output has no chapters", "raw", truncateRaw(raw))
		return nil, &utils.MalformedOutputError{Raw: raw, Reason: "layout has no chapters"}
	}

	banner := model.DefaultBannerImageURL
	if s.banner != nil {
		banner = s.banner.BannerURL(ctx, layout.Course.BannerImagePrompt)
	}

	course := model.Course{
		CID:             uuid.NewString(),
		Name:            name,
		Description:     req.Description,
		Category:        req.Category,
		Level:           req.Level,
		NoOfChapters:    req.NoOfChapters,
		IncludeVideo:    req.IncludeVideo,
		UserEmail:       caller.Email,
		BannerImageURL:  banner,
		Layout:          datatypes.NewJSONType(layout),
		Content:         datatypes.NewJSONSlice([]model.ChapterContent{}),
		LayoutRequestID: &token,
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&course).Error; err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to save course: %w", err)
		}
		// either the token or the name was inserted concurrently
		if winner, lookupErr := findCourseByToken(ctx, s.db, layoutTokenColumn, token); lookupErr == nil && winner != nil {
			return reusedLayout(winner), nil
		}
		return nil, ErrDuplicateName
	}

	log.Info("course layout created", "cid", course.CID, "chapters", len(layout.Course.Chapters))
	return &LayoutResult{CID: course.CID, Course: layout}, nil
}

func (s *CourseLayoutService) withLog(log *utils.Logger) llm.RetryPolicy {
	return retryWithLog(s.retry, log)
}

func reusedLayout(c *model.Course) *LayoutResult {
	return &LayoutResult{CID: c.CID, Course: c.Layout.Data(), Reused: true}
}
