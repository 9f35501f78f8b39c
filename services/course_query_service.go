package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/cache"
	"gorm.io/gorm"
)

const (
	myCoursesLimit = 20
	exploreLimit   = 50
)

// CourseCache keeps single courses in Redis. A nil *CourseCache or one
// without a client does nothing.
type CourseCache struct {
	rc  *cache.RedisCache
	ttl time.Duration
	log *utils.Logger
}

// NewCourseCache creates a read-through cache for courses by cid
func NewCourseCache(rc *cache.RedisCache, ttl time.Duration, log *utils.Logger) *CourseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = utils.NopLogger()
	}
	return &CourseCache{rc: rc, ttl: ttl, log: log}
}

func courseKey(cid string) string {
	return "course:" + cid
}

func (c *CourseCache) get(ctx context.Context, cid string) (*model.Course, bool) {
	if c == nil || c.rc == nil {
		return nil, false
	}
	var course model.Course
	if err := c.rc.GetJSON(ctx, courseKey(cid), &course); err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			c.log.Warn("course cache read failed", "cid", cid, "error", err)
		}
		return nil, false
	}
	return &course, true
}

func (c *CourseCache) put(ctx context.Context, course *model.Course) {
	if c == nil || c.rc == nil {
		return
	}
	if err := c.rc.SetJSON(ctx, courseKey(course.CID), course, c.ttl); err != nil {
		c.log.Warn("course cache write failed", "cid", course.CID, "error", err)
	}
}

// Invalidate drops the cached copy after a write
func (c *CourseCache) Invalidate(ctx context.Context, cid string) {
	if c == nil || c.rc == nil {
		return
	}
	if err := c.rc.Delete(ctx, courseKey(cid)); err != nil {
		c.log.Warn("course cache invalidation failed", "cid", cid, "error", err)
	}
}

// CourseQueryService serves course reads
type CourseQueryService struct {
	db    *gorm.DB
	cache *CourseCache
}

// NewCourseQueryService creates a new course query service
func NewCourseQueryService(db *gorm.DB, cache *CourseCache) *CourseQueryService {
	return &CourseQueryService{db: db, cache: cache}
}

// ListMine returns the caller's newest courses
func (s *CourseQueryService) ListMine(ctx context.Context, email string) ([]model.Course, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	var courses []model.Course
	err := s.db.WithContext(ctx).
		Where("user_email = ?", email).
		Order("created_at DESC, id DESC").
		Limit(myCoursesLimit).
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// Explore returns the latest courses across all users
func (s *CourseQueryService) Explore(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(exploreLimit).
		Find(&courses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// GetByCID loads one course, through the cache when available
func (s *CourseQueryService) GetByCID(ctx context.Context, cid string) (*model.Course, error) {
	if cid == "" {
		return nil, missingField("cid")
	}
	if course, ok := s.cache.get(ctx, cid); ok {
		return course, nil
	}

	course, err := loadCourse(ctx, s.db, cid)
	if err != nil {
		return nil, err
	}
	s.cache.put(ctx, course)
	return course, nil
}

func loadCourse(ctx context.Context, db *gorm.DB, cid string) (*model.Course, error) {
	var course model.Course
	err := db.WithContext(ctx).Where("cid = ?", cid).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	return &course, nil
}
