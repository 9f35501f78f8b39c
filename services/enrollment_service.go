package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/ai-course-generator/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnrollmentService manages enrollments and chapter progress
type EnrollmentService struct {
	db *gorm.DB
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB) *EnrollmentService {
	return &EnrollmentService{db: db}
}

// Enroll creates the (course, user) enrollment. A second call returns
// ErrAlreadyEnrolled and leaves the existing row alone.
func (s *EnrollmentService) Enroll(ctx context.Context, email, cid string) (*model.Enrollment, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return nil, missingField("courseId")
	}

	course, err := loadCourse(ctx, s.db, cid)
	if err != nil {
		return nil, err
	}

	enrollment := model.Enrollment{
		CourseCID:         course.CID,
		UserEmail:         email,
		CompletedChapters: datatypes.NewJSONSlice([]int{}),
	}
	if err := s.db.WithContext(ctx).Omit("Course").Create(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}
	enrollment.Course = course
	return &enrollment, nil
}

// ListEnrollments returns the user's enrollments with their courses, newest first
func (s *EnrollmentService) ListEnrollments(ctx context.Context, email string) ([]model.Enrollment, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	var enrollments []model.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("user_email = ?", email).
		Order("created_at DESC, id DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

// GetEnrollment returns one enrollment with its course
func (s *EnrollmentService) GetEnrollment(ctx context.Context, email, cid string) (*model.Enrollment, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("user_email = ? AND cid = ?", email, cid).
		First(&enrollment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}
	return &enrollment, nil
}

// UpdateProgress replaces the completed set. Every index must name a
// chapter of the course; repeats are dropped keeping first-seen order.
func (s *EnrollmentService) UpdateProgress(ctx context.Context, email, cid string, completed []int) (*model.Enrollment, error) {
	enrollment, err := s.GetEnrollment(ctx, email, cid)
	if err != nil {
		return nil, err
	}

	chapters := chapterCount(enrollment.Course)
	next := make([]int, 0, len(completed))
	seen := make(map[int]bool, len(completed))
	for _, idx := range completed {
		if idx < 0 || idx >= chapters {
			return nil, fmt.Errorf("%w: chapter %d", ErrInvalidIndex, idx)
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		next = append(next, idx)
	}

	return s.saveCompleted(ctx, enrollment, next)
}

// SetChapterCompleted marks or unmarks one chapter. Marking twice is a
// no-op and unmarking removes every occurrence of the index.
func (s *EnrollmentService) SetChapterCompleted(ctx context.Context, email, cid string, index int, done bool) (*model.Enrollment, error) {
	enrollment, err := s.GetEnrollment(ctx, email, cid)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= chapterCount(enrollment.Course) {
		return nil, fmt.Errorf("%w: chapter %d", ErrInvalidIndex, index)
	}

	current := []int(enrollment.CompletedChapters)
	next := make([]int, 0, len(current)+1)
	present := false
	for _, idx := range current {
		if idx == index {
			if done && !present {
				next = append(next, idx)
			}
			present = true
			continue
		}
		next = append(next, idx)
	}
	if done && !present {
		next = append(next, index)
	}

	return s.saveCompleted(ctx, enrollment, next)
}

func (s *EnrollmentService) saveCompleted(ctx context.Context, enrollment *model.Enrollment, completed []int) (*model.Enrollment, error) {
	value := datatypes.NewJSONSlice(completed)
	err := s.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("id = ?", enrollment.ID).
		Update("completed_chapters", value).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	enrollment.CompletedChapters = value
	return enrollment, nil
}

func chapterCount(course *model.Course) int {
	if course == nil {
		return 0
	}
	if n := len(course.Layout.Data().Course.Chapters); n > 0 {
		return n
	}
	return course.NoOfChapters
}
