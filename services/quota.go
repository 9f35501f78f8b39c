package services

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"gorm.io/gorm"
)

// FreeCourseLimit is how many courses a user without the premium plan may own
const FreeCourseLimit = 1

// Entitlement reports whether a caller holds the premium plan
type Entitlement interface {
	IsPremium() bool
}

// UsageCounter counts the courses a user already owns
type UsageCounter interface {
	CountCourses(ctx context.Context, email string) (int64, error)
}

// QuotaPolicy decides whether a user may generate another course
type QuotaPolicy struct {
	usage UsageCounter
	limit int64
}

// NewQuotaPolicy creates the default one-course policy
func NewQuotaPolicy(usage UsageCounter) *QuotaPolicy {
	return &QuotaPolicy{usage: usage, limit: FreeCourseLimit}
}

// CanCreateCourse is always true for premium callers
func (q *QuotaPolicy) CanCreateCourse(ctx context.Context, email string, ent Entitlement) (bool, error) {
	if ent != nil && ent.IsPremium() {
		return true, nil
	}
	owned, err := q.usage.CountCourses(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to count courses: %w", err)
	}
	return owned < q.limit, nil
}

// GormUsage counts courses in the courses table
type GormUsage struct {
	db *gorm.DB
}

func NewGormUsage(db *gorm.DB) *GormUsage {
	return &GormUsage{db: db}
}

func (g *GormUsage) CountCourses(ctx context.Context, email string) (int64, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&model.Course{}).Where("user_email = ?", email).Count(&n).Error
	return n, err
}

var _ Entitlement = auth.Identity{}
