package database

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sahilchouksey/ai-course-generator/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DemoUserEmail owns the seeded course
const DemoUserEmail = "demo@example.com"

// Seeder loads demo data for local development
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions. Safe to run more than once.
func (s *Seeder) SeedAll() error {
	if err := s.SeedDemoUser(); err != nil {
		return fmt.Errorf("failed to seed demo user: %w", err)
	}
	if err := s.SeedDemoCourse(); err != nil {
		return fmt.Errorf("failed to seed demo course: %w", err)
	}
	return nil
}

// SeedDemoUser creates the demo user if missing
func (s *Seeder) SeedDemoUser() error {
	user := model.User{Email: DemoUserEmail, Name: "Demo User", Plan: "premium"}
	return s.db.Where(model.User{Email: DemoUserEmail}).FirstOrCreate(&user).Error
}

// SeedDemoCourse creates a small layout-only course owned by the demo user
func (s *Seeder) SeedDemoCourse() error {
	const name = "Introduction to Go"

	var existing model.Course
	err := s.db.Where("name = ?", name).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	layout := model.CourseLayout{Course: model.LayoutCourse{
		Name:         name,
		Description:  "Types, functions and concurrency basics for new Go developers.",
		Category:     "Programming",
		Level:        model.LevelBeginner,
		NoOfChapters: 2,
		Chapters: []model.LayoutChapter{
			{ChapterName: "Getting Started", Duration: "1 hour", Topics: []string{"Installing Go", "Modules", "Hello World"}},
			{ChapterName: "Goroutines and Channels", Duration: "2 hours", Topics: []string{"Goroutines", "Channels", "select"}},
		},
	}}

	course := model.Course{
		CID:            uuid.NewString(),
		Name:           name,
		Description:    layout.Course.Description,
		Category:       layout.Course.Category,
		Level:          layout.Course.Level,
		NoOfChapters:   2,
		UserEmail:      DemoUserEmail,
		BannerImageURL: model.DefaultBannerImageURL,
		Layout:         datatypes.NewJSONType(layout),
		Content:        datatypes.NewJSONSlice([]model.ChapterContent{}),
	}
	return s.db.Omit("User").Create(&course).Error
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB) error {
	return NewSeeder(db).SeedAll()
}
