package database

import (
	"errors"
	"testing"

	"github.com/sahilchouksey/ai-course-generator/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestStoreInitAndHealth(t *testing.T) {
	store := NewGORMStore(openTestDB(t), nil)
	if err := store.Init(); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if err := store.HealthCheck(); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	for _, table := range []string{"users", "courses", "enrollments", "cron_job_logs"} {
		if !store.DB().Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := RunSeeds(db); err != nil {
			t.Fatalf("RunSeeds #%d returned error: %v", i+1, err)
		}
	}

	var courses []model.Course
	if err := db.Find(&courses).Error; err != nil {
		t.Fatalf("find courses: %v", err)
	}
	if len(courses) != 1 {
		t.Fatalf("expected 1 course, got %d", len(courses))
	}
	layout := courses[0].Layout.Data()
	if len(layout.Course.Chapters) != 2 {
		t.Fatalf("layout did not round-trip: %+v", layout)
	}
}

func TestCourseNameIsUnique(t *testing.T) {
	db := openTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	if err := RunSeeds(db); err != nil {
		t.Fatalf("RunSeeds returned error: %v", err)
	}

	dup := model.Course{CID: "other", Name: "Introduction to Go", Level: model.LevelBeginner, NoOfChapters: 1, UserEmail: DemoUserEmail}
	err := db.Create(&dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
}
