package services

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sahilchouksey/ai-course-generator/database"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/services/llm"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"gorm.io/datatypes"
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

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func fastRetry() llm.RetryPolicy {
	return llm.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}
}

// fakeCompleter answers prompts through fn and counts calls
type fakeCompleter struct {
	calls atomic.Int32
	fn    func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	return f.fn(prompt)
}

func staticCompleter(response string) *fakeCompleter {
	return &fakeCompleter{fn: func(string) (string, error) { return response, nil }}
}

type fakeBanner struct {
	prompts []string
	mu      sync.Mutex
}

func (b *fakeBanner) BannerURL(ctx context.Context, prompt string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, prompt)
	return "https://cdn.example.com/banner.png"
}

type fakeVideos struct{}

func (fakeVideos) SearchVideos(ctx context.Context, chapterName, courseName string, max int) []model.Video {
	return []model.Video{{VideoID: "vid-" + strings.ToLower(chapterName), Title: chapterName + " lecture"}}
}

func identity(email, plan string) *auth.Identity {
	return &auth.Identity{Subject: "sub-" + email, Email: email, Name: email, Plan: plan}
}

const layoutResponse = "Here is your course:\n```json\n" + `{"course":{"name":"Go Basics","description":"Learn Go","category":"Programming","level":"beginner","includeVideo":false,"noOfChapters":2,"bannerImagePrompt":"a gopher at a desk","chapters":[{"chapterName":"Intro","duration":"1 hour","topics":["A","B","C"]},{"chapterName":"Types","duration":"2 hours","topics":["X"]}]}}` + "\n```"

func seedCourse(t *testing.T, db *gorm.DB, cid, name, owner string, chapters ...model.LayoutChapter) *model.Course {
	t.Helper()
	layout := model.CourseLayout{Course: model.LayoutCourse{Name: name, Level: model.LevelBeginner, Chapters: chapters}}
	course := model.Course{
		CID:          cid,
		Name:         name,
		Level:        model.LevelBeginner,
		NoOfChapters: len(chapters),
		UserEmail:    owner,
		Layout:       datatypes.NewJSONType(layout),
		Content:      datatypes.NewJSONSlice([]model.ChapterContent{}),
	}
	if err := db.Omit("User").Create(&course).Error; err != nil {
		t.Fatalf("seed course: %v", err)
	}
	return &course
}

func chapter(name string, topics ...string) model.LayoutChapter {
	return model.LayoutChapter{ChapterName: name, Duration: "1 hour", Topics: topics}
}
