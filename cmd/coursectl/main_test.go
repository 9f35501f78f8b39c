package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sahilchouksey/ai-course-generator/config"
	"github.com/sahilchouksey/ai-course-generator/database"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestContext(t *testing.T) (*commandContext, *gorm.DB) {
	t.Helper()
	t.Setenv("GO_ENV", "test")
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("JWT_ISSUER", "cli")

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	ctx := newCommandContext()
	ctx.openStore = func(*config.EnviornmentVariable) (database.Storage, error) {
		return database.NewGORMStore(db, nil), nil
	}
	return ctx, db
}

func run(t *testing.T, ctx *commandContext, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(ctx)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateAndListCourses(t *testing.T) {
	ctx, db := newTestContext(t)

	out, err := run(t, ctx, "migrate")
	if err != nil || !strings.Contains(out, "Migrations applied") {
		t.Fatalf("migrate: %v %q", err, out)
	}

	// the root command closes the store after each run
	ctx, db = newTestContext(t)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	out, err = run(t, ctx, "courses")
	if err != nil || !strings.Contains(out, "No courses") {
		t.Fatalf("empty courses: %v %q", err, out)
	}

	ctx, db = newTestContext(t)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	course := model.Course{
		CID:          "cid-1",
		Name:         "Go Basics",
		Level:        model.LevelBeginner,
		NoOfChapters: 3,
		UserEmail:    "ada@example.com",
		Layout:       datatypes.NewJSONType(model.CourseLayout{}),
		Content:      datatypes.NewJSONSlice([]model.ChapterContent{}),
	}
	if err := db.Omit("User").Create(&course).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	out, err = run(t, ctx, "courses", "--owner", "ADA@example.com", "--pending")
	if err != nil {
		t.Fatalf("courses: %v", err)
	}
	if !strings.Contains(out, "Go Basics") || !strings.Contains(out, "cid-1") {
		t.Fatalf("course missing from output:\n%s", out)
	}
}

func TestSeedCommand(t *testing.T) {
	ctx, db := newTestContext(t)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	out, err := run(t, ctx, "seed")
	if err != nil || !strings.Contains(out, database.DemoUserEmail) {
		t.Fatalf("seed: %v %q", err, out)
	}
}

func TestTokenCommand(t *testing.T) {
	ctx, _ := newTestContext(t)

	out, err := run(t, ctx, "token", "--email", "ada@example.com", "--plan", "premium", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	manager := auth.NewJWTManager(auth.JWTConfig{Secret: "cli-secret", Issuer: "cli", Expiry: time.Hour})
	claims, err := manager.ValidateToken(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("minted token does not validate: %v", err)
	}
	if id := claims.Identity(); id.Email != "ada@example.com" || !id.IsPremium() {
		t.Fatalf("unexpected identity %+v", id)
	}

	ctx, _ = newTestContext(t)
	if _, err := run(t, ctx, "token"); err == nil {
		t.Fatalf("expected error without --email")
	}
}

func TestRenderJobs(t *testing.T) {
	out := renderJobs([]model.CronJobLog{{
		JobName:    "audit_pending_content",
		Status:     model.CronStatusFailed,
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		DurationMs: 1500,
		ErrorMsg:   "db down",
	}})
	for _, want := range []string{"audit_pending_content", "failed", "1.5s", "db down"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
