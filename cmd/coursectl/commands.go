package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sahilchouksey/ai-course-generator/database"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(db *gorm.DB) error {
				if err := database.Migrate(db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo user and course",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(db *gorm.DB) error {
				if err := database.RunSeeds(db); err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Seeded demo data for %s\n", database.DemoUserEmail)
				return nil
			})
		},
	}
}

func newCoursesCommand(ctx *commandContext) *cobra.Command {
	var owner string
	var limit int
	var pending bool

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "List generated courses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(db *gorm.DB) error {
				query := db.WithContext(cmd.Context()).Order("created_at DESC, id DESC").Limit(limit)
				if owner != "" {
					query = query.Where("user_email = ?", strings.ToLower(strings.TrimSpace(owner)))
				}
				if pending {
					query = query.Where("has_content = ?", false)
				}

				var courses []model.Course
				if err := query.Find(&courses).Error; err != nil {
					return fmt.Errorf("list courses: %w", err)
				}
				if len(courses) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No courses")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderCourses(courses))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Only courses owned by this email")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	cmd.Flags().BoolVar(&pending, "pending", false, "Only courses without generated content")
	return cmd
}

func renderCourses(courses []model.Course) string {
	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		content := "no"
		if c.HasContent {
			content = "yes"
		}
		rows = append(rows, []string{
			c.CID,
			c.Name,
			c.UserEmail,
			c.Level,
			strconv.Itoa(c.NoOfChapters),
			content,
			c.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"CID", "Name", "Owner", "Level", "Chapters", "Content", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Show recent scheduled job runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(db *gorm.DB) error {
				var logs []model.CronJobLog
				if err := db.WithContext(cmd.Context()).Order("started_at DESC").Limit(limit).Find(&logs).Error; err != nil {
					return fmt.Errorf("list jobs: %w", err)
				}
				if len(logs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No job runs recorded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJobs(logs))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	return cmd
}

func renderJobs(logs []model.CronJobLog) string {
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		detail := l.Message
		if l.ErrorMsg != "" {
			detail = l.ErrorMsg
		}
		rows = append(rows, []string{
			l.JobName,
			l.Status,
			l.StartedAt.Format(time.RFC3339),
			(time.Duration(l.DurationMs) * time.Millisecond).String(),
			detail,
		})
	}
	return renderTable(
		[]string{"Job", "Status", "Started", "Duration", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var email, name, plan string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an identity token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.ensureEnv()
			if err != nil {
				return err
			}
			if env.IsProduction() {
				return errors.New("refusing to mint tokens with GO_ENV=production")
			}
			if env.JWT_SECRET == "" {
				return errors.New("JWT_SECRET is not set")
			}
			if strings.TrimSpace(email) == "" {
				return errors.New("--email is required")
			}

			manager := auth.NewJWTManager(auth.JWTConfig{
				Secret: env.JWT_SECRET,
				Issuer: env.JWT_ISSUER,
				Expiry: ttl,
			})
			token, err := manager.GenerateToken(email, name, plan)
			if err != nil {
				return fmt.Errorf("generate token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Identity email")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&plan, "plan", "", "Plan claim, e.g. premium")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
