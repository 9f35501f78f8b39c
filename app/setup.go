package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/api"
	"github.com/sahilchouksey/ai-course-generator/config"
	"github.com/sahilchouksey/ai-course-generator/database"
	activity_handlers "github.com/sahilchouksey/ai-course-generator/handlers/activity"
	course_handlers "github.com/sahilchouksey/ai-course-generator/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/ai-course-generator/handlers/enrollment"
	user_handlers "github.com/sahilchouksey/ai-course-generator/handlers/user"
	"github.com/sahilchouksey/ai-course-generator/router"
	"github.com/sahilchouksey/ai-course-generator/services"
	"github.com/sahilchouksey/ai-course-generator/services/cron"
	"github.com/sahilchouksey/ai-course-generator/services/llm"
	"github.com/sahilchouksey/ai-course-generator/services/media"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"github.com/sahilchouksey/ai-course-generator/utils/cache"
	"github.com/sahilchouksey/ai-course-generator/utils/middleware"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}
	if env.JWT_SECRET == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	log, err := utils.NewLogger(env.GO_ENV)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize GORM database connection
	store, err := database.StartGORM(env, log)
	if err != nil {
		log.Error("check whether Postgres is running and DB_* variables are set")
		return err
	}

	if err := store.Init(); err != nil {
		log.Error("failed to initialize database tables", "error", err)
		return err
	}
	db := store.DB()

	// Redis backs the request lock and the course read cache. Without it
	// both degrade to process-local behaviour.
	var redisCache *cache.RedisCache
	if env.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(env.REDIS_URL)
		if err != nil {
			log.Warn("failed to connect to Redis, using local lock and no read cache", "error", err)
			redisCache = nil
		}
	}

	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		Secret: env.JWT_SECRET,
		Issuer: env.JWT_ISSUER,
		Expiry: 24 * time.Hour,
	})

	// Providers
	llmClient := llm.NewClient(llm.Config{
		APIKey:  env.LLM_API_KEY,
		BaseURL: env.LLM_BASE_URL,
		Model:   env.LLM_MODEL,
		Limiter: llm.NewRateLimiter(llm.DefaultRateLimiterConfig()),
	})
	retry := llm.DefaultRetryPolicy()
	retry.Delay = time.Duration(env.LLM_RETRY_DELAY_SECONDS) * time.Second

	imageConfig := media.ImageConfig{Token: env.HF_TOKEN, Model: env.HF_IMAGE_MODEL}
	spacesConfig := media.SpacesConfig{
		AccessKey: env.DO_SPACES_KEY,
		SecretKey: env.DO_SPACES_SECRET,
		Bucket:    env.DO_SPACES_BUCKET,
		Region:    env.DO_SPACES_REGION,
		Endpoint:  env.DO_SPACES_ENDPOINT,
		CDNURL:    env.DO_SPACES_CDN_URL,
	}
	if spacesConfig.Enabled() {
		spaces, err := media.NewSpacesClient(spacesConfig)
		if err != nil {
			log.Warn("banner uploads disabled", "error", err)
		} else {
			imageConfig.Store = spaces
		}
	}
	banners := media.NewImageClient(imageConfig, log)

	var videos media.VideoSearcher = media.NoVideos{}
	youtube, err := media.NewYouTubeSearcher(context.Background(), env.YOUTUBE_API_KEY, log)
	if err != nil {
		log.Warn("video search disabled", "error", err)
	} else if youtube != nil {
		videos = youtube
	}

	// Services
	lock := services.NewRedisLock(redisCache, log)
	courseCache := services.NewCourseCache(redisCache, env.COURSE_CACHE_TTL, log)
	userService := services.NewUserService(db)

	layoutService := services.NewCourseLayoutService(services.LayoutServiceConfig{
		DB:     db,
		LLM:    llmClient,
		Banner: banners,
		Lock:   lock,
		Quota:  services.NewQuotaPolicy(services.NewGormUsage(db)),
		Retry:  retry,
		Cache:  courseCache,
		Log:    log,
	})
	contentService := services.NewCourseContentService(services.ContentServiceConfig{
		DB:     db,
		LLM:    llmClient,
		Videos: videos,
		Lock:   lock,
		Retry:  retry,
		Cache:  courseCache,
		Log:    log,
	})
	topicEditor := services.NewTopicEditor(db, courseCache, log)
	queryService := services.NewCourseQueryService(db, courseCache)
	enrollmentService := services.NewEnrollmentService(db)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if env.CRON_ENABLED {
		cronManager = cron.NewCronManager(db, lock, log)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Warn("failed to start cron jobs", "error", err)
			cronManager = nil
		}
	}

	// Defer closing DB, Redis and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if redisCache != nil {
			_ = redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT), fiber.Config{
		ErrorHandler: middleware.ErrorHandler(log),
	}, log)
	app := server.GetEngine()

	tracker := middleware.NewInFlightTracker()
	router.SetupRoutes(app, router.Dependencies{
		Store:          store,
		Auth:           middleware.NewAuthMiddleware(jwtManager, userService, log),
		Tracker:        tracker,
		Courses:        course_handlers.NewCourseHandler(layoutService, contentService, topicEditor, queryService, log),
		Enrollments:    enrollment_handlers.NewEnrollmentHandler(enrollmentService, log),
		Users:          user_handlers.NewUserHandler(userService, log),
		Activity:       activity_handlers.NewActivityHandler(tracker),
		AllowedOrigins: env.ALLOWED_ORIGINS,
	})

	// Stop on SIGINT/SIGTERM and let in-flight generations finish
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	}()

	return server.Run()
}
