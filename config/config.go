package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// This function will Load the ENVIORNMENT VARIABLES from .env if GO_ENV variable is not set
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// Identity tokens (issued by the external identity provider)
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// Chat completion provider
	LLM_API_KEY             string
	LLM_BASE_URL            string
	LLM_MODEL               string
	LLM_RETRY_DELAY_SECONDS int
	// Banner image generation
	HF_TOKEN       string
	HF_IMAGE_MODEL string
	// Video search
	YOUTUBE_API_KEY string
	// DigitalOcean Spaces (banner storage)
	DO_SPACES_KEY      string
	DO_SPACES_SECRET   string
	DO_SPACES_BUCKET   string
	DO_SPACES_REGION   string
	DO_SPACES_ENDPOINT string
	DO_SPACES_CDN_URL  string
	// HTTP
	ALLOWED_ORIGINS string
	// Background jobs
	CRON_ENABLED bool
	// Course read cache
	COURSE_CACHE_TTL time.Duration
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	dbSSLMode := os.Getenv("DB_SSL_MODE")
	if dbSSLMode == "" {
		dbSSLMode = "disable"
	}

	retryDelay, err := strconv.Atoi(os.Getenv("LLM_RETRY_DELAY_SECONDS"))
	if err != nil || retryDelay <= 0 {
		retryDelay = 30
	}

	cacheTTL, err := strconv.Atoi(os.Getenv("COURSE_CACHE_TTL_SECONDS"))
	if err != nil || cacheTTL < 0 {
		cacheTTL = 300
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	hfModel := os.Getenv("HF_IMAGE_MODEL")
	if hfModel == "" {
		hfModel = "stabilityai/stable-diffusion-xl-base-1.0"
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  dbSSLMode,
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// LLM
		LLM_API_KEY:             os.Getenv("LLM_API_KEY"),
		LLM_BASE_URL:            os.Getenv("LLM_BASE_URL"),
		LLM_MODEL:               os.Getenv("LLM_MODEL"),
		LLM_RETRY_DELAY_SECONDS: retryDelay,
		// Media
		HF_TOKEN:        os.Getenv("HF_TOKEN"),
		HF_IMAGE_MODEL:  hfModel,
		YOUTUBE_API_KEY: os.Getenv("YOUTUBE_API_KEY"),
		// DigitalOcean Spaces
		DO_SPACES_KEY:      os.Getenv("DO_SPACES_KEY"),
		DO_SPACES_SECRET:   os.Getenv("DO_SPACES_SECRET"),
		DO_SPACES_BUCKET:   os.Getenv("DO_SPACES_BUCKET"),
		DO_SPACES_REGION:   os.Getenv("DO_SPACES_REGION"),
		DO_SPACES_ENDPOINT: os.Getenv("DO_SPACES_ENDPOINT"),
		DO_SPACES_CDN_URL:  os.Getenv("DO_SPACES_CDN_URL"),
		ALLOWED_ORIGINS:    allowedOrigins,
		// Default to enabled
		CRON_ENABLED:     !strings.EqualFold(os.Getenv("CRON_ENABLED"), "false"),
		COURSE_CACHE_TTL: time.Duration(cacheTTL) * time.Second,
	}

	return envVariables, nil
}

// IsProduction reports whether GO_ENV selects production behaviour
func (e *EnviornmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}
