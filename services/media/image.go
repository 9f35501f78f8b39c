package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils"
)

const (
	DefaultImageBaseURL = "https://router.huggingface.co/hf-inference/models"
	DefaultImageModel   = "stabilityai/stable-diffusion-xl-base-1.0"

	// DefaultBannerPrompt is used when the layout carries no banner prompt
	DefaultBannerPrompt = "3D flat-style UI/UX design, vibrant colors"

	bannerWidth  = 768
	bannerHeight = 432
	bannerSteps  = 30
)

// ObjectStore persists generated images and returns a public URL
type ObjectStore interface {
	UploadBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ImageConfig configures the text-to-image client
type ImageConfig struct {
	Token   string
	Model   string
	BaseURL string
	Timeout time.Duration
	// Store is optional. Without it banners are returned as data URLs.
	Store ObjectStore
}

// ImageClient generates course banners through the HuggingFace inference API
type ImageClient struct {
	http  *resty.Client
	model string
	store ObjectStore
	log   *utils.Logger
}

// NewImageClient creates a banner generator
func NewImageClient(cfg ImageConfig, log *utils.Logger) *ImageClient {
	if cfg.Model == "" {
		cfg.Model = DefaultImageModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultImageBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	if log == nil {
		log = utils.NopLogger()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.Token).
		SetHeader("Accept", "image/png")

	return &ImageClient{
		http:  client,
		model: cfg.Model,
		store: cfg.Store,
		log:   log,
	}
}

type textToImageRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters textToImageOptions `json:"parameters"`
}

type textToImageOptions struct {
	Width             int `json:"width"`
	Height            int `json:"height"`
	NumInferenceSteps int `json:"num_inference_steps"`
}

// Generate renders prompt and returns a URL (or data URL) for the image
func (c *ImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(textToImageRequest{
			Inputs: prompt,
			Parameters: textToImageOptions{
				Width:             bannerWidth,
				Height:            bannerHeight,
				NumInferenceSteps: bannerSteps,
			},
		}).
		Post("/" + c.model)
	if err != nil {
		return "", fmt.Errorf("text-to-image request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("text-to-image API error (status %d): %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	data := resp.Body()
	if len(data) == 0 {
		return "", errors.New("text-to-image API returned an empty body")
	}
	contentType := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/png"
	}

	if c.store != nil {
		key := fmt.Sprintf("banners/%s.png", uuid.NewString())
		url, err := c.store.UploadBytes(ctx, key, data, contentType)
		if err == nil {
			return url, nil
		}
		c.log.Warn("banner upload failed, falling back to data URL", "error", err)
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// BannerURL never fails: any generation error yields the default banner.
func (c *ImageClient) BannerURL(ctx context.Context, prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultBannerPrompt
	}
	url, err := c.Generate(ctx, prompt)
	if err != nil {
		c.log.Warn("banner generation failed", "error", err)
		return model.DefaultBannerImageURL
	}
	return url
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
