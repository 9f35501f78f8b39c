package media

import (
	"context"
	"fmt"

	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// DefaultVideosPerChapter is how many search results each chapter keeps
const DefaultVideosPerChapter = 4

// VideoSearcher finds supplementary videos for a chapter. Implementations
// never fail; an unavailable provider yields an empty list.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, chapterName, courseName string, max int) []model.Video
}

// YouTubeSearcher queries the YouTube Data API search endpoint
type YouTubeSearcher struct {
	svc *youtube.Service
	log *utils.Logger
}

// NewYouTubeSearcher returns nil, nil when apiKey is empty so callers can
// fall back to NoVideos.
func NewYouTubeSearcher(ctx context.Context, apiKey string, log *utils.Logger, opts ...option.ClientOption) (*YouTubeSearcher, error) {
	if apiKey == "" {
		return nil, nil
	}
	if log == nil {
		log = utils.NopLogger()
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return &YouTubeSearcher{svc: svc, log: log}, nil
}

// SearchVideos runs "<chapter> <course> full course for exams"
func (y *YouTubeSearcher) SearchVideos(ctx context.Context, chapterName, courseName string, max int) []model.Video {
	if max <= 0 {
		max = DefaultVideosPerChapter
	}
	query := fmt.Sprintf("%s %s full course for exams", chapterName, courseName)

	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		y.log.Warn("video search failed", "chapter", chapterName, "error", err)
		return []model.Video{}
	}

	videos := make([]model.Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		title := ""
		if item.Snippet != nil {
			title = item.Snippet.Title
		}
		videos = append(videos, model.Video{VideoID: item.Id.VideoId, Title: title})
	}
	return videos
}

// NoVideos is used when no video provider is configured
type NoVideos struct{}

func (NoVideos) SearchVideos(context.Context, string, string, int) []model.Video {
	return []model.Video{}
}
