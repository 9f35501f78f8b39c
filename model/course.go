package model

import (
	"time"

	"gorm.io/datatypes"
)

// Course levels accepted for generation
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// DefaultBannerImageURL is shown when banner generation fails
const DefaultBannerImageURL = "/books.png"

// Course is a generated course: the layout document, the optional expanded
// chapter content and the idempotency tokens of the requests that wrote them.
type Course struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	CID            string    `gorm:"column:cid;type:varchar(64);uniqueIndex;not null" json:"cid"`
	Name           string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"` // globally unique, case-sensitive
	Description    string    `gorm:"type:text" json:"description"`
	Category       string    `gorm:"type:varchar(255)" json:"category"`
	Level          string    `gorm:"type:varchar(20);not null" json:"level"`
	NoOfChapters   int       `gorm:"not null" json:"noOfChapters"`
	IncludeVideo   bool      `gorm:"default:false" json:"includeVideo"`
	UserEmail      string    `gorm:"type:varchar(255);not null;index" json:"userEmail"`
	BannerImageURL string    `gorm:"column:banner_img_url;type:text" json:"bannerImgUrl"`
	HasContent     bool      `gorm:"default:false;index" json:"hasContent"`

	Layout  datatypes.JSONType[CourseLayout]    `gorm:"column:course_json" json:"courseJson"`
	Content datatypes.JSONSlice[ChapterContent] `gorm:"column:course_content" json:"courseContent"`

	// Idempotency tokens. NULL until the matching request writes them.
	LayoutRequestID  *string `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	ContentRequestID *string `gorm:"type:varchar(255);uniqueIndex" json:"-"`

	// Relationships
	User User `gorm:"foreignKey:UserEmail;references:Email;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}

// CourseLayout is the structured outline produced by the layout generator
type CourseLayout struct {
	Course LayoutCourse `json:"course"`
}

type LayoutCourse struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	Level             string          `json:"level"`
	IncludeVideo      FlexBool        `json:"includeVideo"`
	NoOfChapters      FlexInt         `json:"noOfChapters"`
	BannerImagePrompt string          `json:"bannerImagePrompt"`
	Chapters          []LayoutChapter `json:"chapters"`
}

type LayoutChapter struct {
	ChapterName string   `json:"chapterName"`
	Duration    string   `json:"duration"`
	Topics      []string `json:"topics"`
}

// Clone returns a deep copy so edits never alias the stored document
func (l CourseLayout) Clone() CourseLayout {
	out := l
	out.Course.Chapters = make([]LayoutChapter, len(l.Course.Chapters))
	for i, ch := range l.Course.Chapters {
		ch.Topics = append([]string(nil), ch.Topics...)
		out.Course.Chapters[i] = ch
	}
	return out
}

// ChapterContent is one entry of the expanded course, in chapter order
type ChapterContent struct {
	YoutubeVideo []Video     `json:"youtubeVideo"`
	CourseData   ChapterBody `json:"courseData"`
}

type Video struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
}

type ChapterBody struct {
	ChapterName string         `json:"chapterName"`
	Topics      []TopicContent `json:"topics"`
}

type TopicContent struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// PlaceholderChapter stands in for a chapter whose generation failed
func PlaceholderChapter(chapterName string) ChapterContent {
	return ChapterContent{
		YoutubeVideo: []Video{},
		CourseData: ChapterBody{
			ChapterName: chapterName,
			Topics: []TopicContent{{
				Topic:   "Error",
				Content: "<div><p>Failed to generate content.</p></div>",
			}},
		},
	}
}
