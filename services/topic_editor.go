package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Topic edit actions
const (
	ActionUpdate = "update"
	ActionAdd    = "add"
	ActionDelete = "delete"
)

// EditTopicRequest is one topic mutation on a stored layout
type EditTopicRequest struct {
	CID          string `json:"cid" validate:"required"`
	ChapterIndex *int   `json:"chapterIndex" validate:"required,min=0"`
	TopicIndex   *int   `json:"topicIndex,omitempty" validate:"omitempty,min=0"`
	NewTopicName string `json:"newTopicName,omitempty" validate:"max=500"`
	Action       string `json:"action" validate:"required,oneof=update add delete"`
}

// TopicChanges describes what the edit did to the topic list
type TopicChanges struct {
	NewTopic      string `json:"newTopic,omitempty"`
	PreviousTopic string `json:"previousTopic,omitempty"`
	DeletedTopic  string `json:"deletedTopic,omitempty"`
}

// TopicEditResult echoes the applied edit and the full updated layout
type TopicEditResult struct {
	Success       bool               `json:"success"`
	Action        string             `json:"action"`
	ChapterIndex  int                `json:"chapterIndex"`
	TopicIndex    int                `json:"topicIndex"`
	UpdatedCourse model.CourseLayout `json:"updatedCourse"`
	Changes       TopicChanges       `json:"changes"`
}

// TopicEditor applies update/add/delete to a course's layout topics
type TopicEditor struct {
	db    *gorm.DB
	cache *CourseCache
	log   *utils.Logger
}

// NewTopicEditor creates a new topic editor
func NewTopicEditor(db *gorm.DB, cache *CourseCache, log *utils.Logger) *TopicEditor {
	if log == nil {
		log = utils.NopLogger()
	}
	return &TopicEditor{db: db, cache: cache, log: log}
}

// EditTopic loads the course, edits a clone of its layout and writes the
// whole layout column back. Concurrent edits are last-write-wins.
func (e *TopicEditor) EditTopic(ctx context.Context, email string, req EditTopicRequest) (*TopicEditResult, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	if req.CID == "" {
		return nil, missingField("cid")
	}
	if req.ChapterIndex == nil {
		return nil, missingField("chapterIndex")
	}
	switch req.Action {
	case ActionUpdate, ActionAdd, ActionDelete:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}

	course, err := loadCourse(ctx, e.db, req.CID)
	if err != nil {
		return nil, err
	}
	if course.UserEmail != email {
		return nil, ErrForbidden
	}
	// positions join layout and content, so only renames are safe after generation
	if course.HasContent && req.Action != ActionUpdate {
		return nil, ErrStructureLocked
	}

	updated, result, err := ApplyTopicEdit(course.Layout.Data(), req)
	if err != nil {
		return nil, err
	}

	err = e.db.WithContext(ctx).Model(&model.Course{}).
		Where("id = ?", course.ID).
		Update("course_json", datatypes.NewJSONType(updated)).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save layout: %w", err)
	}
	e.cache.Invalidate(ctx, course.CID)

	e.log.Info("topic edited", "cid", course.CID, "action", req.Action, "chapter", result.ChapterIndex, "topic", result.TopicIndex)
	return result, nil
}

// ApplyTopicEdit returns the edited deep copy of layout. The input is
// never modified.
func ApplyTopicEdit(layout model.CourseLayout, req EditTopicRequest) (model.CourseLayout, *TopicEditResult, error) {
	if req.ChapterIndex == nil {
		return layout, nil, missingField("chapterIndex")
	}
	updated := layout.Clone()
	chapters := updated.Course.Chapters

	ci := *req.ChapterIndex
	if ci < 0 || ci >= len(chapters) {
		return layout, nil, fmt.Errorf("%w: chapter %d", ErrInvalidIndex, ci)
	}
	topics := chapters[ci].Topics

	topicIndex := func() (int, error) {
		if req.TopicIndex == nil {
			return 0, missingField("topicIndex")
		}
		ti := *req.TopicIndex
		if ti < 0 || ti >= len(topics) {
			return 0, fmt.Errorf("%w: topic %d", ErrInvalidIndex, ti)
		}
		return ti, nil
	}
	newName := strings.TrimSpace(req.NewTopicName)

	result := &TopicEditResult{Success: true, Action: req.Action, ChapterIndex: ci}

	switch req.Action {
	case ActionUpdate:
		ti, err := topicIndex()
		if err != nil {
			return layout, nil, err
		}
		if newName == "" {
			return layout, nil, missingField("newTopicName")
		}
		result.Changes.PreviousTopic = topics[ti]
		result.Changes.NewTopic = newName
		result.TopicIndex = ti
		topics[ti] = newName

	case ActionAdd:
		if newName == "" {
			return layout, nil, missingField("newTopicName")
		}
		topics = append(topics, newName)
		result.Changes.NewTopic = newName
		result.TopicIndex = len(topics) - 1

	case ActionDelete:
		ti, err := topicIndex()
		if err != nil {
			return layout, nil, err
		}
		result.Changes.DeletedTopic = topics[ti]
		result.TopicIndex = ti
		topics = append(topics[:ti], topics[ti+1:]...)

	default:
		return layout, nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}

	chapters[ci].Topics = topics
	result.UpdatedCourse = updated
	return updated, result, nil
}
