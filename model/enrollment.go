package model

import (
	"time"

	"gorm.io/datatypes"
)

// Enrollment links a user to a course and tracks which chapters (by
// zero-based layout index) the user finished.
type Enrollment struct {
	ID                uint                     `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
	CourseCID         string                   `gorm:"column:cid;type:varchar(64);not null;uniqueIndex:idx_enrollment_course_user" json:"cid"`
	UserEmail         string                   `gorm:"type:varchar(255);not null;uniqueIndex:idx_enrollment_course_user;index" json:"userEmail"`
	CompletedChapters datatypes.JSONSlice[int] `json:"completedChapters"`

	// Relationships
	Course *Course `gorm:"foreignKey:CourseCID;references:CID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}
