package model

import (
	"time"
)

// User mirrors an identity from the external identity provider. Rows are
// created on first contact and keyed by email.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Plan      string    `gorm:"type:varchar(50)" json:"plan,omitempty"` // last plan seen in the identity token

	// Relationships
	Courses     []Course     `gorm:"foreignKey:UserEmail;references:Email;constraint:OnDelete:CASCADE" json:"-"`
	Enrollments []Enrollment `gorm:"foreignKey:UserEmail;references:Email;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}
