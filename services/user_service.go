package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/ai-course-generator/model"
	"github.com/sahilchouksey/ai-course-generator/utils/auth"
	"gorm.io/gorm"
)

// UserService mirrors identity-provider users into the users table
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// EnsureUser returns the local row for the identity, creating it on first
// contact. A changed display name or plan is written back.
func (s *UserService) EnsureUser(ctx context.Context, id auth.Identity) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		return nil, missingField("email")
	}
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name = email
	}

	db := s.db.WithContext(ctx)
	var user model.User
	err := db.Where(model.User{Email: email}).
		Attrs(model.User{Name: name, Plan: id.Plan}).
		FirstOrCreate(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a first-contact race with another request for the same user
		err = db.Where("email = ?", email).First(&user).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	updates := map[string]interface{}{}
	if user.Name != name {
		updates["name"] = name
	}
	if id.Plan != "" && user.Plan != id.Plan {
		updates["plan"] = id.Plan
	}
	if len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	return &user, nil
}
