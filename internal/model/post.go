package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is a blog entry owned by a single user. Deleting the user leaves it in place.
type Post struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Category    string    `json:"category" gorm:"size:100;not null;index"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Thumbnail   string    `json:"thumbnail" gorm:"size:255;not null"`
	CreatorID   uuid.UUID `json:"creator" gorm:"type:char(36);not null;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"index"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// OwnedBy reports whether userID created the post.
func (p *Post) OwnedBy(userID uuid.UUID) bool {
	return p.CreatorID != uuid.Nil && p.CreatorID == userID
}
