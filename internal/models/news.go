package models

import (
	"gorm.io/gorm"
)

// NewsItem is a dashboard announcement shown on the landing page.
type NewsItem struct {
	gorm.Model
	Title    string `gorm:"not null" json:"title"`
	Body     string `gorm:"not null" json:"body"`
	AuthorID uint   `json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

type CreateNewsRequest struct {
	Title string `json:"title" binding:"required,min=3,max=200"`
	Body  string `json:"body" binding:"required"`
}
