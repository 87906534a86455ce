package models

import "time"

// Author 作者
type Author struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorName string    `gorm:"type:varchar(100);not null" json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	MovieAuthors []MovieAuthor `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"movie_authors,omitempty"`
}

// MovieAuthor 影片与作者的多对多关联
type MovieAuthor struct {
	MovieID   uint `gorm:"primaryKey;autoIncrement:false" json:"movie_id"`
	AuthorID  uint `gorm:"primaryKey;autoIncrement:false;index" json:"author_id"`
	IsPrimary bool `gorm:"not null;default:false" json:"is_primary"`
}
