package models

import "time"

// FileAttachment 影片上传过的图片记录，影片更换图片后仍保留
type FileAttachment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	FilePath  string    `gorm:"type:varchar(255);not null" json:"file_path"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	MovieID   uint      `gorm:"not null;index" json:"movie_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
