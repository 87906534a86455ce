package models

import "time"

// Movie 影片
type Movie struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	MovieTitle   string    `gorm:"type:varchar(100);not null" json:"movie_title"`
	ImdbRating   float64   `gorm:"not null;default:0" json:"imdb_rating"`
	YearReleased int       `gorm:"not null" json:"year_released"`
	Budget       float64   `gorm:"type:decimal(18,2);not null;default:0" json:"budget"`
	BoxOffice    float64   `gorm:"type:decimal(18,2);not null;default:0" json:"box_office"`
	Language     string    `gorm:"type:varchar(20)" json:"language"`
	MovieImage   *string   `gorm:"type:varchar(255)" json:"movie_image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	MovieAuthors    []MovieAuthor    `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE" json:"movie_authors,omitempty"`
	FileAttachments []FileAttachment `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE" json:"file_attachments,omitempty"`
}

// PrimaryAuthorID 返回主作者 ID，没有主作者时退回第一条关联
func (m *Movie) PrimaryAuthorID() uint {
	for _, link := range m.MovieAuthors {
		if link.IsPrimary {
			return link.AuthorID
		}
	}
	if len(m.MovieAuthors) > 0 {
		return m.MovieAuthors[0].AuthorID
	}
	return 0
}

// SetAuthors 用给定的作者列表替换关联，第一个作者为主作者
func (m *Movie) SetAuthors(primary uint, others ...uint) {
	links := make([]MovieAuthor, 0, 1+len(others))
	links = append(links, MovieAuthor{MovieID: m.ID, AuthorID: primary, IsPrimary: true})
	seen := map[uint]struct{}{primary: {}}
	for _, id := range others {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		links = append(links, MovieAuthor{MovieID: m.ID, AuthorID: id})
	}
	m.MovieAuthors = links
}

// ImageName 返回当前图片文件名，为空时返回 ""
func (m *Movie) ImageName() string {
	if m.MovieImage == nil {
		return ""
	}
	return *m.MovieImage
}
