package movies

import (
	"time"

	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/internal/catalog"
)

// imageFormField 影片图片在 multipart 表单中的字段名
const imageFormField = "movie_image_file"

// Handler 影片处理器
type Handler struct {
	svc *catalog.Service
}

// NewHandler 创建影片处理器
func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{svc: svc}
}

// movieForm 创建影片表单
type movieForm struct {
	MovieTitle   string  `form:"movie_title" binding:"required,max=100"`
	ImdbRating   float64 `form:"imdb_rating" binding:"gte=0,lte=10"`
	YearReleased int     `form:"year_released" binding:"required,gte=1900,lte=2100"`
	Budget       float64 `form:"budget" binding:"gte=0"`
	BoxOffice    float64 `form:"box_office" binding:"gte=0"`
	Language     string  `form:"language" binding:"max=20"`
	AuthorID     uint    `form:"author_id" binding:"required"`
	AuthorIDs    []uint  `form:"author_ids"`
}

// updateMovieForm 更新影片表单，movie_id 必须与路径一致
type updateMovieForm struct {
	MovieID uint `form:"movie_id" binding:"required"`
	movieForm
}

func (f movieForm) fields() catalog.MovieFields {
	return catalog.MovieFields{
		MovieTitle:   f.MovieTitle,
		ImdbRating:   f.ImdbRating,
		YearReleased: f.YearReleased,
		Budget:       f.Budget,
		BoxOffice:    f.BoxOffice,
		Language:     f.Language,
		AuthorID:     f.AuthorID,
		AuthorIDs:    f.AuthorIDs,
	}
}

// AttachmentResponse 附件
type AttachmentResponse struct {
	ID        uint      `json:"id"`
	FilePath  string    `json:"file_path"`
	FileName  string    `json:"file_name"`
	MovieID   uint      `json:"movie_id"`
	CreatedAt time.Time `json:"created_at"`
}

// MovieResponse 影片
type MovieResponse struct {
	ID              uint                 `json:"id"`
	MovieTitle      string               `json:"movie_title"`
	ImdbRating      float64              `json:"imdb_rating"`
	YearReleased    int                  `json:"year_released"`
	Budget          float64              `json:"budget"`
	BoxOffice       float64              `json:"box_office"`
	Language        string               `json:"language"`
	AuthorID        uint                 `json:"author_id"`
	AuthorIDs       []uint               `json:"author_ids"`
	MovieImage      *string              `json:"movie_image"`
	FileAttachments []AttachmentResponse `json:"file_attachments"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

func toAttachmentResponse(a *models.FileAttachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        a.ID,
		FilePath:  a.FilePath,
		FileName:  a.FileName,
		MovieID:   a.MovieID,
		CreatedAt: a.CreatedAt,
	}
}

func toMovieResponse(m *models.Movie) MovieResponse {
	resp := MovieResponse{
		ID:              m.ID,
		MovieTitle:      m.MovieTitle,
		ImdbRating:      m.ImdbRating,
		YearReleased:    m.YearReleased,
		Budget:          m.Budget,
		BoxOffice:       m.BoxOffice,
		Language:        m.Language,
		AuthorID:        m.PrimaryAuthorID(),
		AuthorIDs:       make([]uint, 0, len(m.MovieAuthors)),
		MovieImage:      m.MovieImage,
		FileAttachments: make([]AttachmentResponse, 0, len(m.FileAttachments)),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	for _, link := range m.MovieAuthors {
		resp.AuthorIDs = append(resp.AuthorIDs, link.AuthorID)
	}
	for i := range m.FileAttachments {
		resp.FileAttachments = append(resp.FileAttachments, toAttachmentResponse(&m.FileAttachments[i]))
	}
	return resp
}
