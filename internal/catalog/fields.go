package catalog

import (
	"math"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/internal/apperr"
)

// 字段约束
const (
	MaxTitleLength      = 100
	MaxLanguageLength   = 20
	MaxAuthorNameLength = 100
	MinRating           = 0
	MaxRating           = 10
	MinYear             = 1900
	MaxYear             = 2100
	maxFileNameLength   = 255
)

// MovieFields 影片可写字段
// AuthorID 为主作者，AuthorIDs 为其余作者
type MovieFields struct {
	MovieTitle   string
	ImdbRating   float64
	YearReleased int
	Budget       float64
	BoxOffice    float64
	Language     string
	AuthorID     uint
	AuthorIDs    []uint
}

// Validate 校验字段范围，失败返回 ErrInvalidInput
// 标题与语言按原样保存，长度按原值计算
func (f MovieFields) Validate() error {
	switch {
	case strings.TrimSpace(f.MovieTitle) == "":
		return apperr.InvalidInput("movie title is required")
	case utf8.RuneCountInString(f.MovieTitle) > MaxTitleLength:
		return apperr.InvalidInput("movie title exceeds %d characters", MaxTitleLength)
	case math.IsNaN(f.ImdbRating) || f.ImdbRating < MinRating || f.ImdbRating > MaxRating:
		return apperr.InvalidInput("imdb rating must be between %d and %d", MinRating, MaxRating)
	case f.YearReleased < MinYear || f.YearReleased > MaxYear:
		return apperr.InvalidInput("year released must be between %d and %d", MinYear, MaxYear)
	case math.IsNaN(f.Budget) || f.Budget < 0:
		return apperr.InvalidInput("budget must not be negative")
	case math.IsNaN(f.BoxOffice) || f.BoxOffice < 0:
		return apperr.InvalidInput("box office must not be negative")
	case utf8.RuneCountInString(f.Language) > MaxLanguageLength:
		return apperr.InvalidInput("language exceeds %d characters", MaxLanguageLength)
	case f.AuthorID == 0:
		return apperr.InvalidInput("author id is required")
	}
	return nil
}

// apply 用字段整体替换影片的可写列与作者关联
func (f MovieFields) apply(m *models.Movie) {
	m.MovieTitle = f.MovieTitle
	m.ImdbRating = f.ImdbRating
	m.YearReleased = f.YearReleased
	m.Budget = f.Budget
	m.BoxOffice = f.BoxOffice
	m.Language = f.Language
	m.SetAuthors(f.AuthorID, f.AuthorIDs...)
}

// ValidateAuthorName 校验作者名
func ValidateAuthorName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.InvalidInput("author name is required")
	}
	if utf8.RuneCountInString(name) > MaxAuthorNameLength {
		return "", apperr.InvalidInput("author name exceeds %d characters", MaxAuthorNameLength)
	}
	return name, nil
}

// sanitizeFileName 仅保留客户端文件名的可打印部分，用于附件记录
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	for utf8.RuneCountInString(name) > maxFileNameLength {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return strings.TrimSpace(name)
}
