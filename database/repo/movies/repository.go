// Package movies 影片仓库
// 作者关联 (movie_authors) 是作者归属的唯一来源，随影片行一同写入
package movies

import (
	"context"
	"fmt"

	"github.com/anoixa/image-theatre/database"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/database/repo/base"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 影片仓库
type Repository struct {
	db   *gorm.DB
	base *base.Repository[models.Movie]
}

// NewRepository 创建影片仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:   db,
		base: base.NewRepository[models.Movie](db, base.WithPreload("MovieAuthors", "FileAttachments")),
	}
}

// Add 写入影片及其作者关联，作者不存在时返回 ErrConstraintViolation
func (r *Repository) Add(ctx context.Context, movie *models.Movie) error {
	links := movie.MovieAuthors
	err := r.base.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(movie).Error; err != nil {
			return database.TranslateError(err)
		}
		return insertLinks(tx, movie.ID, links)
	})
	if err != nil {
		movie.ID = 0
		return fmt.Errorf("add movie: %w", err)
	}
	return nil
}

// Update 整行替换影片并替换作者关联，影片不存在时返回 ErrNotFound
func (r *Repository) Update(ctx context.Context, movie *models.Movie) error {
	err := r.base.Transaction(ctx, func(tx *gorm.DB) error {
		return r.updateWithTx(tx, movie)
	})
	if err != nil {
		return fmt.Errorf("update movie %d: %w", movie.ID, err)
	}
	return nil
}

// UpdateWithAttachment 在同一事务中更新影片并追加附件记录
func (r *Repository) UpdateWithAttachment(ctx context.Context, movie *models.Movie, attachment *models.FileAttachment) error {
	err := r.base.Transaction(ctx, func(tx *gorm.DB) error {
		if err := r.updateWithTx(tx, movie); err != nil {
			return err
		}
		attachment.MovieID = movie.ID
		if err := tx.Create(attachment).Error; err != nil {
			return database.TranslateError(err)
		}
		return nil
	})
	if err != nil {
		attachment.ID = 0
		return fmt.Errorf("update movie %d with attachment: %w", movie.ID, err)
	}
	return nil
}

func (r *Repository) updateWithTx(tx *gorm.DB, movie *models.Movie) error {
	if err := r.base.UpdateWithTx(tx, movie.ID, movie); err != nil {
		return err
	}
	if err := tx.Where("movie_id = ?", movie.ID).Delete(&models.MovieAuthor{}).Error; err != nil {
		return database.TranslateError(err)
	}
	return insertLinks(tx, movie.ID, movie.MovieAuthors)
}

func insertLinks(tx *gorm.DB, movieID uint, links []models.MovieAuthor) error {
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		links[i].MovieID = movieID
	}
	if err := tx.Create(&links).Error; err != nil {
		return database.TranslateError(err)
	}
	return nil
}

// GetByID 获取影片（含作者关联与附件），不存在时返回 nil, nil
func (r *Repository) GetByID(ctx context.Context, id uint) (*models.Movie, error) {
	return r.base.GetByID(ctx, id)
}

// GetAll 获取全部影片
func (r *Repository) GetAll(ctx context.Context) ([]*models.Movie, error) {
	return r.base.GetAll(ctx)
}

// Delete 删除影片，附件与作者关联级联删除
func (r *Repository) Delete(ctx context.Context, id uint) error {
	if err := r.base.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete movie %d: %w", id, err)
	}
	return nil
}

// ImageNames 返回所有影片当前引用的图片文件名
func (r *Repository) ImageNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.Movie{}).
		Where("movie_image IS NOT NULL AND movie_image <> ''").
		Pluck("movie_image", &names).Error
	return names, err
}
