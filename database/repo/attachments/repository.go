package attachments

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/database/repo/base"
	"gorm.io/gorm"
)

// Repository 附件仓库，附件只追加不修改
type Repository struct {
	db   *gorm.DB
	base *base.Repository[models.FileAttachment]
}

// NewRepository 创建附件仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:   db,
		base: base.NewRepository[models.FileAttachment](db),
	}
}

// Add 追加附件记录，影片不存在时返回 ErrConstraintViolation
func (r *Repository) Add(ctx context.Context, attachment *models.FileAttachment) error {
	if err := r.base.Create(ctx, attachment); err != nil {
		return fmt.Errorf("add attachment: %w", err)
	}
	return nil
}

// ListByMovieID 按上传顺序列出影片的附件
func (r *Repository) ListByMovieID(ctx context.Context, movieID uint) ([]*models.FileAttachment, error) {
	list := make([]*models.FileAttachment, 0)
	err := r.db.WithContext(ctx).
		Where("movie_id = ?", movieID).
		Order("created_at asc, id asc").
		Find(&list).Error
	return list, err
}

// LatestByMovieID 返回影片最近的附件，没有附件时返回 nil, nil
func (r *Repository) LatestByMovieID(ctx context.Context, movieID uint) (*models.FileAttachment, error) {
	var attachment models.FileAttachment
	err := r.db.WithContext(ctx).
		Where("movie_id = ?", movieID).
		Order("created_at desc, id desc").
		First(&attachment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attachment, nil
}

// Delete 删除附件记录
func (r *Repository) Delete(ctx context.Context, id uint) error {
	if err := r.base.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete attachment %d: %w", id, err)
	}
	return nil
}

// FileNames 返回所有附件引用的文件名
func (r *Repository) FileNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&models.FileAttachment{}).Distinct().Pluck("file_path", &names).Error
	return names, err
}
