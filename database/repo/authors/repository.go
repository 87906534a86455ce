package authors

import (
	"context"
	"fmt"

	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/database/repo/base"
	"gorm.io/gorm"
)

// Repository 作者仓库
type Repository struct {
	base *base.Repository[models.Author]
}

// NewRepository 创建作者仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		base: base.NewRepository[models.Author](db, base.WithPreload("MovieAuthors")),
	}
}

// Add 写入作者
func (r *Repository) Add(ctx context.Context, author *models.Author) error {
	author.MovieAuthors = nil
	if err := r.base.Create(ctx, author); err != nil {
		return fmt.Errorf("add author: %w", err)
	}
	return nil
}

// Update 整行替换作者名，作者不存在时返回 ErrNotFound
func (r *Repository) Update(ctx context.Context, author *models.Author) error {
	if err := r.base.Update(ctx, author.ID, author); err != nil {
		return fmt.Errorf("update author %d: %w", author.ID, err)
	}
	return nil
}

// GetByID 获取作者（含影片关联），不存在时返回 nil, nil
func (r *Repository) GetByID(ctx context.Context, id uint) (*models.Author, error) {
	return r.base.GetByID(ctx, id)
}

// GetAll 获取全部作者
func (r *Repository) GetAll(ctx context.Context) ([]*models.Author, error) {
	return r.base.GetAll(ctx)
}

// Delete 删除作者，其影片关联级联删除
func (r *Repository) Delete(ctx context.Context, id uint) error {
	if err := r.base.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete author %d: %w", id, err)
	}
	return nil
}
