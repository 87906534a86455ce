// Package base 提供通用的 Repository 基类
package base

import (
	"context"
	"errors"

	"github.com/anoixa/image-theatre/database"
	"github.com/anoixa/image-theatre/internal/apperr"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 通用仓库基类，错误统一经过 database.TranslateError 归类
type Repository[T any] struct {
	db       *gorm.DB
	preloads []string
	order    string
}

// Option 仓库选项
type Option func(*options)

type options struct {
	preloads []string
	order    string
}

// WithPreload 读取时预加载的关联
func WithPreload(associations ...string) Option {
	return func(o *options) {
		o.preloads = append(o.preloads, associations...)
	}
}

// WithOrder GetAll 的排序
func WithOrder(order string) Option {
	return func(o *options) {
		o.order = order
	}
}

// NewRepository 创建新的通用仓库
func NewRepository[T any](db *gorm.DB, opts ...Option) *Repository[T] {
	o := options{order: "id asc"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository[T]{db: db, preloads: o.preloads, order: o.order}
}

// DB 返回底层数据库连接
func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

func (r *Repository[T]) withPreloads(db *gorm.DB) *gorm.DB {
	for _, p := range r.preloads {
		db = db.Preload(p)
	}
	return db
}

// Create 创建记录
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	return database.TranslateError(r.db.WithContext(ctx).Create(entity).Error)
}

// CreateWithTx 在事务中创建记录
func (r *Repository[T]) CreateWithTx(tx *gorm.DB, entity *T) error {
	return database.TranslateError(tx.Create(entity).Error)
}

// GetByID 通过 ID 获取记录（含预加载），不存在时返回 nil, nil
func (r *Repository[T]) GetByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	err := r.withPreloads(r.db.WithContext(ctx)).First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// GetAll 获取全部记录（含预加载），无记录时返回空切片
func (r *Repository[T]) GetAll(ctx context.Context) ([]*T, error) {
	entities := make([]*T, 0)
	err := r.withPreloads(r.db.WithContext(ctx)).Order(r.order).Find(&entities).Error
	return entities, err
}

// UpdateWithTx 在事务中整行替换已存在的记录，记录不存在时返回 ErrNotFound
func (r *Repository[T]) UpdateWithTx(tx *gorm.DB, id uint, entity *T) error {
	result := tx.Model(entity).Select("*").Omit("created_at", clause.Associations).Where("id = ?", id).Updates(entity)
	if result.Error != nil {
		return database.TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("record %d", id)
	}
	return nil
}

// Update 整行替换
func (r *Repository[T]) Update(ctx context.Context, id uint, entity *T) error {
	return r.UpdateWithTx(r.db.WithContext(ctx), id, entity)
}

// Delete 删除记录，记录不存在时返回 ErrNotFound
func (r *Repository[T]) Delete(ctx context.Context, id uint) error {
	return r.DeleteWithTx(r.db.WithContext(ctx), id)
}

// DeleteWithTx 在事务中删除记录
func (r *Repository[T]) DeleteWithTx(tx *gorm.DB, id uint) error {
	var entity T
	result := tx.Delete(&entity, id)
	if result.Error != nil {
		return database.TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("record %d", id)
	}
	return nil
}

// Count 获取记录总数
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Count(&count).Error
	return count, err
}

// Exists 检查记录是否存在
func (r *Repository[T]) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// FindByCondition 根据条件查询
func (r *Repository[T]) FindByCondition(ctx context.Context, condition string, args ...interface{}) ([]*T, error) {
	var entities []*T
	err := r.db.WithContext(ctx).Where(condition, args...).Find(&entities).Error
	return entities, err
}

// FirstByCondition 根据条件查询第一条记录
func (r *Repository[T]) FirstByCondition(ctx context.Context, condition string, args ...interface{}) (*T, error) {
	var entity T
	err := r.db.WithContext(ctx).Where(condition, args...).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// Transaction 执行事务
func (r *Repository[T]) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return database.TransactionWithContext(ctx, r.db, fn)
}
