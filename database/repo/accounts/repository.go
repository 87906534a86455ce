package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/anoixa/image-theatre/database"
	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/utils"
	cryptopackage "github.com/anoixa/image-theatre/utils/crypto"
	"gorm.io/gorm"
)

// ErrUserNotFound 用户不存在错误
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists 用户名已被占用
var ErrUserExists = errors.New("username already exists")

// Repository 账户仓库
type Repository struct {
	db *gorm.DB
}

// NewRepository 创建新的账户仓库
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateDefaultAdminUser 创建默认管理员用户
// 已存在 admin 时返回空密码
func (r *Repository) CreateDefaultAdminUser(ctx context.Context) (string, error) {
	exists, err := r.UserExists(ctx, "admin")
	if err != nil {
		return "", fmt.Errorf("failed to check admin user existence: %w", err)
	}
	if exists {
		return "", nil
	}

	randomPassword, err := utils.GenerateRandomPassword(16)
	if err != nil {
		return "", err
	}

	hashedPassword, err := cryptopackage.GenerateFromPassword(randomPassword)
	if err != nil {
		return "", fmt.Errorf("failed to hash default password: %w", err)
	}

	user := &models.User{
		Username: "admin",
		Password: hashedPassword,
		Role:     models.RoleAdmin,
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return "", fmt.Errorf("failed to create default admin user: %w", err)
	}

	return randomPassword, nil
}

// GetUserByUsername 通过用户名获取用户
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID 通过ID获取用户
func (r *Repository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser 创建用户，用户名冲突时返回 ErrUserExists
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	exists, err := r.UserExists(ctx, user.Username)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(database.TranslateError(err), gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// UpdatePassword 更新用户密码哈希
func (r *Repository) UpdatePassword(ctx context.Context, userID uint, hashedPassword string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("password", hashedPassword)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UserExists 检查用户是否存在
func (r *Repository) UserExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}
