package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anoixa/image-theatre/database/models"
	"github.com/anoixa/image-theatre/database/repo/accounts"
	cryptopackage "github.com/anoixa/image-theatre/utils/crypto"
)

var (
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists 用户名已被占用
	ErrUserExists = accounts.ErrUserExists
	// ErrWeakPassword 密码不满足最小长度
	ErrWeakPassword = errors.New("password must be at least 6 characters long")
)

// MinPasswordLength 注册时的最小密码长度
const MinPasswordLength = 6

// LoginResult 登录结果
type LoginResult struct {
	User              *models.User
	AccessToken       string
	AccessTokenExpiry time.Time
}

// LoginService 登录服务
type LoginService struct {
	accountsRepo *accounts.Repository
	jwtService   *JWTService
}

// NewLoginService 创建新的登录服务
func NewLoginService(accountsRepo *accounts.Repository, jwtService *JWTService) *LoginService {
	return &LoginService{
		accountsRepo: accountsRepo,
		jwtService:   jwtService,
	}
}

// ValidateCredentials 验证用户凭据
func (s *LoginService) ValidateCredentials(ctx context.Context, username, password string) (*models.User, bool, error) {
	user, err := s.accountsRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get user: %w", err)
	}

	ok, err := cryptopackage.ComparePasswordAndHash(password, user.Password)
	if err != nil {
		return nil, false, fmt.Errorf("password comparison failed: %w", err)
	}

	return user, ok, nil
}

// Login 执行登录操作
func (s *LoginService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, valid, err := s.ValidateCredentials(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("failed to validate credentials: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	token, expiry, err := s.jwtService.GenerateToken(user.Username, user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResult{
		User:              user,
		AccessToken:       token,
		AccessTokenExpiry: expiry,
	}, nil
}

// Register 注册普通用户
func (s *LoginService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hashed, err := cryptopackage.GenerateFromPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    strings.TrimSpace(email),
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := s.accountsRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, accounts.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ResetPassword 重置指定用户的密码
func (s *LoginService) ResetPassword(ctx context.Context, username, password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	user, err := s.accountsRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	hashed, err := cryptopackage.GenerateFromPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.accountsRepo.UpdatePassword(ctx, user.ID, hashed)
}
