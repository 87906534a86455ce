package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anoixa/image-theatre/config"
	"github.com/anoixa/image-theatre/utils"

	"github.com/golang-jwt/jwt/v5"
)

const (
	minSecretLength   = 32
	defaultTokenTTL   = 2 * time.Hour
	tokenTypeAccess   = "access"
	generatedSecretSz = 48
)

// TokenClaims JWT 令牌声明
type TokenClaims struct {
	Username string
	UserID   uint
	Role     string
	Type     string
	Exp      int64
	Iat      int64
}

// TokenConfig 保存 JWT 配置
type TokenConfig struct {
	Secret    []byte
	Issuer    string
	ExpiresIn time.Duration
}

// JWTService JWT Token 服务
type JWTService struct {
	config TokenConfig
}

// NewJWTService 根据配置创建 JWT 服务
// 未配置密钥时生成随机密钥，重启后已签发的令牌全部失效
func NewJWTService(cfg *config.Config) (*JWTService, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		generated, err := utils.GenerateRandomToken(generatedSecretSz)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		log.Println("[JWT] JWT_SECRET is not set, using a random secret for this process")
		secret = generated
	}

	return NewJWTServiceWithConfig(TokenConfig{
		Secret:    []byte(secret),
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: cfg.JWTExpiresIn,
	})
}

// NewJWTServiceWithConfig 使用显式配置创建 JWT 服务
func NewJWTServiceWithConfig(tc TokenConfig) (*JWTService, error) {
	if len(tc.Secret) < minSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters long, got %d", minSecretLength, len(tc.Secret))
	}
	if tc.ExpiresIn <= 0 {
		tc.ExpiresIn = defaultTokenTTL
	}
	log.Printf("[JWT] Access token TTL: %v", tc.ExpiresIn)
	return &JWTService{config: tc}, nil
}

// GetConfig 获取当前 JWT 配置（只读）
func (s *JWTService) GetConfig() TokenConfig {
	return TokenConfig{
		Secret:    append([]byte{}, s.config.Secret...),
		Issuer:    s.config.Issuer,
		ExpiresIn: s.config.ExpiresIn,
	}
}

// GenerateToken 生成访问令牌
func (s *JWTService) GenerateToken(username string, userID uint, role string) (string, time.Time, error) {
	now := time.Now()
	expiry := now.Add(s.config.ExpiresIn)
	claims := jwt.MapClaims{
		"username": username,
		"user_id":  userID,
		"role":     role,
		"type":     tokenTypeAccess,
		"exp":      expiry.Unix(),
		"iat":      now.Unix(),
	}
	if s.config.Issuer != "" {
		claims["iss"] = s.config.Issuer
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	return token, expiry, nil
}

// ParseToken 解析和验证 JWT 令牌
func (s *JWTService) ParseToken(tokenString string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.config.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ExtractClaims 从令牌中提取声明，只接受访问令牌
func (s *JWTService) ExtractClaims(tokenString string) (*TokenClaims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != tokenTypeAccess {
		return nil, errors.New("not an access token")
	}

	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	userIDFloat, _ := claims["user_id"].(float64)
	expFloat, _ := claims["exp"].(float64)
	iatFloat, _ := claims["iat"].(float64)

	return &TokenClaims{
		Username: username,
		UserID:   uint(userIDFloat),
		Role:     role,
		Type:     tokenType,
		Exp:      int64(expFloat),
		Iat:      int64(iatFloat),
	}, nil
}
