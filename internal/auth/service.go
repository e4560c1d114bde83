package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"keyadmin/backend/internal/auth/jwt"
	"keyadmin/backend/internal/domain"
	"keyadmin/backend/internal/storage"
)

// PasswordCost 管理员密码的 bcrypt 代价因子
const PasswordCost = 10

// maxPasswordBytes bcrypt 只处理前 72 字节
const maxPasswordBytes = 72

var (
	// ErrMissingCredentials 邮箱或密码为空
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrPasswordTooLong 密码超过 bcrypt 支持的长度
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	// ErrInvalidCredentials 凭证无效
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenRevoked 令牌已注销
	ErrTokenRevoked = errors.New("token revoked")
)

// dummyHash 邮箱不存在时用于比较，使两种失败耗时相近
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("keyadmin-dummy-password"), PasswordCost)

// Service 管理员认证服务
type Service struct {
	admins    storage.AdminRepository
	tokens    *jwt.Manager
	blacklist storage.JWTRepository
}

// NewService 创建认证服务
//
// 参数:
//   - admins: 管理员存储
//   - tokens: 会话令牌管理器
//   - blacklist: 注销令牌黑名单
func NewService(admins storage.AdminRepository, tokens *jwt.Manager, blacklist storage.JWTRepository) *Service {
	return &Service{
		admins:    admins,
		tokens:    tokens,
		blacklist: blacklist,
	}
}

// Credentials 注册与登录的输入
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	if len(c.Password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Register 注册管理员，不检查邮箱是否已存在
func (s *Service) Register(ctx context.Context, input Credentials) error {
	if err := input.validate(); err != nil {
		return err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return err
	}

	admin := &domain.Admin{
		Email:    input.Email,
		Password: hash,
	}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// Login 校验管理员凭证并签发会话令牌
//
// 返回值:
//   - *jwt.Token: 会话令牌
//   - error: 邮箱不存在或密码错误时返回 ErrInvalidCredentials，存储故障原样包装返回
func (s *Service) Login(ctx context.Context, input Credentials) (*jwt.Token, error) {
	if err := input.validate(); err != nil {
		if errors.Is(err, ErrPasswordTooLong) || errors.Is(err, ErrMissingCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	admin, err := s.admins.GetAdminByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, storage.ErrAdminNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(input.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	if !CheckPassword(input.Password, admin.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.tokens.GenerateToken(admin.Email)
}

// Authenticate 校验会话令牌并检查是否已注销
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*jwt.Claims, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check token blacklist: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Logout 将令牌加入黑名单直到其自然过期
func (s *Service) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil {
		return nil
	}
	return s.blacklist.AddToBlacklist(ctx, claims.ID, s.tokens.Remaining(claims))
}

// Tokens 返回会话令牌管理器
func (s *Service) Tokens() *jwt.Manager {
	return s.tokens
}

// HashPassword 使用 bcrypt 生成密码哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 比较明文密码与哈希
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
