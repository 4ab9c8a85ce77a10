package jwt

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ota-server/internal/pkg/config"
	"ota-server/pkg/constants"
	pkgErrors "ota-server/pkg/errors"
)

// UserClaims 操作人Claims
type UserClaims struct {
	Username string `json:"username"`
	Type     string `json:"type"` // access
	jwt.RegisteredClaims
}

// Manager 签发与校验操作人Token
type Manager struct {
	secret []byte
	expire time.Duration
}

// NewManager 创建Token管理器
func NewManager(cfg config.JWTConfig) *Manager {
	expire := time.Duration(cfg.AccessTokenExpire) * time.Second
	if expire <= 0 {
		expire = 2 * time.Hour
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		expire: expire,
	}
}

// GenerateAccessToken 生成访问Token
func (m *Manager) GenerateAccessToken(username string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Username: username,
		Type:     constants.JWTTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ParseToken 解析Token
func (m *Manager) ParseToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名方法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgErrors.ErrTokenExpired
		}
		return nil, pkgErrors.Wrap(pkgErrors.CodeUnauthorized, "解析Token失败", err)
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, pkgErrors.ErrInvalidToken
}

// ValidateToken 验证Token有效性, 只接受访问Token
func (m *Manager) ValidateToken(tokenString string) (*UserClaims, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.Type != constants.JWTTypeAccess {
		return nil, pkgErrors.New(pkgErrors.CodeUnauthorized, "无效的Token类型")
	}

	return claims, nil
}
