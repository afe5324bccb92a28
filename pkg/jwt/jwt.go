package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"social-im/config"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// JWTService 提供 JWT 生成与校验能力，使用对称密钥 HS256
type JWTService struct {
	secretKey     []byte
	issuer        string
	expireAfter   time.Duration // 默认过期时间
	loginExpireIn time.Duration // 登录/注册令牌过期时间
}

// CustomClaims 令牌载荷：{user_id, username, email, exp}
type CustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwtv5.RegisteredClaims
}

// NewJWTService 创建 JWT 服务
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secretKey:     []byte(cfg.Secret),
		issuer:        cfg.Issuer,
		expireAfter:   cfg.ExpireTime,
		loginExpireIn: cfg.LoginExpireTime,
	}
}

// GenerateToken 使用默认过期时间签发令牌
func (s *JWTService) GenerateToken(userID uint, username, email string) (string, error) {
	return s.Issue(userID, username, email, s.expireAfter)
}

// GenerateLoginToken 签发登录令牌
func (s *JWTService) GenerateLoginToken(userID uint, username, email string) (string, error) {
	return s.Issue(userID, username, email, s.loginExpireIn)
}

// Issue 按指定有效期签发令牌
func (s *JWTService) Issue(userID uint, username, email string, ttl time.Duration) (string, error) {
	if userID == 0 {
		return "", errors.New("userID is required")
	}

	now := time.Now()
	claims := &CustomClaims{
		UserID:   userID,
		Username: username,
		Email:    email,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return signed, nil
}

// ValidateToken 校验并解析令牌
func (s *JWTService) ValidateToken(tokenString string) (*CustomClaims, error) {
	if tokenString == "" {
		return nil, errors.New("token is empty")
	}
	claims := &CustomClaims{}
	parsedToken, err := jwtv5.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwtv5.Token) (interface{}, error) {
			if token.Method != jwtv5.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	if !parsedToken.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == 0 {
		return nil, errors.New("token has no user_id")
	}
	return claims, nil
}
