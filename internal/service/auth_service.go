package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/suar-net/arango-go/internal/config"
	"github.com/suar-net/arango-go/internal/model"
)

const tokenIssuer = "arango-gateway"

type authService struct {
	operator  config.AuthConfig
	jwtConfig config.JWTConfig
	now       func() time.Time
}

// NewAuthService checks logins against the single configured operator.
func NewAuthService(operator config.AuthConfig, jwtConfig config.JWTConfig) IAuthService {
	return &authService{
		operator:  operator,
		jwtConfig: jwtConfig,
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req *model.DTOLoginRequest) (*model.DTOLoginResponse, error) {
	if subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.operator.Username)) != 1 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	claims := &model.Claims{
		Username: s.operator.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.operator.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.AccessTokenExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &model.DTOLoginResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtConfig.AccessTokenExpiresIn.Seconds()),
	}, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*model.Claims, error) {
	claims := &model.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.SecretKey), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid || claims.Username == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
