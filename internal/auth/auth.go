package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/user"
	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ContextUserKey ctxKey = "user"

// UserFromContext returns the user the auth middleware loaded for this
// request.
func UserFromContext(ctx context.Context) (user.User, bool) {
	u, ok := ctx.Value(ContextUserKey).(user.User)
	return u, ok
}

// ContextWithUser stores u for handlers and mirrors its id, role and
// display name into the shared request context keys.
func ContextWithUser(ctx context.Context, u user.User) context.Context {
	ctx = context.WithValue(ctx, ContextUserKey, u)
	ctx = internal.ContextWithUserID(ctx, u.ID)
	ctx = internal.ContextWithAdmin(ctx, u.IsAdmin())
	return internal.ContextWithDisplayName(ctx, u.DisplayName())
}

// TokenGenerator creates and checks session tokens.
type TokenGenerator interface {
	GenerateAccessToken(u user.User) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents JWT token claims
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
	Issuer         string
	now            func() time.Time
}

const tokenIssuer = "key-management"

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: ttl,
		Issuer:         tokenIssuer,
		now:            time.Now,
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(u user.User) (string, time.Time, error) {
	issuedAt := j.now()
	expiresAt := issuedAt.Add(j.AccessTokenTTL)

	claims := &Claims{
		UserID: u.ID,
		Role:   string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithTimeFunc(j.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
