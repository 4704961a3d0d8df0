package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "feedlink/pkg/domain-errors"
	authmw "feedlink/pkg/platform/middleware/auth"
)

// Claims represents the access token claims issued by the identity service.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTService validates donor access tokens signed with a shared HS256 key.
type JWTService struct {
	signingKey []byte
}

func NewJWTService(signingKey string) *JWTService {
	return &JWTService{signingKey: []byte(signingKey)}
}

// GenerateAccessToken signs a token for donorID. The identity service owns
// issuance; this exists for local tooling and tests.
func (s *JWTService) GenerateAccessToken(donorID uuid.UUID, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: donorID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   donorID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ParseToken verifies the signature and expiry and returns the claims.
func (s *JWTService) ParseToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject is not a donor id")
	}
	return claims, nil
}

// ValidateToken satisfies the auth middleware's JWTValidator.
func (s *JWTService) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{UserID: claims.UserID}, nil
}
