package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/propdocs-maintenance/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

const defaultSecret = "default-secret-key-change-in-production"

// Service verifies the bearer tokens issued to PropDocs users. Tokens are
// HS256 JWTs carrying user_id, email, tier and exp.
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration
}

// NewService creates a token service. An empty secret falls back to a
// development default; a non-positive expiry means 24 hours.
func NewService(secret string, expiry time.Duration) *Service {
	if secret == "" {
		secret = defaultSecret
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Service{
		jwtSecret: []byte(secret),
		tokenExp:  expiry,
	}
}

// GenerateToken issues a token for a user. The API never issues tokens
// itself; this serves the seeder and tests.
func (s *Service) GenerateToken(userID, email string, tier models.SubscriptionTier) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if tier == "" {
		tier = models.TierFree
	}
	if !tier.Valid() {
		return "", fmt.Errorf("unknown subscription tier %q", tier)
	}
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"tier":    string(tier),
		"exp":     time.Now().Add(s.tokenExp).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	// email is optional
	email, _ := claims["email"].(string)

	// Tokens minted before tiers existed carry none and get the free plan.
	tier := models.TierFree
	if raw, ok := claims["tier"].(string); ok && raw != "" {
		tier = models.SubscriptionTier(raw)
		if !tier.Valid() {
			return nil, ErrInvalidToken
		}
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &models.Claims{
		UserID: userID,
		Email:  email,
		Tier:   tier,
		Exp:    int64(exp),
	}, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}
