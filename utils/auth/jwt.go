package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// PlanPremium is the plan claim value that lifts the course quota
const PlanPremium = "premium"

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
	Issuer string
	// Expiry applies to tokens minted by GenerateToken
	Expiry time.Duration
}

// Claims are issued by the identity provider. Email is the identity key.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Plan  string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller as seen by the services
type Identity struct {
	Subject string
	Email   string
	Name    string
	Plan    string
}

// IsPremium reports whether the caller's plan lifts the course quota
func (i Identity) IsPremium() bool {
	return strings.EqualFold(i.Plan, PlanPremium)
}

// Identity converts validated claims into the service-facing identity
func (c *Claims) Identity() Identity {
	name := c.Name
	if name == "" {
		name = c.Email
	}
	return Identity{
		Subject: c.Subject,
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Name:    name,
		Plan:    c.Plan,
	}
}

// JWTManager handles JWT token operations
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(config JWTConfig) *JWTManager {
	if config.Expiry == 0 {
		config.Expiry = 24 * time.Hour
	}
	return &JWTManager{
		config: config,
	}
}

// GenerateToken mints a token the way the identity provider would. Used by
// tooling and tests; production tokens come from the provider.
func (j *JWTManager) GenerateToken(email, name, plan string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		Plan:  plan,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
			Subject:   email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.Secret))
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(j.config.Secret), nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}
