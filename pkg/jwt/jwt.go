package jwt

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Role is the portal role carried in the token
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleIntern Role = "intern"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleIntern
}

// Permission names an action guarded by RBAC
type Permission string

const (
	PermReadMessages    Permission = "messages:read"
	PermUploadFiles     Permission = "files:upload"
	PermViewDiagnostics Permission = "diagnostics:view"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermReadMessages, PermUploadFiles, PermViewDiagnostics,
	},
	RoleIntern: {
		PermReadMessages, PermUploadFiles,
	},
}

// JWTClaims represents the claims in a JWT token
type JWTClaims struct {
	UserID uint   `json:"id"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry one of roles
func (c *JWTClaims) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// HasPermission reports whether the claims' role grants p
func (c *JWTClaims) HasPermission(p Permission) bool {
	for _, granted := range rolePermissions[c.Role] {
		if granted == p {
			return true
		}
	}
	return false
}

// GenerateToken generates a new JWT token for a user
func GenerateToken(secretKey string, expiry time.Duration, issuer string, userID uint, email string, role Role) (string, error) {
	now := time.Now()

	claims := &JWTClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(secretKey, tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(secretKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
