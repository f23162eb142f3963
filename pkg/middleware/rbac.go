package middleware

import (
	"strings"

	"intern-portal/backend/pkg/errors"
	"intern-portal/backend/pkg/jwt"
	"intern-portal/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by JWTAuthMiddleware
const (
	ClaimsKey = "claims"
	UserIDKey = "userID"
	RoleKey   = "userRole"
)

// TokenFromRequest extracts a bearer token from the Authorization header or,
// failing that, from the "token" query parameter used by WebSocket clients.
func TokenFromRequest(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	if token != "" {
		return strings.TrimPrefix(token, "Bearer ")
	}
	return c.Query("token")
}

// ClaimsFromContext returns the claims stored by JWTAuthMiddleware
func ClaimsFromContext(c *gin.Context) (*jwt.JWTClaims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.JWTClaims)
	return claims, ok
}

func requireClaims(c *gin.Context) (*jwt.JWTClaims, bool) {
	if _, exists := c.Get(ClaimsKey); !exists {
		c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authentication required"))
		c.Abort()
		return nil, false
	}
	claims, ok := ClaimsFromContext(c)
	if !ok {
		c.Error(errors.NewInternalServerError("INVALID_CLAIMS", "Invalid JWT claims format"))
		c.Abort()
		return nil, false
	}
	return claims, true
}

// RequireRole returns a middleware that requires the user to have a specific role
func RequireRole(role jwt.Role) gin.HandlerFunc {
	return RequireAnyRole(role)
}

// RequireAnyRole returns middleware that requires the user to have at least one of the specified roles
func RequireAnyRole(roles ...jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := requireClaims(c)
		if !ok {
			return
		}

		if !claims.HasRole(roles...) {
			c.Error(errors.NewForbiddenError("INSUFFICIENT_ROLE", "Your role does not allow this operation"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequirePermission returns a middleware that requires the user to have a specific permission
func RequirePermission(permission jwt.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := requireClaims(c)
		if !ok {
			return
		}

		if !claims.HasPermission(permission) {
			c.Error(errors.NewForbiddenError("INSUFFICIENT_PERMISSION", "You don't have permission to perform this operation"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// JWTAuthMiddleware checks that the request has a valid JWT and adds claims to the context
func JWTAuthMiddleware(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return authenticate(jwtService, log, false)
}

// OptionalJWTAuthMiddleware validates a token when one is present and lets
// anonymous requests through untouched. An invalid token is still rejected.
func OptionalJWTAuthMiddleware(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return authenticate(jwtService, log, true)
}

func authenticate(jwtService *jwt.Service, log *logger.Logger, optional bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			if optional {
				c.Next()
				return
			}
			c.Error(errors.NewUnauthorizedError("AUTH_REQUIRED", "Authorization header is required"))
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			log.Warn("Invalid JWT token", "error", err.Error(), "path", c.Request.URL.Path)
			c.Error(errors.NewUnauthorizedError("INVALID_TOKEN", "Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		logger.Scope(c, "user_id", claims.UserID, "role", string(claims.Role))

		c.Next()
	}
}
