package middleware

import (
	"net/http"
	"os"
	"strings"

	"backoffice/internal/workflow"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys populated by the auth middleware.
const (
	CtxUserID   = "userID"
	CtxUsername = "username"
	CtxRoles    = "roles"
	CtxTenantID = "tenantID"
)

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		secret = "default_super_secret_key" // Development fallback only — DO NOT use in production
	}
	return []byte(secret)
}

// SetTokenCookies sets access_token and refresh_token as HttpOnly cookies
func SetTokenCookies(c *gin.Context, accessToken, refreshToken string) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", accessToken, 3600*24, "/", "", secure, true)
	c.SetCookie("refresh_token", refreshToken, 3600*24*7, "/", "", secure, true)
}

// ClearTokenCookies removes access_token and refresh_token cookies
func ClearTokenCookies(c *gin.Context) {
	sameSite := http.SameSiteLaxMode
	secure := false
	if os.Getenv("GIN_MODE") == "release" {
		sameSite = http.SameSiteNoneMode
		secure = true
	}

	c.SetSameSite(sameSite)
	c.SetCookie("access_token", "", -1, "/", "", secure, true)
	c.SetCookie("refresh_token", "", -1, "/", "", secure, true)
}

// extractToken pulls the access token from the cookie or the Authorization
// header, cookie first.
func extractToken(c *gin.Context) (string, bool) {
	tokenString, err := c.Cookie("access_token")
	if err == nil && tokenString != "" {
		return tokenString, true
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

func parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// rolesFromClaims decodes the "roles" claim, which arrives as []interface{}
// after JSON round-tripping.
func rolesFromClaims(claims jwt.MapClaims) []string {
	raw, ok := claims["roles"].([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}

// RequireAuth validates the JWT and stores the caller's identity (user id,
// username, role set, tenant) on the gin context.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}

		claims, err := parseClaims(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		sub, _ := claims["sub"].(string)
		username, _ := claims["username"].(string)
		tenantID, _ := claims["tid"].(string)
		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Tenant not found in token"))
			return
		}

		c.Set(CtxUserID, sub)
		c.Set(CtxUsername, username)
		c.Set(CtxRoles, rolesFromClaims(claims))
		c.Set(CtxTenantID, tenantID)

		c.Next()
	}
}

// RequireRole validates the JWT and additionally checks that the caller holds
// at least one of the allowed roles.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	requireAuth := RequireAuth()
	return func(c *gin.Context) {
		requireAuth(c)
		if c.IsAborted() {
			return
		}

		roles, _ := c.Get(CtxRoles)
		userRoles, _ := roles.([]string)

		for _, allowed := range allowedRoles {
			for _, role := range userRoles {
				if role == allowed {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// ActorFromContext builds the workflow actor from the authenticated identity.
func ActorFromContext(c *gin.Context) workflow.Actor {
	username, _ := c.Get(CtxUsername)
	roles, _ := c.Get(CtxRoles)

	actor := workflow.Actor{}
	if s, ok := username.(string); ok {
		actor.Username = s
	}
	if r, ok := roles.([]string); ok {
		actor.Roles = r
	}
	return actor
}

// TenantFromContext returns the authenticated caller's tenant id.
func TenantFromContext(c *gin.Context) string {
	tenantID, _ := c.Get(CtxTenantID)
	if s, ok := tenantID.(string); ok {
		return s
	}
	return ""
}

// UserIDFromContext returns the authenticated caller's user id.
func UserIDFromContext(c *gin.Context) string {
	userID, _ := c.Get(CtxUserID)
	if s, ok := userID.(string); ok {
		return s
	}
	return ""
}
