package auth

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AdminRole = "admin"
	// ServiceRole is carried by tokens of backend services that submit mail.
	ServiceRole     = "service"
	AdminCookieName = "admin_token"
	adminClaimsKey  = "admin_claims"
)

var (
	ErrMissingToken   = errors.New("missing admin token")
	ErrInvalidToken   = errors.New("invalid admin token")
	ErrExpiredToken   = errors.New("admin token expired")
	ErrRoleNotAllowed = errors.New("token does not carry a permitted role")
)

// AdminClaims are issued by the shop backend when an admin logs in. The mailer
// only verifies them.
type AdminClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type AdminVerifier struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

func NewAdminVerifier(secret string) *AdminVerifier {
	return &AdminVerifier{
		secret: []byte(secret),
		leeway: 30 * time.Second,
		now:    time.Now,
	}
}

// Verify checks signature and expiry and that the token carries one of roles.
// Without roles only AdminRole is accepted.
func (v *AdminVerifier) Verify(tokenString string, roles ...string) (*AdminClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(roles) == 0 {
		roles = []string{AdminRole}
	}
	if !slices.Contains(roles, claims.Role) {
		return nil, ErrRoleNotAllowed
	}
	return claims, nil
}

// Middleware accepts the token from "Authorization: Bearer" or the admin cookie.
// Without a configured secret every request is refused. roles defaults to
// AdminRole.
func (v *AdminVerifier) Middleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(v.secret) == 0 {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin auth not configured"})
			return
		}

		claims, err := v.Verify(tokenFromRequest(c), roles...)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, ErrRoleNotAllowed) {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"error": publicMessage(err)})
			return
		}

		c.Set(adminClaimsKey, claims)
		c.Next()
	}
}

func AdminFromContext(c *gin.Context) (*AdminClaims, bool) {
	v, ok := c.Get(adminClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*AdminClaims)
	return claims, ok
}

func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if cookie, err := c.Cookie(AdminCookieName); err == nil {
		return cookie
	}
	return ""
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "Authorization required"
	case errors.Is(err, ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, ErrRoleNotAllowed):
		return "Role not permitted"
	default:
		return "Invalid token"
	}
}
