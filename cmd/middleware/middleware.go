package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/wb-go/wbf/zlog"

	"eventpass/internal/dto"
)

func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		ev := zlog.Logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = zlog.Logger.Error()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// BaseURL resolves the public origin once per request and stores it for the
// handlers that build absolute links. A non-empty override wins.
func BaseURL(override string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(dto.BaseURLKey, ResolveBaseURL(c.Request, override))
		c.Next()
	}
}

func ResolveBaseURL(r *http.Request, override string) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	if fwd := firstValue(r.Header.Get("X-Forwarded-Proto")); fwd != "" {
		proto = fwd
	}
	host := r.Host
	if fwd := firstValue(r.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}
	return proto + "://" + host
}

func firstValue(h string) string {
	v, _, _ := strings.Cut(h, ",")
	return strings.TrimSpace(v)
}

const (
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

type OrganizerClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errForbiddenRole = errors.New("token does not grant organizer access")

// OrganizerAuth guards organizer routes with an HS256 bearer token. An empty
// secret disables the guard for local runs.
func OrganizerAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			dto.UnauthorizedError(c, "Missing bearer token")
			return
		}

		claims, err := ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("organizer token rejected")
			dto.UnauthorizedError(c, "Invalid or expired token")
			return
		}

		c.Set(dto.OrganizerKey, claims.Subject)
		c.Next()
	}
}

func ParseToken(secret, raw string) (*OrganizerClaims, error) {
	claims := &OrganizerClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleOrganizer && claims.Role != RoleAdmin {
		return nil, errForbiddenRole
	}
	return claims, nil
}

// IssueToken mints an organizer token, used by the scanner CLI.
func IssueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := OrganizerClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
