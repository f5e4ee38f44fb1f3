package stubserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Martin-d-abloh/proyecto-academia/config"
)

// tokenClaims mirrors the payloads the real backend signs: staff tokens
// carry usuario/id/es_superadmin, student tokens only alumno_id.
type tokenClaims struct {
	Username     string `json:"usuario,omitempty"`
	AdminID      int    `json:"id,omitempty"`
	IsSuperadmin bool   `json:"es_superadmin,omitempty"`
	StudentID    string `json:"alumno_id,omitempty"`
	jwt.RegisteredClaims
}

// GenerateStaffToken signs a staff token.
func GenerateStaffToken(admin *adminRecord, cfg *config.StubConfig) (string, error) {
	claims := tokenClaims{
		Username:     admin.Username,
		AdminID:      admin.ID,
		IsSuperadmin: admin.IsSuperadmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.TokenExpireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// GenerateStudentToken signs a student token.
func GenerateStudentToken(studentID string, cfg *config.StubConfig) (string, error) {
	claims := tokenClaims{
		StudentID: studentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.TokenExpireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func parseToken(tokenString, secret string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// denyAuth answers with the universal authorization-denial signal. The
// client keys its purge-and-redirect path off 403, so every auth failure
// uses it, missing token included.
func denyAuth(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": msg})
}

// StaffAuth admits valid staff tokens and stores the claims in context.
func StaffAuth(cfg *config.StubConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			denyAuth(c, "Token requerido")
			return
		}

		claims, err := parseToken(token, cfg.JWTSecret)
		if err != nil || claims.AdminID == 0 {
			denyAuth(c, "Token inválido")
			return
		}

		c.Set("admin_id", claims.AdminID)
		c.Set("es_superadmin", claims.IsSuperadmin)
		c.Next()
	}
}

// SuperadminAuth admits only superadmin staff tokens.
func SuperadminAuth(cfg *config.StubConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			denyAuth(c, "Token requerido")
			return
		}

		claims, err := parseToken(token, cfg.JWTSecret)
		if err != nil || !claims.IsSuperadmin {
			denyAuth(c, "Token inválido: no eres superadmin")
			return
		}

		c.Set("admin_id", claims.AdminID)
		c.Set("es_superadmin", true)
		c.Next()
	}
}

// StudentAuth admits a student token only for the student named in the
// route.
func StudentAuth(cfg *config.StubConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			denyAuth(c, "Token requerido")
			return
		}

		claims, err := parseToken(token, cfg.JWTSecret)
		if err != nil || claims.StudentID == "" {
			denyAuth(c, "Token inválido")
			return
		}
		if id := c.Param("id"); id != "" && id != claims.StudentID {
			denyAuth(c, "Token no válido para este alumno")
			return
		}

		c.Set("alumno_id", claims.StudentID)
		c.Next()
	}
}

func currentAdminID(c *gin.Context) int {
	if v, ok := c.Get("admin_id"); ok {
		return v.(int)
	}
	return 0
}

func isSuperadmin(c *gin.Context) bool {
	if v, ok := c.Get("es_superadmin"); ok {
		return v.(bool)
	}
	return false
}
