package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

// adminClaims is the JWT payload issued by IssueAdminToken. Admin tokens
// carry no roles or scopes — every gated route (the kill switch and the MOA
// recommendation routes) accepts any valid, unexpired token.
type adminClaims struct {
	jwt.RegisteredClaims
}

// IssueAdminToken mints a short-lived bearer token signed with the server's
// JWT secret. handleLogin issues one (valid for an hour) in exchange for the
// admin password and a current TOTP code; it is not refreshed automatically.
func (s *Server) IssueAdminToken(subject string, ttl time.Duration) (string, error) {
	claims := adminClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// verifyAdminToken parses and validates a bearer token against the server's
// JWT secret.
func (s *Server) verifyAdminToken(raw string) (*adminClaims, error) {
	claims := &adminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// verifyTOTP checks a 6-digit code against the server's enrolled TOTP
// secret, per the standard 30-second-step RFC 6238 window.
func (s *Server) verifyTOTP(code string) bool {
	if s.totpSecret == "" {
		return false
	}
	return totp.Validate(code, s.totpSecret)
}

// verifyPassword checks a plaintext password against the server's bcrypt
// hash of the admin credential. The hash is configured once (ADMIN_PASSWORD_HASH)
// and never logged or returned; only the comparison result leaves this
// function.
func (s *Server) verifyPassword(password string) bool {
	if len(s.passwordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
}

type loginRequest struct {
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin exchanges a password + TOTP code for a short-lived admin
// bearer token. This is the only place a plaintext password is ever
// compared; every other admin route trusts the token it mints.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password and totp_code are required"})
		return
	}

	if !s.verifyPassword(req.Password) || !s.verifyTOTP(req.TOTPCode) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	const ttl = time.Hour
	token, err := s.IssueAdminToken("operator", ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, loginResponse{Token: token, ExpiresAt: time.Now().Add(ttl)})
}

// requireAdminAuth is gin middleware gating the kill switch and the MOA
// recommendation routes: it requires
// both a valid JWT bearer token and a valid TOTP code (sent via the
// X-TOTP-Code header), per §6's "requires a valid JWT bearer token *and* a
// valid TOTP code".
func (s *Server) requireAdminAuth(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if _, err := s.verifyAdminToken(token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	code := c.GetHeader("X-TOTP-Code")
	if !s.verifyTOTP(code) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid TOTP code"})
		return
	}

	c.Next()
}
