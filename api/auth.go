package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/folio/pkg/llm"
)

// SessionCookie holds the admin session. Its value is the session's expiry
// as unix seconds, encrypted by the encryptcookie middleware.
const SessionCookie = "folio_admin"

// LoginRequest is the body of POST /v1/admin/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// cookieKey derives the AES-256 cookie key from the admin password, so
// changing the password invalidates every session.
func cookieKey(password string) string {
	sum := sha256.Sum256([]byte("folio-session:" + password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (s *Server) passwordMatches(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(s.config.AdminPassword)) == 1
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	if s.config.AdminPassword == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "admin is not configured"})
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if !s.passwordMatches(req.Password) {
		s.logger.Warn("admin login failed", "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "invalid password"})
	}

	expires := time.Now().Add(s.config.SessionTTL)
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    strconv.FormatInt(expires.Unix(), 10),
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   c.Protocol() == "https",
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	c.ClearCookie(SessionCookie)
	return c.SendStatus(fiber.StatusNoContent)
}

// requireAdmin accepts "Authorization: Bearer <password>" or an unexpired
// session cookie.
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	if s.config.AdminPassword == "" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{Error: "admin is not configured"})
	}

	if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok && s.passwordMatches(token) {
		return c.Next()
	}

	if raw := c.Cookies(SessionCookie); raw != "" {
		if exp, err := strconv.ParseInt(raw, 10, 64); err == nil && time.Now().Unix() < exp {
			return c.Next()
		}
	}

	return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "unauthorized"})
}
