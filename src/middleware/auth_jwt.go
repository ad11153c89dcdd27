package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"Backend-Attendance-Sync/src/utils"
)

// Locals keys set by AuthJWT.
const (
	LocalUserID   = "userId"
	LocalUsername = "username"
	LocalRole     = "role"
)

// AuthJWT verifies the Bearer token and stores its claims in c.Locals.
func AuthJWT(j *utils.JWT) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return utils.HandleError(c, fiber.StatusUnauthorized, "Missing or invalid Authorization header")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := j.ParseJWT(tokenStr)
		if err != nil {
			return utils.HandleError(c, fiber.StatusUnauthorized, "Invalid or expired token")
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalUsername, claims.Username)
		c.Locals(LocalRole, claims.Role)

		return c.Next()
	}
}

// RequireRoles must run after AuthJWT.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalRole).(string)
		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}
		return utils.HandleError(c, fiber.StatusForbidden, "Insufficient role")
	}
}

// Username returns the username stored by AuthJWT.
func Username(c *fiber.Ctx) string {
	u, _ := c.Locals(LocalUsername).(string)
	return u
}
