package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/activities-api/internal/utils"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	RequireUser bool
}

// WithAuth wraps a handler so it only runs for requests carrying an authenticated identity.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !opts.RequireUser {
			return handler(c)
		}

		userID, _ := c.Locals(LocalUserID).(string)
		userName, _ := c.Locals(LocalUserName).(string)
		if userID == "" || userName == "" {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		return handler(c)
	}
}
