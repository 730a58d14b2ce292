package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/AgencyDesk/internal/pkg/response"
	"github.com/ManuelReschke/AgencyDesk/internal/pkg/usercontext"
)

const (
	CSRFHeader    = "X-CSRF-Token"
	CSRFFormField = "_csrf"
)

// csrfExempt lists the paths that never carry a browser session: the
// Stripe webhook is signed and cron sends a bearer secret. The public forms
// post from our own pages and carry the token like every other form.
var csrfExempt = []string{
	"/api/payments/webhook",
	"/api/cron/",
}

func CSRFExempt(path string) bool {
	for _, p := range csrfExempt {
		if path == p || (strings.HasSuffix(p, "/") && strings.HasPrefix(path, p)) {
			return true
		}
	}
	return false
}

// extractCSRF reads the JSON header first, then the page form field.
func extractCSRF(c *fiber.Ctx) (string, error) {
	if token := c.Get(CSRFHeader); token != "" {
		return token, nil
	}
	if token := c.FormValue(CSRFFormField); token != "" {
		return token, nil
	}
	return "", csrf.ErrTokenNotFound
}

// CSRF returns the csrf middleware. The token is exposed to views under
// usercontext.KeyCSRFToken.
func CSRF(secure bool) fiber.Handler {
	return csrf.New(csrf.Config{
		Extractor:      extractCSRF,
		ContextKey:     usercontext.KeyCSRFToken,
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   secure,
		Expiration:     1 * time.Hour,
		Next: func(c *fiber.Ctx) bool {
			return CSRFExempt(c.Path())
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if isAPI(c) {
				return response.Forbidden(c, "Ongeldig of ontbrekend CSRF-token")
			}
			return c.Status(fiber.StatusForbidden).SendString("Forbidden")
		},
	})
}
