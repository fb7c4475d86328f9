package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/env"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/usercontext"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/utils"
)

// IdentityConfig controls which identity headers are believed.
type IdentityConfig struct {
	// TrustHeaders enables reading X-User-* headers at all.
	TrustHeaders bool
	// GatewaySecret, when set, must be presented by the gateway before the
	// headers are trusted.
	GatewaySecret string
}

// IdentityConfigFromEnv reads TRUSTED_IDENTITY_HEADERS and IDENTITY_GATEWAY_SECRET.
func IdentityConfigFromEnv() IdentityConfig {
	return IdentityConfig{
		TrustHeaders:  env.GetEnvBool("TRUSTED_IDENTITY_HEADERS", false),
		GatewaySecret: env.GetEnv("IDENTITY_GATEWAY_SECRET", ""),
	}
}

// IdentityMiddleware resolves the caller for every request. Requests that do
// not carry a trusted identity continue as anonymous.
func IdentityMiddleware(cfg IdentityConfig) fiber.Handler {
	if !cfg.TrustHeaders {
		log.Warn("[Identity] Identity headers are not trusted, all requests are anonymous")
	}
	return func(c *fiber.Ctx) error {
		usercontext.SetIdentity(c, models.Identity{})
		if !cfg.TrustHeaders {
			return c.Next()
		}
		if cfg.GatewaySecret != "" && !validGatewaySecret(extractGatewaySecret(c), cfg.GatewaySecret) {
			return c.Next()
		}

		email := models.NormalizeEmail(c.Get(usercontext.HeaderEmail))
		if email == "" {
			return c.Next()
		}
		photo := strings.TrimSpace(c.Get(usercontext.HeaderPhotoURL))
		if photo == "" {
			photo = utils.GravatarURL(email, 0)
		}
		usercontext.SetIdentity(c, models.Identity{
			Email:       email,
			DisplayName: strings.TrimSpace(c.Get(usercontext.HeaderDisplayName)),
			PhotoURL:    photo,
		})
		return c.Next()
	}
}

func extractGatewaySecret(c *fiber.Ctx) string {
	secret := strings.TrimSpace(c.Get(usercontext.HeaderGatewaySecret))
	if secret != "" {
		return secret
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func validGatewaySecret(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
