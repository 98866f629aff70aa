package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

const (
	userIDKey = "auth_user_id"
	claimsKey = "auth_claims"
)

// AuthMiddleware validates bearer tokens and stores the caller identity.
// The user record itself is loaded by the services.
type AuthMiddleware struct {
	tokens      *TokenManager
	revocations RevocationStore
	logger      *zap.Logger
}

// NewAuthMiddleware constructs middleware. revocations may be nil.
func NewAuthMiddleware(tokens *TokenManager, revocations RevocationStore, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, revocations: revocations, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("Not authorized, no token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("Not authorized")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("Not authorized")
	}

	if m.revocations != nil && claims.ID != "" {
		revoked, err := m.revocations.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			m.logger.Error("revocation lookup failed", zap.Error(err))
			return apperrors.NewInternalError(err)
		}
		if revoked {
			return apperrors.NewUnauthorized("Not authorized, token revoked")
		}
	}

	c.Locals(userIDKey, claims.UserID())
	c.Locals(claimsKey, claims)
	return c.Next()
}

// UserIDFromContext returns the authenticated user id.
func UserIDFromContext(c *fiber.Ctx) (string, bool) {
	id, ok := c.Locals(userIDKey).(string)
	return id, ok && id != ""
}

// ClaimsFromContext returns the parsed token claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok
}
