package middleware

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/tokenkeeper/internal/logger"
	"github.com/dtroode/tokenkeeper/internal/model"
)

// TokenValidator validates bearer access tokens.
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (model.AccessClaims, error)
}

// Authenticate validates bearer tokens and injects the principal into context.
type Authenticate struct {
	validator      TokenValidator
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(validator TokenValidator, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{validator: validator, contextManager: contextManager, logger: logger}
}

// AuthFunc parses the Authorization header, validates the token and returns
// a context with the principal. Every failure is the same Unauthenticated
// status.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	tokenString := bearerToken(ctx)
	if tokenString == "" {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	claims, err := m.validator.ValidateAccessToken(ctx, tokenString)
	if err != nil {
		m.logger.Debug("Authenticate middleware: token rejected",
			"token", logger.Redact(tokenString),
			"error", err.Error())
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	return m.contextManager.SetPrincipalToContext(ctx, model.Principal{
		UserID:  claims.Subject,
		Role:    claims.Role,
		TokenID: claims.ID,
	}), nil
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	headers := md.Get("authorization")
	if len(headers) == 0 {
		return ""
	}

	scheme, token, found := strings.Cut(headers[0], " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
