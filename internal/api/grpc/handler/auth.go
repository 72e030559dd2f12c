package handler

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/tokenkeeper/internal/logger"
	"github.com/dtroode/tokenkeeper/internal/model"
)

// TokenTypeBearer is returned with every issued pair.
const TokenTypeBearer = "Bearer"

// AuthService is the token lifecycle used by the auth handler.
type AuthService interface {
	Authenticate(ctx context.Context, code, redirectURI, clientKey string) (model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
	ValidateAccessToken(ctx context.Context, token string) (model.AccessClaims, error)
	RevokeAccessToken(ctx context.Context, accessToken string) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) error
}

// Auth handles gRPC endpoints for the token lifecycle.
type Auth struct {
	authService    AuthService
	contextManager model.ContextManager
	logger         *logger.Logger
}

var _ AuthServer = (*Auth)(nil)

// NewAuth creates a new Auth handler.
func NewAuth(authService AuthService, contextManager model.ContextManager, logger *logger.Logger) *Auth {
	return &Auth{
		authService:    authService,
		contextManager: contextManager,
		logger:         logger,
	}
}

// Authenticate exchanges an authorization code for a token pair.
func (h *Auth) Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	code := stringField(req, "code")
	redirectURI := stringField(req, "redirect_uri")
	if code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}
	if redirectURI == "" {
		return nil, status.Error(codes.InvalidArgument, "redirect_uri is required")
	}

	clientKey := clientKeyFromContext(ctx)
	h.logger.Debug("Auth handler: processing authenticate request", "client", clientKey)

	pair, err := h.authService.Authenticate(ctx, code, redirectURI, clientKey)
	if err != nil {
		h.logger.Info("Auth handler: authenticate failed",
			"client", clientKey,
			"error", err.Error())
		return nil, handleError(err)
	}

	return pairResponse(pair)
}

// Refresh rotates a refresh token into a new pair.
func (h *Auth) Refresh(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	refreshToken := stringField(req, "refresh_token")
	if refreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token is required")
	}

	pair, err := h.authService.Refresh(ctx, refreshToken)
	if err != nil {
		h.logger.Info("Auth handler: token refresh failed",
			"token", logger.Redact(refreshToken),
			"error", err.Error())
		return nil, handleError(err)
	}

	return pairResponse(pair)
}

// Revoke ends the session behind a refresh token. Unknown tokens succeed.
func (h *Auth) Revoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	refreshToken := stringField(req, "refresh_token")
	if refreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh_token is required")
	}

	if err := h.authService.Revoke(ctx, refreshToken); err != nil {
		h.logger.Error("Auth handler: token revoke failed",
			"token", logger.Redact(refreshToken),
			"error", err.Error())
		return nil, handleError(err)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// Validate reports the claims of an access token presented in the body.
func (h *Auth) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	accessToken := stringField(req, "access_token")
	if accessToken == "" {
		return nil, status.Error(codes.InvalidArgument, "access_token is required")
	}

	claims, err := h.authService.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return nil, handleError(err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"user_id":    claims.Subject.String(),
		"role":       claims.Role,
		"jti":        claims.ID,
		"issued_at":  claims.IssuedAt.UTC().Format(time.RFC3339),
		"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, handleError(err)
	}

	return resp, nil
}

// Logout revokes the caller's access token and, when given, its refresh token.
func (h *Auth) Logout(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	principal, ok := h.contextManager.GetPrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	accessToken, err := auth.AuthFromMD(ctx, "bearer")
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	if err := h.authService.RevokeAccessToken(ctx, accessToken); err != nil {
		h.logger.Error("Auth handler: access token revoke failed",
			"user_id", principal.UserID,
			"error", err.Error())
		return nil, handleError(err)
	}

	if refreshToken := stringField(req, "refresh_token"); refreshToken != "" {
		if err := h.authService.Revoke(ctx, refreshToken); err != nil {
			h.logger.Error("Auth handler: refresh token revoke failed",
				"user_id", principal.UserID,
				"error", err.Error())
			return nil, handleError(err)
		}
	}

	h.logger.Info("Auth handler: logout completed", "user_id", principal.UserID)

	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// LogoutAll ends every session of the calling user.
func (h *Auth) LogoutAll(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	principal, ok := h.contextManager.GetPrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	if err := h.authService.RevokeAllForUser(ctx, principal.UserID); err != nil {
		h.logger.Error("Auth handler: revoke all sessions failed",
			"user_id", principal.UserID,
			"error", err.Error())
		return nil, handleError(err)
	}

	h.logger.Info("Auth handler: all sessions revoked", "user_id", principal.UserID)

	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

func pairResponse(pair model.TokenPair) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(map[string]any{
		"access_token":       pair.AccessToken,
		"refresh_token":      pair.RefreshToken,
		"token_type":         TokenTypeBearer,
		"access_expires_at":  pair.AccessExpiresAt.UTC().Format(time.RFC3339),
		"refresh_expires_at": pair.RefreshExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, handleError(err)
	}
	return resp, nil
}

func stringField(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// clientKeyFromContext keys rate limiting on the peer host. Client-supplied
// metadata is not trusted for this.
func clientKeyFromContext(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}
