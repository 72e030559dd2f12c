package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dtroode/tokenkeeper/internal/model"
)

var unauthenticatedErrors = []error{
	model.ErrUnauthorized,
	model.ErrInvalidToken,
	model.ErrRevoked,
	model.ErrAuthenticationFailed,
	model.ErrIdentityExchangeFailed,
	model.ErrTamperedData,
}

// handleError maps service errors to gRPC statuses. Authentication failures
// share one message so callers cannot tell the reasons apart.
func handleError(err error) error {
	switch {
	case errors.Is(err, model.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "too many attempts")
	case errors.Is(err, model.ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "service unavailable")
	}

	for _, target := range unauthenticatedErrors {
		if errors.Is(err, target) {
			return status.Error(codes.Unauthenticated, "unauthorized")
		}
	}

	return status.Error(codes.Internal, "internal server error")
}
