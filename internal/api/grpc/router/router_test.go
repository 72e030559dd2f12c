package router

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	grpcctx "github.com/dtroode/tokenkeeper/internal/api/grpc/context"
	"github.com/dtroode/tokenkeeper/internal/api/grpc/handler"
	"github.com/dtroode/tokenkeeper/internal/mocks"
	"github.com/dtroode/tokenkeeper/internal/model"
	"github.com/dtroode/tokenkeeper/internal/testutil"
)

func TestRouter_Register(t *testing.T) {
	t.Parallel()

	r := New(mocks.NewAuthService(t), mocks.NewContextManager(t), testutil.MakeNoopLogger())
	s := r.Register()
	require.NotNil(t, s)

	info := s.GetServiceInfo()
	assert.Contains(t, info, handler.AuthServiceName)
	assert.Contains(t, info, healthpb.Health_ServiceDesc.ServiceName)
}

func startRouter(t *testing.T, svc *mocks.AuthService) (*Router, *grpc.ClientConn) {
	t.Helper()

	r := New(svc, grpcctx.NewManager(), testutil.MakeNoopLogger())
	s := r.Register()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return r, conn
}

func TestRouter_PublicMethodsSkipAuthentication(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAuthService(t)
	_, conn := startRouter(t, svc)

	svc.On("Refresh", mock.Anything, "r1").Return(model.TokenPair{
		AccessToken:      "a2",
		RefreshToken:     "r2",
		AccessExpiresAt:  time.Now().Add(time.Hour),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil).Once()

	req, err := structpb.NewStruct(map[string]any{"refresh_token": "r1"})
	require.NoError(t, err)

	resp := new(structpb.Struct)
	err = conn.Invoke(context.Background(), handler.MethodRefresh, req, resp)
	require.NoError(t, err)
	assert.Equal(t, "r2", resp.GetFields()["refresh_token"].GetStringValue())
}

func TestRouter_ProtectedMethodsRequireBearer(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAuthService(t)
	_, conn := startRouter(t, svc)

	err := conn.Invoke(context.Background(), handler.MethodLogoutAll, &structpb.Struct{}, new(structpb.Struct))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	svc.On("ValidateAccessToken", mock.Anything, "forged").
		Return(model.AccessClaims{}, model.ErrInvalidToken).Once()
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer forged")
	err = conn.Invoke(ctx, handler.MethodLogoutAll, &structpb.Struct{}, new(structpb.Struct))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRouter_ProtectedMethodReceivesPrincipal(t *testing.T) {
	t.Parallel()

	svc := mocks.NewAuthService(t)
	_, conn := startRouter(t, svc)

	userID := uuid.New()
	svc.On("ValidateAccessToken", mock.Anything, "a1").Return(model.AccessClaims{
		ID:        "jti",
		Subject:   userID,
		Role:      "member",
		TokenType: model.TokenTypeAccess,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil).Once()
	svc.On("RevokeAllForUser", mock.Anything, userID).Return(nil).Once()

	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer a1")
	err := conn.Invoke(ctx, handler.MethodLogoutAll, &structpb.Struct{}, new(structpb.Struct))
	require.NoError(t, err)
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	r, conn := startRouter(t, mocks.NewAuthService(t))
	client := healthpb.NewHealthClient(conn)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: handler.AuthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	r.SetServing(false)
	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	r.Shutdown()
	r.SetServing(true)
	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
