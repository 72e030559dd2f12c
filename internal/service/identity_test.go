package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/tokenkeeper/internal/mocks"
	"github.com/dtroode/tokenkeeper/internal/model"
	"github.com/dtroode/tokenkeeper/internal/testutil"
)

func TestIdentityExchange_Exchange(t *testing.T) {
	ctx := context.Background()
	identity := model.Identity{Subject: "idp|1", Email: "ada@example.com", EmailVerified: true}
	defaults := model.UserDefaults{Role: "member"}
	user := model.User{ID: uuid.New(), ExternalID: "idp|1", Role: "member", Active: true}

	tests := []struct {
		name    string
		setup   func(p *mocks.IdentityProvider, u *mocks.UserStore)
		wantErr bool
	}{
		{
			name: "success",
			setup: func(p *mocks.IdentityProvider, u *mocks.UserStore) {
				p.On("Exchange", ctx, "code", "https://cb").Return(identity, nil).Once()
				u.On("FindOrCreateByExternalID", ctx, identity, defaults).Return(user, nil).Once()
				u.On("TouchLastLogin", ctx, user.ID).Return(nil).Once()
			},
		},
		{
			name: "provider failure",
			setup: func(p *mocks.IdentityProvider, u *mocks.UserStore) {
				p.On("Exchange", ctx, "code", "https://cb").Return(model.Identity{}, assert.AnError).Once()
			},
			wantErr: true,
		},
		{
			name: "directory failure",
			setup: func(p *mocks.IdentityProvider, u *mocks.UserStore) {
				p.On("Exchange", ctx, "code", "https://cb").Return(identity, nil).Once()
				u.On("FindOrCreateByExternalID", ctx, identity, defaults).Return(model.User{}, model.ErrVersionConflict).Once()
			},
			wantErr: true,
		},
		{
			name: "inactive user",
			setup: func(p *mocks.IdentityProvider, u *mocks.UserStore) {
				inactive := user
				inactive.Active = false
				p.On("Exchange", ctx, "code", "https://cb").Return(identity, nil).Once()
				u.On("FindOrCreateByExternalID", ctx, identity, defaults).Return(inactive, nil).Once()
			},
			wantErr: true,
		},
		{
			name: "touch last login failure",
			setup: func(p *mocks.IdentityProvider, u *mocks.UserStore) {
				p.On("Exchange", ctx, "code", "https://cb").Return(identity, nil).Once()
				u.On("FindOrCreateByExternalID", ctx, identity, defaults).Return(user, nil).Once()
				u.On("TouchLastLogin", ctx, user.ID).Return(model.ErrNotFound).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mocks.NewIdentityProvider(t)
			users := mocks.NewUserStore(t)
			tt.setup(provider, users)

			e := NewIdentityExchange(provider, users, defaults, testutil.MakeNoopLogger())
			got, err := e.Exchange(ctx, "code", "https://cb")
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, model.ErrIdentityExchangeFailed)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, user, got)
		})
	}
}
