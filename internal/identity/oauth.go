// Package identity exchanges authorization codes with an external OAuth2/OIDC
// provider for a verified user identity.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dtroode/tokenkeeper/internal/model"
)

var _ model.IdentityProvider = (*OAuthProvider)(nil)

// DefaultTimeout bounds a full exchange including the userinfo call.
const DefaultTimeout = 3 * time.Second

const maxUserInfoBytes = 1 << 20

// OAuthConfig describes the provider endpoints and client credentials.
type OAuthConfig struct {
	ClientID             string
	ClientSecret         string
	AuthURL              string
	TokenURL             string
	UserInfoURL          string
	Scopes               []string
	Timeout              time.Duration
	RequireVerifiedEmail bool
	// HTTPClient is used for both calls. http.DefaultClient if nil.
	HTTPClient *http.Client
}

// OAuthProvider implements the authorization code exchange. The provider's
// own tokens never leave Exchange.
type OAuthProvider struct {
	conf                 oauth2.Config
	userInfoURL          string
	timeout              time.Duration
	requireVerifiedEmail bool
	httpClient           *http.Client
}

func NewOAuthProvider(cfg OAuthConfig) (*OAuthProvider, error) {
	if cfg.ClientID == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("identity provider requires client id, token url and userinfo url")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OAuthProvider{
		conf: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: cfg.Scopes,
		},
		userInfoURL:          cfg.UserInfoURL,
		timeout:              timeout,
		requireVerifiedEmail: cfg.RequireVerifiedEmail,
		httpClient:           httpClient,
	}, nil
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange trades a one-time authorization code for the provider identity.
// Every failure wraps model.ErrIdentityExchangeFailed. It is never retried
// because codes are single use.
func (p *OAuthProvider) Exchange(ctx context.Context, code, redirectURI string) (model.Identity, error) {
	if code == "" {
		return model.Identity{}, fmt.Errorf("%w: empty authorization code", model.ErrIdentityExchangeFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	conf := p.conf
	conf.RedirectURL = redirectURI

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: token exchange: %w", model.ErrIdentityExchangeFailed, err)
	}

	info, err := p.fetchUserInfo(ctx, token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: userinfo: %w", model.ErrIdentityExchangeFailed, err)
	}

	if info.Sub == "" {
		return model.Identity{}, fmt.Errorf("%w: missing subject", model.ErrIdentityExchangeFailed)
	}
	if p.requireVerifiedEmail && (info.Email == "" || !info.EmailVerified) {
		return model.Identity{}, fmt.Errorf("%w: email not verified", model.ErrIdentityExchangeFailed)
	}

	return model.Identity{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
		PictureURL:    info.Picture,
	}, nil
}

func (p *OAuthProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (userInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return userInfo{}, err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return userInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return userInfo{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes)).Decode(&info); err != nil {
		return userInfo{}, errors.New("malformed userinfo document")
	}

	return info, nil
}
