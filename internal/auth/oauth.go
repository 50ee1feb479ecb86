package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/internal/db/models"
)

// Provider is one configured OAuth2 login backend. Providers are built once
// at startup and never mutated.
type Provider struct {
	// Name is the key from the configuration, e.g. "github".
	Name string
	// Override allows logins through this provider to re-home accounts
	// recorded under a different backend tag.
	Override bool

	oauth2      oauth2.Config
	userinfoURL string

	// set only when an issuer URL is configured
	oidc     *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// Registry holds the immutable set of configured providers.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds the provider set from configuration. baseURL is the
// externally visible server URL the callback routes hang off. Providers with
// an issuer URL configured go through OIDC discovery, which requires network
// access at startup.
func NewRegistry(ctx context.Context, baseURL string, cfgs map[string]config.OAuth) (*Registry, error) {
	base := strings.TrimSuffix(baseURL, "/")
	providers := make(map[string]*Provider, len(cfgs))

	for name, cfg := range cfgs {
		p := &Provider{
			Name:        name,
			Override:    cfg.Override,
			userinfoURL: cfg.URL.Userinfo,
		}

		endpoint := oauth2.Endpoint{
			AuthURL:  cfg.URL.Authorize,
			TokenURL: cfg.URL.AccessToken,
		}

		if cfg.URL.Issuer != "" {
			discovered, err := oidc.NewProvider(ctx, cfg.URL.Issuer)
			if err != nil {
				return nil, fmt.Errorf("oidc discovery for provider %s: %w", name, err)
			}

			p.oidc = discovered
			p.verifier = discovered.Verifier(&oidc.Config{ClientID: cfg.Client.ID})
			endpoint = discovered.Endpoint()
		}

		p.oauth2 = oauth2.Config{
			ClientID:     cfg.Client.ID,
			ClientSecret: cfg.Client.Secret,
			RedirectURL:  base + "/oauth/" + name + "/auth",
			Endpoint:     endpoint,
			Scopes:       strings.Fields(cfg.Scope),
		}

		providers[name] = p
	}

	return &Registry{providers: providers}, nil
}

// Get returns the named provider.
func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}

	return p, nil
}

// Names lists the configured provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Backend returns the backend tag recorded for accounts created through
// this provider.
func (p *Provider) Backend() string {
	return models.OAuthBackend(p.Name)
}

// AuthURL returns the provider's authorization URL carrying state.
func (p *Provider) AuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// Exchange swaps an authorization code for a token.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return token, nil
}

// Userinfo fetches the authenticated caller's profile. OIDC-capable
// providers verify the ID token first; a token response without one is
// rejected.
func (p *Provider) Userinfo(ctx context.Context, token *oauth2.Token) (*Userinfo, error) {
	if p.verifier != nil {
		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok {
			return nil, ErrNoIDToken
		}

		if _, err := p.verifier.Verify(ctx, rawIDToken); err != nil {
			return nil, fmt.Errorf("failed to verify ID token: %w", err)
		}
	}

	if p.userinfoURL == "" && p.oidc != nil {
		return p.oidcUserinfo(ctx, token)
	}

	resp, err := p.oauth2.Client(ctx, token).Get(p.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %s", resp.Status)
	}

	var info Userinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	if info.Login == "" {
		return nil, ErrNoLogin
	}

	return &info, nil
}

// oidcUserinfo resolves the profile through the discovered userinfo
// endpoint, falling back to the subject for the login.
func (p *Provider) oidcUserinfo(ctx context.Context, token *oauth2.Token) (*Userinfo, error) {
	userinfo, err := p.oidc.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Email             string `json:"email"`
		Name              string `json:"name"`
	}

	if err := userinfo.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse userinfo claims: %w", err)
	}

	info := Userinfo{
		Login: claims.PreferredUsername,
		Email: claims.Email,
		Name:  claims.Name,
	}

	if info.Login == "" {
		info.Login = userinfo.Subject
	}

	if info.Login == "" {
		return nil, ErrNoLogin
	}

	return &info, nil
}

// GenerateStateToken generates a random state token for CSRF protection of
// the authorization code flow.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}
