package usecases

import (
	"context"
	"fmt"

	"mastothread/internal/domain"
	"mastothread/pkg/log"
)

// OAuthClient is the slice of the server API the authorization flow needs.
type OAuthClient interface {
	RegisterApp(ctx context.Context, redirectURI string) (domain.AppCredentials, error)
	AuthorizeURL(clientID, redirectURI string) string
	ExchangeCode(ctx context.Context, creds domain.AppCredentials, code, redirectURI string) (string, error)
	VerifyCredentials(ctx context.Context) (bool, error)
}

// SettingsStore persists user preferences and credentials.
type SettingsStore interface {
	Load() (domain.Settings, error)
	Save(settings domain.Settings) error
}

// AuthorizeUseCase runs the OAuth authorization-code flow against a server
// and keeps the resulting credentials in the settings store.
type AuthorizeUseCase struct {
	store SettingsStore
}

// NewAuthorizeUseCase creates a new AuthorizeUseCase.
func NewAuthorizeUseCase(store SettingsStore) *AuthorizeUseCase {
	return &AuthorizeUseCase{store: store}
}

// Connect registers an application on the server (reusing stored client
// credentials when they exist) and returns the URL the user must visit to
// approve it. The server name must already be normalized.
func (uc *AuthorizeUseCase) Connect(ctx context.Context, client OAuthClient, server, redirectURI string) (string, error) {
	settings, err := uc.store.Load()
	if err != nil {
		return "", err
	}

	if settings.Server != server || settings.ClientID == "" {
		creds, err := client.RegisterApp(ctx, redirectURI)
		if err != nil {
			return "", fmt.Errorf("register application: %w", err)
		}
		settings.Server = server
		settings.ClientID = creds.ClientID
		settings.ClientSecret = creds.ClientSecret
		settings.AccessToken = ""
		if err := uc.store.Save(settings); err != nil {
			return "", err
		}
		log.GlobalInfoCtx(ctx, "application registered", "server", server)
	}

	return client.AuthorizeURL(settings.ClientID, redirectURI), nil
}

// Callback trades the authorization code for an access token and stores it.
func (uc *AuthorizeUseCase) Callback(ctx context.Context, client OAuthClient, code, redirectURI string) error {
	settings, err := uc.store.Load()
	if err != nil {
		return err
	}
	if settings.ClientID == "" {
		return domain.ErrNotAuthenticated
	}

	creds := domain.AppCredentials{ClientID: settings.ClientID, ClientSecret: settings.ClientSecret}
	token, err := client.ExchangeCode(ctx, creds, code, redirectURI)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	settings.AccessToken = token
	if err := uc.store.Save(settings); err != nil {
		return err
	}
	log.GlobalInfoCtx(ctx, "connected", "server", settings.Server)
	return nil
}

// Disconnect forgets the stored credentials but keeps preferences.
func (uc *AuthorizeUseCase) Disconnect(ctx context.Context) error {
	settings, err := uc.store.Load()
	if err != nil {
		return err
	}
	settings.ClientID = ""
	settings.ClientSecret = ""
	settings.AccessToken = ""
	if err := uc.store.Save(settings); err != nil {
		return err
	}
	log.GlobalInfoCtx(ctx, "disconnected", "server", settings.Server)
	return nil
}

// Status reports whether the stored token is present and, when a client is
// given, whether the server still accepts it with the scopes we need.
func (uc *AuthorizeUseCase) Status(ctx context.Context, client OAuthClient) (domain.Settings, bool, error) {
	settings, err := uc.store.Load()
	if err != nil {
		return domain.Settings{}, false, err
	}
	if !settings.Connected() {
		return settings, false, nil
	}
	if client == nil {
		return settings, true, nil
	}
	ok, err := client.VerifyCredentials(ctx)
	if err != nil {
		log.GlobalWarnCtx(ctx, "credential check failed", "server", settings.Server, "error", err)
		return settings, false, nil
	}
	return settings, ok, nil
}
