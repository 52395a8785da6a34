package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"mastothread/internal/domain"
)

// appName and appWebsite identify this client when registering with a
// server.
const (
	appName    = "Mastothread"
	appWebsite = "https://github.com/mastothread/mastothread"
	oauthScope = "read write"
)

// requiredScopes are the token scopes a publication cycle needs.
var requiredScopes = []string{"read:search", "write:media", "write:statuses"}

// RegisterApp creates an OAuth application on the server.
func (c *Client) RegisterApp(ctx context.Context, redirectURI string) (domain.AppCredentials, error) {
	form := url.Values{
		"client_name":   {appName},
		"redirect_uris": {redirectURI},
		"scopes":        {oauthScope},
		"website":       {appWebsite},
	}
	var creds domain.AppCredentials
	if err := c.postForm(ctx, "/api/v1/apps", form, &creds); err != nil {
		return domain.AppCredentials{}, err
	}
	return creds, nil
}

// AuthorizeURL is the browser URL that asks the user to authorize the
// application.
func (c *Client) AuthorizeURL(clientID, redirectURI string) string {
	q := url.Values{
		"client_id":     {clientID},
		"scope":         {oauthScope},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
	}
	return c.baseURL + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, creds domain.AppCredentials, code, redirectURI string) (string, error) {
	form := url.Values{
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
		"scope":         {oauthScope},
	}
	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.postForm(ctx, "/oauth/token", form, &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}
	return token.AccessToken, nil
}

// VerifyCredentials checks that the token is valid and carries every
// scope publication needs.
func (c *Client) VerifyCredentials(ctx context.Context) (bool, error) {
	var app struct {
		Scopes []string `json:"scopes"`
	}
	if _, err := c.getJSON(ctx, "/api/v1/apps/verify_credentials", &app); err != nil {
		return false, err
	}
	for _, required := range requiredScopes {
		if !containsScope(app.Scopes, required) {
			return false, nil
		}
	}
	return true, nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
