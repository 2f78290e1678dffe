package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"aidj/internal/core"
)

// FilePermission is the permission for token files
const FilePermission = 0600

type TokenData struct {
	Token *oauth2.Token `json:"token"`
}

// Authenticate installs the saved token, or runs the interactive OAuth flow
// when there is none or it no longer works.
func (c *Client) Authenticate(ctx context.Context) error {
	token, err := loadToken(c.config.TokenPath)
	if err != nil {
		c.logger.Info("No saved token found, starting OAuth flow")
		return c.startOAuthFlow(ctx)
	}

	c.UpdateToken(ctx, token)

	client, _ := c.api()
	user, err := client.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("Saved token invalid, starting OAuth flow", zap.Error(err))
		return c.startOAuthFlow(ctx)
	}

	c.logger.Info("Authenticated successfully", zap.String("user", user.DisplayName))
	return nil
}

// Authenticated reports whether a token has been installed.
func (c *Client) Authenticated() bool {
	_, err := c.api()
	return err == nil
}

// UpdateToken swaps the credentials used by every following call. In-flight
// calls finish with the previous client.
func (c *Client) UpdateToken(ctx context.Context, token *oauth2.Token) {
	source := newTokenSource(ctx, token, c.auth.RefreshToken, func(refreshed *oauth2.Token) {
		if err := saveToken(c.config.TokenPath, refreshed); err != nil {
			c.logger.Warn("Failed to save refreshed token", zap.Error(err))
		}
	})
	httpClient := oauth2.NewClient(ctx,
		oauth2.ReuseTokenSourceWithExpiry(token, source, core.DefaultTokenRefreshEarly))

	c.mu.Lock()
	c.client = spotify.New(httpClient, spotify.WithRetry(true))
	c.mu.Unlock()

	c.logger.Debug("Spotify token installed", zap.Time("expiry", token.Expiry))
}

func (c *Client) startOAuthFlow(ctx context.Context) error {
	state := "aidj-auth-state"
	authURL := c.auth.AuthURL(state)

	fmt.Printf("Please visit the following URL to authorize the application:\n%s\n", authURL)
	fmt.Print("Enter the authorization code: ")

	var code string
	if _, err := fmt.Scanln(&code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if saveErr := saveToken(c.config.TokenPath, token); saveErr != nil {
		c.logger.Warn("Failed to save token", zap.Error(saveErr))
	}

	c.UpdateToken(ctx, token)

	client, _ := c.api()
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	c.logger.Info("OAuth flow completed successfully", zap.String("user", user.DisplayName))
	return nil
}

type refreshFunc func(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)

// tokenSource refreshes the current token and hands every new token to save.
// It is wrapped in a reuse source, so Token is only called near expiry.
type tokenSource struct {
	ctx     context.Context
	refresh refreshFunc
	save    func(*oauth2.Token)

	mu    sync.Mutex
	token *oauth2.Token
}

func newTokenSource(ctx context.Context, token *oauth2.Token, refresh refreshFunc,
	save func(*oauth2.Token)) *tokenSource {
	return &tokenSource{
		ctx:     context.WithoutCancel(ctx),
		refresh: refresh,
		save:    save,
		token:   token,
	}
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mark the token expired so the refresh is not short-circuited while the
	// old token is still inside its early expiry window.
	stale := *s.token
	stale.Expiry = time.Unix(1, 0)

	refreshed, err := s.refresh(s.ctx, &stale)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	// Spotify omits the refresh token when it is unchanged.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = s.token.RefreshToken
	}

	s.token = refreshed
	s.save(refreshed)
	return refreshed, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tokenData TokenData
	if err := json.Unmarshal(data, &tokenData); err != nil {
		return nil, err
	}
	if tokenData.Token == nil {
		return nil, fmt.Errorf("token file %s has no token", path)
	}

	return tokenData.Token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	tokenData := TokenData{Token: token}

	data, err := json.MarshalIndent(tokenData, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, FilePermission)
}
