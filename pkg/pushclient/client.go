package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/locamoto/rental-billing/internal/domain"
)

// Client talks to the managed push platform's token endpoint. It implements
// service.PushTokenProvider: the native strategy promotes a device-issued
// token as-is, the managed strategies mint a platform token for it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new push platform client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NativeToken wraps the device-issued token carried in the capabilities.
func (c *Client) NativeToken(_ context.Context, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
	if caps.DeviceToken == "" {
		return nil, fmt.Errorf("no device token available")
	}
	return &domain.PushIdentity{
		Token:      caps.DeviceToken,
		TokenType:  domain.TokenTypeNative,
		Platform:   caps.Platform,
		AcquiredAt: time.Now(),
	}, nil
}

type managedTokenRequest struct {
	DeviceToken  string `json:"device_token"`
	Platform     string `json:"platform"`
	ProjectID    string `json:"project_id,omitempty"`
	ExperienceID string `json:"experience_id,omitempty"`
}

type managedTokenResponse struct {
	Token string `json:"token"`
}

// ManagedToken mints a managed push token, optionally scoped to a project.
func (c *Client) ManagedToken(ctx context.Context, projectID string, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
	return c.mint(ctx, managedTokenRequest{
		DeviceToken: caps.DeviceToken,
		Platform:    caps.Platform,
		ProjectID:   projectID,
	}, caps.Platform)
}

// LegacyExperienceToken mints a managed token via the legacy experience
// identifier.
func (c *Client) LegacyExperienceToken(ctx context.Context, experienceID string, caps domain.PlatformCapabilities) (*domain.PushIdentity, error) {
	return c.mint(ctx, managedTokenRequest{
		DeviceToken:  caps.DeviceToken,
		Platform:     caps.Platform,
		ExperienceID: experienceID,
	}, caps.Platform)
}

func (c *Client) mint(ctx context.Context, payload managedTokenRequest, platform string) (*domain.PushIdentity, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("push platform base URL is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/push-tokens", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach push platform: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("push platform returned status %d", resp.StatusCode)
	}

	var parsed managedTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if parsed.Token == "" {
		return nil, fmt.Errorf("push platform returned an empty token")
	}

	return &domain.PushIdentity{
		Token:      parsed.Token,
		TokenType:  domain.TokenTypeManaged,
		Platform:   platform,
		AcquiredAt: time.Now(),
	}, nil
}
