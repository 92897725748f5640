package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kolamcraft/catalog/pkg/httpclient"
)

// SupabaseConfig holds connection details for the Supabase auth API.
type SupabaseConfig struct {
	// BaseURL is the project URL, e.g. https://xyz.supabase.co.
	BaseURL string

	// AnonKey is the public API key sent with every auth request.
	AnonKey string
}

// SupabaseVerifier validates tokens against the Supabase GoTrue user
// endpoint. Each call re-verifies the token with the provider.
type SupabaseVerifier struct {
	cfg    SupabaseConfig
	client *httpclient.BreakerClient
}

// NewSupabaseVerifier creates a verifier backed by the Supabase auth API.
func NewSupabaseVerifier(cfg SupabaseConfig, client *httpclient.BreakerClient) *SupabaseVerifier {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &SupabaseVerifier{cfg: cfg, client: client}
}

type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verify asks GoTrue who the token belongs to.
func (v *SupabaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	url := v.cfg.BaseURL + "/auth/v1/user"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", v.cfg.AnonKey)

	resp, err := v.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ResponseError(resp)
	}

	var user supabaseUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}

	if user.ID == "" {
		return nil, fmt.Errorf("user response missing id")
	}

	return &Identity{ID: user.ID, Email: user.Email}, nil
}
