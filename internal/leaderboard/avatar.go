package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"supernode-rewards/internal/config"
)

// AvatarResolver resolves a profile picture from the external membership
// service, keyed by the user's wallet address.
type AvatarResolver interface {
	ResolveProfilePicture(ctx context.Context, wallet string) (*string, error)
}

// MembershipClient calls the upstream membership/identity HTTP API.
type MembershipClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    zerolog.Logger
}

// NewMembershipClient constructs the avatar lookup client.
func NewMembershipClient(cfg config.MembershipConfig, logger zerolog.Logger) *MembershipClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &MembershipClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "membership").Logger(),
	}
}

var _ AvatarResolver = (*MembershipClient)(nil)

// ResolveProfilePicture fetches the avatar for one wallet address. A wallet
// that is not a valid hex address resolves to no picture without a network
// round trip; upstream failures propagate to the caller.
func (c *MembershipClient) ResolveProfilePicture(ctx context.Context, wallet string) (*string, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("membership.base_url is required")
	}
	if !common.IsHexAddress(wallet) {
		return nil, nil
	}
	checksummed := common.HexToAddress(wallet).Hex()

	url := fmt.Sprintf("%s/api/members/%s/avatar", c.baseURL, checksummed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create avatar request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("avatar lookup returned status %d", resp.StatusCode)
	}

	var payload struct {
		ProfilePicture *string `json:"profilePicture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode avatar response: %w", err)
	}

	return payload.ProfilePicture, nil
}
