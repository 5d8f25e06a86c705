package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/darkmine-backend/internal/config"
	"github.com/darkmine-backend/internal/domain"
)

// Client calls the external token-issuance service over HTTP. The
// authority token is a delegated mint capability; the backend never
// holds the mint key itself.
type Client struct {
	endpoint  string
	authority string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient creates a minter client from configuration.
func NewClient(cfg *config.MintConfig, logger *slog.Logger) *Client {
	return &Client{
		endpoint:  cfg.Endpoint,
		authority: cfg.AuthorityToken,
		http:      &http.Client{Timeout: cfg.RequestTimeout},
		logger:    logger,
	}
}

// Mint posts the issuance request. Any transport error or non-2xx
// response surfaces as domain.ErrIssuanceFailed so the claim layer can
// leave the player's claimed counter untouched.
func (c *Client) Mint(ctx context.Context, req domain.IssuanceRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling issuance request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mint request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.authority)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("mint request failed", "recipient", req.Recipient, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrIssuanceFailed, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("mint request rejected",
			"recipient", req.Recipient,
			"unit_amount", req.UnitAmount,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("%w: issuance service returned %d", domain.ErrIssuanceFailed, resp.StatusCode)
	}

	c.logger.Info("tokens issued", "recipient", req.Recipient, "unit_amount", req.UnitAmount)
	return nil
}
