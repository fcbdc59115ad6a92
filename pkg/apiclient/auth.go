package apiclient

import (
	"context"

	"github.com/marmos91/labelhub/internal/cli/health"
)

// AuthResponse confirms an accepted token.
type AuthResponse struct {
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}

// Authenticate checks the client's token against the server allow-list.
func (c *Client) Authenticate(ctx context.Context) error {
	req := struct {
		Token string `json:"token"`
	}{Token: c.token}

	_, err := createResource[AuthResponse](ctx, c, "/api/v1/auth", req)
	return err
}

// Health calls the readiness probe. An unhealthy server yields an
// *APIError with status 503.
func (c *Client) Health(ctx context.Context) (*health.Response, error) {
	return getResource[health.Response](ctx, c, "/health/ready")
}
