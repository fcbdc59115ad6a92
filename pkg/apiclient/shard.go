package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/marmos91/labelhub/internal/logger"
)

// Shard is the ordered file list assigned to the token.
type Shard struct {
	Token string   `json:"token"`
	Total int      `json:"total"`
	Files []string `json:"files"`
}

// Page is one slice of a shard listing.
type Page struct {
	Token   string   `json:"token"`
	Offset  int      `json:"offset"`
	Limit   int      `json:"limit"`
	Total   int      `json:"total"`
	Files   []string `json:"files"`
	HasMore bool     `json:"has_more"`
}

// GetShard returns the full file list of the client's shard.
func (c *Client) GetShard(ctx context.Context) ([]string, error) {
	shard, err := getResource[Shard](ctx, c, "/api/v1/shard")
	if err != nil {
		return nil, err
	}
	return shard.Files, nil
}

// ListShardPage returns files[offset:offset+limit] of the shard. A zero
// limit lets the server pick its default.
func (c *Client) ListShardPage(ctx context.Context, offset, limit int) (*Page, error) {
	q := url.Values{}
	q.Set("offset", itoa(offset))
	if limit > 0 {
		q.Set("limit", itoa(limit))
	}
	return getResource[Page](ctx, c, "/api/v1/shard/images?"+q.Encode())
}

// FetchImage downloads one image of the shard. It implements
// preload.Fetcher.
func (c *Client) FetchImage(ctx context.Context, name string) ([]byte, error) {
	data, err := c.send(ctx, request{
		method: http.MethodGet,
		path:   resourcePath("/api/v1/images/%s", url.PathEscape(name)),
		accept: "image/*",
	})
	if err != nil {
		return nil, err
	}
	logger.DebugCtx(ctx, "Image downloaded", logger.KeyImage, name, "bytes", len(data))
	return data, nil
}
