package apiclient

import (
	"context"
	"fmt"
)

// getResource performs a GET request to the given path and decodes the
// response body into a value of type T.
//
// Example:
//
//	page, err := getResource[Page](ctx, c, "/api/v1/shard/images?offset=0")
func getResource[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var result T
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// createResource performs a POST request and decodes the response into a
// value of type T.
func createResource[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.post(ctx, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// updateResource performs a PUT request and decodes the response into a
// value of type T.
func updateResource[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var result T
	if err := c.put(ctx, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// resourcePath builds a resource path by formatting a path template with
// the given arguments using fmt.Sprintf.
func resourcePath(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
