package apiclient

import (
	"context"
	"net/http"

	"github.com/marmos91/labelhub/pkg/labels"
	"github.com/marmos91/labelhub/pkg/progress"
)

// SubmitResult describes an accepted submission.
type SubmitResult struct {
	Token     string `json:"token"`
	Key       string `json:"key"`
	Accepted  int    `json:"accepted"`
	Total     int    `json:"total"`
	Duplicate bool   `json:"duplicate"`
}

// UndoResult describes the classification removed on the server.
type UndoResult struct {
	Token     string          `json:"token"`
	Undone    labels.Event    `json:"undone"`
	Remaining int             `json:"remaining"`
	Progress  progress.Record `json:"progress"`
}

// Submit sends log under the idempotency key. Retrying with the same key
// after a NetworkError is safe: the server applies a key at most once.
func (c *Client) Submit(ctx context.Context, key string, log *labels.Log) (*SubmitResult, error) {
	body := struct {
		Log *labels.Log `json:"log"`
	}{Log: log}

	data, err := c.send(ctx, request{
		method: http.MethodPost,
		path:   "/api/v1/classifications",
		body:   body,
		header: map[string]string{"Idempotency-Key": key},
	})
	if err != nil {
		return nil, err
	}
	var res SubmitResult
	if err := decodeBody(data, "/api/v1/classifications", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UndoLast removes the most recent server-side classification.
func (c *Client) UndoLast(ctx context.Context) (*UndoResult, error) {
	return createResource[UndoResult](ctx, c, "/api/v1/classifications/undo", nil)
}
