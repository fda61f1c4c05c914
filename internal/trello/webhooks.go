package trello

import (
	"context"
	"net/http"
	"net/url"
)

// Webhook is a webhook registration on the Trello side. Trello delivers
// board activity to CallbackURL as long as Active is true.
type Webhook struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	IDModel     string `json:"idModel"`
	CallbackURL string `json:"callbackURL"`
	Active      bool   `json:"active"`
}

// CreateWebhook registers a webhook that delivers this board's activity
// to callbackURL. Trello probes the URL with a HEAD request during
// registration, so the receiver must already be reachable.
func (c *Client) CreateWebhook(ctx context.Context, callbackURL, description string) (*Webhook, error) {
	q := url.Values{
		"idModel":     {c.boardID},
		"callbackURL": {callbackURL},
		"description": {description},
	}
	var hook Webhook
	if err := c.do(ctx, http.MethodPost, "/webhooks", q, nil, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

// ListWebhooks returns every webhook registered for the client's token,
// not just the ones pointed at this board.
func (c *Client) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var hooks []Webhook
	if err := c.do(ctx, http.MethodGet, "/tokens/"+c.token+"/webhooks", nil, nil, &hooks); err != nil {
		return nil, err
	}
	return hooks, nil
}

// DeleteWebhook removes a webhook registration.
func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/webhooks/"+id, nil, nil, nil)
}
