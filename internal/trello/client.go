// Package trello is a minimal Trello REST API client covering the calls
// the bridge needs for a single board.
package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rwielk/cardbridge/internal/bridge"
)

const defaultBaseURL = "https://api.trello.com/1"

// actionFilter selects the activity kinds the change trigger cares about.
const actionFilter = "createCard,updateCard,updateCustomFieldItem,deleteCard"

// Client talks to the Trello REST API for one board. It implements
// bridge.BoardClient. Every request carries the key/token pair as query
// parameters, which is how Trello authenticates API calls.
type Client struct {
	key     string
	token   string
	boardID string
	baseURL string
	http    *http.Client
}

// Opts holds parameters for creating a Client.
type Opts struct {
	Key     string
	Token   string
	BoardID string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
	// HTTPClient overrides the default transport, for tests.
	HTTPClient *http.Client
}

// New creates a Client.
func New(opts Opts) (*Client, error) {
	if opts.Key == "" {
		return nil, fmt.Errorf("trello: api key is required")
	}
	if opts.Token == "" {
		return nil, fmt.Errorf("trello: api token is required")
	}
	if opts.BoardID == "" {
		return nil, fmt.Errorf("trello: board id is required")
	}

	c := &Client{
		key:     opts.Key,
		token:   opts.Token,
		boardID: opts.BoardID,
		baseURL: opts.BaseURL,
		http:    opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	return c, nil
}

// ListCards returns every card on the board with its custom field items.
func (c *Client) ListCards(ctx context.Context) ([]bridge.Card, error) {
	var cards []card
	q := url.Values{"customFieldItems": {"true"}}
	if err := c.do(ctx, http.MethodGet, "/boards/"+c.boardID+"/cards", q, nil, &cards); err != nil {
		return nil, err
	}
	out := make([]bridge.Card, len(cards))
	for i, cd := range cards {
		out[i] = cd.toBridge()
	}
	return out, nil
}

// ListLists returns the board's lists in board order.
func (c *Client) ListLists(ctx context.Context) ([]bridge.List, error) {
	var lists []list
	if err := c.do(ctx, http.MethodGet, "/boards/"+c.boardID+"/lists", nil, nil, &lists); err != nil {
		return nil, err
	}
	out := make([]bridge.List, len(lists))
	for i, l := range lists {
		out[i] = bridge.List{ID: l.ID, Name: l.Name}
	}
	return out, nil
}

// ListCustomFields returns the board's custom field definitions.
func (c *Client) ListCustomFields(ctx context.Context) ([]bridge.CustomField, error) {
	var fields []customField
	if err := c.do(ctx, http.MethodGet, "/boards/"+c.boardID+"/customFields", nil, nil, &fields); err != nil {
		return nil, err
	}
	out := make([]bridge.CustomField, len(fields))
	for i, f := range fields {
		out[i] = bridge.CustomField{ID: f.ID, Name: f.Name, Type: bridge.FieldType(f.Type)}
	}
	return out, nil
}

// CreateCard creates a card in the given list.
func (c *Client) CreateCard(ctx context.Context, name, listID string) (*bridge.Card, error) {
	q := url.Values{"idList": {listID}, "name": {name}}
	var cd card
	if err := c.do(ctx, http.MethodPost, "/cards", q, nil, &cd); err != nil {
		return nil, err
	}
	out := cd.toBridge()
	return &out, nil
}

// UpdateCard renames a card.
func (c *Client) UpdateCard(ctx context.Context, cardID, name string) error {
	q := url.Values{"name": {name}}
	return c.do(ctx, http.MethodPut, "/cards/"+cardID, q, nil, nil)
}

// MoveCard moves a card to another list.
func (c *Client) MoveCard(ctx context.Context, cardID, listID string) error {
	q := url.Values{"idList": {listID}}
	return c.do(ctx, http.MethodPut, "/cards/"+cardID, q, nil, nil)
}

// SetCustomField writes one custom field value on a card. An absent value
// clears the field.
func (c *Client) SetCustomField(ctx context.Context, cardID, fieldID string, value bridge.Value) error {
	path := "/cards/" + cardID + "/customField/" + fieldID + "/item"
	return c.do(ctx, http.MethodPut, path, nil, fieldValueBody(value), nil)
}

// DeleteCard permanently deletes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	return c.do(ctx, http.MethodDelete, "/cards/"+cardID, nil, nil, nil)
}

// ListActions returns board activity since the given time, oldest last,
// filtered to the card and custom field action kinds.
func (c *Client) ListActions(ctx context.Context, since time.Time) ([]bridge.Action, error) {
	q := url.Values{
		"filter": {actionFilter},
		"limit":  {"1000"},
	}
	if !since.IsZero() {
		q.Set("since", since.UTC().Format(time.RFC3339))
	}
	var actions []action
	if err := c.do(ctx, http.MethodGet, "/boards/"+c.boardID+"/actions", q, nil, &actions); err != nil {
		return nil, err
	}
	out := make([]bridge.Action, len(actions))
	for i, a := range actions {
		out[i] = bridge.Action{ID: a.ID, Type: a.Type, Date: a.Date}
	}
	return out, nil
}

// do issues one authenticated request and decodes the JSON response into
// out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("key", c.key)
	query.Set("token", c.token)

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("trello: encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+query.Encode(), reqBody)
	if err != nil {
		return fmt.Errorf("trello: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trello: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trello: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("trello: decode response: %w", err)
	}
	return nil
}

// fieldValueBody encodes a value the way the field-update API expects:
// a single string payload keyed by type. Absent clears the field.
func fieldValueBody(v bridge.Value) any {
	switch v.Kind {
	case bridge.KindNumber, bridge.KindFormula:
		return map[string]any{"value": map[string]string{"number": strconv.FormatFloat(v.Num, 'f', -1, 64)}}
	case bridge.KindCheckbox:
		return map[string]any{"value": map[string]string{"checked": strconv.FormatBool(v.Bool)}}
	case bridge.KindAbsent:
		return map[string]any{"value": ""}
	default:
		return map[string]any{"value": map[string]string{"text": v.Str}}
	}
}

// Wire shapes.

type card struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	IDList           string            `json:"idList"`
	DateLastActivity time.Time         `json:"dateLastActivity"`
	CustomFieldItems []customFieldItem `json:"customFieldItems"`
}

func (c card) toBridge() bridge.Card {
	out := bridge.Card{
		ID:           c.ID,
		Name:         c.Name,
		ListID:       c.IDList,
		LastActivity: c.DateLastActivity,
	}
	for _, item := range c.CustomFieldItems {
		fi := bridge.FieldItem{FieldID: item.IDCustomField}
		if item.Value != nil {
			fi.Number = item.Value.Number
			fi.Text = item.Value.Text
			fi.Checked = item.Value.Checked
		}
		out.FieldItems = append(out.FieldItems, fi)
	}
	return out
}

type customFieldItem struct {
	IDCustomField string          `json:"idCustomField"`
	Value         *fieldItemValue `json:"value"`
}

type fieldItemValue struct {
	Number  string `json:"number"`
	Text    string `json:"text"`
	Checked string `json:"checked"`
}

type list struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type customField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type action struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Date time.Time `json:"date"`
}
