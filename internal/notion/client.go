// Package notion is a minimal Notion REST API client covering the calls
// the bridge needs for a single database.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/rwielk/cardbridge/internal/bridge"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"

	// apiVersion pins the Notion-Version header. Property wire shapes
	// change between versions, so bump this deliberately.
	apiVersion = "2022-06-28"

	// pageSize is the query page size. Notion caps it at 100.
	pageSize = 100
)

// Client talks to the Notion REST API for one database. It implements
// bridge.DatabaseClient.
type Client struct {
	databaseID string
	baseURL    string
	http       *http.Client
}

// Opts holds parameters for creating a Client.
type Opts struct {
	Token      string
	DatabaseID string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
	// HTTPClient overrides the token-carrying transport, for tests.
	HTTPClient *http.Client
}

// New creates a Client. The integration token is carried as a bearer
// token on every request.
func New(opts Opts) (*Client, error) {
	if opts.Token == "" && opts.HTTPClient == nil {
		return nil, fmt.Errorf("notion: integration token is required")
	}
	if opts.DatabaseID == "" {
		return nil, fmt.Errorf("notion: database id is required")
	}

	c := &Client{
		databaseID: opts.DatabaseID,
		baseURL:    opts.BaseURL,
		http:       opts.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.http == nil {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		c.http = oauth2.NewClient(context.Background(), src)
		c.http.Timeout = 30 * time.Second
	}
	return c, nil
}

// ListEntries returns every live entry in the database, walking the
// query cursor until the last page. Archived entries are skipped.
func (c *Client) ListEntries(ctx context.Context) ([]bridge.Entry, error) {
	var out []bridge.Entry
	cursor := ""
	for {
		body := map[string]any{"page_size": pageSize}
		if cursor != "" {
			body["start_cursor"] = cursor
		}
		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, "/databases/"+c.databaseID+"/query", body, &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Results {
			if p.Archived {
				continue
			}
			out = append(out, p.toBridge())
		}
		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return out, nil
}

// CreateEntry creates an entry in the database with the given
// properties. Formula properties are computed by Notion and cannot be
// written; they are skipped.
func (c *Client) CreateEntry(ctx context.Context, props bridge.Properties) (*bridge.Entry, error) {
	body := map[string]any{
		"parent":     map[string]string{"database_id": c.databaseID},
		"properties": encodeProps(props),
	}
	var p page
	if err := c.do(ctx, http.MethodPost, "/pages", body, &p); err != nil {
		return nil, err
	}
	entry := p.toBridge()
	return &entry, nil
}

// UpdateEntry patches the given properties on an entry. Properties not
// named in props keep their current values.
func (c *Client) UpdateEntry(ctx context.Context, entryID string, props bridge.Properties) error {
	body := map[string]any{"properties": encodeProps(props)}
	return c.do(ctx, http.MethodPatch, "/pages/"+entryID, body, nil)
}

// ArchiveEntry archives an entry. Notion has no hard delete; archived
// entries disappear from listings and land in the workspace trash.
func (c *Client) ArchiveEntry(ctx context.Context, entryID string) error {
	body := map[string]any{"archived": true}
	return c.do(ctx, http.MethodPatch, "/pages/"+entryID, body, nil)
}

// do issues one request and decodes the JSON response into out when out
// is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("notion: encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("notion: build request: %w", err)
	}
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notion: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notion: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("notion: decode response: %w", err)
	}
	return nil
}

// encodeProps converts properties to the page-create/update wire shape.
// Absent and formula values are skipped: absent has nothing to write,
// and formulas are read-only on the Notion side.
func encodeProps(props bridge.Properties) map[string]any {
	out := make(map[string]any, len(props))
	for name, v := range props {
		switch v.Kind {
		case bridge.KindTitle:
			out[name] = map[string]any{"title": []any{textBlock(v.Str)}}
		case bridge.KindText:
			out[name] = map[string]any{"rich_text": []any{textBlock(v.Str)}}
		case bridge.KindSelect:
			out[name] = map[string]any{"select": map[string]string{"name": v.Str}}
		case bridge.KindNumber:
			out[name] = map[string]any{"number": v.Num}
		case bridge.KindCheckbox:
			out[name] = map[string]any{"checkbox": v.Bool}
		}
	}
	return out
}

func textBlock(s string) map[string]any {
	return map[string]any{"text": map[string]string{"content": s}}
}

// Wire shapes.

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type page struct {
	ID         string                   `json:"id"`
	URL        string                   `json:"url"`
	Archived   bool                     `json:"archived"`
	Properties map[string]propertyValue `json:"properties"`
}

// toBridge flattens the typed property envelopes into bridge values.
// Properties that decode to absent (empty title, null number, null
// select) are dropped so the bridge sees them as missing.
func (p page) toBridge() bridge.Entry {
	entry := bridge.Entry{
		ID:    p.ID,
		URL:   p.URL,
		Props: make(bridge.Properties, len(p.Properties)),
	}
	for name, pv := range p.Properties {
		if v := pv.toValue(); !v.Absent() {
			entry.Props[name] = v
		}
	}
	return entry
}

type propertyValue struct {
	Type     string        `json:"type"`
	Title    []richText    `json:"title"`
	RichText []richText    `json:"rich_text"`
	Select   *selectOption `json:"select"`
	Number   *float64      `json:"number"`
	Formula  *formulaValue `json:"formula"`
	Checkbox *bool         `json:"checkbox"`
}

func (pv propertyValue) toValue() bridge.Value {
	switch pv.Type {
	case "title":
		if s := joinRichText(pv.Title); s != "" {
			return bridge.TitleValue(s)
		}
	case "rich_text":
		if s := joinRichText(pv.RichText); s != "" {
			return bridge.TextValue(s)
		}
	case "select":
		if pv.Select != nil {
			return bridge.SelectValue(pv.Select.Name)
		}
	case "number":
		if pv.Number != nil {
			return bridge.NumberValue(*pv.Number)
		}
	case "formula":
		if pv.Formula != nil && pv.Formula.Number != nil {
			return bridge.FormulaValue(*pv.Formula.Number)
		}
	case "checkbox":
		if pv.Checkbox != nil {
			return bridge.CheckboxValue(*pv.Checkbox)
		}
	}
	return bridge.Value{}
}

type richText struct {
	PlainText string `json:"plain_text"`
}

func joinRichText(parts []richText) string {
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return b.String()
}

type selectOption struct {
	Name string `json:"name"`
}

type formulaValue struct {
	Type   string   `json:"type"`
	Number *float64 `json:"number"`
}
