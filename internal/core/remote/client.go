// Package remote fetches documents from the note service over its HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// idPattern matches the service's document ids: a 14-digit timestamp, a
// dash, then at least six lowercase alphanumerics.
var idPattern = regexp.MustCompile(`\b\d{14}-[a-z0-9]{6,}\b`)

// NormalizeIDs extracts document ids from free-form text, deduplicated and
// in order of first appearance.
func NormalizeIDs(text string) []string {
	if text == "" {
		return nil
	}
	var ids []string
	seen := map[string]bool{}
	for _, id := range idPattern.FindAllString(strings.ToLower(text), -1) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Client talks to the remote note service. The contract is deliberately
// forgiving: any non-success status or malformed body yields ok=false, never
// an error. Fetches are issued one at a time per batch; the service assumes a
// single connection.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Configured reports whether both the base URL and token are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.token != ""
}

type exportRequest struct {
	ID string `json:"id"`
}

type exportResponse struct {
	Code int `json:"code"`
	Data struct {
		HPath   string `json:"hPath"`
		Content string `json:"content"`
	} `json:"data"`
}

// FetchDocument pulls one document's markdown export. On any failure it
// returns ("", "", false).
func (c *Client) FetchDocument(ctx context.Context, id string) (title, content string, ok bool) {
	if !c.Configured() {
		return "", "", false
	}

	body, err := json.Marshal(exportRequest{ID: id})
	if err != nil {
		return "", "", false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/export/exportMdContent", bytes.NewReader(body))
	if err != nil {
		return "", "", false
	}
	req.Header.Set("Authorization", fmt.Sprintf("Token %s", c.token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("remote fetch failed", zap.String("id", id), zap.Error(err))
		return "", "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("remote fetch non-200", zap.String("id", id), zap.Int("status", resp.StatusCode))
		return "", "", false
	}

	var out exportResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Debug("remote fetch malformed body", zap.String("id", id), zap.Error(err))
		return "", "", false
	}
	if out.Code != 0 {
		return "", "", false
	}

	title = out.Data.HPath
	if title == "" {
		title = id
	}
	return title, out.Data.Content, true
}
