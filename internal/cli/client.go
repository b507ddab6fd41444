package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"naturedex/internal/game"
	"naturedex/internal/nature"
)

// Client talks to the bot's admin API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api status %d", e.Status)
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (c *Client) Health(ctx context.Context) error {
	return c.jsonRequest(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

func (c *Client) Natures(ctx context.Context, token string) ([]nature.Nature, error) {
	var out struct {
		Natures []nature.Nature `json:"natures"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/natures", token, nil, &out)
	return out.Natures, err
}

func (c *Client) Sheet(ctx context.Context, token, owner string) (game.Sheet, error) {
	var out game.Sheet
	err := c.jsonRequest(ctx, http.MethodGet, characterPath(owner, ""), token, nil, &out)
	return out, err
}

func (c *Client) LevelUp(ctx context.Context, token, owner string) (game.Character, error) {
	var out game.Character
	err := c.jsonRequest(ctx, http.MethodPost, characterPath(owner, "/levelup"), token, nil, &out)
	return out, err
}

func (c *Client) Boost(ctx context.Context, token, owner string, res game.Resource) (game.Character, error) {
	var out game.Character
	err := c.jsonRequest(ctx, http.MethodPost, characterPath(owner, "/boost"), token, map[string]any{
		"resource": string(res),
	}, &out)
	return out, err
}

func (c *Client) SetLevel(ctx context.Context, token, owner string, level int) (game.Character, error) {
	var out game.Character
	err := c.jsonRequest(ctx, http.MethodPut, characterPath(owner, "/level"), token, map[string]any{
		"level": level,
	}, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, token, owner string) error {
	return c.jsonRequest(ctx, http.MethodDelete, characterPath(owner, ""), token, nil, nil)
}

func characterPath(owner, suffix string) string {
	return "/v1/characters/" + url.PathEscape(strings.TrimSpace(owner)) + suffix
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
