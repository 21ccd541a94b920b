// Package registry talks to the match backend: a plain HTTP/JSON service
// that owns the roster (who is in the match, who is host) and match
// metadata (duration). The server treats it as an opaque source of truth
// it queries once per new match; the backend's own availability/retry
// behavior is out of scope here.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors, wrapped with %w so callers can tell failures apart via errors.Is.
var (
	ErrRequest  = errors.New("registry: request failed")
	ErrStatus   = errors.New("registry: unexpected status")
	ErrDecode   = errors.New("registry: response decode failed")
)

// Player is one roster entry as returned by the backend.
type Player struct {
	PlayerIndex uint16 `json:"player_index"`
	IP          string `json:"ip"`
	IsHost      bool   `json:"is_host"`
}

// MatchConfig is the response to Register: the authoritative roster for a match.
type MatchConfig struct {
	MaxPlayers    uint8    `json:"max_players"`
	MatchDuration uint32   `json:"match_duration"`
	Players       []Player `json:"players"`
}

// Client is a thin, stateless wrapper over the backend's two JSON endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client pointed at baseURL (e.g. read from a settings file by
// the caller), using a bounded-timeout *http.Client.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Register announces a new match (matchID, key) to the backend and returns
// the roster it assigns. Mirrors the original's single best-effort POST:
// the caller decides whether to proceed without a roster on error.
func (c *Client) Register(ctx context.Context, matchID, key string) (*MatchConfig, error) {
	body, err := json.Marshal(map[string]string{"matchId": matchID, "key": key})
	if err != nil {
		return nil, fmt.Errorf("registry: encode register request: %w", err)
	}

	resp, err := c.post(ctx, "/mvsi_register", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cfg MatchConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &cfg, nil
}

// FetchPlayers retrieves the roster for an already-registered match.
func (c *Client) FetchPlayers(ctx context.Context, matchID, key string) ([]Player, error) {
	body, err := json.Marshal(map[string]string{"matchId": matchID, "key": key})
	if err != nil {
		return nil, fmt.Errorf("registry: encode fetch request: %w", err)
	}

	resp, err := c.post(ctx, "/mvsi_match_players", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var players []Player
	if err := json.NewDecoder(resp.Body).Decode(&players); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return players, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, path, resp.StatusCode)
	}
	return resp, nil
}
