package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mvsi_register" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["matchId"] != "m1" || req["key"] != "k1" {
			t.Fatalf("unexpected request body: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(MatchConfig{
			MaxPlayers:    2,
			MatchDuration: 300,
			Players: []Player{
				{PlayerIndex: 0, IP: "10.0.0.1", IsHost: true},
				{PlayerIndex: 1, IP: "10.0.0.2", IsHost: false},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	cfg, err := c.Register(context.Background(), "m1", "k1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if cfg.MaxPlayers != 2 || len(cfg.Players) != 2 || !cfg.Players[0].IsHost {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestClientFetchPlayersErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.FetchPlayers(context.Background(), "m1", "k1"); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}
