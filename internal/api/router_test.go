package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"arena-duel/internal/config"
	"arena-duel/internal/game"
)

func testServer(t *testing.T) (*httptest.Server, *game.Registry) {
	t.Helper()

	registry := game.NewRegistry(game.RegistryDeps{
		Sim:        config.DefaultSim(),
		Rounds:     config.DefaultRounds(),
		MaxMatches: 10,
	})
	t.Cleanup(registry.Shutdown)

	router := NewRouter(RouterConfig{
		Registry:       registry,
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
		},
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, registry
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// TestHealthEndpoint verifies the liveness probe.
func TestHealthEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

// TestCreateAndGetMatch verifies the match lifecycle over HTTP.
func TestCreateAndGetMatch(t *testing.T) {
	ts, registry := testServer(t)

	resp := postJSON(t, ts.URL+"/api/match", map[string]any{
		"matchId": "m1",
		"arena":   "colosseum",
		"players": []map[string]string{
			{"id": "alice", "class": "warrior"},
			{"id": "bob", "class": "ranger"},
		},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: expected 200, got %d", resp.StatusCode)
	}

	var created struct {
		MatchID string `json:"matchId"`
		Arena   string `json:"arena"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.MatchID != "m1" || created.Arena != "colosseum" {
		t.Errorf("unexpected response: %+v", created)
	}
	if registry.Count() != 1 {
		t.Errorf("registry count %d", registry.Count())
	}

	// Duplicate id conflicts.
	dup := postJSON(t, ts.URL+"/api/match", map[string]any{
		"matchId": "m1",
		"players": []map[string]string{
			{"id": "carol", "class": "mage"},
			{"id": "dave", "class": "rogue"},
		},
	})
	defer dup.Body.Close()
	if dup.StatusCode != http.StatusConflict {
		t.Errorf("duplicate: expected 409, got %d", dup.StatusCode)
	}

	// Fetch it back.
	get, err := http.Get(ts.URL + "/api/match/m1")
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	if get.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", get.StatusCode)
	}
	var state struct {
		MatchID string         `json:"matchId"`
		Status  string         `json:"status"`
		Score   map[string]int `json:"score"`
	}
	if err := json.NewDecoder(get.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state.MatchID != "m1" || state.Status == "" {
		t.Errorf("unexpected state: %+v", state)
	}

	// Unknown id is a 404.
	missing, err := http.Get(ts.URL + "/api/match/ghost")
	if err != nil {
		t.Fatal(err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("missing: expected 404, got %d", missing.StatusCode)
	}
}

// TestCreateMatchValidation verifies bad requests are rejected.
func TestCreateMatchValidation(t *testing.T) {
	ts, _ := testServer(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{
			"missing players",
			map[string]any{"matchId": "m1"},
			http.StatusBadRequest,
		},
		{
			"unknown arena",
			map[string]any{
				"arena": "void",
				"players": []map[string]string{
					{"id": "alice", "class": "warrior"},
					{"id": "bob", "class": "warrior"},
				},
			},
			http.StatusBadRequest,
		},
		{
			"unknown class",
			map[string]any{
				"players": []map[string]string{
					{"id": "alice", "class": "bard"},
					{"id": "bob", "class": "warrior"},
				},
			},
			http.StatusBadRequest,
		},
		{
			"same player twice",
			map[string]any{
				"players": []map[string]string{
					{"id": "alice", "class": "warrior"},
					{"id": "alice", "class": "warrior"},
				},
			},
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/match", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

// TestForfeitEndpoint verifies the HTTP forfeit path.
func TestForfeitEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp := postJSON(t, ts.URL+"/api/match", map[string]any{
		"matchId": "m1",
		"players": []map[string]string{
			{"id": "alice", "class": "warrior"},
			{"id": "bob", "class": "warrior"},
		},
	})
	resp.Body.Close()

	ok := postJSON(t, ts.URL+"/api/match/forfeit", map[string]string{"playerId": "alice"})
	defer ok.Body.Close()
	if ok.StatusCode != http.StatusOK {
		t.Errorf("forfeit: expected 200, got %d", ok.StatusCode)
	}

	missing := postJSON(t, ts.URL+"/api/match/forfeit", map[string]string{"playerId": "nobody"})
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("unknown player: expected 404, got %d", missing.StatusCode)
	}
}

// TestCatalogEndpoints verifies arena and class listings.
func TestCatalogEndpoints(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/api/arenas")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var arenas []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&arenas); err != nil {
		t.Fatal(err)
	}
	if len(arenas) != 3 {
		t.Errorf("expected 3 arenas, got %d", len(arenas))
	}

	resp2, err := http.Get(ts.URL + "/api/classes")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var classes map[string]any
	if err := json.NewDecoder(resp2.Body).Decode(&classes); err != nil {
		t.Fatal(err)
	}
	if len(classes) < 4 {
		t.Errorf("expected class catalog, got %d entries", len(classes))
	}
}

// TestStatsEndpoint verifies the diagnostics payload carries match and
// rate-limit counters.
func TestStatsEndpoint(t *testing.T) {
	ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats struct {
		ActiveMatches int `json:"activeMatches"`
		RateLimit     struct {
			Allowed  uint64 `json:"allowed"`
			Rejected uint64 `json:"rejected"`
		} `json:"rateLimit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.ActiveMatches != 0 {
		t.Errorf("expected no matches, got %d", stats.ActiveMatches)
	}
	// The stats request itself passed through the limiter.
	if stats.RateLimit.Allowed == 0 {
		t.Error("expected allowed counter to reflect this request")
	}
}

// TestRateLimitRejects verifies the IP limiter returns 429 once exhausted.
func TestRateLimitRejects(t *testing.T) {
	registry := game.NewRegistry(game.RegistryDeps{
		Sim:    config.DefaultSim(),
		Rounds: config.DefaultRounds(),
	})
	t.Cleanup(registry.Shutdown)

	router := NewRouter(RouterConfig{
		Registry:       registry,
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             2,
			CleanupInterval:   DefaultRateLimitConfig.CleanupInterval,
		},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("expected at least one 429")
	}
}
