package traefik

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"gitlab.com/wovendns/woven/pkg/source"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNew(t *testing.T) {
	src := New()

	if src.parser == nil {
		t.Error("expected parser to be initialized")
	}
	if src.logger == nil {
		t.Error("expected logger to be initialized")
	}
}

func TestTraefik_Name(t *testing.T) {
	src := New()
	if src.Name() != "traefik" {
		t.Errorf("Name() = %q, want %q", src.Name(), "traefik")
	}
}

func TestTraefik_Extract_SingleHost(t *testing.T) {
	src := New(WithLogger(testLogger()))

	labels := map[string]string{
		"traefik.http.routers.myapp.rule": "Host(`app.example.com`)",
	}

	hostnames, err := src.Extract(context.Background(), labels)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(hostnames) != 1 || hostnames[0].Name != "app.example.com" {
		t.Fatalf("unexpected hostnames: %+v", hostnames)
	}
}

func TestTraefik_SupportsDiscovery_FalseByDefault(t *testing.T) {
	src := New(WithLogger(testLogger()))
	if src.SupportsDiscovery() {
		t.Fatal("expected discovery to be disabled without file or API config")
	}
}

func TestTraefik_SupportsDiscovery_WithAPIConfig(t *testing.T) {
	src := New(WithLogger(testLogger()), WithAPIDiscovery(APIConfig{URL: "http://traefik:8080"}))
	if !src.SupportsDiscovery() {
		t.Fatal("expected discovery to be enabled with API config")
	}
}

func TestTraefik_Discover_FromAPI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/http/routers" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode([]routerAPIEntry{
			{Name: "myapp", Rule: "Host(`app.example.com`)"},
			{Name: "api", Rule: "Host(`api.example.com`)"},
		})
	}))
	defer server.Close()

	src := New(
		WithLogger(testLogger()),
		WithAPIDiscovery(APIConfig{URL: server.URL, MaxElapsedTime: time.Second}),
	)

	hostnames, err := src.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(hostnames) != 2 {
		t.Fatalf("expected 2 hostnames, got %d: %+v", len(hostnames), hostnames)
	}
}

func TestTraefik_Discover_APIPermanentErrorDoesNotRetryForever(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src := New(
		WithLogger(testLogger()),
		WithAPIDiscovery(APIConfig{URL: server.URL, MaxElapsedTime: time.Second}),
	)

	hostnames, err := src.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover should swallow API errors and return nil error: %v", err)
	}
	if len(hostnames) != 0 {
		t.Fatalf("expected no hostnames, got %+v", hostnames)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one attempt for a permanent (4xx) error, got %d", calls)
	}
}

func TestTraefik_Discover_APITransientErrorRetriesThenGivesUp(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src := New(
		WithLogger(testLogger()),
		WithAPIDiscovery(APIConfig{URL: server.URL, MaxElapsedTime: 200 * time.Millisecond}),
	)

	_, err := src.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover should swallow API errors: %v", err)
	}
	if calls < 2 {
		t.Fatalf("expected more than one attempt for a transient (5xx) error, got %d", calls)
	}
}

var _ source.Source = (*Traefik)(nil)
