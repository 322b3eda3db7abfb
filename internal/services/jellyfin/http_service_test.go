package jellyfin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ripline/internal/config"
	"ripline/internal/services"
)

func TestHTTPServiceRefreshTriggersJellyfin(t *testing.T) {
	refreshCalled := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Library/Refresh":
			if r.Method != http.MethodPost {
				t.Fatalf("unexpected method %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != `MediaBrowser Token="token-123"` {
				t.Fatalf("unexpected authorization header: %q", auth)
			}
			refreshCalled = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Jellyfin.Enabled = true
	cfg.Jellyfin.URL = server.URL + "/"
	cfg.Jellyfin.APIKey = "token-123"

	svc := NewConfiguredService(&cfg)
	if _, ok := svc.(*httpService); !ok {
		t.Fatalf("expected httpService, got %T", svc)
	}
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh returned error: %v", err)
	}
	if !refreshCalled {
		t.Fatal("expected refresh endpoint to be called")
	}
}

func TestHTTPServiceRefreshReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := NewHTTPService(server.URL, "bad", server.Client())
	err := svc.Refresh(context.Background())
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
}

func TestNewConfiguredServiceDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Jellyfin.URL = "http://jellyfin"
	cfg.Jellyfin.APIKey = "token"
	if _, ok := NewConfiguredService(&cfg).(noopService); !ok {
		t.Fatal("expected noop service when jellyfin is disabled")
	}
	cfg.Jellyfin.Enabled = true
	cfg.Jellyfin.APIKey = ""
	svc := NewConfiguredService(&cfg)
	if _, ok := svc.(noopService); !ok {
		t.Fatal("expected noop service when api key is missing")
	}
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("noop refresh returned error: %v", err)
	}
}
