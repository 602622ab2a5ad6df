//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestLiveness(t *testing.T) {
	resp := doGet(t, "/livez")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	h := decodeJSON[healthResponse](t, resp)
	if h.Status != "ok" {
		t.Errorf("status: got %q, want ok", h.Status)
	}
}

func TestReadiness(t *testing.T) {
	resp := doGet(t, "/readyz")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	h := decodeJSON[healthResponse](t, resp)
	if h.Status != "ok" {
		t.Errorf("status: got %q, want ok", h.Status)
	}
	if got, ok := h.Checks["postgres"]; !ok || got != "ok" {
		t.Errorf("postgres check: got %q (present %v), want ok", got, ok)
	}
}
