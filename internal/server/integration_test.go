//go:build integration

// Integration test against a running server: go run ./cmd/terrain
//
// Run: go test -tags=integration ./internal/server/
package server_test

import (
	"encoding/json"
	"net/http"
	"os"
	"testing"
)

func baseURL() string {
	if u := os.Getenv("TERRAIN_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8086"
}

func getJSON(t *testing.T, path string, v any) {
	t.Helper()
	resp, err := http.Get(baseURL() + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestHealth(t *testing.T) {
	var body struct{ Status string }
	getJSON(t, "/health", &body)
	if body.Status != "ok" {
		t.Fatalf("status=%q, want ok", body.Status)
	}
}

func TestGetInfo(t *testing.T) {
	var body struct{ Name string }
	getJSON(t, "/api/v1/info", &body)
	if body.Name != "plat-terrain" {
		t.Fatalf("name=%q, want plat-terrain", body.Name)
	}
}

func TestListRegions(t *testing.T) {
	var body struct{ Files []struct{ Name string } }
	getJSON(t, "/api/v1/regions", &body)
}

func TestListBorders(t *testing.T) {
	var body struct{ Files []struct{ Name string } }
	getJSON(t, "/api/v1/borders", &body)
}

func TestGetRaster(t *testing.T) {
	var body struct{ Layout string }
	getJSON(t, "/api/v1/raster", &body)
	if body.Layout == "" {
		t.Fatal("layout missing from raster summary")
	}
}
