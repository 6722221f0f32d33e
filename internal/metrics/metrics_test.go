package metrics

import (
	"fmt"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/app.js", "/app.js"},
		{"/api/v1/options", "/api/v1/options"},
		{"/api/v1/sessions", "/api/v1/sessions"},
		{"/api/v1/cache/stats", "/api/v1/cache/stats"},
		{"/api/v1/cache", "/api/v1/cache"},

		// Session routes collapse the ID.
		{"/api/v1/sessions/0b7c2f5e-1d1a-4c55-9d0e-3f3f0c1e2a11", "/api/v1/sessions/{id}"},
		{"/api/v1/sessions/abc/rows", "/api/v1/sessions/{id}/rows"},
		{"/api/v1/sessions/abc/search", "/api/v1/sessions/{id}/search"},
		{"/api/v1/sessions/abc/filters", "/api/v1/sessions/{id}/filters"},
		{"/api/v1/sessions/abc/sort", "/api/v1/sessions/{id}/sort"},
		{"/api/v1/sessions/abc/category", "/api/v1/sessions/{id}/category"},
		{"/api/v1/sessions/abc/events", "/api/v1/sessions/{id}/events"},
		{"/api/v1/sessions/abc/reload", "/api/v1/sessions/{id}/reload"},
		{"/api/v1/sessions/abc/filters/toggle", "/api/v1/sessions/{id}/filters/toggle"},
		{"/api/v1/sessions/abc/filters/apply", "/api/v1/sessions/{id}/filters/apply"},
		{"/api/v1/sessions/abc/filters/other", "other"},

		// Unknown/bot paths collapse to "other".
		{"/api/v1/sessions/", "other"},
		{"/api/v1/sessions//rows", "other"},
		{"/api/v1/sessions/abc/delete", "other"},
		{"/wp-admin", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 distinct session IDs produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute(fmt.Sprintf("/api/v1/sessions/session-%d/rows", i))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for session paths, got %d: %v", len(seen), seen)
	}
}
