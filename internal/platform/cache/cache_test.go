package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"ledger-db", "redis://:secret@cache.internal:6379/2", false},
		{"empty", "", true},
		{"wrong-scheme", "http://localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_HealthCheck(t *testing.T) {
	s := miniredis.RunT(t)

	c, err := New(t.Context(), "redis://"+s.Addr())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if err := c.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	s.Close()
	if err := c.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() should fail once the server is gone")
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	_, err := New(t.Context(), "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}
