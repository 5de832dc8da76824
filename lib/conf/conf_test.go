package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if c.API.Timeout() != 30*time.Second {
		t.Fatalf("Expected 30s request timeout, got %v", c.API.Timeout())
	}
	if c.Realtime.Heartbeat() != 15*time.Second {
		t.Fatalf("Expected 15s heartbeat, got %v", c.Realtime.Heartbeat())
	}
	if c.Realtime.Backoff() != time.Second || c.Realtime.MaxAttempts != 3 {
		t.Fatalf("Expected 1s backoff with 3 attempts, got %v / %d", c.Realtime.Backoff(), c.Realtime.MaxAttempts)
	}
	if c.Realtime.Grace() != time.Second {
		t.Fatalf("Expected 1s teardown grace, got %v", c.Realtime.Grace())
	}
	if c.History.Path != "" {
		t.Fatalf("History should be opt-in, got path %q", c.History.Path)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	contents := `{"api":{"base_url":"https://huddle.example/api/v1/","timeout_secs":5},"realtime":{"max_attempts":7}}`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("Writing config: %v", err)
	}
	os.Setenv("HUDDLE_CONF", path)
	defer os.Unsetenv("HUDDLE_CONF")
	loadConfig()
	c := GetConfig()
	if c.API.BaseURL != "https://huddle.example/api/v1/" || c.API.Timeout() != 5*time.Second {
		t.Fatalf("File values not applied: %+v", c.API)
	}
	if c.Realtime.MaxAttempts != 7 {
		t.Fatalf("File values not applied: %+v", c.Realtime)
	}
	//fields the file doesn't mention keep their defaults
	if c.Realtime.HeartbeatSecs != 15 {
		t.Fatalf("Unset fields should keep defaults: %+v", c.Realtime)
	}
}
