package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.PollInterval != 60*time.Second {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, 60*time.Second)
	}
	if cfg.PollMaxConcurrent != 4 {
		t.Errorf("PollMaxConcurrent = %d, want 4", cfg.PollMaxConcurrent)
	}
	if cfg.HistoryMaxEntries != 100 {
		t.Errorf("HistoryMaxEntries = %d, want 100", cfg.HistoryMaxEntries)
	}
}

func TestLoad_PollIntervalClampedToMinimum(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.PollInterval != MinPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, MinPollInterval)
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want %v", cfg.FetchTimeout, 10*time.Second)
	}
}

func TestLoad_MissingOAuthCredentialsDoesNotFail(t *testing.T) {
	t.Setenv("EVE_CLIENT_ID", "")
	t.Setenv("EVE_CLIENT_SECRET", "")
	t.Setenv("EVE_REDIRECT_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("資格情報が未設定でもLoadは成功しなければならない: %v", err)
	}
	if cfg.HasOAuthCredentials() {
		t.Error("HasOAuthCredentials() = true, want false")
	}
}

func TestHasOAuthCredentials(t *testing.T) {
	t.Setenv("EVE_CLIENT_ID", "client-id")
	t.Setenv("EVE_CLIENT_SECRET", "client-secret")
	t.Setenv("EVE_REDIRECT_URL", "https://example.com/callback")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.HasOAuthCredentials() {
		t.Error("HasOAuthCredentials() = false, want true")
	}
}

func TestLoad_CookieSecureFollowsBaseURL(t *testing.T) {
	t.Setenv("BASE_URL", "https://evewatch.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure = false, want true for https BASE_URL")
	}
}
