package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/evewatch/internal/repository"
)

func postSettings(t *testing.T, h *SettingsHandler, form string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/update_settings", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Update(w, req)
	return w.Result()
}

func TestSettingsHandler_Update_SetsInterval(t *testing.T) {
	settings := repository.NewSettingsStore(60 * time.Second)
	h := NewSettingsHandler(settings)

	resp := postSettings(t, h, "update_frequency=120")

	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Errorf("Location = %q, want %q", loc, "/")
	}
	if got := settings.PollInterval(); got != 120*time.Second {
		t.Errorf("PollInterval = %v, want %v", got, 120*time.Second)
	}
}

func TestSettingsHandler_Update_ClampsBelowMinimum(t *testing.T) {
	settings := repository.NewSettingsStore(60 * time.Second)
	h := NewSettingsHandler(settings)

	postSettings(t, h, "update_frequency=5")

	if got := settings.PollInterval(); got != 10*time.Second {
		t.Errorf("PollInterval = %v, want floor of %v", got, 10*time.Second)
	}
}

func TestSettingsHandler_Update_NonNumericIgnored(t *testing.T) {
	settings := repository.NewSettingsStore(60 * time.Second)
	h := NewSettingsHandler(settings)

	resp := postSettings(t, h, "update_frequency=abc")

	// 不正な入力でもリダイレクトし、既存値は維持される
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if got := settings.PollInterval(); got != 60*time.Second {
		t.Errorf("PollInterval = %v, want unchanged %v", got, 60*time.Second)
	}
}

func TestSettingsHandler_Update_MissingFieldIgnored(t *testing.T) {
	settings := repository.NewSettingsStore(60 * time.Second)
	h := NewSettingsHandler(settings)

	postSettings(t, h, "")

	if got := settings.PollInterval(); got != 60*time.Second {
		t.Errorf("PollInterval = %v, want unchanged %v", got, 60*time.Second)
	}
}
