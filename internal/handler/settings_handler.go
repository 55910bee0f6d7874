package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/evewatch/internal/repository"
)

// SettingsHandler はポーリング設定更新のハンドラー。
type SettingsHandler struct {
	settings *repository.SettingsStore
}

// NewSettingsHandler はSettingsHandlerを生成する。
func NewSettingsHandler(settings *repository.SettingsStore) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Update はポーリング間隔を更新する。
// POST /update_settings（フォームフィールド: update_frequency 秒単位）
// 数値でない入力は黙って無視し既存値を維持する。下限未満の値はストア側で
// 下限に切り上げられる。変更は次のポーリングサイクルから効く。
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	raw := r.FormValue("update_frequency")

	if seconds, err := strconv.Atoi(raw); err == nil {
		h.settings.SetPollInterval(seconds)
		slog.Info("poll interval updated",
			slog.Int("requested_seconds", seconds),
			slog.Duration("effective_interval", h.settings.PollInterval()),
		)
	}

	http.Redirect(w, r, "/", http.StatusFound)
}
