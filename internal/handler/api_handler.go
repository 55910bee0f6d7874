package handler

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/hitoshi/evewatch/internal/model"
	"github.com/hitoshi/evewatch/internal/repository"
)

// observationJSON は位置観測1件のAPIレスポンス表現。
type observationJSON struct {
	SolarSystemID  int64   `json:"solar_system_id"`
	SystemName     string  `json:"system_name"`
	HighRisk       bool    `json:"high_risk"`
	SecurityStatus float64 `json:"security_status"`
	StationID      *int64  `json:"station_id,omitempty"`
	StructureID    *int64  `json:"structure_id,omitempty"`
	Color          string  `json:"color"`
	ObservedAt     string  `json:"observed_at"`
}

// locationJSON はGET /api/locationのレスポンス。
type locationJSON struct {
	CharacterID   int64             `json:"character_id"`
	CharacterName string            `json:"character_name"`
	PortraitURL   string            `json:"portrait_url,omitempty"`
	Current       *observationJSON  `json:"current"`
	History       []observationJSON `json:"history"`
}

// errorJSON は統一エラーフォーマットのJSON表現。
type errorJSON struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// APIHandler はJSON APIのハンドラー。
type APIHandler struct {
	authService AuthServiceInterface
	historyRepo repository.HistoryRepository
	config      AuthHandlerConfig
}

// NewAPIHandler はAPIHandlerを生成する。
func NewAPIHandler(
	authService AuthServiceInterface,
	historyRepo repository.HistoryRepository,
	config AuthHandlerConfig,
) *APIHandler {
	return &APIHandler{
		authService: authService,
		historyRepo: historyRepo,
		config:      config,
	}
}

// Location はセッションのキャラクターの最新位置と履歴をJSONで返す。
// GET /api/location
// 有効なセッションがない場合は401を返す。
func (h *APIHandler) Location(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromCookie(r, h.config.SessionSecret)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	identity, err := h.authService.CurrentIdentity(sessionID)
	if err != nil {
		writeAPIError(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	history := h.historyRepo.HistoryFor(identity.CharacterID)

	resp := locationJSON{
		CharacterID:   identity.CharacterID,
		CharacterName: identity.Name,
		PortraitURL:   identity.PortraitURL,
		History:       make([]observationJSON, 0, len(history)),
	}
	for _, entry := range history {
		resp.History = append(resp.History, toObservationJSON(entry))
	}
	if len(resp.History) > 0 {
		resp.Current = &resp.History[0]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toObservationJSON は色分類付き観測をAPIレスポンス表現に変換する。
func toObservationJSON(entry model.AnnotatedObservation) observationJSON {
	return observationJSON{
		SolarSystemID:  entry.SolarSystemID,
		SystemName:     entry.SystemName,
		HighRisk:       entry.HighRisk,
		SecurityStatus: entry.SecurityStatus,
		StationID:      entry.StationID,
		StructureID:    entry.StructureID,
		Color:          string(entry.Color),
		ObservedAt:     entry.ObservedAt.UTC().Format(time.RFC3339),
	}
}

// writeAPIError は統一エラーフォーマットでJSONエラーレスポンスを書き込む。
func writeAPIError(w http.ResponseWriter, status int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorJSON{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}
