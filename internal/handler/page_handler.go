package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/evewatch/internal/model"
	"github.com/hitoshi/evewatch/internal/repository"
)

// homeTemplate はトップページのHTMLテンプレート。
// 外部アセットを持たないため、テンプレートはパッケージ内に埋め込む。
const homeTemplate = `<!DOCTYPE html>
<html>
<head>
<title>EVE Location Tracker</title>
<style>
  body { font-family: sans-serif; margin: 2em; }
  table { border-collapse: collapse; margin-top: 1em; }
  th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: left; }
  .green { color: green; }
  .yellow { color: #b8860b; }
  .red { color: red; }
  .blue { color: blue; }
  .portrait { vertical-align: middle; margin-right: 8px; }
</style>
</head>
<body>
<h2>EVE Online Location Tracker</h2>
{{if not .LoggedIn}}
<p>Log in to track your character's location.</p>
<a href="/login"><button>Log In with EVE Online</button></a>
{{else}}
<p>
{{if .PortraitURL}}<img class="portrait" src="{{.PortraitURL}}" width="64" height="64" alt="">{{end}}
<strong>{{.CharacterName}}</strong>
<a href="/logout">Log out</a>
</p>
{{if .Current}}
<h3 class="{{.Current.Color}}">Current Location: {{.Current.SystemName}} (system {{.Current.SolarSystemID}}){{if .Current.StationID}}, Station {{.Current.StationID}}{{end}}{{if .Current.StructureID}}, Structure {{.Current.StructureID}}{{end}}</h3>
{{else}}
<h3>Current Location: unknown</h3>
{{end}}
<form method="post" action="/update_settings">
  <label>Update frequency (seconds):
    <input type="number" name="update_frequency" value="{{.PollIntervalSeconds}}" min="10">
  </label>
  <button type="submit">Save</button>
</form>
{{if .History}}
<h3>Location History</h3>
<table>
<tr><th>System</th><th>Security</th><th>Docked</th><th>Observed (UTC)</th></tr>
{{range .History}}
<tr class="{{.Color}}">
<td>{{.SystemName}} ({{.SolarSystemID}})</td>
<td>{{if .HighRisk}}J-space{{else}}{{printf "%.1f" .SecurityStatus}}{{end}}</td>
<td>{{if .StationID}}Station {{.StationID}}{{else if .StructureID}}Structure {{.StructureID}}{{else}}-{{end}}</td>
<td>{{.ObservedAt.Format "2006-01-02 15:04:05"}}</td>
</tr>
{{end}}
</table>
{{end}}
{{end}}
</body>
</html>
`

var homeTmpl = template.Must(template.New("home").Parse(homeTemplate))

// homePageData はトップページのテンプレートに渡すデータ。
type homePageData struct {
	LoggedIn            bool
	CharacterName       string
	PortraitURL         string
	Current             *model.AnnotatedObservation
	History             []model.AnnotatedObservation
	PollIntervalSeconds int
}

// PageHandler はHTMLページのハンドラー。ストアからの読み取りのみで、副作用を持たない。
type PageHandler struct {
	authService AuthServiceInterface
	historyRepo repository.HistoryRepository
	settings    *repository.SettingsStore
	config      AuthHandlerConfig
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(
	authService AuthServiceInterface,
	historyRepo repository.HistoryRepository,
	settings *repository.SettingsStore,
	config AuthHandlerConfig,
) *PageHandler {
	return &PageHandler{
		authService: authService,
		historyRepo: historyRepo,
		settings:    settings,
		config:      config,
	}
}

// Home はトップページを表示する。
// GET /
// 未ログインの場合はログインボタンのみ、ログイン済みの場合は
// キャラクター情報・最新位置・色分類付きの履歴テーブルを表示する。
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := homePageData{
		PollIntervalSeconds: int(h.settings.PollInterval().Seconds()),
	}

	if sessionID, ok := sessionIDFromCookie(r, h.config.SessionSecret); ok {
		identity, err := h.authService.CurrentIdentity(sessionID)
		if err == nil {
			data.LoggedIn = true
			data.CharacterName = identity.Name
			data.PortraitURL = identity.PortraitURL

			history := h.historyRepo.HistoryFor(identity.CharacterID)
			data.History = history
			if len(history) > 0 {
				data.Current = &history[0]
			}
		}
		// セッションが期限切れ等で無効な場合は未ログインとして表示する
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := homeTmpl.Execute(w, data); err != nil {
		slog.Error("failed to render home page", slog.String("error", err.Error()))
	}
}
