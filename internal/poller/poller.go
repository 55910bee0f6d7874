// Package poller は認証済みキャラクターの位置のバックグラウンドポーリングを提供する。
// スイープのスケジューリング、semaphoreによる並列制御、
// 失敗時のトークンリフレッシュと1回だけの再試行を含む。
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/evewatch/internal/esi"
	"github.com/hitoshi/evewatch/internal/model"
	"github.com/hitoshi/evewatch/internal/repository"
)

// Gateway はPollerが必要とする外部API操作のインターフェース。
// esi.Clientが実装する。
type Gateway interface {
	// Refresh はリフレッシュトークンで新しいアクセストークンを取得する。
	Refresh(ctx context.Context, refreshToken string) (*esi.TokenPair, error)
	// FetchLocation はキャラクターの現在位置を取得する。
	FetchLocation(ctx context.Context, characterID int64, accessToken string) (*model.Observation, error)
}

// Metrics はPollerが記録するメトリクスのインターフェース。
// metrics.Collectorが実装する。
type Metrics interface {
	RecordPollSuccess()
	RecordPollFailure()
	RecordRefreshSuccess()
	RecordRefreshFailure()
	RecordEnrichmentFailure()
	RecordObservation()
	RecordSweepLatency(duration time.Duration)
	SetTrackedIdentities(n int)
}

// Poller は全キャラクターの位置を定期的にスイープする。
// 間隔はSettingsStoreからサイクルごとに読み直すため、設定変更は
// 次のティックから反映される。1キャラクターの失敗はログに残すのみで、
// 利用者には伝播させず、同一スイープ内の他キャラクターにも影響しない。
type Poller struct {
	tokenRepo      repository.TokenRepository
	historyRepo    repository.HistoryRepository
	settings       *repository.SettingsStore
	gateway        Gateway
	metrics        Metrics
	logger         *slog.Logger
	maxConcurrency int
	fetchTimeout   time.Duration
}

// NewPoller はPollerを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewPoller(
	tokenRepo repository.TokenRepository,
	historyRepo repository.HistoryRepository,
	settings *repository.SettingsStore,
	gateway Gateway,
	metrics Metrics,
	logger *slog.Logger,
	maxConcurrency int,
	fetchTimeout time.Duration,
) *Poller {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Poller{
		tokenRepo:      tokenRepo,
		historyRepo:    historyRepo,
		settings:       settings,
		gateway:        gateway,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		fetchTimeout:   fetchTimeout,
	}
}

// Start はポーリングループを起動する。
// 起動直後に1回スイープし、以降は現在のポーリング間隔で繰り返す。
// コンテキストがキャンセルされるまで実行を継続する。
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("ポーリングを開始しました",
		slog.Duration("interval", p.settings.PollInterval()),
		slog.Int("max_concurrency", p.maxConcurrency),
	)

	// 起動直後に1回実行
	p.RunOnce(ctx)

	for {
		// 間隔はサイクルごとに読み直す
		timer := time.NewTimer(p.settings.PollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("ポーリングを停止しました")
			return
		case <-timer.C:
			p.RunOnce(ctx)
		}
	}
}

// RunOnce は登録済みの全キャラクターを1回スイープする。
// キャラクターIDのスナップショットに対してsemaphoreパターンで並列にポーリングする。
func (p *Poller) RunOnce(ctx context.Context) {
	start := time.Now()

	ids := p.tokenRepo.AllIDs()
	p.metrics.SetTrackedIdentities(len(ids))

	if len(ids) == 0 {
		p.logger.Info("追跡対象のキャラクターはありません")
		return
	}

	p.logger.Info("スイープを開始します",
		slog.Int("identity_count", len(ids)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, p.maxConcurrency)
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(characterID int64) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			p.pollIdentity(ctx, characterID)
		}(id)
	}

	wg.Wait()

	duration := time.Since(start)
	p.metrics.RecordSweepLatency(duration)
	p.logger.Info("スイープが完了しました",
		slog.Int("identity_count", len(ids)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// pollIdentity は1キャラクターの位置を取得して履歴に記録する。
// 取得に失敗し、かつリフレッシュトークンがある場合は1回だけリフレッシュして
// 再試行する。リフレッシュまたは再試行に失敗した場合はこのサイクルでは
// そのキャラクターをあきらめ、次のサイクルで通常どおり再開する。
func (p *Poller) pollIdentity(ctx context.Context, characterID int64) {
	// 位置取得・リフレッシュ・再試行の最大3コール分のタイムアウト。
	// 1キャラクターのハングがスイープ全体を止めないための上限。
	ctx, cancel := context.WithTimeout(ctx, 3*p.fetchTimeout)
	defer cancel()

	identity := p.tokenRepo.FindByID(characterID)
	if identity == nil {
		return
	}

	obs, err := p.gateway.FetchLocation(ctx, characterID, identity.AccessToken)
	if err != nil {
		if identity.RefreshToken == "" {
			// 旧トークンスキーム: リフレッシュ不能なのでこのサイクルはスキップ
			p.metrics.RecordPollFailure()
			p.logger.Warn("位置取得に失敗しました（リフレッシュトークンなし）",
				slog.Int64("character_id", characterID),
				slog.String("error", err.Error()),
			)
			return
		}

		pair, refreshErr := p.gateway.Refresh(ctx, identity.RefreshToken)
		if refreshErr != nil {
			p.metrics.RecordRefreshFailure()
			p.metrics.RecordPollFailure()
			p.logger.Warn("トークンリフレッシュに失敗しました",
				slog.Int64("character_id", characterID),
				slog.String("error", refreshErr.Error()),
			)
			return
		}

		p.metrics.RecordRefreshSuccess()

		// SSOはリフレッシュトークンをローテートする。返却が空の場合は既存値を維持する。
		refreshToken := pair.RefreshToken
		if refreshToken == "" {
			refreshToken = identity.RefreshToken
		}
		if updateErr := p.tokenRepo.UpdateCredentials(characterID, pair.AccessToken, refreshToken); updateErr != nil {
			p.logger.Error("資格情報の更新に失敗しました",
				slog.Int64("character_id", characterID),
				slog.String("error", updateErr.Error()),
			)
			return
		}

		// 新しいアクセストークンで1回だけ再試行
		obs, err = p.gateway.FetchLocation(ctx, characterID, pair.AccessToken)
		if err != nil {
			p.metrics.RecordPollFailure()
			p.logger.Warn("リフレッシュ後の位置取得に失敗しました",
				slog.Int64("character_id", characterID),
				slog.String("error", err.Error()),
			)
			return
		}
	}

	p.historyRepo.Record(obs)
	p.metrics.RecordPollSuccess()
	p.metrics.RecordObservation()
	if obs.SystemName == model.UnknownSystemName {
		// 補完取得が失敗してUnknownに縮退している
		p.metrics.RecordEnrichmentFailure()
	}
	p.logger.Info("位置を記録しました",
		slog.Int64("character_id", characterID),
		slog.Int64("solar_system_id", obs.SolarSystemID),
		slog.String("system_name", obs.SystemName),
	)
}
