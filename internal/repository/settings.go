package repository

import (
	"sync"
	"time"

	"github.com/hitoshi/evewatch/internal/config"
)

// SettingsStore はプロセス全体で共有する可変設定を保持する。
// 現状はポーリング間隔のみ。HTTPハンドラー（設定更新）とPoller
// （サイクルごとの再読み込み）の双方から触られるためmutexで保護する。
type SettingsStore struct {
	mu           sync.RWMutex
	pollInterval time.Duration
}

// NewSettingsStore は初期ポーリング間隔を指定してSettingsStoreを生成する。
// 下限未満の初期値は下限に切り上げる。
func NewSettingsStore(initial time.Duration) *SettingsStore {
	if initial < config.MinPollInterval {
		initial = config.MinPollInterval
	}
	return &SettingsStore{pollInterval: initial}
}

// PollInterval は現在のポーリング間隔を返す。
// Pollerはサイクルごとにこれを読み直すため、変更は次のティックから効く。
func (s *SettingsStore) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollInterval
}

// SetPollInterval はポーリング間隔を秒単位で設定する。
// 下限（10秒）未満の値は下限に切り上げる。
func (s *SettingsStore) SetPollInterval(seconds int) {
	d := time.Duration(seconds) * time.Second
	if d < config.MinPollInterval {
		d = config.MinPollInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pollInterval = d
}
