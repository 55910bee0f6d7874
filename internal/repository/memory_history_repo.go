package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/hitoshi/evewatch/internal/model"
)

// defaultMaxEntriesPerCharacter はキャラクターごとの履歴保持上限の既定値。
const defaultMaxEntriesPerCharacter = 100

// MemoryHistoryRepo はHistoryRepositoryのインメモリ実装。
// 観測はキャラクターごとのスライスに保持し、同一(CharacterID, SolarSystemID)
// は常に1件に保つ。保持件数はキャラクターごとにmaxEntriesで制限し、
// 超過時はObservedAtが最も古いものから追い出す。
type MemoryHistoryRepo struct {
	mu           sync.RWMutex
	observations map[int64][]*model.Observation
	maxEntries   int
	now          func() time.Time
}

// NewMemoryHistoryRepo はMemoryHistoryRepoを生成する。
// maxEntriesが0以下の場合は既定値100を使用する。
func NewMemoryHistoryRepo(maxEntries int) *MemoryHistoryRepo {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntriesPerCharacter
	}
	return &MemoryHistoryRepo{
		observations: make(map[int64][]*model.Observation),
		maxEntries:   maxEntries,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Record は観測を記録する。
// 同一(CharacterID, SolarSystemID)の既存エントリを削除してから追加するため、
// 同じシステムへの再訪は重複行にならず最新の観測で置き換わる。
func (r *MemoryHistoryRepo) Record(obs *model.Observation) {
	if obs == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.observations[obs.CharacterID]

	// 同一システムの既存エントリを除去
	kept := entries[:0]
	for _, e := range entries {
		if e.SolarSystemID != obs.SolarSystemID {
			kept = append(kept, e)
		}
	}

	cp := *obs
	kept = append(kept, &cp)

	// 保持上限を超えた分はObservedAtが最も古いものから追い出す
	for len(kept) > r.maxEntries {
		oldest := 0
		for i, e := range kept {
			if e.ObservedAt.Before(kept[oldest].ObservedAt) {
				oldest = i
			}
		}
		kept = append(kept[:oldest], kept[oldest+1:]...)
	}

	r.observations[obs.CharacterID] = kept
}

// HistoryFor はキャラクターの観測履歴をObservedAt降順で返す。
// 色分類は保存値ではなく呼び出し時点の時刻から計算する。
func (r *MemoryHistoryRepo) HistoryFor(characterID int64) []model.AnnotatedObservation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.observations[characterID]
	now := r.now()

	result := make([]model.AnnotatedObservation, 0, len(entries))
	for _, e := range entries {
		result = append(result, model.AnnotatedObservation{
			Observation: *e,
			Color:       model.ColorFor(e, now),
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt.After(result[j].ObservedAt)
	})

	return result
}

// LatestFor はキャラクターの最新の観測を返す。なければnil。
func (r *MemoryHistoryRepo) LatestFor(characterID int64) *model.Observation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *model.Observation
	for _, e := range r.observations[characterID] {
		if latest == nil || e.ObservedAt.After(latest.ObservedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}

// compile-time interface check
var _ HistoryRepository = (*MemoryHistoryRepo)(nil)
