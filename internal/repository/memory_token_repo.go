package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/evewatch/internal/model"
)

// MemoryTokenRepo はTokenRepositoryのインメモリ実装。
// HTTPハンドラー（ログイン時のUpsert）とPoller（反復とリフレッシュ時の
// 更新）の双方からアクセスされるため、全操作をRWMutexで保護する。
type MemoryTokenRepo struct {
	mu         sync.RWMutex
	identities map[int64]*model.Identity
}

// NewMemoryTokenRepo はMemoryTokenRepoを生成する。
func NewMemoryTokenRepo() *MemoryTokenRepo {
	return &MemoryTokenRepo{
		identities: make(map[int64]*model.Identity),
	}
}

// Upsert はキャラクターのレコードを挿入または上書きする。
func (r *MemoryTokenRepo) Upsert(identity *model.Identity) error {
	if identity == nil || identity.CharacterID == 0 {
		return fmt.Errorf("character ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *identity
	r.identities[identity.CharacterID] = &cp
	return nil
}

// FindByID はキャラクターを検索する。見つからない場合はnilを返す。
// 呼び出し側が保持できるようコピーを返す。
func (r *MemoryTokenRepo) FindByID(characterID int64) *model.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[characterID]
	if !ok {
		return nil
	}
	cp := *identity
	return &cp
}

// UpdateCredentials は既存レコードのトークンをその場で更新する。
func (r *MemoryTokenRepo) UpdateCredentials(characterID int64, accessToken, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[characterID]
	if !ok {
		return model.NewIdentityNotFoundError(characterID)
	}

	identity.AccessToken = accessToken
	identity.RefreshToken = refreshToken
	identity.TokenUpdatedAt = time.Now().UTC()
	return nil
}

// AllIDs は登録済みの全キャラクターIDのスナップショットを返す。
func (r *MemoryTokenRepo) AllIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.identities))
	for id := range r.identities {
		ids = append(ids, id)
	}
	return ids
}

// compile-time interface check
var _ TokenRepository = (*MemoryTokenRepo)(nil)
