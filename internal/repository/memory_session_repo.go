package repository

import (
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/evewatch/internal/model"
)

// MemorySessionRepo はSessionRepositoryのインメモリ実装。
// 期限切れセッションは検索時に遅延削除する。
type MemorySessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewMemorySessionRepo はMemorySessionRepoを生成する。
func NewMemorySessionRepo() *MemorySessionRepo {
	return &MemorySessionRepo{
		sessions: make(map[string]*model.Session),
	}
}

// Create はセッションを保存する。
func (r *MemorySessionRepo) Create(session *model.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

// FindByID はセッションを検索する。存在しないか期限切れの場合はnilを返す。
func (r *MemorySessionRepo) FindByID(id string) *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil
	}
	if time.Now().After(session.ExpiresAt) {
		delete(r.sessions, id)
		return nil
	}
	cp := *session
	return &cp
}

// DeleteByID はセッションを破棄する。存在しない場合は何もしない。
func (r *MemorySessionRepo) DeleteByID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// compile-time interface check
var _ SessionRepository = (*MemorySessionRepo)(nil)
