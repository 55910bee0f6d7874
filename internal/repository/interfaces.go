// Package repository はインメモリのデータストアを提供する。
// プロセス再起動をまたぐ永続化は行わない。各ストアはRWMutexで保護され、
// HTTPハンドラーとPollerの両方から並行にアクセスされる。
package repository

import "github.com/hitoshi/evewatch/internal/model"

// TokenRepository は認証済みキャラクターの資格情報ストアのインターフェース。
type TokenRepository interface {
	// Upsert はキャラクターのレコードを挿入または上書きする。
	// CharacterIDが0の場合はエラーを返す。
	Upsert(identity *model.Identity) error
	// FindByID はキャラクターを検索する。見つからない場合はnilを返す。
	FindByID(characterID int64) *model.Identity
	// UpdateCredentials は既存レコードのトークンをその場で更新する。
	// 未知のキャラクターの場合はエラーを返す。
	UpdateCredentials(characterID int64, accessToken, refreshToken string) error
	// AllIDs は登録済みの全キャラクターIDのスナップショットを返す。
	// 反復中の並行挿入に影響されないコピーを返す。
	AllIDs() []int64
}

// HistoryRepository は位置観測履歴ストアのインターフェース。
type HistoryRepository interface {
	// Record は観測を記録する。同一(CharacterID, SolarSystemID)の既存
	// エントリは置き換えられ、重複行は発生しない。
	Record(obs *model.Observation)
	// HistoryFor はキャラクターの観測履歴をObservedAt降順で返す。
	// 各エントリにはクエリ時点で計算した色分類が付与される。
	HistoryFor(characterID int64) []model.AnnotatedObservation
	// LatestFor はキャラクターの最新の観測を返す。なければnil。
	LatestFor(characterID int64) *model.Observation
}

// SessionRepository はログインセッションストアのインターフェース。
type SessionRepository interface {
	// Create はセッションを保存する。
	Create(session *model.Session) error
	// FindByID はセッションを検索する。存在しないか期限切れの場合はnilを返す。
	FindByID(id string) *model.Session
	// DeleteByID はセッションを破棄する。存在しない場合は何もしない。
	DeleteByID(id string)
}
