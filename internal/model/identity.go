// Package model はドメインモデルを定義する。
package model

import "time"

// Identity はEVE SSOで認証済みのキャラクターを表す。
// CharacterIDをキーとして、ログイン時に作成され、再ログインと
// トークンリフレッシュで上書き更新される。プロセス生存期間のみ保持する。
type Identity struct {
	CharacterID    int64
	Name           string
	PortraitURL    string
	AccessToken    string
	RefreshToken   string // 旧トークンスキームでは発行されないため空になり得る
	TokenUpdatedAt time.Time
}

// Session はブラウザのログインセッションを表す。
type Session struct {
	ID          string
	CharacterID int64
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
