package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, esi, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTokenExchangeFailed = "TOKEN_EXCHANGE_FAILED"
	ErrCodeTokenRefreshFailed  = "TOKEN_REFRESH_FAILED"
	ErrCodeVerifyFailed        = "VERIFY_FAILED"
	ErrCodeLocationFetchFailed = "LOCATION_FETCH_FAILED"
	ErrCodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
)

// NewTokenExchangeFailedError は認可コード交換失敗エラーを生成する。
func NewTokenExchangeFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeTokenExchangeFailed,
		Message:  fmt.Sprintf("アクセストークンの取得に失敗しました: %s", reason),
		Category: "auth",
		Action:   "再度ログインし直してください。",
	}
}

// NewTokenRefreshFailedError はトークンリフレッシュ失敗エラーを生成する。
func NewTokenRefreshFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeTokenRefreshFailed,
		Message:  fmt.Sprintf("トークンのリフレッシュに失敗しました: %s", reason),
		Category: "auth",
		Action:   "再度ログインし直してください。",
	}
}

// NewVerifyFailedError はキャラクター検証失敗エラーを生成する。
func NewVerifyFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeVerifyFailed,
		Message:  fmt.Sprintf("キャラクターの検証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "しばらく待ってから再度ログインしてください。",
	}
}

// NewLocationFetchFailedError は位置取得失敗エラーを生成する。
func NewLocationFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeLocationFetchFailed,
		Message:  fmt.Sprintf("キャラクターの現在位置の取得に失敗しました: %s", reason),
		Category: "esi",
		Action:   "ESIの状態を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewIdentityNotFoundError はキャラクター未登録エラーを生成する。
func NewIdentityNotFoundError(characterID int64) *APIError {
	return &APIError{
		Code:     ErrCodeIdentityNotFound,
		Message:  fmt.Sprintf("指定されたキャラクターが見つかりません: %d", characterID),
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}
