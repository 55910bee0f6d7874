// Package auth はEVE SSOログインフローとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/evewatch/internal/esi"
	"github.com/hitoshi/evewatch/internal/model"
	"github.com/hitoshi/evewatch/internal/repository"
)

// Gateway はログインフローが必要とする外部API操作のインターフェース。
// esi.Clientが実装する。
type Gateway interface {
	// AuthorizeURL はSSO認可URLを生成する。
	AuthorizeURL(state string) string
	// ExchangeCode は認可コードをトークンに交換する。
	ExchangeCode(ctx context.Context, code string) (*esi.TokenPair, error)
	// Verify はアクセストークンからキャラクター情報を取得する。
	Verify(ctx context.Context, accessToken string) (*model.Identity, error)
	// FetchLocation はキャラクターの現在位置を取得する。
	FetchLocation(ctx context.Context, characterID int64, accessToken string) (*model.Observation, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service はログインフローに関するビジネスロジックを提供する。
type Service struct {
	gateway     Gateway
	tokenRepo   repository.TokenRepository
	historyRepo repository.HistoryRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	gateway Gateway,
	tokenRepo repository.TokenRepository,
	historyRepo repository.HistoryRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		gateway:     gateway,
		tokenRepo:   tokenRepo,
		historyRepo: historyRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// LoginURL はSSO認可URLを生成する。
func (s *Service) LoginURL(state string) string {
	return s.gateway.AuthorizeURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 認可コード交換 → キャラクター検証 → トークンストアへのUpsert →
// 初回位置取得と履歴記録 → セッション発行の順に進む。
// 対話的ログイン経路の失敗はAPIErrorとして即座に呼び出し元へ返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換
	pair, err := s.gateway.ExchangeCode(ctx, code)
	if err != nil {
		return nil, model.NewTokenExchangeFailedError(err.Error())
	}

	// 2. キャラクター検証（ポートレートは補完取得）
	identity, err := s.gateway.Verify(ctx, pair.AccessToken)
	if err != nil {
		return nil, model.NewVerifyFailedError(err.Error())
	}

	identity.AccessToken = pair.AccessToken
	identity.RefreshToken = pair.RefreshToken
	identity.TokenUpdatedAt = time.Now().UTC()

	// 3. 初回ログインでも再ログインでも上書きUpsert
	if err := s.tokenRepo.Upsert(identity); err != nil {
		return nil, fmt.Errorf("failed to store identity: %w", err)
	}

	slog.Info("character logged in",
		slog.Int64("character_id", identity.CharacterID),
		slog.String("character_name", identity.Name),
	)

	// 4. 初回の位置取得。対話的経路なので失敗は利用者に返す。
	obs, err := s.gateway.FetchLocation(ctx, identity.CharacterID, identity.AccessToken)
	if err != nil {
		return nil, model.NewLocationFetchFailedError(err.Error())
	}
	s.historyRepo.Record(obs)

	// 5. セッションを発行
	session, err := s.createSession(identity.CharacterID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(sessionID string) {
	if sessionID == "" {
		return
	}
	s.sessionRepo.DeleteByID(sessionID)
	slog.Info("session destroyed", slog.String("session_id", sessionID))
}

// CurrentIdentity はセッションIDから現在のキャラクターを取得する。
// セッションが無効、またはキャラクターが未登録の場合はエラーを返す。
func (s *Service) CurrentIdentity(sessionID string) (*model.Identity, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session := s.sessionRepo.FindByID(sessionID)
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	identity := s.tokenRepo.FindByID(session.CharacterID)
	if identity == nil {
		return nil, model.NewIdentityNotFoundError(session.CharacterID)
	}

	return identity, nil
}

// createSession はセッションを作成し保存する。
func (s *Service) createSession(characterID int64) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:          sessionID,
		CharacterID: characterID,
		ExpiresAt:   time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt:   time.Now(),
	}

	if err := s.sessionRepo.Create(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
