// Package esi はEVE SSOとESI REST APIへのゲートウェイを提供する。
// 主要操作（トークン交換・リフレッシュ・キャラクター検証・位置取得）の
// 失敗は明示的なエラーとして返し、付随する補完取得（ポートレート、
// ソーラーシステム情報）の失敗は既定値へ劣化させてエラーにしない。
package esi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hitoshi/evewatch/internal/model"
)

const (
	defaultAuthorizeURL = "https://login.eveonline.com/v2/oauth/authorize"
	defaultTokenURL     = "https://login.eveonline.com/v2/oauth/token"
	defaultVerifyURL    = "https://esi.evetech.net/verify/"
	defaultESIBaseURL   = "https://esi.evetech.net/latest"

	// ESIが要求する互換性ヘッダー
	compatibilityDate = "2025-08-26"
	tenant            = "tranquility"

	// Scope はログインで要求する唯一のスコープ。
	Scope = "esi-location.read_location.v1"
)

// J-space（ワームホール空間）のソーラーシステムIDレンジ。
// このレンジのシステムを高リスクとして分類する。
const (
	wormholeSystemIDMin = 31000000
	wormholeSystemIDMax = 32000000
)

// ClientConfig はesi.Clientの設定。
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthorizeURL string
	TokenURL     string
	VerifyURL    string
	ESIBaseURL   string
}

// TokenPair はSSOトークンエンドポイントが返す資格情報の組。
// 旧トークンスキームではRefreshTokenが空のことがある。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Client はEVE SSO/ESIへの同期クライアント。
// リトライは行わない。呼び出し側（Poller・ログインフロー）が方針を決める。
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient はClientを生成する。
// httpClientには呼び出しごとのタイムアウトを設定したものを渡す。
func NewClient(config ClientConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = defaultAuthorizeURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.VerifyURL == "" {
		config.VerifyURL = defaultVerifyURL
	}
	if config.ESIBaseURL == "" {
		config.ESIBaseURL = defaultESIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// AuthorizeURL はEVE SSOの認可URLを生成する。
func (c *Client) AuthorizeURL(state string) string {
	params := url.Values{
		"response_type": {"code"},
		"redirect_uri":  {c.config.RedirectURL},
		"client_id":     {c.config.ClientID},
		"scope":         {Scope},
		"state":         {state},
	}
	return c.config.AuthorizeURL + "?" + params.Encode()
}

// tokenResponse はSSOトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenPair, error) {
	data := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	pair, err := c.requestToken(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return pair, nil
}

// Refresh はリフレッシュトークンで新しいアクセストークンを取得する。
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	pair, err := c.requestToken(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return pair, nil
}

// requestToken はSSOトークンエンドポイントへのPOSTを実行する。
// クライアント認証はHTTP Basic（client_id:client_secret）。
func (c *Client) requestToken(ctx context.Context, data url.Values) (*TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}

	return &TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}, nil
}

// verifyResponse はSSO検証エンドポイントのレスポンス。
type verifyResponse struct {
	CharacterID   int64  `json:"CharacterID"`
	CharacterName string `json:"CharacterName"`
}

// Verify はアクセストークンからキャラクターID・名前を取得する。
// ポートレートURLの解決は補完取得であり、失敗しても空文字に劣化するだけで
// 検証全体を失敗させない。
func (c *Client) Verify(ctx context.Context, accessToken string) (*model.Identity, error) {
	body, err := c.getWithBearer(ctx, c.config.VerifyURL, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify character: %w", err)
	}

	var verifyResp verifyResponse
	if err := json.Unmarshal(body, &verifyResp); err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}
	if verifyResp.CharacterID == 0 {
		return nil, fmt.Errorf("empty character ID in verify response")
	}

	identity := &model.Identity{
		CharacterID: verifyResp.CharacterID,
		Name:        verifyResp.CharacterName,
	}

	// 補完取得: ポートレート。失敗は劣化のみ。
	portrait, err := c.fetchPortrait(ctx, verifyResp.CharacterID)
	if err != nil {
		c.logger.Warn("portrait lookup failed, degrading to empty",
			slog.Int64("character_id", verifyResp.CharacterID),
			slog.String("error", err.Error()),
		)
	} else {
		identity.PortraitURL = portrait
	}

	return identity, nil
}

// portraitResponse はキャラクターポートレートエンドポイントのレスポンス。
type portraitResponse struct {
	Px64 string `json:"px64x64"`
}

// fetchPortrait はキャラクターの64pxポートレートURLを取得する。
func (c *Client) fetchPortrait(ctx context.Context, characterID int64) (string, error) {
	u := fmt.Sprintf("%s/characters/%d/portrait/", c.config.ESIBaseURL, characterID)
	body, err := c.getWithBearer(ctx, u, "")
	if err != nil {
		return "", err
	}

	var portraitResp portraitResponse
	if err := json.Unmarshal(body, &portraitResp); err != nil {
		return "", fmt.Errorf("failed to parse portrait response: %w", err)
	}
	return portraitResp.Px64, nil
}

// locationResponse はキャラクター位置エンドポイントのレスポンス。
// station_idとstructure_idは排他で、どちらか一方しか現れない。
type locationResponse struct {
	SolarSystemID int64  `json:"solar_system_id"`
	StationID     *int64 `json:"station_id"`
	StructureID   *int64 `json:"structure_id"`
}

// systemResponse はソーラーシステム情報エンドポイントのレスポンス。
type systemResponse struct {
	Name           string  `json:"name"`
	SecurityStatus float64 `json:"security_status"`
}

// FetchLocation はキャラクターの現在位置を取得する。
// システム名とリスク分類の解決は補完取得であり、失敗した場合は
// SystemName="Unknown"・通常リスク・スコア0.0へ劣化して観測自体は返す。
func (c *Client) FetchLocation(ctx context.Context, characterID int64, accessToken string) (*model.Observation, error) {
	u := fmt.Sprintf("%s/characters/%d/location/", c.config.ESIBaseURL, characterID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create location request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Compatibility-Date", compatibilityDate)
	req.Header.Set("X-Tenant", tenant)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("location request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read location response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("location endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var locResp locationResponse
	if err := json.Unmarshal(body, &locResp); err != nil {
		return nil, fmt.Errorf("failed to parse location response: %w", err)
	}
	if locResp.SolarSystemID == 0 {
		return nil, fmt.Errorf("empty solar system ID in location response")
	}

	obs := &model.Observation{
		CharacterID:   characterID,
		SolarSystemID: locResp.SolarSystemID,
		StationID:     locResp.StationID,
		StructureID:   locResp.StructureID,
		ObservedAt:    time.Now().UTC(),
	}

	// 補完取得: システム名とセキュリティステータス。失敗は劣化のみ。
	system, err := c.fetchSystem(ctx, locResp.SolarSystemID)
	if err != nil {
		c.logger.Warn("system lookup failed, degrading to defaults",
			slog.Int64("character_id", characterID),
			slog.Int64("solar_system_id", locResp.SolarSystemID),
			slog.String("error", err.Error()),
		)
		obs.SystemName = model.UnknownSystemName
		obs.HighRisk = false
		obs.SecurityStatus = 0.0
		return obs, nil
	}

	obs.SystemName = system.Name
	if isWormholeSystem(locResp.SolarSystemID) {
		obs.HighRisk = true
		obs.SecurityStatus = model.HighRiskSecurityStatus
	} else {
		obs.SecurityStatus = system.SecurityStatus
	}

	return obs, nil
}

// fetchSystem はソーラーシステムの名前とセキュリティステータスを取得する。
func (c *Client) fetchSystem(ctx context.Context, systemID int64) (*systemResponse, error) {
	u := fmt.Sprintf("%s/universe/systems/%d/", c.config.ESIBaseURL, systemID)
	body, err := c.getWithBearer(ctx, u, "")
	if err != nil {
		return nil, err
	}

	var sysResp systemResponse
	if err := json.Unmarshal(body, &sysResp); err != nil {
		return nil, fmt.Errorf("failed to parse system response: %w", err)
	}
	return &sysResp, nil
}

// getWithBearer はGETリクエストを実行し、200以外をエラーとして扱う。
// accessTokenが空の場合はAuthorizationヘッダーを付けない（公開エンドポイント）。
func (c *Client) getWithBearer(ctx context.Context, rawURL, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("X-Compatibility-Date", compatibilityDate)
	req.Header.Set("X-Tenant", tenant)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// isWormholeSystem はソーラーシステムIDがJ-spaceレンジかを判定する。
func isWormholeSystem(systemID int64) bool {
	return systemID >= wormholeSystemIDMin && systemID < wormholeSystemIDMax
}
