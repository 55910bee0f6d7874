package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignSessionID はセッションIDにHMAC-SHA256署名を付与したCookie値を返す。
// 形式は "sessionID.署名(hex)"。
func SignSessionID(sessionID, secret string) string {
	return sessionID + "." + sign(sessionID, secret)
}

// VerifySessionCookie は署名付きCookie値を検証し、セッションIDを返す。
// 署名が欠落・不一致の場合はok=falseを返し、セッションなしとして扱う。
func VerifySessionCookie(value, secret string) (string, bool) {
	sessionID, signature, found := strings.Cut(value, ".")
	if !found || sessionID == "" {
		return "", false
	}
	expected := sign(sessionID, secret)
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}
	return sessionID, true
}

func sign(sessionID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}
