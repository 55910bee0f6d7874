package model

import "time"

// UnknownSystemName はソーラーシステム名の解決に失敗した場合の既定値。
const UnknownSystemName = "Unknown"

// HighRiskSecurityStatus は高リスク（ワームホール）システムに付与する
// セキュリティステータスの番兵値。通常空間では実測値（おおよそ-1.0〜1.0）が入る。
const HighRiskSecurityStatus = -1.0

// Observation はあるキャラクターの位置の観測1件を表す。
// StationIDとStructureIDは排他で、同時に設定されることはない。
type Observation struct {
	CharacterID    int64
	SolarSystemID  int64
	SystemName     string
	HighRisk       bool
	SecurityStatus float64
	StationID      *int64
	StructureID    *int64
	ObservedAt     time.Time // UTC
}

// Color は観測の鮮度・リスク分類を表す。保存せずクエリ時に導出する。
type Color string

const (
	// ColorGreen は高リスク空間での24時間未満の観測。
	ColorGreen Color = "green"
	// ColorYellow は高リスク空間での24時間以上48時間未満の観測。
	ColorYellow Color = "yellow"
	// ColorRed は高リスク空間での48時間以上経過した観測。
	ColorRed Color = "red"
	// ColorBlue は通常空間の観測。経過時間によらず常にこの色になる。
	ColorBlue Color = "blue"
)

// ColorFor は観測の色分類をnow時点で計算する。
// 高リスク空間のみ経過時間に応じて段階が変わり、通常空間は常にblue。
func ColorFor(obs *Observation, now time.Time) Color {
	if !obs.HighRisk {
		return ColorBlue
	}

	age := now.Sub(obs.ObservedAt)
	switch {
	case age < 24*time.Hour:
		return ColorGreen
	case age < 48*time.Hour:
		return ColorYellow
	default:
		return ColorRed
	}
}

// AnnotatedObservation は色分類を付与した観測を表す。
// HistoryForの返却用で、Colorはクエリ時に計算される。
type AnnotatedObservation struct {
	Observation
	Color Color
}
