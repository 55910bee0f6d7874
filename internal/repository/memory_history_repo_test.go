package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/evewatch/internal/model"
)

func obsAt(characterID, systemID int64, observedAt time.Time) *model.Observation {
	return &model.Observation{
		CharacterID:    characterID,
		SolarSystemID:  systemID,
		SystemName:     "Jita",
		SecurityStatus: 0.9,
		ObservedAt:     observedAt,
	}
}

func TestRecord_SameSystemReplacesExistingEntry(t *testing.T) {
	repo := NewMemoryHistoryRepo(100)
	base := time.Now().UTC()

	repo.Record(obsAt(42, 100, base))
	repo.Record(obsAt(42, 100, base.Add(10*time.Second)))

	history := repo.HistoryFor(42)
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}
	if !history[0].ObservedAt.Equal(base.Add(10 * time.Second)) {
		t.Errorf("ObservedAt = %v, want %v", history[0].ObservedAt, base.Add(10*time.Second))
	}
	if history[0].Color != model.ColorBlue {
		t.Errorf("Color = %q, want %q", history[0].Color, model.ColorBlue)
	}
}

func TestRecord_DifferentSystemsAccumulate(t *testing.T) {
	repo := NewMemoryHistoryRepo(100)
	base := time.Now().UTC()

	repo.Record(obsAt(42, 100, base))
	repo.Record(obsAt(42, 200, base.Add(time.Minute)))
	repo.Record(obsAt(42, 300, base.Add(2*time.Minute)))

	if got := len(repo.HistoryFor(42)); got != 3 {
		t.Errorf("len(history) = %d, want 3", got)
	}
}

func TestHistoryFor_SortedNewestFirst(t *testing.T) {
	repo := NewMemoryHistoryRepo(100)
	base := time.Now().UTC()

	// 挿入順とは逆の時刻順で記録する
	repo.Record(obsAt(42, 100, base.Add(time.Minute)))
	repo.Record(obsAt(42, 200, base.Add(3*time.Minute)))
	repo.Record(obsAt(42, 300, base.Add(2*time.Minute)))

	history := repo.HistoryFor(42)
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].ObservedAt.After(history[i-1].ObservedAt) {
			t.Errorf("history[%d]がhistory[%d]より新しい: 降順になっていない", i, i-1)
		}
	}
	if history[0].SolarSystemID != 200 {
		t.Errorf("先頭のSolarSystemID = %d, want 200", history[0].SolarSystemID)
	}
}

func TestHistoryFor_ColorComputedAtQueryTime(t *testing.T) {
	repo := NewMemoryHistoryRepo(100)
	base := time.Now().UTC()

	wormhole := &model.Observation{
		CharacterID:    42,
		SolarSystemID:  31000123,
		SystemName:     "J123456",
		HighRisk:       true,
		SecurityStatus: model.HighRiskSecurityStatus,
		ObservedAt:     base,
	}
	repo.Record(wormhole)

	// 観測直後: green
	repo.now = func() time.Time { return base.Add(time.Hour) }
	if got := repo.HistoryFor(42)[0].Color; got != model.ColorGreen {
		t.Errorf("Color = %q, want %q", got, model.ColorGreen)
	}

	// 30時間後: yellow
	repo.now = func() time.Time { return base.Add(30 * time.Hour) }
	if got := repo.HistoryFor(42)[0].Color; got != model.ColorYellow {
		t.Errorf("Color = %q, want %q", got, model.ColorYellow)
	}

	// 50時間後: red
	repo.now = func() time.Time { return base.Add(50 * time.Hour) }
	if got := repo.HistoryFor(42)[0].Color; got != model.ColorRed {
		t.Errorf("Color = %q, want %q", got, model.ColorRed)
	}
}

func TestRecord_RetentionEvictsOldest(t *testing.T) {
	repo := NewMemoryHistoryRepo(3)
	base := time.Now().UTC()

	for i := int64(0); i < 5; i++ {
		repo.Record(obsAt(42, 100+i, base.Add(time.Duration(i)*time.Minute)))
	}

	history := repo.HistoryFor(42)
	if len(history) != 3 {
		t.Fatalf("len(history) = %d, want 3", len(history))
	}
	// 最古の2件（システム100と101）が追い出されているはず
	for _, e := range history {
		if e.SolarSystemID == 100 || e.SolarSystemID == 101 {
			t.Errorf("最古のエントリ（system %d）が残っている", e.SolarSystemID)
		}
	}
}

func TestLatestFor(t *testing.T) {
	repo := NewMemoryHistoryRepo(100)
	base := time.Now().UTC()

	if got := repo.LatestFor(42); got != nil {
		t.Errorf("LatestFor(空) = %v, want nil", got)
	}

	repo.Record(obsAt(42, 100, base))
	repo.Record(obsAt(42, 200, base.Add(time.Minute)))

	latest := repo.LatestFor(42)
	if latest == nil {
		t.Fatal("LatestFor = nil, want observation")
	}
	if latest.SolarSystemID != 200 {
		t.Errorf("SolarSystemID = %d, want 200", latest.SolarSystemID)
	}
}

func TestHistoryFor_IsolatedPerCharacter(t *testing.T) {
	repo := NewMemoryHistoryRepo(100)
	base := time.Now().UTC()

	repo.Record(obsAt(42, 100, base))
	repo.Record(obsAt(99, 100, base))

	if got := len(repo.HistoryFor(42)); got != 1 {
		t.Errorf("len(HistoryFor(42)) = %d, want 1", got)
	}
	if got := len(repo.HistoryFor(99)); got != 1 {
		t.Errorf("len(HistoryFor(99)) = %d, want 1", got)
	}
}
