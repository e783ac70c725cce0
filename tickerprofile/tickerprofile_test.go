package tickerprofile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiplier_NoProfileReturnsDefault(t *testing.T) {
	s := NewStore("")
	assert.Equal(t, defaultAffinity, s.Multiplier("ABCD", []string{"fda approval"}, ""))
}

func TestMultiplier_BelowObservationThresholdReturnsDefault(t *testing.T) {
	s := NewStore("")
	s.profiles["ABCD"] = &Profile{
		ObservationCount: 3,
		KeywordAffinities: map[string]KeywordAffinity{
			"fda approval": {SuccessRate: 0.9, AvgReturnPct: 20, Occurrences: 5},
		},
	}
	assert.Equal(t, defaultAffinity, s.Multiplier("ABCD", []string{"fda approval"}, ""))
}

func TestMultiplier_MatchedKeywordUsesAffinityFormula(t *testing.T) {
	s := NewStore("")
	s.profiles["ABCD"] = &Profile{
		ObservationCount: 10,
		KeywordAffinities: map[string]KeywordAffinity{
			"fda approval": {SuccessRate: 0.9, AvgReturnPct: 20, Occurrences: 5},
		},
		BaselineMultiplier: 1.1,
	}
	// 0.9 * (1 + 20/50) = 0.9*1.4 = 1.26
	got := s.Multiplier("abcd", []string{"FDA Approval"}, "")
	assert.InDelta(t, 1.26, got, 1e-9)
}

func TestMultiplier_ClampsToRange(t *testing.T) {
	s := NewStore("")
	s.profiles["ABCD"] = &Profile{
		ObservationCount: 10,
		KeywordAffinities: map[string]KeywordAffinity{
			"huge catalyst": {SuccessRate: 1.0, AvgReturnPct: 500, Occurrences: 5},
		},
	}
	got := s.Multiplier("ABCD", []string{"huge catalyst"}, "")
	assert.Equal(t, affinityCeil, got)
}

func TestMultiplier_NoKeywordMatchUsesBaseline(t *testing.T) {
	s := NewStore("")
	s.profiles["ABCD"] = &Profile{
		ObservationCount: 10,
		KeywordAffinities: map[string]KeywordAffinity{
			"fda approval": {SuccessRate: 0.9, AvgReturnPct: 20, Occurrences: 5},
		},
		BaselineMultiplier: 1.4,
	}
	got := s.Multiplier("ABCD", []string{"unrelated keyword"}, "")
	assert.Equal(t, 1.4, got)
}

func TestMultiplier_FallsBackToSectorProfile(t *testing.T) {
	s := NewStore("")
	s.profiles[sectorKey("Healthcare")] = &Profile{
		ObservationCount: 10,
		KeywordAffinities: map[string]KeywordAffinity{
			"fda approval": {SuccessRate: 0.8, AvgReturnPct: 10, Occurrences: 5},
		},
	}
	got := s.Multiplier("NEWTICKER", []string{"fda approval"}, "Healthcare")
	// 0.8 * (1 + 10/50) = 0.8*1.2 = 0.96
	assert.InDelta(t, 0.96, got, 1e-9)
}

func TestMultiplier_SectorRequiresDoubleObservationThreshold(t *testing.T) {
	s := NewStore("")
	s.profiles[sectorKey("Healthcare")] = &Profile{
		ObservationCount: 6, // below 2x minTickerObservations (10)
		KeywordAffinities: map[string]KeywordAffinity{
			"fda approval": {SuccessRate: 0.8, AvgReturnPct: 10, Occurrences: 5},
		},
	}
	got := s.Multiplier("NEWTICKER", []string{"fda approval"}, "Healthcare")
	assert.Equal(t, defaultAffinity, got)
}

func TestRebuildFromOutcomes_PersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ticker_profiles.json")
	s := NewStore(path)

	var obs []Observation
	for i := 0; i < 6; i++ {
		obs = append(obs, Observation{
			Ticker: "ABCD", Sector: "Healthcare",
			Keywords: []string{"fda approval"}, MaxReturnPct: 15, Success: true,
		})
	}
	s.RebuildFromOutcomes(obs)

	reloaded := NewStore(path)
	got := reloaded.Multiplier("ABCD", []string{"fda approval"}, "")
	require.Greater(t, got, 1.0)
}
