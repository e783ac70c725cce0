// Package tickerprofile implements §4.6: per-ticker (and per-sector
// fallback) keyword affinity multipliers, persisted as a JSON blob on disk,
// grounded on the teacher's store/strategy.go JSON-config convention and
// original_source/ticker_profiler.go's affinity math.
package tickerprofile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"catalystcore/types"
)

const (
	minTickerObservations = 5
	minSectorObservations = minTickerObservations * 2
	minKeywordOccurrences = 3
	defaultAffinity       = 1.0
	affinityFloor         = 0.5
	affinityCeil          = 2.5
)

// KeywordAffinity is the historical-outcome summary for one keyword within a
// ticker's or sector's profile.
type KeywordAffinity struct {
	SuccessRate  float64 `json:"success_rate"`
	AvgReturnPct float64 `json:"avg_return_pct"`
	Occurrences  int     `json:"occurrences"`
}

// Profile is a ticker's (or sector's, keyed "SECTOR_<NAME>") accumulated
// keyword affinity table.
type Profile struct {
	ObservationCount int                         `json:"observation_count"`
	KeywordAffinities map[string]KeywordAffinity `json:"keyword_affinities"`
	BaselineMultiplier float64                   `json:"baseline_multiplier"`
}

// Store loads/persists ticker and sector profiles and computes the §4.6
// affinity multiplier.
type Store struct {
	mu       sync.Mutex
	path     string
	profiles map[string]*Profile
}

// NewStore loads persisted profiles from path (a JSON file), creating an
// empty store if the file does not yet exist.
func NewStore(path string) *Store {
	s := &Store{path: path, profiles: make(map[string]*Profile)}
	s.load()
	return s
}

func (s *Store) load() {
	if s.path == "" {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var envelope struct {
		Profiles map[string]*Profile `json:"profiles"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Profiles != nil {
		s.profiles = envelope.Profiles
	}
}

func (s *Store) persist() {
	if s.path == "" {
		return
	}
	envelope := struct {
		ProfilesCount int                  `json:"profiles_count"`
		Profiles      map[string]*Profile  `json:"profiles"`
	}{ProfilesCount: len(s.profiles), Profiles: s.profiles}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(filepath.Dir(s.path), 0o755)
	_ = os.WriteFile(s.path, data, 0o644)
}

func sectorKey(sector string) string {
	return "SECTOR_" + strings.ToUpper(sector)
}

func affinityScore(successRate, avgReturnPct float64) float64 {
	score := successRate * (1.0 + avgReturnPct/50.0)
	return types.Clamp(score, affinityFloor, affinityCeil)
}

// Multiplier returns the §4.6 ticker multiplier for ticker given the
// matched keywords on a news item, falling back to the ticker's baseline,
// then the sector's profile (double the observation threshold), then 1.0.
func (s *Store) Multiplier(ticker string, keywords []string, sector string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[strings.ToUpper(ticker)]
	if ok && profile.ObservationCount >= minTickerObservations {
		if mult, matched := matchedMultiplier(profile, keywords); matched {
			return mult
		}
		if profile.BaselineMultiplier > 0 {
			return profile.BaselineMultiplier
		}
		return defaultAffinity
	}

	if sector != "" {
		if sp, ok := s.profiles[sectorKey(sector)]; ok && sp.ObservationCount >= minSectorObservations {
			if mult, matched := matchedMultiplier(sp, keywords); matched {
				return mult
			}
		}
	}

	return defaultAffinity
}

func matchedMultiplier(profile *Profile, keywords []string) (float64, bool) {
	var total float64
	var matched int
	for _, kw := range keywords {
		aff, ok := profile.KeywordAffinities[strings.ToLower(kw)]
		if !ok {
			continue
		}
		total += affinityScore(aff.SuccessRate, aff.AvgReturnPct)
		matched++
	}
	if matched == 0 {
		return 0, false
	}
	return total / float64(matched), true
}

// Observation is one historical outcome fed into RebuildFromOutcomes:
// the ticker/sector a catalyst fired on, the keywords it matched, and
// whether it ultimately succeeded.
type Observation struct {
	Ticker       string
	Sector       string
	Keywords     []string
	MaxReturnPct float64
	Success      bool
}

// RebuildFromOutcomes recomputes every ticker and sector profile from a
// fresh batch of observations, replacing whatever was previously persisted.
// Mirrors original_source/ticker_profiler.go's build_profiles_from_outcomes
// / build_sector_profiles, run as one pass instead of two.
func (s *Store) RebuildFromOutcomes(observations []Observation) {
	type counter struct {
		successes, failures int
		totalReturn         float64
	}
	type accum struct {
		observationCount int
		keywordOutcomes  map[string]*counter
	}

	tickerAccum := make(map[string]*accum)
	sectorAccum := make(map[string]*accum)

	addTo := func(table map[string]*accum, key string, obs Observation) {
		a, ok := table[key]
		if !ok {
			a = &accum{keywordOutcomes: make(map[string]*counter)}
			table[key] = a
		}
		a.observationCount++
		for _, kw := range obs.Keywords {
			kwLower := strings.ToLower(kw)
			c, ok := a.keywordOutcomes[kwLower]
			if !ok {
				c = &counter{}
				a.keywordOutcomes[kwLower] = c
			}
			c.totalReturn += obs.MaxReturnPct
			if obs.Success {
				c.successes++
			} else {
				c.failures++
			}
		}
	}

	for _, obs := range observations {
		if obs.Ticker == "" {
			continue
		}
		addTo(tickerAccum, strings.ToUpper(obs.Ticker), obs)
		if obs.Sector != "" {
			addTo(sectorAccum, sectorKey(obs.Sector), obs)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buildProfile := func(a *accum, minOccurrences int) *Profile {
		affinities := make(map[string]KeywordAffinity)
		var rates []float64
		for kw, c := range a.keywordOutcomes {
			total := c.successes + c.failures
			if total < minOccurrences {
				continue
			}
			successRate := float64(c.successes) / float64(total)
			avgReturn := c.totalReturn / float64(total)
			affinities[kw] = KeywordAffinity{SuccessRate: successRate, AvgReturnPct: avgReturn, Occurrences: total}
			rates = append(rates, successRate)
		}
		baseline := defaultAffinity
		if len(rates) > 0 {
			var sum float64
			for _, r := range rates {
				sum += r
			}
			baseline = sum / float64(len(rates))
		}
		return &Profile{ObservationCount: a.observationCount, KeywordAffinities: affinities, BaselineMultiplier: baseline}
	}

	for ticker, a := range tickerAccum {
		if a.observationCount < minTickerObservations {
			continue
		}
		s.profiles[ticker] = buildProfile(a, minKeywordOccurrences)
	}
	for sector, a := range sectorAccum {
		if a.observationCount < minSectorObservations {
			continue
		}
		profile := buildProfile(a, minKeywordOccurrences+2)
		profile.BaselineMultiplier = defaultAffinity
		s.profiles[sector] = profile
	}

	s.persist()
}
