package moa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText_StripsPunctuationAndPossessives(t *testing.T) {
	got := normalizeText("Pfizer's FDA-Approval Announced!")
	assert.Equal(t, "pfizer fda approval announced", got)
}

func TestExtractNgrams_FiltersStopWordBoundaries(t *testing.T) {
	ngrams := extractNgrams("the company announces a merger deal", 2)
	for _, ng := range ngrams {
		assert.NotEqual(t, "the company", ng)
	}
}

func TestIsValidNgram_RejectsPureNumericUnigram(t *testing.T) {
	assert.False(t, isValidNgram("2024", []string{"2024"}))
	assert.True(t, isValidNgram("merger", []string{"merger"}))
}

func TestIsValidNgram_RejectsNonCatalystPhrase(t *testing.T) {
	assert.False(t, isValidNgram("press release", []string{"press", "release"}))
}

func TestCalculatePhraseScore_InfiniteLiftProxy(t *testing.T) {
	score := calculatePhraseScore(5, 0, 10, 10)
	assert.Equal(t, 10.0, score)
}

func TestCalculatePhraseScore_ZeroWhenAbsentEverywhere(t *testing.T) {
	score := calculatePhraseScore(0, 0, 10, 10)
	assert.Equal(t, 0.0, score)
}

func TestCalculatePhraseScore_StandardLiftRatio(t *testing.T) {
	// positive_rate = 0.5, negative_rate = 0.1 -> lift = 5.0
	score := calculatePhraseScore(5, 1, 10, 10)
	assert.InDelta(t, 5.0, score, 1e-9)
}

func TestMineDiscriminativeKeywords_KeepsOnlyHighLiftPhrases(t *testing.T) {
	positive := []string{
		"company announces regulatory approval for drug",
		"firm receives regulatory approval today",
		"startup secures regulatory approval from agency",
	}
	negative := []string{
		"company reports quarterly earnings results",
		"firm announces new product launch",
		"startup hires new chief executive",
	}

	found := mineDiscriminativeKeywords(positive, negative, 2, 2.0, 4)
	var phrases []string
	for _, f := range found {
		phrases = append(phrases, f.Phrase)
	}
	assert.Contains(t, phrases, "regulatory approval")
}

func TestMineDiscriminativeKeywords_EmptyWithoutBothSets(t *testing.T) {
	assert.Empty(t, mineDiscriminativeKeywords(nil, []string{"x"}, 1, 2.0, 4))
	assert.Empty(t, mineDiscriminativeKeywords([]string{"x"}, nil, 1, 2.0, 4))
}

func TestMineDiscriminativeKeywords_TieBreaksByPositiveCountThenLexicographic(t *testing.T) {
	positive := []string{"alpha beta", "alpha beta", "gamma delta", "gamma delta", "gamma delta"}
	negative := []string{"unrelated phrase here"}

	found := mineDiscriminativeKeywords(positive, negative, 2, 0.0, 2)
	require := assert.New(t)
	require.True(len(found) >= 2)
	// "gamma delta" has a higher positive count than "alpha beta" at equal lift.
	idxGamma, idxAlpha := -1, -1
	for i, f := range found {
		if f.Phrase == "gamma delta" {
			idxGamma = i
		}
		if f.Phrase == "alpha beta" {
			idxAlpha = i
		}
	}
	require.True(idxGamma >= 0 && idxAlpha >= 0)
	require.True(idxGamma < idxAlpha)
}
