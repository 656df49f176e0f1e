package heuristic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagesentry/internal/common"
)

// pad grows text past the minimum scan length without adding trigger words.
func pad(text string) string {
	return text + strings.Repeat(" lorem ipsum dolor sit amet", 6)
}

func TestAnalyzeContent_UrgencyAndVerification(t *testing.T) {
	rep := AnalyzeContent(pad("URGENT! verify your account now or it will be suspended"))

	require.Empty(t, rep.ErrorKind)
	assert.Greater(t, rep.Score, 0.0)
	assert.Contains(t, rep.Matches, CategoryUrgency)
	assert.Contains(t, rep.Matches, CategoryAccountVerification)
}

func TestAnalyzeContent_TooShortIsInvalidInput(t *testing.T) {
	rep := AnalyzeContent("URGENT! verify your account")
	assert.Equal(t, common.ErrInvalidInput, rep.ErrorKind)
	assert.Zero(t, rep.Score)
}

func TestAnalyzeContent_CleanTextScoresZero(t *testing.T) {
	rep := AnalyzeContent(pad("The quarterly report covers revenue, headcount and product milestones."))
	assert.Empty(t, rep.ErrorKind)
	assert.Zero(t, rep.Score)
	assert.Empty(t, rep.Matches)
}

func TestAnalyzeContent_RepeatedPhraseIsCapped(t *testing.T) {
	once := AnalyzeContent(pad("you have won a prize. " + strings.Repeat("filler text here. ", 5)))
	spammy := AnalyzeContent(pad(strings.Repeat("you have won a prize. ", 40)))

	require.Greater(t, once.Score, 0.0)
	require.Greater(t, spammy.Score, once.Score)
	// Even with 40 repetitions, the capped category cannot exceed its weight.
	assert.LessOrEqual(t, spammy.Score, 0.45, "one category must not dominate")
}

func TestAnalyzeContent_AllCategories(t *testing.T) {
	tests := []struct {
		category string
		text     string
	}{
		{CategoryUrgency, "please respond immediately, this expires today"},
		{CategoryPrizeWinning, "congratulations, you are the selected winner of our lottery"},
		{CategoryAccountVerification, "we noticed unusual activity, confirm your password"},
		{CategoryAuthority, "this is an official notice from the paypal security team"},
		{CategoryScareTactics, "your computer is infected, malware was found, avoid legal action"},
		{CategoryInvestmentScam, "guaranteed returns, double your bitcoin with passive income"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			rep := AnalyzeContent(pad(tt.text))
			assert.Contains(t, rep.Matches, tt.category)
			assert.Greater(t, rep.Score, 0.0)
		})
	}
}

func TestAnalyzeContent_ScoreBounds(t *testing.T) {
	kitchen := pad(`URGENT act now! you have won the lottery jackpot, claim your prize.
	verify your account immediately or it will be suspended. this is the FBI and
	microsoft support. your computer is infected, virus detected, malware, legal action.
	guaranteed returns, double your bitcoin, risk-free investment, crypto giveaway.`)
	rep := AnalyzeContent(kitchen)
	assert.Greater(t, rep.Score, 0.5)
	assert.LessOrEqual(t, rep.Score, 1.0)
}

func TestAnalyzeContent_Deterministic(t *testing.T) {
	text := pad("verify your account now, urgent, you have won a free iphone")
	first := AnalyzeContent(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, AnalyzeContent(text))
	}
}
