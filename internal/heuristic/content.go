package heuristic

import (
	"regexp"
	"strings"

	"github.com/willf/bloom"

	"pagesentry/internal/common"
)

// MinContentLength is the minimum page-text length for a reliable scan.
// Shorter inputs are skipped with a zero score.
const MinContentLength = 100

// perCategoryCap limits how many matches a single category counts, so one
// repeated phrase cannot dominate the score.
const perCategoryCap = 3

// Content pattern categories.
const (
	CategoryUrgency             = "urgency"
	CategoryPrizeWinning        = "prize_winning"
	CategoryAccountVerification = "account_verification"
	CategoryAuthority           = "authority_impersonation"
	CategoryScareTactics        = "scare_tactics"
	CategoryInvestmentScam      = "investment_scam"
)

type contentCategory struct {
	name     string
	weight   float64
	patterns []*regexp.Regexp
	// triggers seed the bloom pre-screen: every pattern must be
	// unreachable without at least one of these tokens in the text.
	triggers []string
}

var contentCategories = []contentCategory{
	{
		name:   CategoryUrgency,
		weight: 0.20,
		patterns: compileAll(
			`\burgent(ly)?\b`,
			`\bimmediately\b`,
			`\bact now\b`,
			`\bwithin \d+ (hours?|minutes?)\b`,
			`\bfinal (notice|warning)\b`,
			`\bexpires? (today|soon)\b`,
		),
		triggers: []string{"urgent", "urgently", "immediately", "now", "within", "final", "expires", "expire"},
	},
	{
		name:   CategoryPrizeWinning,
		weight: 0.20,
		patterns: compileAll(
			`\byou('ve| have)? won\b`,
			`\bclaim your (prize|reward|gift)\b`,
			`\blottery\b`,
			`\bjackpot\b`,
			`congratulations.{0,40}(winner|won|selected)`,
			`\bfree (gift|iphone|money|vacation)\b`,
		),
		triggers: []string{"won", "prize", "reward", "gift", "lottery", "jackpot", "congratulations", "free"},
	},
	{
		name:   CategoryAccountVerification,
		weight: 0.25,
		patterns: compileAll(
			`\bverify your (account|identity|information)\b`,
			`\bconfirm your (account|identity|password|details)\b`,
			`\baccount.{0,30}(suspended|locked|disabled|restricted)\b`,
			`\bwill be (suspended|closed|terminated|deactivated)\b`,
			`\bre-?activate your account\b`,
			`\bunusual (sign-?in|login|activity)\b`,
		),
		triggers: []string{"verify", "confirm", "account", "suspended", "locked", "disabled", "restricted", "terminated", "deactivated", "reactivate", "unusual"},
	},
	{
		name:   CategoryAuthority,
		weight: 0.15,
		patterns: compileAll(
			`\b(irs|hmrc|fbi|interpol|europol)\b`,
			`\b(microsoft|apple|google|amazon|paypal|netflix) (support|security|team|billing)\b`,
			`\btechnical support\b`,
			`\bsecurity department\b`,
			`\bofficial (notice|notification)\b`,
		),
		triggers: []string{"irs", "hmrc", "fbi", "interpol", "europol", "support", "security", "team", "billing", "official"},
	},
	{
		name:   CategoryScareTactics,
		weight: 0.15,
		patterns: compileAll(
			`\byour (computer|device|pc) (is|has been) infected\b`,
			`\bvirus(es)? detected\b`,
			`\bmalware\b`,
			`\blegal action\b`,
			`\barrest warrant\b`,
			`\b(account|data|identity).{0,30}compromised\b`,
		),
		triggers: []string{"infected", "virus", "viruses", "malware", "legal", "arrest", "compromised"},
	},
	{
		name:   CategoryInvestmentScam,
		weight: 0.15,
		patterns: compileAll(
			`\bguaranteed (returns?|profits?|income)\b`,
			`\bdouble your (money|investment|bitcoin|crypto)\b`,
			`\brisk-?free investment\b`,
			`\bpassive income\b`,
			`\b(crypto|bitcoin).{0,30}giveaway\b`,
			`\btrading (signals|robot|bot)\b`,
		),
		triggers: []string{"guaranteed", "double", "investment", "income", "crypto", "bitcoin", "giveaway", "trading"},
	},
}

// triggerFilter answers "might this text match any pattern at all" from a
// single tokenization pass, skipping the full regexp scan for clean pages.
var triggerFilter = buildTriggerFilter()

func buildTriggerFilter() *bloom.BloomFilter {
	bf := bloom.New(4096, 5)
	for _, cat := range contentCategories {
		for _, tok := range cat.triggers {
			bf.Add([]byte(tok))
		}
	}
	return bf
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// ContentReport is the outcome of one page-text analysis pass. Matches are
// keyed by category name for explainability.
type ContentReport struct {
	Score     float64             `json:"score"`
	Matches   map[string][]string `json:"matches,omitempty"`
	ErrorKind common.ErrorKind    `json:"error_kind,omitempty"`
}

// AnalyzeContent scans page text against the categorized pattern groups and
// combines capped per-category scores into one clamped [0,1] value.
func AnalyzeContent(text string) ContentReport {
	if len(text) < MinContentLength {
		return ContentReport{ErrorKind: common.ErrInvalidInput}
	}

	if !mightMatch(text) {
		return ContentReport{}
	}

	var score float64
	matches := make(map[string][]string)
	for _, cat := range contentCategories {
		var hits []string
		for _, re := range cat.patterns {
			found := re.FindAllString(text, perCategoryCap)
			hits = append(hits, found...)
		}
		if len(hits) == 0 {
			continue
		}
		count := len(hits)
		if count > perCategoryCap {
			count = perCategoryCap
		}
		score += cat.weight * float64(count) / perCategoryCap
		matches[cat.name] = hits
	}

	if len(matches) == 0 {
		return ContentReport{}
	}
	return ContentReport{Score: clamp01(score), Matches: matches}
}

func mightMatch(text string) bool {
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if triggerFilter.Test([]byte(word)) {
			return true
		}
	}
	return false
}
