// Package heuristic implements the local scoring engines: a URL feature
// extractor and a page-text pattern scanner. Both are pure functions with no
// network or storage access, and both report invalid input as a zero-score
// result instead of an error.
package heuristic

import (
	"net"
	"net/url"
	"strings"

	"pagesentry/internal/common"
)

// URL feature names, reported as contributing factors.
const (
	FactorIPAsHostname    = "ipAsHostname"
	FactorAtInAuthority   = "atInAuthority"
	FactorLongHostname    = "longHostname"
	FactorDeepSubdomains  = "deepSubdomains"
	FactorDeepPath        = "deepPath"
	FactorManyHyphens     = "manyHyphens"
	FactorRiskyTLD        = "riskyTLD"
	FactorSuspiciousFile  = "suspiciousFileExtension"
	FactorFreeHosting     = "freeHostingPlatform"
	FactorSuspiciousWords = "suspiciousKeywords"
)

// Additive feature weights. Hand-tuned constants, not learned.
const (
	weightIPAsHostname   = 0.30
	weightAtInAuthority  = 0.25
	weightLongHostname   = 0.10
	weightDeepSubdomains = 0.10
	weightDeepPath       = 0.05
	weightManyHyphens    = 0.10
	weightRiskyTLD       = 0.15
	weightSuspiciousFile = 0.15
	weightFreeHosting    = 0.10

	// Keyword contribution scales mildly with the count of distinct
	// keywords found anywhere in the URL string, capped.
	weightKeywordBase = 0.15
	weightKeywordStep = 0.06
	weightKeywordCap  = 0.33

	longHostnameChars   = 25
	deepSubdomainLabels = 4
	deepPathSegments    = 5
	manyHyphenCount     = 3
)

// suspiciousURLKeywords is the fixed keyword list scanned against the full
// URL string. Distinct from the user-managed page keyword lists.
var suspiciousURLKeywords = []string{
	"login", "signin", "verify", "account", "secure", "update",
	"confirm", "banking", "password", "wallet", "invoice", "bonus",
	"winner", "free", "paypal",
}

var riskyTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"xyz": true, "top": true, "buzz": true, "click": true,
	"work": true, "loan": true, "zip": true,
}

var suspiciousExtensions = []string{".exe", ".scr", ".apk", ".bat", ".cmd", ".msi", ".jar"}

var freeHostingPlatforms = []string{
	"000webhostapp.com", "weebly.com", "wixsite.com", "blogspot.",
	"webnode.", "yolasite.com", "neocities.org",
}

// URLReport is the outcome of one URL analysis pass.
type URLReport struct {
	Score     float64          `json:"score"`
	Factors   []string         `json:"factors,omitempty"`
	Keywords  []string         `json:"keywords,omitempty"`
	ErrorKind common.ErrorKind `json:"error_kind,omitempty"`
}

// AnalyzeURL extracts lexical risk features from a URL and combines them
// into an additive score clamped to [0,1]. Deterministic: the same URL
// always yields the same score and factor list.
func AnalyzeURL(rawURL string) URLReport {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return URLReport{ErrorKind: common.ErrInvalidInput}
	}

	host := strings.ToLower(u.Hostname())
	var score float64
	var factors []string

	addFactor := func(name string, weight float64) {
		score += weight
		factors = append(factors, name)
	}

	if net.ParseIP(host) != nil {
		addFactor(FactorIPAsHostname, weightIPAsHostname)
	}
	if u.User != nil {
		addFactor(FactorAtInAuthority, weightAtInAuthority)
	}
	if len(host) > longHostnameChars {
		addFactor(FactorLongHostname, weightLongHostname)
	}
	if net.ParseIP(host) == nil && strings.Count(host, ".")+1 >= deepSubdomainLabels {
		addFactor(FactorDeepSubdomains, weightDeepSubdomains)
	}
	if pathDepth(u.EscapedPath()) >= deepPathSegments {
		addFactor(FactorDeepPath, weightDeepPath)
	}
	if strings.Count(host, "-") >= manyHyphenCount {
		addFactor(FactorManyHyphens, weightManyHyphens)
	}
	if tld := host[strings.LastIndex(host, ".")+1:]; riskyTLDs[tld] {
		addFactor(FactorRiskyTLD, weightRiskyTLD)
	}
	lowerPath := strings.ToLower(u.EscapedPath())
	for _, ext := range suspiciousExtensions {
		if strings.HasSuffix(lowerPath, ext) {
			addFactor(FactorSuspiciousFile, weightSuspiciousFile)
			break
		}
	}
	for _, platform := range freeHostingPlatforms {
		if strings.Contains(host, platform) {
			addFactor(FactorFreeHosting, weightFreeHosting)
			break
		}
	}

	keywords := keywordHits(strings.ToLower(rawURL))
	if n := len(keywords); n > 0 {
		contribution := weightKeywordBase + weightKeywordStep*float64(n-1)
		if contribution > weightKeywordCap {
			contribution = weightKeywordCap
		}
		addFactor(FactorSuspiciousWords, contribution)
	}

	return URLReport{Score: clamp01(score), Factors: factors, Keywords: keywords}
}

func keywordHits(lowerURL string) []string {
	var hits []string
	for _, kw := range suspiciousURLKeywords {
		if strings.Contains(lowerURL, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

func pathDepth(path string) int {
	depth := 0
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
