package common

import "encoding/json"

// SourceID identifies one contributor to the unified risk score.
type SourceID string

const (
	SourceBlacklist        SourceID = "blacklist"
	SourcePhishTank        SourceID = "phishtank"
	SourceSafeBrowsing     SourceID = "safe_browsing"
	SourceVirusTotal       SourceID = "virustotal"
	SourceURLHeuristic     SourceID = "url_heuristic"
	SourceContentHeuristic SourceID = "content_heuristic"
)

// Severity buckets the unified score into coarse tiers.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "none"
	}
}

// MarshalJSON renders severities as their string names in API responses.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the string names produced by MarshalJSON.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "low":
		*s = SeverityLow
	case "medium":
		*s = SeverityMedium
	case "high":
		*s = SeverityHigh
	default:
		*s = SeverityNone
	}
	return nil
}

// ErrorKind classifies a source failure. The empty string means no error.
// Errors never inflate risk: a result carrying an ErrorKind contributes a
// zero score.
type ErrorKind string

const (
	ErrNone                ErrorKind = ""
	ErrNotConfigured       ErrorKind = "not_configured"
	ErrProviderUnavailable ErrorKind = "provider_unavailable"
	ErrProviderRejected    ErrorKind = "provider_rejected"
	ErrInvalidInput        ErrorKind = "invalid_input"
	ErrStorageFailure      ErrorKind = "storage_failure"
)

// Level is the visual tier of a warning overlay.
type Level string

const (
	LevelYellow Level = "yellow"
	LevelOrange Level = "orange"
	LevelRed    Level = "red"
)

func (l Level) rank() int {
	switch l {
	case LevelRed:
		return 3
	case LevelOrange:
		return 2
	case LevelYellow:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether l is at least as severe as other.
func (l Level) AtLeast(other Level) bool { return l.rank() >= other.rank() }

// LevelForSeverity maps severity tiers onto visual levels. SeverityNone has
// no level; callers must not warn on it.
func LevelForSeverity(s Severity) Level {
	switch s {
	case SeverityHigh:
		return LevelRed
	case SeverityMedium:
		return LevelOrange
	default:
		return LevelYellow
	}
}
