package models

import "fmt"

// Verdict classifies a submission or a single test case.
type Verdict string

// Verdict constants. PENDING is the initial submission state; the judge
// sets the final verdict exactly once.
const (
	VerdictPending Verdict = "PENDING"
	VerdictAC      Verdict = "AC"
	VerdictWA      Verdict = "WA"
	VerdictRE      Verdict = "RE"
	VerdictCE      Verdict = "CE"
	VerdictTLE     Verdict = "TLE"
	VerdictMLE     Verdict = "MLE"
)

// Verdicts lists all final verdicts (PENDING excluded).
var Verdicts = []Verdict{VerdictAC, VerdictWA, VerdictRE, VerdictCE, VerdictTLE, VerdictMLE}

// ValidVerdict reports whether v is a known final verdict.
func ValidVerdict(v Verdict) bool {
	switch v {
	case VerdictAC, VerdictWA, VerdictRE, VerdictCE, VerdictTLE, VerdictMLE:
		return true
	}
	return false
}

// Level is a problem difficulty tier.
type Level string

// Problem difficulty levels.
const (
	LevelBronze   Level = "bronze"
	LevelSilver   Level = "silver"
	LevelGold     Level = "gold"
	LevelPlatinum Level = "platinum"
)

// ParseLevel returns the level for s; unknown levels default to bronze.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelBronze, LevelSilver, LevelGold, LevelPlatinum:
		return Level(s)
	}
	return LevelBronze
}

// GuideDifficulty extends Level with the "advanced" tier used by guide lookups.
func ValidGuideDifficulty(s string) bool {
	switch s {
	case "bronze", "silver", "gold", "platinum", "advanced":
		return true
	}
	return false
}

// TerminationReason records why a participant left the running state.
type TerminationReason string

// Termination reason vocabulary.
const (
	ReasonOutOfTokens          TerminationReason = "out_of_tokens"
	ReasonManualTermination    TerminationReason = "manual_termination"
	ReasonCompetitorTerminated TerminationReason = "competitor_terminated"
	ReasonAllProblemsSolved    TerminationReason = "all_problems_solved"
	ReasonError                TerminationReason = "error"
	ReasonTimeout              TerminationReason = "timeout"
)

// Language identifies a submission language supported by the sandbox.
type Language string

// Supported sandbox languages.
const (
	LanguageCPP    Language = "cpp"
	LanguagePy12   Language = "py12"
	LanguageJava21 Language = "java21"
)

// ValidLanguage reports whether l is supported by the sandbox.
func ValidLanguage(l Language) bool {
	switch l {
	case LanguageCPP, LanguagePy12, LanguageJava21:
		return true
	}
	return false
}

// HintLevelKey returns the rules key for a hint level ("level_0" … "level_4").
func HintLevelKey(level int) string {
	return fmt.Sprintf("level_%d", level)
}
