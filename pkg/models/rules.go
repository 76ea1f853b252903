package models

// Rules is the per-competition rule set: base scores, penalties, token costs,
// and token multipliers. Stored as JSON on the competition row.
type Rules struct {
	// Scoring maps difficulty level → base points for an AC submission.
	Scoring map[Level]int `json:"scoring"`

	// BonusForFirstAC is added to the pass score of the first participant
	// to achieve AC on a problem.
	BonusForFirstAC int `json:"bonus_for_first_ac"`

	// Penalties maps verdict → points subtracted per submission. AC is
	// typically 0.
	Penalties map[Verdict]int `json:"penalties"`

	// SubmissionTokens maps verdict → tokens debited per submission.
	SubmissionTokens map[Verdict]int `json:"submission_tokens"`

	// HintTokens maps hint level key ("level_0" … "level_4") → token cost.
	HintTokens map[string]int `json:"hint_tokens"`

	// Lambda is the default weight for the unused-token bonus; participants
	// may override it at registration.
	Lambda int `json:"lambda"`

	// InputTokenMultipliers and OutputTokenMultipliers map model ID → the
	// multiplier applied to real provider tokens before debiting. Missing
	// models default to 1.
	InputTokenMultipliers  map[string]float64 `json:"input_token_multipliers"`
	OutputTokenMultipliers map[string]float64 `json:"output_token_multipliers"`
}

// BaseScore returns the base points for an AC submission at the given level.
func (r *Rules) BaseScore(level Level) int {
	return r.Scoring[level]
}

// Penalty returns the points subtracted for a submission with the given verdict.
func (r *Rules) Penalty(v Verdict) int {
	return r.Penalties[v]
}

// SubmissionCost returns the tokens debited for a submission with the given verdict.
func (r *Rules) SubmissionCost(v Verdict) int {
	return r.SubmissionTokens[v]
}

// HintCost returns the token cost of a hint level, or 0 if unconfigured.
func (r *Rules) HintCost(level int) int {
	return r.HintTokens[HintLevelKey(level)]
}

// InputMultiplier returns the input-token multiplier for a model, defaulting to 1.
func (r *Rules) InputMultiplier(model string) float64 {
	if m, ok := r.InputTokenMultipliers[model]; ok {
		return m
	}
	return 1
}

// OutputMultiplier returns the output-token multiplier for a model, defaulting to 1.
func (r *Rules) OutputMultiplier(model string) float64 {
	if m, ok := r.OutputTokenMultipliers[model]; ok {
		return m
	}
	return 1
}

// DefaultRules returns a rule set with conventional contest values. Used when
// a create-competition request omits rules.
func DefaultRules() *Rules {
	return &Rules{
		Scoring: map[Level]int{
			LevelBronze:   100,
			LevelSilver:   200,
			LevelGold:     300,
			LevelPlatinum: 500,
		},
		BonusForFirstAC: 100,
		Penalties: map[Verdict]int{
			VerdictAC:  0,
			VerdictWA:  10,
			VerdictRE:  10,
			VerdictCE:  10,
			VerdictTLE: 10,
			VerdictMLE: 10,
		},
		SubmissionTokens: map[Verdict]int{
			VerdictAC:  100,
			VerdictWA:  100,
			VerdictRE:  100,
			VerdictCE:  100,
			VerdictTLE: 100,
			VerdictMLE: 100,
		},
		HintTokens: map[string]int{
			"level_0": 500,
			"level_1": 1000,
			"level_2": 1000,
			"level_3": 1500,
			"level_4": 2000,
		},
		Lambda:                 100,
		InputTokenMultipliers:  map[string]float64{},
		OutputTokenMultipliers: map[string]float64{},
	}
}
