package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/codearena/arena/pkg/models"
)

// Action extraction order: whole reply as JSON, then a ```json fence, then
// the first balanced JSON object containing an "action" key, then per-action
// regex patterns over free text.
var (
	fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

	viewProblemRe  = regexp.MustCompile(`(?i)view[_\s]problem[:\s]+([\w-]+)`)
	getHintRe      = regexp.MustCompile(`(?i)get[_\s]hint[:\s]+level[:\s]*(\d)`)
	viewRankingsRe = regexp.MustCompile(`(?i)view[_\s]rankings`)
	viewStatusRe   = regexp.MustCompile(`(?i)view[_\s]status`)
	terminateRe    = regexp.MustCompile(`(?i)\bterminate\b`)
)

// ParseAction extracts an agent action from an LLM reply.
func ParseAction(text string) (*models.Action, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	if action, ok := tryJSON(text); ok {
		return action, nil
	}

	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if action, ok := tryJSON(m[1]); ok {
			return action, nil
		}
	}

	if obj := firstJSONObject(text); obj != "" {
		if action, ok := tryJSON(obj); ok {
			return action, nil
		}
	}

	return tryPatterns(text)
}

// tryJSON parses candidate as an Action and validates the type.
func tryJSON(candidate string) (*models.Action, bool) {
	var action models.Action
	if err := json.Unmarshal([]byte(candidate), &action); err != nil {
		return nil, false
	}
	if !models.ValidActionType(action.Type) {
		return nil, false
	}
	return &action, true
}

// firstJSONObject scans for the first balanced {...} span mentioning
// "action". Braces inside JSON strings are respected.
func firstJSONObject(text string) string {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			ch := text[i]
			if escaped {
				escaped = false
				continue
			}
			switch ch {
			case '\\':
				escaped = inString
			case '"':
				inString = !inString
			case '{':
				if !inString {
					depth++
				}
			case '}':
				if !inString {
					depth--
					if depth == 0 {
						span := text[start : i+1]
						if strings.Contains(span, `"action"`) {
							return span
						}
						start = i
						i = len(text)
					}
				}
			}
		}
	}
	return ""
}

// tryPatterns is the last-resort regex fallback for free-text replies.
// submit_solution is deliberately absent: code cannot be reliably extracted
// without JSON structure.
func tryPatterns(text string) (*models.Action, error) {
	if m := viewProblemRe.FindStringSubmatch(text); m != nil {
		return &models.Action{Type: models.ActionViewProblem, ProblemID: m[1]}, nil
	}
	if m := getHintRe.FindStringSubmatch(text); m != nil {
		level, _ := strconv.Atoi(m[1])
		return &models.Action{Type: models.ActionGetHint, HintLevel: level}, nil
	}
	if viewRankingsRe.MatchString(text) {
		return &models.Action{Type: models.ActionViewRankings}, nil
	}
	if viewStatusRe.MatchString(text) {
		return &models.Action{Type: models.ActionViewStatus}, nil
	}
	if terminateRe.MatchString(text) {
		return &models.Action{Type: models.ActionTerminate}, nil
	}
	return nil, fmt.Errorf("no recognizable action in response")
}
