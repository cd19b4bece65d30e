package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Question is a single multiple-choice item from the question bank.
type Question struct {
	ID          int      `json:"id"`
	Prompt      string   `json:"question"`
	Options     []string `json:"options"`
	Correct     int      `json:"correct"` // 1-based index into Options
	Explanation string   `json:"explain"`
	Image       string   `json:"image,omitempty"` // "" means no image
}

// IsCorrect reports whether the 1-based choice matches the correct option.
func (q Question) IsCorrect(choice int) bool {
	return choice == q.Correct
}

// rawQuestion mirrors a record of the questions export. Fields are kept loose
// so that malformed records can be discarded instead of failing the load.
type rawQuestion struct {
	ID      json.RawMessage   `json:"id"`
	Prompt  json.RawMessage   `json:"question"`
	Options []json.RawMessage `json:"options"`
	Correct json.RawMessage   `json:"correct"`
	Explain json.RawMessage   `json:"explain"`
	Image   json.RawMessage   `json:"image"`
}

// BuildQuestions converts raw export records into an id-keyed map, keeping
// only well-formed questions. It returns the map and the number of records
// that were discarded.
func BuildQuestions(records []json.RawMessage) (map[int]Question, int) {
	out := make(map[int]Question, len(records))
	dropped := 0
	for _, rec := range records {
		q, ok := parseQuestion(rec)
		if !ok {
			dropped++
			continue
		}
		out[q.ID] = q
	}
	return out, dropped
}

func parseQuestion(rec json.RawMessage) (Question, bool) {
	if !conforms(QuestionRecordSchema, rec) {
		return Question{}, false
	}
	var raw rawQuestion
	if err := json.Unmarshal(rec, &raw); err != nil {
		return Question{}, false
	}

	id, ok := intValue(raw.ID)
	if !ok || id <= 0 {
		return Question{}, false
	}

	prompt, ok := stringValue(raw.Prompt)
	if !ok || strings.TrimSpace(prompt) == "" {
		return Question{}, false
	}

	if len(raw.Options) < 2 {
		return Question{}, false
	}
	opts := make([]string, 0, len(raw.Options))
	for _, o := range raw.Options {
		opts = append(opts, stringify(o))
	}

	correct, ok := intValue(raw.Correct)
	if !ok || correct < 1 || correct > len(opts) {
		return Question{}, false
	}

	explain, ok := stringValue(raw.Explain)
	if !ok {
		explain = ""
	}
	image, ok := stringValue(raw.Image)
	if !ok {
		image = ""
	}

	return Question{
		ID:          id,
		Prompt:      prompt,
		Options:     opts,
		Correct:     correct,
		Explanation: explain,
		Image:       image,
	}, true
}

// intValue accepts JSON numbers and numeric strings, the way the exports
// were produced historically.
func intValue(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(math.Trunc(f)), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func stringValue(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// stringify renders any JSON scalar as option text.
func stringify(raw json.RawMessage) string {
	if s, ok := stringValue(raw); ok {
		return s
	}
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
