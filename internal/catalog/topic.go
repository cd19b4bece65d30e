package catalog

import (
	"encoding/json"
)

// TypeTest marks a definition as a scoring test entry. Only these entries
// contribute to the allow-list and topic pools.
const TypeTest = "test"

// NoTopic is the label used for definitions without a topic.
const NoTopic = "(no topic)"

// TopicDefinition is one entry of the tests export, in file order.
type TopicDefinition struct {
	ID           int    `json:"id"`
	Title        string `json:"title"`
	Topic        string `json:"topic"`
	Type         string `json:"type"`
	QuestionIDs  []int  `json:"question_ids"`
	TimeLimitSec int    `json:"time_limit_sec"`
}

// IsTest reports whether the definition is a scoring test entry.
func (d TopicDefinition) IsTest() bool {
	return d.Type == TypeTest
}

type rawDefinition struct {
	ID           json.RawMessage   `json:"id"`
	Title        json.RawMessage   `json:"title"`
	Topic        json.RawMessage   `json:"topic"`
	Type         json.RawMessage   `json:"type"`
	QuestionIDs  []json.RawMessage `json:"question_ids"`
	TimeLimitSec json.RawMessage   `json:"time_limit_sec"`
}

// ParseDefinitions decodes raw tests-export records, preserving order.
// Records that are not JSON objects are skipped; missing fields take their
// defaults (type "test", topic NoTopic).
func ParseDefinitions(records []json.RawMessage) []TopicDefinition {
	defs := make([]TopicDefinition, 0, len(records))
	for _, rec := range records {
		if !conforms(DefinitionRecordSchema, rec) {
			continue
		}
		var raw rawDefinition
		if err := json.Unmarshal(rec, &raw); err != nil {
			continue
		}
		d := TopicDefinition{Type: TypeTest, Topic: NoTopic}
		if id, ok := intValue(raw.ID); ok {
			d.ID = id
		}
		if s, ok := stringValue(raw.Title); ok {
			d.Title = s
		}
		if s, ok := stringValue(raw.Topic); ok {
			d.Topic = s
		}
		if s, ok := stringValue(raw.Type); ok {
			d.Type = s
		}
		if n, ok := intValue(raw.TimeLimitSec); ok {
			d.TimeLimitSec = n
		}
		for _, q := range raw.QuestionIDs {
			if id, ok := intValue(q); ok {
				d.QuestionIDs = append(d.QuestionIDs, id)
			}
		}
		defs = append(defs, d)
	}
	return defs
}

// Truncate keeps definitions up to and including the first one whose topic
// equals cutoff. When cutoff is empty or never appears, all definitions are
// kept.
func Truncate(defs []TopicDefinition, cutoff string) []TopicDefinition {
	if cutoff == "" {
		return defs
	}
	for i, d := range defs {
		if d.Topic == cutoff {
			return defs[:i+1]
		}
	}
	return defs
}
