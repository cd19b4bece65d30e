package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRecords(t *testing.T, doc string) []json.RawMessage {
	t.Helper()
	var recs []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(doc), &recs))
	return recs
}

func TestBuildQuestions_DiscardsMalformed(t *testing.T) {
	recs := rawRecords(t, `[
		{"id": 1, "question": "Q1", "options": ["a", "b"], "correct": 2, "explain": "because", "image": "img/1.png"},
		{"id": "2", "question": "Q2", "options": ["a", "b", 3], "correct": "1"},
		{"id": 0, "question": "zero id", "options": ["a", "b"], "correct": 1},
		{"id": -4, "question": "negative", "options": ["a", "b"], "correct": 1},
		{"id": 5, "question": "   ", "options": ["a", "b"], "correct": 1},
		{"id": 6, "question": "one option", "options": ["a"], "correct": 1},
		{"id": 7, "question": "bad correct", "options": ["a", "b"], "correct": 3},
		{"id": 8, "question": "zero correct", "options": ["a", "b"], "correct": 0},
		{"id": 9, "question": "no correct", "options": ["a", "b"]},
		"not an object",
		{"id": 10, "question": "empty image", "options": ["a", "b"], "correct": 1, "image": ""}
	]`)

	qs, dropped := BuildQuestions(recs)

	assert.Equal(t, 8, dropped)
	require.Len(t, qs, 3)

	q1 := qs[1]
	assert.Equal(t, "Q1", q1.Prompt)
	assert.Equal(t, "because", q1.Explanation)
	assert.Equal(t, "img/1.png", q1.Image)
	assert.True(t, q1.IsCorrect(2))
	assert.False(t, q1.IsCorrect(1))

	q2 := qs[2]
	assert.Equal(t, []string{"a", "b", "3"}, q2.Options)
	assert.Equal(t, 1, q2.Correct)
	assert.Equal(t, "", q2.Explanation)
	assert.Empty(t, q2.Image)

	assert.Empty(t, qs[10].Image)
}

func TestParseDefinitions_Defaults(t *testing.T) {
	recs := rawRecords(t, `[
		{"id": 3, "title": "Test 3", "question_ids": [1, "2", 0]},
		{"id": 4, "title": "Theory", "topic": "Signs", "type": "definition", "time_limit_sec": 600},
		42
	]`)

	defs := ParseDefinitions(recs)
	require.Len(t, defs, 2)

	assert.Equal(t, TypeTest, defs[0].Type)
	assert.Equal(t, NoTopic, defs[0].Topic)
	assert.Equal(t, []int{1, 2, 0}, defs[0].QuestionIDs)

	assert.Equal(t, "definition", defs[1].Type)
	assert.Equal(t, 600, defs[1].TimeLimitSec)
	assert.False(t, defs[1].IsTest())
}

func TestTruncate(t *testing.T) {
	defs := []TopicDefinition{
		{ID: 1, Topic: "A"},
		{ID: 2, Topic: "B"},
		{ID: 3, Topic: "CUT"},
		{ID: 4, Topic: "CUT"},
		{ID: 5, Topic: "D"},
	}

	tests := []struct {
		name   string
		cutoff string
		want   []int
	}{
		{"cutoff inclusive", "CUT", []int{1, 2, 3}},
		{"cutoff first entry", "A", []int{1}},
		{"cutoff missing keeps all", "nope", []int{1, 2, 3, 4, 5}},
		{"empty cutoff keeps all", "", []int{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, d := range Truncate(defs, tt.cutoff) {
				got = append(got, d.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func testQuestions(ids ...int) map[int]Question {
	out := make(map[int]Question, len(ids))
	for _, id := range ids {
		out[id] = Question{ID: id, Prompt: "q", Options: []string{"a", "b"}, Correct: 1}
	}
	return out
}

func TestBuild_PoolsAndAllowList(t *testing.T) {
	questions := testQuestions(1, 2, 3, 4, 5, 6, 9)
	defs := []TopicDefinition{
		{ID: 10, Title: "T10", Topic: "Signs", Type: TypeTest, QuestionIDs: []int{3, 1, 3, 99}},
		{ID: 11, Title: "T11", Topic: "Signs", Type: TypeTest, QuestionIDs: []int{2}},
		{ID: 12, Title: "Glossary", Topic: "Terms", Type: "definition", QuestionIDs: []int{4, 5}},
		{ID: 13, Title: "T13", Topic: "Rules", Type: TypeTest, QuestionIDs: []int{6, -1}},
	}

	c := Build(questions, defs)

	assert.Equal(t, []string{"Signs", "Rules"}, c.Topics())

	signs, ok := c.Pool("Signs")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, signs)

	_, ok = c.Pool("Terms")
	assert.False(t, ok, "non-test entries do not build pools")

	assert.Equal(t, []int{1, 2, 3, 6}, c.AllIDs())
	assert.True(t, c.Allowed(6))
	assert.False(t, c.Allowed(4), "ids from non-test entries are out of scope")
	assert.False(t, c.Allowed(9), "ids not referenced by any test are out of scope")
	assert.False(t, c.Allowed(99), "ids missing from the question bank are out of scope")

	_, ok = c.Find(9)
	assert.False(t, ok)

	def, ok := c.Test(12)
	require.True(t, ok)
	assert.Equal(t, "Glossary", def.Title)

	assert.Equal(t, 10, c.FirstTestForTopic("Signs"))
	assert.Equal(t, 0, c.FirstTestForTopic("Terms"))
	assert.Equal(t, 4, c.Len())
}

func TestBuild_PoolsAreCopies(t *testing.T) {
	c := Build(testQuestions(1, 2), []TopicDefinition{
		{ID: 1, Topic: "A", Type: TypeTest, QuestionIDs: []int{1, 2}},
	})

	pool, _ := c.Pool("A")
	pool[0] = 100

	again, _ := c.Pool("A")
	assert.Equal(t, []int{1, 2}, again)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	qPath := writeFile(t, dir, "questions.json", append([]byte{0xEF, 0xBB, 0xBF}, []byte(`[
		{"id": 1, "question": "Q1", "options": ["a", "b"], "correct": 1},
		{"id": 2, "question": "Q2", "options": ["a", "b"], "correct": 2},
		{"id": 3, "question": "Q3", "options": ["a", "b"], "correct": 2}
	]`)...))
	tPath := writeFile(t, dir, "tests.json", []byte(`[
		{"id": 1, "title": "T1", "topic": "General", "type": "test", "question_ids": [1, 2]},
		{"id": 2, "title": "T2", "topic": "Extra", "type": "test", "question_ids": [3]}
	]`))

	c, err := Load(Source{QuestionsPath: qPath, TestsPath: tPath, CutoffTopic: "General"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, c.AllIDs())
	assert.Equal(t, []string{"General"}, c.Topics())
	_, ok := c.Test(2)
	assert.False(t, ok, "definitions after the cutoff are discarded")
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", []byte(`[]`))
	notArray := writeFile(t, dir, "object.json", []byte(`{"id": 1}`))
	broken := writeFile(t, dir, "broken.json", []byte(`[{"id": 1`))

	tests := []struct {
		name string
		src  Source
	}{
		{"missing questions file", Source{QuestionsPath: filepath.Join(dir, "nope.json"), TestsPath: good}},
		{"missing tests file", Source{QuestionsPath: good, TestsPath: filepath.Join(dir, "nope.json")}},
		{"not an array", Source{QuestionsPath: notArray, TestsPath: good}},
		{"broken JSON", Source{QuestionsPath: good, TestsPath: broken}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.src, nil)
			require.Error(t, err)
		})
	}
}
