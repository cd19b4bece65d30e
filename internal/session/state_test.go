package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *QuizSession {
	return &QuizSession{
		AttemptID:    "a-1",
		Mode:         ModeExamTopic,
		Title:        TitleExam,
		Topic:        "Signs",
		TopicReq:     "Signs",
		Part:         2,
		QuestionIDs:  []int{4, 8, 15},
		Total:        3,
		Cursor:       1,
		Answers:      map[int]AnswerRecord{0: {QuestionID: 4, Choice: 2, Correct: 1}},
		MaxMistakes:  3,
		TimeLimitSec: ExamTimeLimitSec,
		StartedAt:    time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		Seed:         0,
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMode("Trainer_Topic")
	require.NoError(t, err)
	assert.Equal(t, ModeTrainerTopic, got)
	assert.True(t, got.TopicScoped())
	assert.False(t, ModeTrainer.TopicScoped())

	_, err = ParseMode("exam-mix")
	require.ErrorIs(t, err, ErrInvalidMode)
}

func TestMarshalRoundTrip(t *testing.T) {
	s := sampleSession()
	data, err := Marshal(s)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestUnmarshal_Corrupted(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"mode":`},
		{"empty object", `{}`},
		{"total mismatch", `{"mode":"exam","q_ids":[1,2],"total":3,"idx":0,"max_mistakes":3,"started_at":"2026-05-04T10:00:00Z"}`},
		{"cursor out of range", `{"mode":"exam","q_ids":[1],"total":1,"idx":1,"max_mistakes":3,"started_at":"2026-05-04T10:00:00Z"}`},
		{"unknown mode", `{"mode":"quiz","q_ids":[1],"total":1,"idx":0,"max_mistakes":3,"started_at":"2026-05-04T10:00:00Z"}`},
		{"answer out of range", `{"mode":"exam","q_ids":[1],"total":1,"idx":0,"max_mistakes":3,"started_at":"2026-05-04T10:00:00Z","answers":{"5":{"qid":1}}}`},
		{"finished without result", `{"mode":"exam","q_ids":[1],"total":1,"idx":0,"max_mistakes":3,"started_at":"2026-05-04T10:00:00Z","finished":true}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.data))
			require.ErrorIs(t, err, ErrSessionInvalid)
		})
	}
}

func TestSessionCounters(t *testing.T) {
	s := sampleSession()
	s.Answers[1] = AnswerRecord{QuestionID: 8, Choice: 1, Correct: 1, IsCorrect: true}
	s.Answers[2] = AnswerRecord{QuestionID: 15, Choice: 3, Correct: 1}

	assert.Equal(t, 3, s.Answered())
	assert.Equal(t, 2, s.Mistakes())
	assert.Equal(t, []int{4, 15}, s.WrongIDs())
	assert.Equal(t, 8, s.CurrentQuestionID())
	assert.True(t, s.DueForFinish(s.StartedAt))
	assert.Equal(t, 0, s.MistakeBucket())

	left, timed := s.TimeLeft(s.StartedAt.Add(90 * time.Second))
	assert.True(t, timed)
	assert.Equal(t, time.Duration(ExamTimeLimitSec-90)*time.Second, left)

	left, _ = s.TimeLeft(s.StartedAt.Add(time.Hour))
	assert.Zero(t, left)
}

func TestPassedItemKey(t *testing.T) {
	s := sampleSession()
	assert.Equal(t, "exam_topic|all|topic=Signs|topic_req=Signs|part=2|seed=0|testid=0", PassedItemKey(s))
	assert.Equal(t, "Exam — Signs", FullTitle(s))

	s.Mode = ModeTrainer
	s.MistakesOnly = true
	s.Seed = 777
	assert.Equal(t, "trainer|mistakes|topic=Signs|topic_req=Signs|part=2|seed=777|testid=0", PassedItemKey(s))

	s.Topic = ""
	assert.Equal(t, "Exam", FullTitle(s))
}

func TestEvaluate(t *testing.T) {
	s := sampleSession()
	s.Answers[1] = AnswerRecord{QuestionID: 8, Choice: 1, Correct: 1, IsCorrect: true}
	s.Answers[2] = AnswerRecord{QuestionID: 15, Choice: 1, Correct: 1, IsCorrect: true}

	r := Evaluate(s, s.StartedAt.Add(time.Duration(ExamTimeLimitSec)*time.Second))
	assert.True(t, r.Passed)
	assert.Equal(t, 1, r.Mistakes)
	assert.Equal(t, int64(ExamTimeLimitSec), r.ElapsedSec)

	r = Evaluate(s, s.StartedAt.Add(time.Duration(ExamTimeLimitSec+1)*time.Second))
	assert.False(t, r.Passed)
	assert.True(t, r.TimeExceeded)
}
