package app

import (
	"fmt"
	"time"

	"github.com/abhisek/examkit/internal/catalog"
	"github.com/abhisek/examkit/internal/session"
)

// QuestionView is a question as shown to the learner. The correct option
// and explanation are only filled in once the question is answered.
type QuestionView struct {
	ID          int      `json:"id"`
	Prompt      string   `json:"question"`
	Options     []string `json:"options"`
	Image       string   `json:"image,omitempty"`
	Correct     int      `json:"correct,omitempty"`
	Explanation string   `json:"explain,omitempty"`
}

// Counts summarizes session progress.
type Counts struct {
	Index       int `json:"index"` // 1-based position of the cursor
	Total       int `json:"total"`
	Answered    int `json:"answered"`
	Mistakes    int `json:"mistakes"`
	MaxMistakes int `json:"max_mistakes"`
}

// View is the state returned by every controller action.
type View struct {
	Session  *session.QuizSession  `json:"session"`
	Question *QuestionView         `json:"question,omitempty"`
	Answer   *session.AnswerRecord `json:"answer,omitempty"`
	Counts   Counts                `json:"counts"`
	TimeLeft string                `json:"time_left,omitempty"` // m:ss, empty when untimed
	Result   *session.Result       `json:"result,omitempty"`
}

// TopicInfo describes one topic pool.
type TopicInfo struct {
	Topic       string `json:"topic"`
	Questions   int    `json:"questions"`
	Parts       int    `json:"parts"`
	FirstTestID int    `json:"first_test_id,omitempty"`
	TheoryDone  bool   `json:"theory_done,omitempty"`
	TestPassed  bool   `json:"test_passed,omitempty"`
}

func newQuestionView(q catalog.Question, answered bool) *QuestionView {
	v := &QuestionView{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: q.Options,
		Image:   q.Image,
	}
	if answered {
		v.Correct = q.Correct
		v.Explanation = q.Explanation
	}
	return v
}

// FormatTimeLeft renders d as m:ss.
func FormatTimeLeft(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
