package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// AnswerRecord is the stored outcome of one answered index.
type AnswerRecord struct {
	QuestionID int       `json:"qid"`
	Choice     int       `json:"choice"`
	Correct    int       `json:"correct"`
	IsCorrect  bool      `json:"is_correct"`
	At         time.Time `json:"at"`
}

// Result is the outcome computed when a session finishes.
type Result struct {
	Passed       bool      `json:"passed"`
	Mistakes     int       `json:"mistakes"`
	Answered     int       `json:"answered"`
	Total        int       `json:"total"`
	ElapsedSec   int64     `json:"elapsed_sec"`
	TimeExceeded bool      `json:"time_exceeded"`
	WrongIDs     []int     `json:"wrong_ids,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}

// QuizSession is one learner's attempt. It is a plain value: the engine
// mutates it and the caller persists it.
type QuizSession struct {
	// AttemptID identifies the attempt when its result is written to progress.
	AttemptID string `json:"attempt_id"`

	Mode  Mode   `json:"mode"`
	Title string `json:"title"`
	Topic string `json:"topic"`

	// TestID is the source test for mode test, otherwise 0.
	TestID int `json:"test_id"`

	// TopicReq is the topic requested by the caller for topic-scoped modes.
	TopicReq string `json:"topic_req,omitempty"`

	// Part is the 1-based page of a paged topic exam, after clamping.
	Part int `json:"part"`

	QuestionIDs []int `json:"q_ids"`
	Total       int   `json:"total"`
	Cursor      int   `json:"idx"`

	// Answers maps a sequence index to its recorded answer.
	Answers map[int]AnswerRecord `json:"answers"`

	MaxMistakes  int       `json:"max_mistakes"`
	TimeLimitSec int       `json:"time_limit_sec"`
	StartedAt    time.Time `json:"started_at"`
	MistakesOnly bool      `json:"mistakes_only"`
	Seed         int64     `json:"seed"`

	Finished bool    `json:"finished"`
	Result   *Result `json:"result,omitempty"`
}

// Validate checks the structural invariants of a session.
func (s *QuizSession) Validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: nil session", ErrSessionInvalid)
	case !s.Mode.Valid():
		return fmt.Errorf("%w: mode %q", ErrSessionInvalid, s.Mode)
	case len(s.QuestionIDs) == 0:
		return fmt.Errorf("%w: empty question sequence", ErrSessionInvalid)
	case len(s.QuestionIDs) != s.Total:
		return fmt.Errorf("%w: total %d does not match %d ids", ErrSessionInvalid, s.Total, len(s.QuestionIDs))
	case s.Cursor < 0 || s.Cursor >= s.Total:
		return fmt.Errorf("%w: cursor %d out of range", ErrSessionInvalid, s.Cursor)
	case s.MaxMistakes <= 0:
		return fmt.Errorf("%w: max mistakes %d", ErrSessionInvalid, s.MaxMistakes)
	case s.TimeLimitSec < 0:
		return fmt.Errorf("%w: time limit %d", ErrSessionInvalid, s.TimeLimitSec)
	case s.StartedAt.IsZero():
		return fmt.Errorf("%w: missing start time", ErrSessionInvalid)
	case s.Finished && s.Result == nil:
		return fmt.Errorf("%w: finished without result", ErrSessionInvalid)
	}
	for idx, a := range s.Answers {
		if idx < 0 || idx >= s.Total {
			return fmt.Errorf("%w: answer index %d out of range", ErrSessionInvalid, idx)
		}
		if a.QuestionID != s.QuestionIDs[idx] {
			return fmt.Errorf("%w: answer %d is for question %d", ErrSessionInvalid, idx, a.QuestionID)
		}
	}
	return nil
}

// CurrentQuestionID returns the question id under the cursor.
func (s *QuizSession) CurrentQuestionID() int {
	return s.QuestionIDs[s.Cursor]
}

// CurrentAnswer returns the record for the cursor index, if answered.
func (s *QuizSession) CurrentAnswer() (AnswerRecord, bool) {
	a, ok := s.Answers[s.Cursor]
	return a, ok
}

// Answered returns the number of answered indices.
func (s *QuizSession) Answered() int {
	return len(s.Answers)
}

// Mistakes returns the number of incorrect answers.
func (s *QuizSession) Mistakes() int {
	n := 0
	for _, a := range s.Answers {
		if !a.IsCorrect {
			n++
		}
	}
	return n
}

// WrongIDs returns the sorted, unique ids of incorrectly answered questions.
func (s *QuizSession) WrongIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, a := range s.Answers {
		if a.IsCorrect || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		ids = append(ids, a.QuestionID)
	}
	sort.Ints(ids)
	return ids
}

// Elapsed returns whole seconds since the session started.
func (s *QuizSession) Elapsed(now time.Time) int64 {
	d := int64(now.Sub(s.StartedAt) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

// TimeExpired reports whether a timed session ran past its limit.
func (s *QuizSession) TimeExpired(now time.Time) bool {
	return s.TimeLimitSec > 0 && s.Elapsed(now) > int64(s.TimeLimitSec)
}

// TimeLeft returns the remaining time of a timed session, floored at zero.
// Untimed sessions report false.
func (s *QuizSession) TimeLeft(now time.Time) (time.Duration, bool) {
	if s.TimeLimitSec <= 0 {
		return 0, false
	}
	left := time.Duration(int64(s.TimeLimitSec)-s.Elapsed(now)) * time.Second
	if left < 0 {
		left = 0
	}
	return left, true
}

// DueForFinish reports whether an unfinished session must be finished.
func (s *QuizSession) DueForFinish(now time.Time) bool {
	if s.Finished {
		return false
	}
	return s.Mistakes() >= s.MaxMistakes || s.Answered() >= s.Total || s.TimeExpired(now)
}

// MistakeBucket returns the progress bucket that receives this session's
// wrong answers.
func (s *QuizSession) MistakeBucket() int {
	if s.Mode == ModeTest && s.TestID > 0 {
		return s.TestID
	}
	return 0
}

// Marshal encodes a session for storage.
func Marshal(s *QuizSession) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a stored session. Undecodable or inconsistent data
// yields ErrSessionInvalid.
func Unmarshal(data []byte) (*QuizSession, error) {
	var s QuizSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if s.Answers == nil {
		s.Answers = make(map[int]AnswerRecord)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
