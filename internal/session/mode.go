package session

import (
	"strings"

	"github.com/abhisek/examkit/internal/sampler"
)

// Mode selects how a session's question sequence is built and scored.
type Mode string

const (
	ModeTest         Mode = "test"
	ModeExam         Mode = "exam"
	ModeExamMix      Mode = "exam_mix"
	ModeExamTopic    Mode = "exam_topic"
	ModeTrainer      Mode = "trainer"
	ModeTrainerMix   Mode = "trainer_mix"
	ModeTrainerTopic Mode = "trainer_topic"
)

// Modes lists every supported mode in display order.
var Modes = []Mode{
	ModeTest, ModeExam, ModeExamMix, ModeExamTopic,
	ModeTrainer, ModeTrainerMix, ModeTrainerTopic,
}

const (
	// SessionLength is the number of questions in sampled sessions.
	SessionLength = sampler.PageSize

	// DefaultMaxMistakes ends scored sessions on the third mistake.
	DefaultMaxMistakes = 3

	// Unlimited is the mistake allowance of trainer sessions.
	Unlimited = 999999

	// ExamTimeLimitSec is the timer of every exam variant (40 minutes).
	ExamTimeLimitSec = 2400

	// DefaultTestTimeLimitSec applies when a test has no usable timer.
	DefaultTestTimeLimitSec = 1200
)

// Display labels stored in sessions and passed items.
const (
	TitleTest    = "Test"
	TitleExam    = "Exam"
	TitleTrainer = "Trainer"

	TopicControlExam = "Control exam"
	TopicMixedExam   = "Mixed exam"
	TopicMistakes    = "Mistakes review"
	TopicMix         = "Question mix"
)

// ParseMode resolves a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMode
	}
	return m, nil
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeTest, ModeExam, ModeExamMix, ModeExamTopic,
		ModeTrainer, ModeTrainerMix, ModeTrainerTopic:
		return true
	}
	return false
}

// TopicScoped reports whether m requires a topic.
func (m Mode) TopicScoped() bool {
	return m == ModeExamTopic || m == ModeTrainerTopic
}

func (m Mode) String() string { return string(m) }
