package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/examkit/internal/catalog"
	"github.com/abhisek/examkit/internal/progress"
	"github.com/abhisek/examkit/internal/sampler"
)

// Catalog is the read-only question bank the engine draws from.
type Catalog interface {
	Find(id int) (catalog.Question, bool)
	Allowed(id int) bool
	AllIDs() []int
	Pool(topic string) ([]int, bool)
	Test(id int) (catalog.TopicDefinition, bool)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// StartParams is a request to start a session. Fields other than Mode are
// used only by the modes that need them.
type StartParams struct {
	Mode         string `json:"mode"`
	TestID       int    `json:"test_id,omitempty"`
	Seed         int64  `json:"seed,omitempty"`
	MistakesOnly bool   `json:"mistakes_only,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Part         int    `json:"part,omitempty"`
}

// Engine builds and advances quiz sessions.
type Engine struct {
	catalog   Catalog
	progress  progress.Repo
	evaluator *Evaluator
	clock     Clock
	newID     func() string
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an Engine over cat. Finished sessions are written to
// repo; a nil repo disables progress tracking.
func NewEngine(cat Catalog, repo progress.Repo, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		progress: repo,
		clock:    SystemClock{},
		newID:    uuid.NewString,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if repo != nil {
		e.evaluator = NewEvaluator(repo)
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Now returns the engine's current time.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// plan is the mode-specific outcome of Start before filtering.
type plan struct {
	ids         []int
	title       string
	topic       string
	testID      int
	part        int
	seed        int64
	timeLimit   int
	maxMistakes int
	poolSize    int
	need        int
}

// Start builds a new session for userID.
func (e *Engine) Start(ctx context.Context, userID string, p StartParams) (*QuizSession, error) {
	mode, err := ParseMode(p.Mode)
	if err != nil {
		return nil, &StartError{Err: err, Params: p}
	}
	if mode.TopicScoped() && strings.TrimSpace(p.Topic) == "" {
		return nil, &StartError{Err: fmt.Errorf("%w: mode %s needs a topic", ErrSourceNotFound, mode), Params: p, Need: 1}
	}

	var pl plan
	switch mode {
	case ModeTest:
		pl, err = e.planTest(p)
	case ModeExam, ModeExamMix:
		pl, err = e.planExam(mode, p)
	case ModeExamTopic:
		pl, err = e.planExamTopic(p)
	case ModeTrainer, ModeTrainerMix:
		pl, err = e.planTrainer(ctx, userID, mode, p)
	case ModeTrainerTopic:
		pl, err = e.planTrainerTopic(p)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(pl.ids))
	for _, id := range pl.ids {
		if e.catalog.Allowed(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, &StartError{Err: ErrNoValidQuestions, Params: p, PoolSize: pl.poolSize, Need: max(pl.need, 1)}
	}

	part := pl.part
	if part < 1 {
		part = 1
	}

	s := &QuizSession{
		AttemptID:    e.newID(),
		Mode:         mode,
		Title:        pl.title,
		Topic:        pl.topic,
		TestID:       pl.testID,
		TopicReq:     strings.TrimSpace(p.Topic),
		Part:         part,
		QuestionIDs:  ids,
		Total:        len(ids),
		Answers:      make(map[int]AnswerRecord),
		MaxMistakes:  pl.maxMistakes,
		TimeLimitSec: pl.timeLimit,
		StartedAt:    e.clock.Now().UTC(),
		MistakesOnly: p.MistakesOnly,
		Seed:         pl.seed,
	}
	e.logger.Debug("session started",
		"user", userID, "mode", s.Mode, "attempt", s.AttemptID, "total", s.Total, "seed", s.Seed)
	return s, nil
}

func (e *Engine) planTest(p StartParams) (plan, error) {
	def, ok := e.catalog.Test(p.TestID)
	if !ok {
		return plan{}, &StartError{Err: ErrSourceNotFound, Params: p, Need: 1}
	}
	limit := def.TimeLimitSec
	if limit <= 0 {
		limit = DefaultTestTimeLimitSec
	}
	title := def.Title
	if title == "" {
		title = fmt.Sprintf("%s %d", TitleTest, def.ID)
	}
	return plan{
		ids:         def.QuestionIDs,
		title:       title,
		topic:       def.Topic,
		testID:      def.ID,
		part:        p.Part,
		timeLimit:   limit,
		maxMistakes: DefaultMaxMistakes,
		poolSize:    len(def.QuestionIDs),
		need:        1,
	}, nil
}

func (e *Engine) planExam(mode Mode, p StartParams) (plan, error) {
	all := e.catalog.AllIDs()
	if len(all) < SessionLength {
		return plan{}, &StartError{Err: ErrInsufficientPool, Params: p, PoolSize: len(all), Need: SessionLength}
	}
	seed := p.Seed
	if seed == 0 {
		seed = sampler.DefaultSeed
	}
	topic := TopicControlExam
	if mode == ModeExamMix {
		topic = TopicMixedExam
	}
	return plan{
		ids:         sampler.Sample(all, SessionLength, seed),
		title:       TitleExam,
		topic:       topic,
		part:        p.Part,
		seed:        seed,
		timeLimit:   ExamTimeLimitSec,
		maxMistakes: DefaultMaxMistakes,
		poolSize:    len(all),
		need:        SessionLength,
	}, nil
}

func (e *Engine) planExamTopic(p StartParams) (plan, error) {
	topic := strings.TrimSpace(p.Topic)
	pool, ok := e.catalog.Pool(topic)
	if !ok {
		return plan{}, &StartError{Err: ErrSourceNotFound, Params: p, Need: SessionLength}
	}
	if len(pool) == 0 {
		return plan{}, &StartError{Err: ErrInsufficientPool, Params: p, Need: SessionLength}
	}
	ids, part := sampler.Page(pool, topic, p.Part, SessionLength, p.Seed)
	return plan{
		ids:         ids,
		title:       TitleExam,
		topic:       topic,
		part:        part,
		seed:        p.Seed,
		timeLimit:   ExamTimeLimitSec,
		maxMistakes: DefaultMaxMistakes,
		poolSize:    len(pool),
		need:        SessionLength,
	}, nil
}

func (e *Engine) planTrainer(ctx context.Context, userID string, mode Mode, p StartParams) (plan, error) {
	source := e.catalog.AllIDs()
	seed := p.Seed

	// Only the mistakes trainer draws from past mistakes; trainer_mix keeps
	// the flag for labelling.
	if p.MistakesOnly && mode == ModeTrainer && e.progress != nil {
		rec, err := e.progress.Load(ctx, userID)
		if err != nil {
			return plan{}, fmt.Errorf("load mistakes: %w", err)
		}
		var missed []int
		for _, id := range rec.AllMistakes() {
			if e.catalog.Allowed(id) {
				missed = append(missed, id)
			}
		}
		if len(missed) > 0 {
			source = missed
			if seed == 0 {
				seed = e.clock.Now().Unix() % 1000000
			}
		}
	}
	if seed == 0 {
		seed = sampler.DefaultSeed
	}

	topic := TopicMix
	if mode == ModeTrainer || p.MistakesOnly {
		topic = TopicMistakes
	}
	return plan{
		ids:         sampler.Sample(source, SessionLength, seed),
		title:       TitleTrainer,
		topic:       topic,
		part:        p.Part,
		seed:        seed,
		maxMistakes: Unlimited,
		poolSize:    len(source),
		need:        1,
	}, nil
}

func (e *Engine) planTrainerTopic(p StartParams) (plan, error) {
	topic := strings.TrimSpace(p.Topic)
	pool, ok := e.catalog.Pool(topic)
	if !ok {
		return plan{}, &StartError{Err: ErrSourceNotFound, Params: p, Need: 1}
	}
	seed := p.Seed
	if seed == 0 {
		seed = sampler.TrainerSeed(topic)
	}
	return plan{
		ids:         sampler.Sample(pool, SessionLength, seed),
		title:       TitleTrainer,
		topic:       topic,
		part:        p.Part,
		seed:        seed,
		maxMistakes: Unlimited,
		poolSize:    len(pool),
		need:        1,
	}, nil
}


// Question resolves the question under the session cursor.
func (e *Engine) Question(s *QuizSession) (catalog.Question, error) {
	if err := s.Validate(); err != nil {
		return catalog.Question{}, err
	}
	qid := s.CurrentQuestionID()
	q, ok := e.catalog.Find(qid)
	if !ok {
		return catalog.Question{}, &QuestionMissingError{QuestionID: qid, Index: s.Cursor}
	}
	return q, nil
}

// Answer records choice (1-based) for the question under the cursor. An
// index that is already answered returns its stored record unchanged. The
// cursor does not move.
func (e *Engine) Answer(s *QuizSession, choice int) (AnswerRecord, error) {
	if err := s.Validate(); err != nil {
		return AnswerRecord{}, err
	}
	if rec, ok := s.Answers[s.Cursor]; ok {
		return rec, nil
	}
	if s.Finished {
		return AnswerRecord{}, ErrSessionFinished
	}
	now := e.clock.Now()
	if s.TimeExpired(now) {
		return AnswerRecord{}, ErrTimeExpired
	}

	q, err := e.Question(s)
	if err != nil {
		return AnswerRecord{}, err
	}
	if choice < 1 || choice > len(q.Options) {
		return AnswerRecord{}, fmt.Errorf("%w: %d not in 1..%d", ErrInvalidChoice, choice, len(q.Options))
	}

	rec := AnswerRecord{
		QuestionID: q.ID,
		Choice:     choice,
		Correct:    q.Correct,
		IsCorrect:  q.IsCorrect(choice),
		At:         now.UTC(),
	}
	if s.Answers == nil {
		s.Answers = make(map[int]AnswerRecord)
	}
	s.Answers[s.Cursor] = rec
	return rec, nil
}

// GoTo moves the cursor to index. Indices outside the sequence are ignored.
func (e *Engine) GoTo(s *QuizSession, index int) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Finished {
		return ErrSessionFinished
	}
	if index >= 0 && index < s.Total {
		s.Cursor = index
	}
	return nil
}

// Finish scores the session and writes the outcome to progress. Finishing
// an already finished session returns the stored result without writing.
// If the write fails the session stays unfinished.
func (e *Engine) Finish(ctx context.Context, userID string, s *QuizSession) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	if s.Finished {
		return *s.Result, nil
	}

	r := Evaluate(s, e.clock.Now())
	if e.evaluator != nil {
		if err := e.evaluator.Apply(ctx, userID, s, r); err != nil {
			return Result{}, err
		}
	}
	s.Finished = true
	s.Result = &r

	e.logger.Info("session finished",
		"user", userID, "mode", s.Mode, "attempt", s.AttemptID,
		"passed", r.Passed, "mistakes", r.Mistakes, "answered", r.Answered, "total", r.Total)
	return r, nil
}
