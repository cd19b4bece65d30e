// Package app ties the session engine to per-user session storage and
// progress records.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/abhisek/examkit/internal/progress"
	"github.com/abhisek/examkit/internal/sampler"
	"github.com/abhisek/examkit/internal/session"
	"github.com/abhisek/examkit/internal/store"
)

// TopicIndex lists topic pools.
type TopicIndex interface {
	Topics() []string
	Pool(topic string) ([]int, bool)
	FirstTestForTopic(topic string) int
}

// Controller runs session actions for a user. Each action loads the
// user's session, applies the action, finishes the session when it is
// due and stores it back.
type Controller struct {
	engine   *session.Engine
	topics   TopicIndex
	sessions store.SessionRepo
	progress progress.Repo
	logger   *slog.Logger
}

// New returns a Controller. A nil logger discards output.
func New(engine *session.Engine, topics TopicIndex, sessions store.SessionRepo, repo progress.Repo, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		engine:   engine,
		topics:   topics,
		sessions: sessions,
		progress: repo,
		logger:   logger,
	}
}

// Start replaces the user's session with a new one.
func (c *Controller) Start(ctx context.Context, userID string, p session.StartParams) (View, error) {
	s, err := c.engine.Start(ctx, userID, p)
	if err != nil {
		return View{}, err
	}
	if err := c.save(ctx, userID, s); err != nil {
		return View{}, err
	}
	return c.view(ctx, userID, s)
}

// Current returns the user's session, finishing it first if it is due.
func (c *Controller) Current(ctx context.Context, userID string) (View, error) {
	return c.act(ctx, userID, func(*session.QuizSession) error { return nil })
}

// Answer records choice for the question under the cursor.
func (c *Controller) Answer(ctx context.Context, userID string, choice int) (View, error) {
	return c.act(ctx, userID, func(s *session.QuizSession) error {
		_, err := c.engine.Answer(s, choice)
		return err
	})
}

// GoTo moves the cursor to a 0-based index.
func (c *Controller) GoTo(ctx context.Context, userID string, index int) (View, error) {
	return c.act(ctx, userID, func(s *session.QuizSession) error {
		return c.engine.GoTo(s, index)
	})
}

// Finish ends the session and records its result.
func (c *Controller) Finish(ctx context.Context, userID string) (View, error) {
	return c.act(ctx, userID, func(s *session.QuizSession) error {
		_, err := c.engine.Finish(ctx, userID, s)
		return err
	})
}

// Reset discards the user's session.
func (c *Controller) Reset(ctx context.Context, userID string) error {
	return c.sessions.Delete(ctx, userID)
}

// Progress returns the user's progress record.
func (c *Controller) Progress(ctx context.Context, userID string) (*progress.Record, error) {
	rec, err := c.progress.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return rec, nil
}

// ConfirmTheory marks a topic's theory as read and returns the first test
// of that topic, or 0 if it has none.
func (c *Controller) ConfirmTheory(ctx context.Context, userID, topic string) (int, error) {
	topic = strings.TrimSpace(topic)
	if _, ok := c.topics.Pool(topic); !ok {
		return 0, fmt.Errorf("topic %q: %w", topic, session.ErrSourceNotFound)
	}
	now := c.engine.Now()
	err := c.progress.Update(ctx, userID, func(rec *progress.Record) error {
		rec.MarkTheoryDone(topic, now.UTC())
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("confirm theory: %w", err)
	}
	return c.topics.FirstTestForTopic(topic), nil
}

// Topics lists topic pools in catalog order. With a userID, each topic also
// carries the user's theory mark and whether its first test was passed.
func (c *Controller) Topics(ctx context.Context, userID string) ([]TopicInfo, error) {
	rec := progress.NewRecord()
	if userID != "" {
		var err error
		if rec, err = c.Progress(ctx, userID); err != nil {
			return nil, err
		}
	}

	var out []TopicInfo
	for _, t := range c.topics.Topics() {
		pool, _ := c.topics.Pool(t)
		first := c.topics.FirstTestForTopic(t)
		out = append(out, TopicInfo{
			Topic:       t,
			Questions:   len(pool),
			Parts:       sampler.PartCount(len(pool)),
			FirstTestID: first,
			TheoryDone:  rec.TheoryConfirmed(t),
			TestPassed:  first > 0 && rec.TestPassed(first),
		})
	}
	return out, nil
}

// act loads the session, auto-finishes an expired one, applies fn, then
// finishes the session if fn made it due. The session is stored even when
// fn fails, so a recorded answer survives a failed finish.
func (c *Controller) act(ctx context.Context, userID string, fn func(*session.QuizSession) error) (View, error) {
	s, err := c.load(ctx, userID)
	if err != nil {
		return View{}, err
	}

	actErr := c.settle(ctx, userID, s)
	if actErr == nil {
		actErr = fn(s)
		if actErr == nil {
			actErr = c.settle(ctx, userID, s)
		}
	}
	if c.discardOn(ctx, userID, actErr) {
		return View{}, actErr
	}

	if err := c.save(ctx, userID, s); err != nil {
		return View{}, err
	}
	v, err := c.view(ctx, userID, s)
	if err != nil {
		return View{}, err
	}
	return v, actErr
}

// settle finishes s if it is due.
func (c *Controller) settle(ctx context.Context, userID string, s *session.QuizSession) error {
	if !s.DueForFinish(c.engine.Now()) {
		return nil
	}
	r, err := c.engine.Finish(ctx, userID, s)
	if err != nil {
		return err
	}
	c.logger.Info("session auto-finished",
		"user", userID, "attempt", s.AttemptID, "passed", r.Passed, "time_exceeded", r.TimeExceeded)
	return nil
}

func (c *Controller) load(ctx context.Context, userID string) (*session.QuizSession, error) {
	data, err := c.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, session.ErrNoSession
	}
	s, err := session.Unmarshal(data)
	if err != nil {
		c.discardOn(ctx, userID, err)
		return nil, err
	}
	return s, nil
}

func (c *Controller) save(ctx context.Context, userID string, s *session.QuizSession) error {
	data, err := session.Marshal(s)
	if err != nil {
		return err
	}
	return c.sessions.Put(ctx, userID, data)
}

// discardOn deletes the stored session when err means it can no longer be
// used, and reports whether it did.
func (c *Controller) discardOn(ctx context.Context, userID string, err error) bool {
	if !errors.Is(err, session.ErrSessionInvalid) && !errors.Is(err, session.ErrQuestionMissing) {
		return false
	}
	c.logger.Warn("discarding session", "user", userID, "error", err)
	if derr := c.sessions.Delete(ctx, userID); derr != nil {
		c.logger.Error("discard session", "user", userID, "error", derr)
	}
	return true
}

func (c *Controller) view(ctx context.Context, userID string, s *session.QuizSession) (View, error) {
	q, err := c.engine.Question(s)
	if err != nil {
		c.discardOn(ctx, userID, err)
		return View{}, err
	}

	answer, answered := s.CurrentAnswer()
	v := View{
		Session:  s,
		Question: newQuestionView(q, answered),
		Counts: Counts{
			Index:       s.Cursor + 1,
			Total:       s.Total,
			Answered:    s.Answered(),
			Mistakes:    s.Mistakes(),
			MaxMistakes: s.MaxMistakes,
		},
		Result: s.Result,
	}
	if answered {
		v.Answer = &answer
	}
	if left, timed := s.TimeLeft(c.engine.Now()); timed {
		v.TimeLeft = FormatTimeLeft(left)
	}
	return v, nil
}
