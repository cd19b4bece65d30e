package session

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/examkit/internal/progress"
)

// Evaluate computes the result of s as of now. A session passes when it is
// complete, stays under its mistake limit and, if timed, within its timer.
func Evaluate(s *QuizSession, now time.Time) Result {
	r := Result{
		Mistakes:   s.Mistakes(),
		Answered:   s.Answered(),
		Total:      s.Total,
		ElapsedSec: s.Elapsed(now),
		WrongIDs:   s.WrongIDs(),
		FinishedAt: now.UTC(),
	}
	r.TimeExceeded = s.TimeLimitSec > 0 && r.ElapsedSec > int64(s.TimeLimitSec)
	r.Passed = r.Mistakes < s.MaxMistakes &&
		r.Answered >= r.Total &&
		r.Total > 0 &&
		!r.TimeExceeded
	return r
}

// PassedItemKey identifies one non-test attempt configuration in the
// passed-items map.
func PassedItemKey(s *QuizSession) string {
	scope := "all"
	if s.MistakesOnly {
		scope = "mistakes"
	}
	return fmt.Sprintf("%s|%s|topic=%s|topic_req=%s|part=%d|seed=%d|testid=%d",
		s.Mode, scope, s.Topic, s.TopicReq, s.Part, s.Seed, s.TestID)
}

// FullTitle is the session title with its topic, as shown and as recorded
// for a passed item.
func FullTitle(s *QuizSession) string {
	if s.Topic == "" {
		return s.Title
	}
	return s.Title + " — " + s.Topic
}

// Evaluator writes finished sessions into a progress repository.
type Evaluator struct {
	repo progress.Repo
}

// NewEvaluator returns an Evaluator backed by repo.
func NewEvaluator(repo progress.Repo) *Evaluator {
	return &Evaluator{repo: repo}
}

// Apply records the outcome of s in one locked update. An attempt that was
// already applied leaves the record untouched.
func (e *Evaluator) Apply(ctx context.Context, userID string, s *QuizSession, r Result) error {
	err := e.repo.Update(ctx, userID, func(rec *progress.Record) error {
		if rec.Applied(s.AttemptID) {
			return progress.ErrNoChange
		}
		rec.AddMistakes(s.MistakeBucket(), r.WrongIDs)
		if r.Passed {
			if s.Mode == ModeTest && s.TestID > 0 {
				rec.MarkTestPassed(s.TestID)
			} else if s.Mode != ModeTest {
				rec.MarkItemPassed(PassedItemKey(s), FullTitle(s), r.FinishedAt)
			}
		}
		rec.MarkApplied(s.AttemptID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}
