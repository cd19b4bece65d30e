// Package render formats controller views for the terminal.
package render

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/examkit/internal/app"
	"github.com/abhisek/examkit/internal/progress"
	"github.com/abhisek/examkit/internal/session"
	"github.com/abhisek/examkit/internal/ui/theme"
)

// Session renders the current question, the answer strip and, for a
// finished session, its result.
func Session(v app.View) string {
	s := v.Session
	var b strings.Builder

	b.WriteString(theme.Title.Render(session.FullTitle(s)) + "\n")
	b.WriteString(theme.Subtitle.Render(statusLine(v)) + "\n")
	b.WriteString(Strip(s) + "\n\n")

	if q := v.Question; q != nil {
		b.WriteString(Question(q, v.Answer) + "\n")
	}
	if v.Result != nil {
		b.WriteString("\n" + Result(*v.Result))
	}
	return b.String()
}

func statusLine(v app.View) string {
	c := v.Counts
	parts := []string{
		fmt.Sprintf("Question %d/%d", c.Index, c.Total),
		fmt.Sprintf("answered %d", c.Answered),
	}
	if c.MaxMistakes >= session.Unlimited {
		parts = append(parts, fmt.Sprintf("mistakes %d", c.Mistakes))
	} else {
		parts = append(parts, fmt.Sprintf("mistakes %d/%d", c.Mistakes, c.MaxMistakes))
	}
	if v.TimeLeft != "" {
		parts = append(parts, v.TimeLeft+" left")
	}
	return strings.Join(parts, " · ")
}

// Strip draws one cell per question: answered right, answered wrong,
// unanswered, with the cursor highlighted.
func Strip(s *session.QuizSession) string {
	var b strings.Builder
	for i := range s.Total {
		cell := "·"
		style := theme.BarEmpty
		if a, ok := s.Answers[i]; ok {
			cell = "■"
			style = theme.BarFilled
			if !a.IsCorrect {
				style = theme.BarMistake
			}
		}
		if i == s.Cursor {
			cell = "◆"
		}
		b.WriteString(style.Render(cell))
	}
	return b.String()
}

// Question renders the prompt and numbered options. Once answered, the
// correct option and the learner's wrong choice are marked.
func Question(q *app.QuestionView, answer *session.AnswerRecord) string {
	var b strings.Builder
	b.WriteString(theme.Body.Bold(true).Render(q.Prompt) + "\n")
	if q.Image != "" {
		b.WriteString(theme.Hint.Render("image: "+q.Image) + "\n")
	}
	for i, opt := range q.Options {
		n := i + 1
		line := fmt.Sprintf("  %d. %s", n, opt)
		switch {
		case answer != nil && n == answer.Correct:
			b.WriteString(theme.Correct.Render("✓ "+line[2:]) + "\n")
		case answer != nil && n == answer.Choice:
			b.WriteString(theme.Incorrect.Render("✗ "+line[2:]) + "\n")
		default:
			b.WriteString(theme.Option.Render(line) + "\n")
		}
	}
	if answer != nil && q.Explanation != "" {
		b.WriteString("\n" + theme.Hint.Render(q.Explanation) + "\n")
	}
	return b.String()
}

// Result renders a finished session's outcome in a card.
func Result(r session.Result) string {
	verdict := theme.Correct.Render("PASSED")
	if !r.Passed {
		verdict = theme.Incorrect.Render("FAILED")
	}
	lines := []string{
		verdict,
		fmt.Sprintf("Answered %d of %d", r.Answered, r.Total),
		fmt.Sprintf("Mistakes %d", r.Mistakes),
		"Time " + app.FormatTimeLeft(time.Duration(r.ElapsedSec)*time.Second),
	}
	if r.TimeExceeded {
		lines = append(lines, theme.Incorrect.Render("Time limit exceeded"))
	}
	return theme.Card.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)) + "\n"
}

// Progress renders a learner's record.
func Progress(rec *progress.Record) string {
	var b strings.Builder

	b.WriteString(theme.Label.Render("Passed tests") + "\n")
	if len(rec.PassedTests) == 0 {
		b.WriteString(theme.Hint.Render("  none yet") + "\n")
	}
	for _, id := range rec.PassedTests {
		fmt.Fprintf(&b, "  #%d\n", id)
	}

	b.WriteString("\n" + theme.Label.Render("Passed exams and trainers") + "\n")
	if len(rec.PassedItems) == 0 {
		b.WriteString(theme.Hint.Render("  none yet") + "\n")
	}
	keys := make([]string, 0, len(rec.PassedItems))
	for k := range rec.PassedItems {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return rec.PassedItems[a].At.Compare(rec.PassedItems[b].At)
	})
	for _, k := range keys {
		item := rec.PassedItems[k]
		fmt.Fprintf(&b, "  %s  %s\n", item.Title, theme.Hint.Render(item.At.Format("2006-01-02 15:04")))
	}

	b.WriteString("\n" + theme.Label.Render("Mistakes") + "\n")
	fmt.Fprintf(&b, "  %d questions to review\n", rec.MistakeCount())
	buckets := make([]int, 0, len(rec.Mistakes))
	for bucket := range rec.Mistakes {
		buckets = append(buckets, bucket)
	}
	slices.Sort(buckets)
	for _, bucket := range buckets {
		name := "exams and trainers"
		if bucket != progress.NonTestBucket {
			name = fmt.Sprintf("test #%d", bucket)
		}
		fmt.Fprintf(&b, "  %-20s %d\n", name, len(rec.Mistakes[bucket]))
	}

	if len(rec.TheoryDone) > 0 {
		b.WriteString("\n" + theme.Label.Render("Theory read") + "\n")
		topics := make([]string, 0, len(rec.TheoryDone))
		for t := range rec.TheoryDone {
			topics = append(topics, t)
		}
		slices.Sort(topics)
		for _, t := range topics {
			fmt.Fprintf(&b, "  %s\n", t)
		}
	}
	return b.String()
}

// Topics renders the topic list with page counts.
func Topics(topics []app.TopicInfo) string {
	if len(topics) == 0 {
		return theme.Hint.Render("no topics") + "\n"
	}
	width := 0
	for _, t := range topics {
		width = max(width, lipgloss.Width(t.Topic))
	}
	var b strings.Builder
	for _, t := range topics {
		pad := strings.Repeat(" ", width-lipgloss.Width(t.Topic))
		detail := fmt.Sprintf("%d questions, %d parts", t.Questions, t.Parts)
		if t.FirstTestID > 0 {
			detail += fmt.Sprintf(", test #%d", t.FirstTestID)
		}
		if t.TheoryDone {
			detail += ", theory read"
		}
		if t.TestPassed {
			detail += ", passed"
		}
		fmt.Fprintf(&b, "%s%s  %s\n", theme.Body.Render(t.Topic), pad, theme.Hint.Render(detail))
	}
	return b.String()
}
