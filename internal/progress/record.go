package progress

import (
	"slices"
	"time"
)

// MaxAppliedAttempts bounds the attempt ids remembered for de-duplication.
const MaxAppliedAttempts = 64

// NonTestBucket is the mistakes bucket for every mode except plain tests.
const NonTestBucket = 0

// PassedItem records a passed exam or trainer configuration.
type PassedItem struct {
	Title string    `json:"title"`
	At    time.Time `json:"at"`
}

// TheoryMark records that the learner confirmed reading a topic's theory.
type TheoryMark struct {
	At time.Time `json:"at"`
}

// Record is a learner's durable history.
type Record struct {
	PassedTests     []int                 `json:"passed_tests"`
	PassedItems     map[string]PassedItem `json:"passed_items"`
	Mistakes        map[int][]int         `json:"mistakes"`
	TheoryDone      map[string]TheoryMark `json:"theory_done,omitempty"`
	AppliedAttempts []string              `json:"applied_attempts,omitempty"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// NewRecord returns an empty record with initialized maps.
func NewRecord() *Record {
	r := &Record{}
	r.normalize()
	return r
}

// normalize fills nil maps and slices so that records decoded from older or
// hand-edited files behave like fresh ones.
func (r *Record) normalize() {
	if r.PassedTests == nil {
		r.PassedTests = []int{}
	}
	slices.Sort(r.PassedTests)
	r.PassedTests = slices.Compact(r.PassedTests)
	if r.PassedItems == nil {
		r.PassedItems = make(map[string]PassedItem)
	}
	if r.Mistakes == nil {
		r.Mistakes = make(map[int][]int)
	}
	if r.TheoryDone == nil {
		r.TheoryDone = make(map[string]TheoryMark)
	}
}

// AddMistakes unions ids into the bucket, keeping it sorted and unique.
// Non-positive ids are ignored.
func (r *Record) AddMistakes(bucket int, ids []int) {
	set := make(map[int]bool)
	for _, id := range ids {
		if id > 0 {
			set[id] = true
		}
	}
	if len(set) == 0 {
		return
	}
	for _, id := range r.Mistakes[bucket] {
		if id > 0 {
			set[id] = true
		}
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	r.Mistakes[bucket] = out
}

// MarkTestPassed adds testID to the passed set.
func (r *Record) MarkTestPassed(testID int) {
	i, found := slices.BinarySearch(r.PassedTests, testID)
	if found {
		return
	}
	r.PassedTests = slices.Insert(r.PassedTests, i, testID)
}

// TestPassed reports whether testID has been passed.
func (r *Record) TestPassed(testID int) bool {
	_, found := slices.BinarySearch(r.PassedTests, testID)
	return found
}

// MarkItemPassed upserts a passed item under key.
func (r *Record) MarkItemPassed(key, title string, at time.Time) {
	r.PassedItems[key] = PassedItem{Title: title, At: at}
}

// MarkTheoryDone records a theory confirmation for topic.
func (r *Record) MarkTheoryDone(topic string, at time.Time) {
	r.TheoryDone[topic] = TheoryMark{At: at}
}

// TheoryConfirmed reports whether the theory for topic was confirmed.
func (r *Record) TheoryConfirmed(topic string) bool {
	_, ok := r.TheoryDone[topic]
	return ok
}

// AllMistakes returns the sorted union of every bucket.
func (r *Record) AllMistakes() []int {
	set := make(map[int]bool)
	for _, ids := range r.Mistakes {
		for _, id := range ids {
			if id > 0 {
				set[id] = true
			}
		}
	}
	out := make([]int, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// MistakeCount returns the number of distinct missed questions.
func (r *Record) MistakeCount() int {
	return len(r.AllMistakes())
}

// Applied reports whether attemptID was already written.
func (r *Record) Applied(attemptID string) bool {
	return attemptID != "" && slices.Contains(r.AppliedAttempts, attemptID)
}

// MarkApplied remembers attemptID, dropping the oldest ids beyond
// MaxAppliedAttempts.
func (r *Record) MarkApplied(attemptID string) {
	if attemptID == "" || r.Applied(attemptID) {
		return
	}
	r.AppliedAttempts = append(r.AppliedAttempts, attemptID)
	if n := len(r.AppliedAttempts); n > MaxAppliedAttempts {
		r.AppliedAttempts = slices.Clone(r.AppliedAttempts[n-MaxAppliedAttempts:])
	}
}
