package catalog

import (
	"slices"
)

// Catalog is the immutable, cutoff-filtered view of the question bank.
type Catalog struct {
	questions map[int]Question // filtered to the allow-list
	allowed   map[int]bool
	pools     map[string][]int
	topics    []string // first-appearance order
	tests     map[int]TopicDefinition
	defs      []TopicDefinition
	allIDs    []int // sorted allow-list ids present in questions
}

// Build derives the allow-list, topic pools and test index from the retained
// definitions. Only "test" entries contribute to the allow-list and pools.
func Build(questions map[int]Question, retained []TopicDefinition) *Catalog {
	c := &Catalog{
		questions: make(map[int]Question),
		allowed:   make(map[int]bool),
		pools:     make(map[string][]int),
		tests:     make(map[int]TopicDefinition),
		defs:      retained,
	}

	poolSets := make(map[string]map[int]bool)
	for _, d := range retained {
		if d.ID > 0 {
			c.tests[d.ID] = d
		}
		if !d.IsTest() {
			continue
		}
		set, ok := poolSets[d.Topic]
		if !ok {
			set = make(map[int]bool)
			poolSets[d.Topic] = set
			c.topics = append(c.topics, d.Topic)
		}
		for _, id := range d.QuestionIDs {
			if id <= 0 {
				continue
			}
			c.allowed[id] = true
			if _, ok := questions[id]; ok {
				set[id] = true
			}
		}
	}

	for id := range c.allowed {
		if q, ok := questions[id]; ok {
			c.questions[id] = q
			c.allIDs = append(c.allIDs, id)
		}
	}
	slices.Sort(c.allIDs)

	for topic, set := range poolSets {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		c.pools[topic] = ids
	}

	return c
}

// Find returns the question with the given id if it is in scope.
func (c *Catalog) Find(id int) (Question, bool) {
	q, ok := c.questions[id]
	return q, ok
}

// Allowed reports whether id is in the allow-list and resolves to a question.
func (c *Catalog) Allowed(id int) bool {
	_, ok := c.questions[id]
	return ok
}

// AllIDs returns the sorted ids of every in-scope question.
func (c *Catalog) AllIDs() []int {
	return slices.Clone(c.allIDs)
}

// Pool returns the sorted pool for one topic.
func (c *Catalog) Pool(topic string) ([]int, bool) {
	ids, ok := c.pools[topic]
	if !ok {
		return nil, false
	}
	return slices.Clone(ids), true
}

// Topics returns topic labels in the order they first appear.
func (c *Catalog) Topics() []string {
	return slices.Clone(c.topics)
}

// Test returns the retained definition with the given id.
func (c *Catalog) Test(id int) (TopicDefinition, bool) {
	d, ok := c.tests[id]
	return d, ok
}

// FirstTestForTopic returns the id of the first retained test entry for a
// topic, or 0 if there is none.
func (c *Catalog) FirstTestForTopic(topic string) int {
	for _, d := range c.defs {
		if d.IsTest() && d.Topic == topic && d.ID > 0 {
			return d.ID
		}
	}
	return 0
}

// Len returns the number of in-scope questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}
