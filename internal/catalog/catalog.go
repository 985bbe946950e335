// Package catalog is the read-only index over the static question bank.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/shuffle"
)

var (
	ErrInvalidQuestion = errors.New("invalid question")
	ErrDuplicateID     = errors.New("duplicate question id")
)

// Catalog is immutable after construction and safe for concurrent reads.
type Catalog struct {
	questions []question.Question
	byID      map[int]int
	byDomain  map[int][]int
	domains   []question.Domain
}

// New indexes qs. Every question is validated; all problems are reported
// together.
func New(qs []question.Question) (*Catalog, error) {
	c := &Catalog{
		questions: make([]question.Question, 0, len(qs)),
		byID:      make(map[int]int, len(qs)),
		byDomain:  make(map[int][]int),
	}

	var errs []error
	seenDomains := make(map[int]bool)
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidQuestion, err))
			continue
		}
		if _, dup := c.byID[q.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: %d", ErrDuplicateID, q.ID))
			continue
		}

		idx := len(c.questions)
		c.questions = append(c.questions, q)
		c.byID[q.ID] = idx
		c.byDomain[q.Domain.Number] = append(c.byDomain[q.Domain.Number], idx)

		if !seenDomains[q.Domain.Number] {
			seenDomains[q.Domain.Number] = true
			c.domains = append(c.domains, q.Domain)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Slice(c.domains, func(i, j int) bool {
		return c.domains[i].Number < c.domains[j].Number
	})
	return c, nil
}

// Parse reads a JSON array of questions.
func Parse(r io.Reader) (*Catalog, error) {
	var qs []question.Question
	if err := json.NewDecoder(r).Decode(&qs); err != nil {
		return nil, fmt.Errorf("decode question catalog: %w", err)
	}
	return New(qs)
}

// Load reads the question catalog file at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (c *Catalog) Len() int {
	return len(c.questions)
}

// All returns every question in catalog order.
func (c *Catalog) All() []question.Question {
	out := make([]question.Question, len(c.questions))
	copy(out, c.questions)
	return out
}

func (c *Catalog) ByID(id int) (question.Question, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return question.Question{}, false
	}
	return c.questions[idx], true
}

// ByIDs resolves ids in the given order, skipping unknown ones.
func (c *Catalog) ByIDs(ids []int) []question.Question {
	out := make([]question.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := c.ByID(id); ok {
			out = append(out, q)
		}
	}
	return out
}

func (c *Catalog) ByDomain(number int) []question.Question {
	idxs := c.byDomain[number]
	out := make([]question.Question, len(idxs))
	for i, idx := range idxs {
		out[i] = c.questions[idx]
	}
	return out
}

// ByDomains returns the questions of any of the given domains, in catalog
// order. An empty filter returns the whole catalog.
func (c *Catalog) ByDomains(numbers []int) []question.Question {
	if len(numbers) == 0 {
		return c.All()
	}
	want := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		want[n] = true
	}
	return c.Filter(func(q question.Question) bool { return want[q.Domain.Number] })
}

func (c *Catalog) Filter(keep func(question.Question) bool) []question.Question {
	var out []question.Question
	for _, q := range c.questions {
		if keep(q) {
			out = append(out, q)
		}
	}
	return out
}

// Domains returns the distinct domains sorted by number.
func (c *Catalog) Domains() []question.Domain {
	out := make([]question.Domain, len(c.domains))
	copy(out, c.domains)
	return out
}

// DomainOf returns the domain the question belongs to.
func (c *Catalog) DomainOf(questionID int) (question.Domain, bool) {
	q, ok := c.ByID(questionID)
	if !ok {
		return question.Domain{}, false
	}
	return q.Domain, true
}

func (c *Catalog) CountByDomain(number int) int {
	return len(c.byDomain[number])
}

// Random samples count questions without replacement. When count exceeds
// the catalog size every question is returned in shuffled order.
func (c *Catalog) Random(count int, src shuffle.Source) []question.Question {
	return shuffle.Sample(src, c.questions, count)
}
