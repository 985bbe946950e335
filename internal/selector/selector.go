// Package selector assembles question sets for new tests.
package selector

import (
	"math"

	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/shuffle"
)

type Priority string

const (
	PriorityWrong  Priority = "wrong"  // previously missed first
	PriorityNew    Priority = "new"    // never seen first
	PriorityMix    Priority = "mix"    // 40% wrong, 30% new, rest random
	PriorityRandom Priority = "random" // uniform
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityWrong, PriorityNew, PriorityMix, PriorityRandom:
		return true
	}
	return false
}

const (
	mixWrongShare = 0.4
	mixNewShare   = 0.3
)

// Request describes one selection. Incorrect holds questions whose most
// recent attempt was wrong; Seen holds questions shown at least once;
// Exclude removes questions from the pool before anything else.
type Request struct {
	Pool      []question.Question
	Count     int
	Priority  Priority
	Incorrect map[int]bool
	Seen      map[int]bool
	Exclude   map[int]bool
}

type Selector struct {
	src shuffle.Source
}

func New(src shuffle.Source) *Selector {
	if src == nil {
		src = shuffle.New()
	}
	return &Selector{src: src}
}

// SelectForTest returns at most req.Count distinct questions from the pool.
// It never errors: an undersupplied pool yields fewer questions, possibly
// none. Under PriorityMix the random share is req.Count minus what the wrong
// and new shares actually supplied, so short sub-pools are backfilled.
func (s *Selector) SelectForTest(req Request) []question.Question {
	if req.Count <= 0 {
		return nil
	}
	pool := distinct(req.Pool, req.Exclude)

	switch req.Priority {
	case PriorityWrong:
		return s.prioritized(pool, req.Count, func(q question.Question) bool {
			return req.Incorrect[q.ID]
		})
	case PriorityNew:
		return s.prioritized(pool, req.Count, func(q question.Question) bool {
			return !req.Seen[q.ID]
		})
	case PriorityMix:
		return s.mix(pool, req)
	default:
		return shuffle.Sample(s.src, pool, req.Count)
	}
}

// prioritized takes priority questions first and backfills randomly from
// the rest of the pool.
func (s *Selector) prioritized(pool []question.Question, count int, isPriority func(question.Question) bool) []question.Question {
	var first, rest []question.Question
	for _, q := range pool {
		if isPriority(q) {
			first = append(first, q)
		} else {
			rest = append(rest, q)
		}
	}

	picked := shuffle.Sample(s.src, first, count)
	if need := count - len(picked); need > 0 {
		picked = append(picked, shuffle.Sample(s.src, rest, need)...)
	}
	return shuffle.Shuffled(s.src, picked)
}

func (s *Selector) mix(pool []question.Question, req Request) []question.Question {
	nWrong := int(math.Round(float64(req.Count) * mixWrongShare))
	nNew := int(math.Round(float64(req.Count) * mixNewShare))

	var wrong, fresh []question.Question
	for _, q := range pool {
		switch {
		case req.Incorrect[q.ID]:
			wrong = append(wrong, q)
		case !req.Seen[q.ID]:
			fresh = append(fresh, q)
		}
	}

	picked := shuffle.Sample(s.src, wrong, nWrong)
	picked = append(picked, shuffle.Sample(s.src, fresh, nNew)...)

	used := make(map[int]bool, len(picked))
	for _, q := range picked {
		used[q.ID] = true
	}
	var rest []question.Question
	for _, q := range pool {
		if !used[q.ID] {
			rest = append(rest, q)
		}
	}

	// the random share absorbs both rounding and undersupplied sub-pools
	nRand := req.Count - len(picked)
	picked = append(picked, shuffle.Sample(s.src, rest, nRand)...)
	return shuffle.Shuffled(s.src, picked)
}

// distinct drops excluded and repeated ids, keeping pool order.
func distinct(pool []question.Question, exclude map[int]bool) []question.Question {
	seen := make(map[int]bool, len(pool))
	out := make([]question.Question, 0, len(pool))
	for _, q := range pool {
		if exclude[q.ID] || seen[q.ID] {
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	return out
}

// ShuffleOptions returns copies of qs with each question's options in
// random order. Letters move with their text, so answers stay valid.
func (s *Selector) ShuffleOptions(qs []question.Question) []question.Question {
	out := make([]question.Question, len(qs))
	for i, q := range qs {
		out[i] = q.WithOptions(shuffle.Shuffled(s.src, q.Options))
	}
	return out
}

func (s *Selector) Shuffle(qs []question.Question) []question.Question {
	return shuffle.Shuffled(s.src, qs)
}
