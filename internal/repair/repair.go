// Package repair rebuilds a damaged study document from its session
// history: duplicate sessions are dropped, the attempt log is regenerated
// from completed sessions, and progress is recomputed from that log.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/secplus-trainer/backend/internal/catalog"
	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/domain/session"
	"github.com/secplus-trainer/backend/internal/store"
)

var ErrInput = errors.New("invalid repair input")

// DefaultAttemptSeconds is the time charged to a synthesized attempt when
// its session does not record enough timing to split.
const DefaultAttemptSeconds = 15.0

type Report struct {
	SessionsRead        int      `json:"sessionsRead"`
	DuplicatesRemoved   int      `json:"duplicatesRemoved"`
	AttemptsSynthesized int      `json:"attemptsSynthesized"`
	AttemptsDiscarded   int      `json:"attemptsDiscarded"`
	Warnings            []string `json:"warnings,omitempty"`
}

type Repairer struct {
	catalog *catalog.Catalog
	agg     *progress.Aggregator
}

func New(cat *catalog.Catalog, loc *time.Location) *Repairer {
	return &Repairer{
		catalog: cat,
		agg:     progress.NewAggregator(cat, loc),
	}
}

// Repair decodes raw and rebuilds its derived state. Everything that is
// not derived (bookmarks, notes, settings, seen questions) is carried over
// unchanged. The study streak cannot be rebuilt and comes back as 0.
func (r *Repairer) Repair(raw []byte) (store.Data, Report, error) {
	var rep Report

	d, err := store.Migrate(raw, nil)
	if err != nil {
		var probe map[string]json.RawMessage
		if json.Unmarshal(raw, &probe) != nil || probe == nil {
			return store.Data{}, rep, fmt.Errorf("%w: %w", ErrInput, err)
		}
		rep.Warnings = append(rep.Warnings, err.Error())
	}

	rep.SessionsRead = len(d.TestSessions)
	d.TestSessions = dedupe(d.TestSessions)
	rep.DuplicatesRemoved = rep.SessionsRead - len(d.TestSessions)

	referenced := make(map[int]question.Question)
	for _, s := range d.TestSessions {
		for _, q := range s.Questions {
			if _, ok := referenced[q.ID]; !ok {
				referenced[q.ID] = q
			}
		}
	}

	attempts := []progress.Attempt{}
	for _, s := range d.TestSessions {
		if !s.Completed || len(s.Answers) == 0 {
			continue
		}
		spent := DefaultAttemptSeconds
		if s.TotalTimeSpent > 0 && s.QuestionsAnswered > 0 {
			spent = s.TotalTimeSpent / float64(s.QuestionsAnswered)
		}
		at := s.StartTime
		if s.EndTime != nil {
			at = *s.EndTime
		}

		for _, qid := range sortedKeys(s.Answers) {
			answer := s.Answers[qid]
			q, ok := referenced[qid]
			if !ok {
				rep.AttemptsDiscarded++
				continue
			}
			if cq, ok := r.catalog.ByID(qid); ok {
				q = cq
			}
			attempts = append(attempts, progress.NewAttempt(q, answer, spent, s.Mode, s.ID, at))
		}
	}
	rep.AttemptsSynthesized = len(attempts)

	d.QuestionAttempts = attempts
	d.UserProgress = r.agg.Recompute(attempts)
	d.SchemaVersion = store.SchemaVersion
	return d, rep, nil
}

// RepairFile reads in, repairs it and writes the result to out.
func (r *Repairer) RepairFile(in, out string) (Report, error) {
	raw, err := os.ReadFile(in)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrInput, err)
	}

	d, rep, err := r.Repair(raw)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", in, err)
	}

	encoded, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return rep, err
	}
	if err := os.WriteFile(out, encoded, 0o644); err != nil {
		return rep, fmt.Errorf("write %s: %w", out, err)
	}
	return rep, nil
}

// dedupe keeps the first session for each id.
func dedupe(sessions []*session.Session) []*session.Session {
	seen := make(map[string]bool, len(sessions))
	out := make([]*session.Session, 0, len(sessions))
	for _, s := range sessions {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

func sortedKeys(a session.Answers) []int {
	keys := make([]int, 0, len(a))
	for k, v := range a {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	return keys
}
