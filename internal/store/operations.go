package store

import (
	"context"
	"slices"
	"time"

	"github.com/secplus-trainer/backend/internal/domain/bookmark"
	"github.com/secplus-trainer/backend/internal/domain/note"
	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/domain/session"
)

// ============================================================================
// Attempts
// ============================================================================

// AddAttempts appends attempts to the log and folds each into progress.
func (s *Store) AddAttempts(ctx context.Context, attempts ...progress.Attempt) error {
	if len(attempts) == 0 {
		return nil
	}
	return s.Update(ctx, func(d *Data) error {
		for _, a := range attempts {
			d.QuestionAttempts = append(d.QuestionAttempts, a)
			s.agg.Record(&d.UserProgress, a)
		}
		return nil
	})
}

// AddSessionAttempt appends a unless its session already holds an attempt
// at the same question. It reports whether a was added.
func (s *Store) AddSessionAttempt(ctx context.Context, a progress.Attempt) (bool, error) {
	added := false
	err := s.Update(ctx, func(d *Data) error {
		for _, existing := range d.QuestionAttempts {
			if existing.SessionID == a.SessionID && existing.QuestionID == a.QuestionID {
				return errUnchanged
			}
		}
		d.QuestionAttempts = append(d.QuestionAttempts, a)
		s.agg.Record(&d.UserProgress, a)
		added = true
		return nil
	})
	return added, err
}

func (s *Store) Attempts() []progress.Attempt {
	var out []progress.Attempt
	s.View(func(d *Data) {
		out = slices.Clone(d.QuestionAttempts)
	})
	return out
}

func (s *Store) Progress() progress.UserProgress {
	var out progress.UserProgress
	s.View(func(d *Data) {
		out = d.UserProgress.Clone()
	})
	return out
}

// RecomputeProgress rebuilds progress from the attempt log, keeping the
// stored streak since history alone cannot reproduce it.
func (s *Store) RecomputeProgress(ctx context.Context) error {
	return s.Update(ctx, func(d *Data) error {
		s.rebuildProgress(d)
		return nil
	})
}

func (s *Store) rebuildProgress(d *Data) {
	streak, last := d.UserProgress.StudyStreak, d.UserProgress.LastStudySession
	d.UserProgress = s.agg.Recompute(d.QuestionAttempts)
	d.UserProgress.StudyStreak = streak
	d.UserProgress.LastStudySession = last
}

// ============================================================================
// Bookmarks
// ============================================================================

func (s *Store) AddBookmark(ctx context.Context, questionID int, noteText string) (bookmark.Bookmark, error) {
	b := bookmark.New(questionID, noteText, s.now())
	err := s.Update(ctx, func(d *Data) error {
		d.BookmarkedQuestions = bookmark.Upsert(d.BookmarkedQuestions, b)
		return nil
	})
	return b, err
}

// RemoveBookmark is a no-op when the question is not bookmarked.
func (s *Store) RemoveBookmark(ctx context.Context, questionID int) error {
	return s.Update(ctx, func(d *Data) error {
		out, ok := bookmark.Remove(d.BookmarkedQuestions, questionID)
		if !ok {
			return errUnchanged
		}
		d.BookmarkedQuestions = out
		return nil
	})
}

func (s *Store) Bookmarks() []bookmark.Bookmark {
	var out []bookmark.Bookmark
	s.View(func(d *Data) {
		out = slices.Clone(d.BookmarkedQuestions)
	})
	return out
}

func (s *Store) IsBookmarked(questionID int) bool {
	var ok bool
	s.View(func(d *Data) {
		_, ok = bookmark.Find(d.BookmarkedQuestions, questionID)
	})
	return ok
}

// ============================================================================
// Notes
// ============================================================================

func (s *Store) SetNote(ctx context.Context, questionID int, content string) (note.Note, error) {
	var saved note.Note
	err := s.Update(ctx, func(d *Data) error {
		d.QuestionNotes = note.Set(d.QuestionNotes, questionID, content, s.now())
		saved, _ = note.Find(d.QuestionNotes, questionID)
		return nil
	})
	return saved, err
}

// RemoveNote is a no-op when the question has no note.
func (s *Store) RemoveNote(ctx context.Context, questionID int) error {
	return s.Update(ctx, func(d *Data) error {
		out, ok := note.Remove(d.QuestionNotes, questionID)
		if !ok {
			return errUnchanged
		}
		d.QuestionNotes = out
		return nil
	})
}

func (s *Store) Note(questionID int) (note.Note, error) {
	var (
		n  note.Note
		ok bool
	)
	s.View(func(d *Data) {
		n, ok = note.Find(d.QuestionNotes, questionID)
	})
	if !ok {
		return note.Note{}, ErrNotFound
	}
	return n, nil
}

func (s *Store) Notes() []note.Note {
	var out []note.Note
	s.View(func(d *Data) {
		out = slices.Clone(d.QuestionNotes)
	})
	return out
}

// ============================================================================
// Sessions
// ============================================================================

func (s *Store) StartSession(ctx context.Context, sess *session.Session) error {
	stored := sess.Clone()
	return s.Update(ctx, func(d *Data) error {
		d.TestSessions = append(d.TestSessions, stored)
		return nil
	})
}

// UpdateSession applies fn to the stored session and saves the result. An
// error from fn aborts the update. The returned session is a copy.
func (s *Store) UpdateSession(ctx context.Context, id string, fn func(*session.Session) error) (*session.Session, error) {
	var updated *session.Session
	err := s.Update(ctx, func(d *Data) error {
		sess, ok := d.Session(id)
		if !ok {
			return ErrNotFound
		}
		if err := fn(sess); err != nil {
			return err
		}
		updated = sess.Clone()
		return nil
	})
	if updated == nil {
		return nil, err
	}
	return updated, err
}

// FinalizeSession completes the session at now and, in the same save,
// records an attempt for every answered question that has none linked to
// this session yet. It returns the finalized session and the new attempts.
func (s *Store) FinalizeSession(ctx context.Context, id string, now time.Time) (*session.Session, []progress.Attempt, error) {
	var (
		done  *session.Session
		added []progress.Attempt
	)
	err := s.Update(ctx, func(d *Data) error {
		sess, ok := d.Session(id)
		if !ok {
			return ErrNotFound
		}
		if err := sess.Finalize(now); err != nil {
			return err
		}

		recorded := make(map[int]bool)
		for _, a := range d.QuestionAttempts {
			if a.SessionID == id {
				recorded[a.QuestionID] = true
			}
		}
		added = nil
		for _, q := range sess.Questions {
			answer := sess.Answers[q.ID]
			if answer == "" || recorded[q.ID] {
				continue
			}
			a := progress.NewAttempt(q, answer, sess.QuestionTimes[q.ID], sess.Mode, id, now)
			d.QuestionAttempts = append(d.QuestionAttempts, a)
			s.agg.Record(&d.UserProgress, a)
			added = append(added, a)
		}
		done = sess.Clone()
		return nil
	})
	if done == nil {
		return nil, nil, err
	}
	return done, added, err
}

// DeleteSession removes the session and every attempt linked to it, then
// rebuilds progress from the remaining log. It returns the number of
// attempts removed.
func (s *Store) DeleteSession(ctx context.Context, id string) (int, error) {
	removed := 0
	err := s.Update(ctx, func(d *Data) error {
		before := len(d.TestSessions)
		d.TestSessions = slices.DeleteFunc(d.TestSessions, func(sess *session.Session) bool {
			return sess.ID == id
		})
		if len(d.TestSessions) == before {
			return ErrNotFound
		}

		n := len(d.QuestionAttempts)
		d.QuestionAttempts = slices.DeleteFunc(d.QuestionAttempts, func(a progress.Attempt) bool {
			return a.SessionID == id
		})
		removed = n - len(d.QuestionAttempts)
		if removed > 0 {
			s.rebuildProgress(d)
		}
		return nil
	})
	return removed, err
}

func (s *Store) Session(id string) (*session.Session, error) {
	var out *session.Session
	s.View(func(d *Data) {
		if sess, ok := d.Session(id); ok {
			out = sess.Clone()
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

// Sessions returns every session, newest start time first.
func (s *Store) Sessions() []*session.Session {
	var out []*session.Session
	s.View(func(d *Data) {
		out = make([]*session.Session, len(d.TestSessions))
		for i, sess := range d.TestSessions {
			out[i] = sess.Clone()
		}
	})
	slices.SortStableFunc(out, func(a, b *session.Session) int {
		return b.StartTime.Compare(a.StartTime)
	})
	return out
}

// ============================================================================
// Seen questions and settings
// ============================================================================

// MarkSeen adds question ids to the seen set. Nothing is saved when every
// id was already seen.
func (s *Store) MarkSeen(ctx context.Context, ids ...int) error {
	return s.Update(ctx, func(d *Data) error {
		changed := false
		for _, id := range ids {
			if !slices.Contains(d.SeenQuestions, id) {
				d.SeenQuestions = append(d.SeenQuestions, id)
				changed = true
			}
		}
		if !changed {
			return errUnchanged
		}
		return nil
	})
}

func (s *Store) Seen() map[int]bool {
	out := make(map[int]bool)
	s.View(func(d *Data) {
		for _, id := range d.SeenQuestions {
			out[id] = true
		}
	})
	return out
}

// SeenList returns seen ids in the order they were first seen.
func (s *Store) SeenList() []int {
	var out []int
	s.View(func(d *Data) {
		out = slices.Clone(d.SeenQuestions)
	})
	return out
}

func (s *Store) Settings() Settings {
	var out Settings
	s.View(func(d *Data) {
		out = d.Settings
	})
	return out
}

func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (Settings, error) {
	var out Settings
	err := s.Update(ctx, func(d *Data) error {
		d.Settings = d.Settings.Apply(patch)
		out = d.Settings
		return nil
	})
	return out, err
}
