package store

import (
	"github.com/secplus-trainer/backend/internal/domain/bookmark"
	"github.com/secplus-trainer/backend/internal/domain/note"
	"github.com/secplus-trainer/backend/internal/domain/progress"
	"github.com/secplus-trainer/backend/internal/domain/session"
	"github.com/secplus-trainer/backend/internal/domain/testmode"
)

// SchemaVersion is written with every save. Documents without one predate
// versioning and are read as version 1.
const SchemaVersion = 2

// Data is the whole persisted document, loaded and saved as one unit.
type Data struct {
	SchemaVersion       int                   `json:"schemaVersion"`
	UserProgress        progress.UserProgress `json:"userProgress"`
	QuestionAttempts    []progress.Attempt    `json:"questionAttempts"`
	BookmarkedQuestions []bookmark.Bookmark   `json:"bookmarkedQuestions"`
	TestSessions        []*session.Session    `json:"testSessions"`
	QuestionNotes       []note.Note           `json:"questionNotes"`
	Settings            Settings              `json:"settings"`
	SeenQuestions       []int                 `json:"seenQuestions"`
}

type Settings struct {
	DefaultTestMode      testmode.Mode `json:"defaultTestMode"`
	AutoSaveProgress     bool          `json:"autoSaveProgress"`
	ShowTimerInStudyMode bool          `json:"showTimerInStudyMode"`
	PlaySound            bool          `json:"playSound"`
	DarkMode             bool          `json:"darkMode"`
	QuestionsPerSession  int           `json:"questionsPerSession"`
}

// SettingsPatch is a partial settings update; nil fields are left as is.
type SettingsPatch struct {
	DefaultTestMode      *testmode.Mode `json:"defaultTestMode"`
	AutoSaveProgress     *bool          `json:"autoSaveProgress"`
	ShowTimerInStudyMode *bool          `json:"showTimerInStudyMode"`
	PlaySound            *bool          `json:"playSound"`
	DarkMode             *bool          `json:"darkMode"`
	QuestionsPerSession  *int           `json:"questionsPerSession"`
}

func DefaultSettings() Settings {
	return Settings{
		DefaultTestMode:     testmode.Study,
		AutoSaveProgress:    true,
		QuestionsPerSession: 20,
	}
}

func (s Settings) Apply(p SettingsPatch) Settings {
	if p.DefaultTestMode != nil {
		s.DefaultTestMode = *p.DefaultTestMode
	}
	if p.AutoSaveProgress != nil {
		s.AutoSaveProgress = *p.AutoSaveProgress
	}
	if p.ShowTimerInStudyMode != nil {
		s.ShowTimerInStudyMode = *p.ShowTimerInStudyMode
	}
	if p.PlaySound != nil {
		s.PlaySound = *p.PlaySound
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
	if p.QuestionsPerSession != nil {
		s.QuestionsPerSession = *p.QuestionsPerSession
	}
	return s
}

func Default() Data {
	return Data{
		SchemaVersion:       SchemaVersion,
		UserProgress:        progress.New(),
		QuestionAttempts:    []progress.Attempt{},
		BookmarkedQuestions: []bookmark.Bookmark{},
		TestSessions:        []*session.Session{},
		QuestionNotes:       []note.Note{},
		Settings:            DefaultSettings(),
		SeenQuestions:       []int{},
	}
}

// Clone returns a deep copy of d.
func (d Data) Clone() Data {
	c := d
	c.UserProgress = d.UserProgress.Clone()
	c.QuestionAttempts = append([]progress.Attempt{}, d.QuestionAttempts...)
	c.BookmarkedQuestions = append([]bookmark.Bookmark{}, d.BookmarkedQuestions...)
	c.QuestionNotes = append([]note.Note{}, d.QuestionNotes...)
	c.SeenQuestions = append([]int{}, d.SeenQuestions...)
	c.TestSessions = make([]*session.Session, len(d.TestSessions))
	for i, s := range d.TestSessions {
		c.TestSessions[i] = s.Clone()
	}
	return c
}

// Session returns the first session with the given id.
func (d *Data) Session(id string) (*session.Session, bool) {
	for _, s := range d.TestSessions {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}
