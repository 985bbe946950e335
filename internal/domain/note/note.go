// Package note holds free-form study notes, at most one per question.
package note

import (
	"errors"
	"time"
)

var ErrEmptyContent = errors.New("note content is empty")

// Note content is rich text (HTML) owned by the client; it is stored as is.
type Note struct {
	QuestionID   int       `json:"questionId"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	LastModified time.Time `json:"lastModified"`
}

func New(questionID int, content string, at time.Time) Note {
	return Note{
		QuestionID:   questionID,
		Content:      content,
		Timestamp:    at,
		LastModified: at,
	}
}

// Set creates the note for questionID or updates its content, keeping the
// original creation time.
func Set(list []Note, questionID int, content string, at time.Time) []Note {
	for i := range list {
		if list[i].QuestionID == questionID {
			list[i].Content = content
			list[i].LastModified = at
			return list
		}
	}
	return append(list, New(questionID, content, at))
}

// Remove drops the note on questionID. ok is false when there was none.
func Remove(list []Note, questionID int) (out []Note, ok bool) {
	out = list[:0:0]
	for _, n := range list {
		if n.QuestionID == questionID {
			ok = true
			continue
		}
		out = append(out, n)
	}
	return out, ok
}

func Find(list []Note, questionID int) (Note, bool) {
	for _, n := range list {
		if n.QuestionID == questionID {
			return n, true
		}
	}
	return Note{}, false
}
