package bookmark

import "time"

type Bookmark struct {
	QuestionID int       `json:"questionId"`
	Note       string    `json:"note,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func New(questionID int, note string, at time.Time) Bookmark {
	return Bookmark{
		QuestionID: questionID,
		Note:       note,
		Timestamp:  at,
	}
}

// Upsert adds b, replacing any bookmark on the same question in place.
func Upsert(list []Bookmark, b Bookmark) []Bookmark {
	for i := range list {
		if list[i].QuestionID == b.QuestionID {
			list[i] = b
			return list
		}
	}
	return append(list, b)
}

// Remove drops the bookmark on questionID. ok is false when there was none.
func Remove(list []Bookmark, questionID int) (out []Bookmark, ok bool) {
	out = list[:0:0]
	for _, b := range list {
		if b.QuestionID == questionID {
			ok = true
			continue
		}
		out = append(out, b)
	}
	return out, ok
}

func Find(list []Bookmark, questionID int) (Bookmark, bool) {
	for _, b := range list {
		if b.QuestionID == questionID {
			return b, true
		}
	}
	return Bookmark{}, false
}

// IDs returns the bookmarked question ids as a set.
func IDs(list []Bookmark) map[int]bool {
	out := make(map[int]bool, len(list))
	for _, b := range list {
		out[b.QuestionID] = true
	}
	return out
}
