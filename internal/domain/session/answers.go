package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Answers maps question id to the selected option letter. Older documents
// keyed the map by either "5" or 5.0 style keys; both decode to the same id.
type Answers map[int]string

func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Answers, len(raw))
	for k, v := range raw {
		id, ok := ParseQuestionKey(k)
		if !ok || v == nil || *v == "" {
			continue
		}
		out[id] = *v
	}
	*a = out
	return nil
}

// ParseQuestionKey reads a question id written as an integer or an
// integral float.
func ParseQuestionKey(k string) (int, bool) {
	k = strings.TrimSpace(k)
	if id, err := strconv.Atoi(k); err == nil {
		return id, true
	}
	f, err := strconv.ParseFloat(k, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// Answered counts the non-empty answers.
func (a Answers) Answered() int {
	n := 0
	for _, v := range a {
		if v != "" {
			n++
		}
	}
	return n
}

func (a Answers) clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
