package question

import "fmt"

type Type string

const (
	TypeMultipleChoice   Type = "multiple-choice"
	TypeMultipleResponse Type = "multiple-response"
	TypeFillInTheBlank   Type = "fill-in-the-blank"
	TypeDragAndDrop      Type = "drag-and-drop"
	TypeImageBased       Type = "image-based"
)

// Domain is an exam topic. Weight is the percentage of exam questions
// allocated to it.
type Domain struct {
	Number int     `json:"number"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// Question is an immutable entry of the question bank.
type Question struct {
	ID            int      `json:"id"`
	Domain        Domain   `json:"domain"`
	QuestionText  string   `json:"questionText"`
	Options       []Option `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
	QuestionType  Type     `json:"questionType"`
}

// Validate checks that the question has a positive id and that its
// correct answer names one of its own options.
func (q Question) Validate() error {
	if q.ID <= 0 {
		return fmt.Errorf("question id must be positive, got %d", q.ID)
	}
	if q.CorrectAnswer == "" {
		return fmt.Errorf("question %d: correct answer is empty", q.ID)
	}
	if !q.HasOption(q.CorrectAnswer) {
		return fmt.Errorf("question %d: correct answer %q is not one of its options", q.ID, q.CorrectAnswer)
	}
	return nil
}

func (q Question) HasOption(letter string) bool {
	for _, o := range q.Options {
		if o.Letter == letter {
			return true
		}
	}
	return false
}

// IsCorrect reports whether answer matches the correct answer.
// An empty answer is never correct.
func (q Question) IsCorrect(answer string) bool {
	return answer != "" && answer == q.CorrectAnswer
}

// WithOptions returns a copy of q whose options are replaced by opts.
func (q Question) WithOptions(opts []Option) Question {
	cp := q
	cp.Options = append([]Option(nil), opts...)
	return cp
}
