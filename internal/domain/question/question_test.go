package question_test

import (
	"testing"

	"github.com/secplus-trainer/backend/internal/domain/question"
)

func sample() question.Question {
	return question.Question{
		ID:     1,
		Domain: question.Domain{Number: 1, Name: "General Security Concepts", Weight: 12},
		Options: []question.Option{
			{Letter: "A", Text: "Confidentiality"},
			{Letter: "B", Text: "Availability"},
		},
		CorrectAnswer: "B",
		QuestionType:  question.TypeMultipleChoice,
	}
}

func TestValidate(t *testing.T) {
	if err := sample().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_CorrectAnswerNotAnOption(t *testing.T) {
	q := sample()
	q.CorrectAnswer = "D"

	if err := q.Validate(); err == nil {
		t.Error("expected error for dangling correct answer, got nil")
	}
}

func TestValidate_NonPositiveID(t *testing.T) {
	q := sample()
	q.ID = 0

	if err := q.Validate(); err == nil {
		t.Error("expected error for zero id, got nil")
	}
}

func TestIsCorrect(t *testing.T) {
	q := sample()

	if !q.IsCorrect("B") {
		t.Error("expected B to be correct")
	}
	if q.IsCorrect("A") {
		t.Error("expected A to be incorrect")
	}
	if q.IsCorrect("") {
		t.Error("expected empty answer to be incorrect")
	}
}

func TestWithOptions_DoesNotAlias(t *testing.T) {
	q := sample()
	reversed := []question.Option{q.Options[1], q.Options[0]}

	cp := q.WithOptions(reversed)
	reversed[0].Text = "changed"

	if cp.Options[0].Text != "Availability" {
		t.Errorf("expected copy to be independent, got %q", cp.Options[0].Text)
	}
	if q.Options[0].Letter != "A" {
		t.Error("expected original options to be untouched")
	}
}
