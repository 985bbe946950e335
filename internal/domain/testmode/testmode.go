package testmode

type Mode string

const (
	Study          Mode = "study"           // immediate feedback
	Practice       Mode = "practice"        // timed, no feedback
	DomainFocus    Mode = "domain-focus"    // restricted to chosen domains
	Review         Mode = "review"          // incorrect and bookmarked questions
	QuickQuiz      Mode = "quick-quiz"      // short random quiz
	ExamSimulation Mode = "exam-simulation" // weighted full exam
	Custom         Mode = "custom"
)

var valid = map[Mode]bool{
	Study:          true,
	Practice:       true,
	DomainFocus:    true,
	Review:         true,
	QuickQuiz:      true,
	ExamSimulation: true,
	Custom:         true,
}

func (m Mode) Valid() bool {
	return valid[m]
}
