package selector

import (
	"math"

	"github.com/secplus-trainer/backend/internal/domain/question"
	"github.com/secplus-trainer/backend/internal/shuffle"
)

// DomainWeight allocates Percent of an exam to a domain.
type DomainWeight struct {
	Domain  int     `json:"domain"`
	Percent float64 `json:"percent"`
}

// ExamQuestionCount is the length of a full simulated exam.
const ExamQuestionCount = 90

// DefaultExamBlueprint is the published Security+ domain weighting.
var DefaultExamBlueprint = []DomainWeight{
	{Domain: 1, Percent: 12}, // General Security Concepts
	{Domain: 2, Percent: 22}, // Threats, Vulnerabilities, and Mitigations
	{Domain: 3, Percent: 18}, // Security Architecture
	{Domain: 4, Percent: 28}, // Security Operations
	{Domain: 5, Percent: 20}, // Security Program Management and Oversight
}

// DomainSource lists the questions of a domain. *catalog.Catalog satisfies it.
type DomainSource interface {
	ByDomain(number int) []question.Question
}

// BlueprintFromDomains builds weights from the domains' own Weight field.
func BlueprintFromDomains(domains []question.Domain) []DomainWeight {
	out := make([]DomainWeight, 0, len(domains))
	for _, d := range domains {
		if d.Weight > 0 {
			out = append(out, DomainWeight{Domain: d.Number, Percent: d.Weight})
		}
	}
	return out
}

// SelectByDomainWeights draws round(percent × total) questions from each
// domain without replacement, capped at what the domain has, and shuffles
// the combined set.
func (s *Selector) SelectByDomainWeights(src DomainSource, weights []DomainWeight, total int) []question.Question {
	var picked []question.Question
	for _, w := range weights {
		need := int(math.Round(w.Percent / 100 * float64(total)))
		picked = append(picked, shuffle.Sample(s.src, src.ByDomain(w.Domain), need)...)
	}
	return shuffle.Shuffled(s.src, picked)
}
