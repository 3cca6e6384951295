package refine

import "fmt"

const (
	critiqueSystem = "You are a technical document quality auditor. Be strict and specific."
	finalSystem    = "You are a technical document quality auditor."
	refineSuffix   = " Carefully incorporate all feedback."
)

// Sampling parameters per step.
const (
	generateTemperature = 0.8
	critiqueTemperature = 0.3
	refineTemperature   = 0.5

	critiqueMaxTokens = 2048
	draftMaxTokens    = 1024
)

func buildCritiquePrompt(criteria, draft string) string {
	return fmt.Sprintf(`Evaluate the following text against these criteria.

## Criteria
%s

## Text
%s

## Output format
Output JSON with each criterion name as key and {"score": N, "feedback": "..."} as value.`, criteria, draft)
}

func buildFinalPrompt(criteria, draft string) string {
	return fmt.Sprintf(`Evaluate the following text against these criteria.

## Criteria
%s

## Text
%s

## Output format
Output JSON with scores and feedback.`, criteria, draft)
}

func buildRefinePrompt(draft, critique, objective string) string {
	return fmt.Sprintf(`Improve the text based on the feedback.

## Original
%s

## Feedback
%s

## Original Task
%s

Reflect ALL feedback and output only the improved final version.`, draft, critique, objective)
}
