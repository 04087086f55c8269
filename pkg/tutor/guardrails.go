package tutor

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Input guardrail rejection messages.
const (
	msgTooShort      = "Question is too short. Please provide a clear math question."
	msgTooLongFormat = "Question is too long. Please keep it under %d characters."
	msgBlocked       = "Please ask educational mathematics questions only."
	msgNotMath       = "This doesn't appear to be a mathematics question. Please ask about mathematical concepts, problems, or calculations."
)

const (
	minQuestionChars = 3
	maxQuestionChars = 1000
	minSolutionChars = 50
)

// inappropriateTerms blocks questions that are clearly not educational.
var inappropriateTerms = []string{"hack", "illegal", "harmful", "dangerous", "cheat"}

// mathIndicators is the allowlist a question must hit at least once to be
// treated as a math question.
var mathIndicators = []string{
	"solve", "calculate", "find", "derive", "integrate", "differentiate",
	"equation", "function", "graph", "theorem", "proof", "formula",
	"x", "y", "=", "+", "-", "*", "/", "²", "³", "√",
}

// applyInputGuardrails validates the question before any model call. Rules
// run in order and the first violation wins. maxLength <= 0 falls back to
// the default cap.
func applyInputGuardrails(s *RequestState, maxLength int) {
	if maxLength <= 0 {
		maxLength = maxQuestionChars
	}

	question := s.Question

	// Character counts, not bytes: math questions carry multibyte symbols
	// (², √, ×) that must not inflate the length.
	if utf8.RuneCountInString(strings.TrimSpace(question)) < minQuestionChars {
		s.GuardrailPassed = false
		s.ErrorMessage = msgTooShort
		return
	}

	if utf8.RuneCountInString(question) > maxLength {
		s.GuardrailPassed = false
		s.ErrorMessage = fmt.Sprintf(msgTooLongFormat, maxLength)
		return
	}

	lower := strings.ToLower(question)
	for _, term := range inappropriateTerms {
		if strings.Contains(lower, term) {
			s.GuardrailPassed = false
			s.ErrorMessage = msgBlocked
			return
		}
	}

	matched := false
	for _, indicator := range mathIndicators {
		if strings.Contains(lower, indicator) {
			matched = true
			break
		}
	}
	if !matched {
		s.GuardrailPassed = false
		s.ErrorMessage = msgNotMath
		return
	}

	s.GuardrailPassed = true
}

const tooShortSolutionReplacement = "I need to provide a more detailed solution. Could you please rephrase your question or provide more context?"

// failurePhrases mark a solution that admits it failed.
var failurePhrases = []string{"error", "apologize", "unable to", "cannot"}

// applyOutputGuardrails validates the generated solution. The length check
// replaces the solution outright; the failure-phrase and formatting checks
// are independent of each other, so a solution can be both downgraded and
// wrapped. The review flag is owned by the generator; confidence overrides
// here never touch it.
func applyOutputGuardrails(s *RequestState) {
	if utf8.RuneCountInString(s.Solution) < minSolutionChars {
		s.Solution = tooShortSolutionReplacement
		s.Confidence = 0.2
		return
	}

	lower := strings.ToLower(s.Solution)

	for _, phrase := range failurePhrases {
		if strings.Contains(lower, phrase) {
			s.Confidence = 0.1
			break
		}
	}

	if !strings.Contains(lower, "step") && utf8.RuneCountInString(s.Solution) > 100 {
		s.Solution = "**Mathematical Solution:**\n\n" + s.Solution +
			"\n\n**Note:** This solution provides the mathematical reasoning for the given problem."
	}
}
