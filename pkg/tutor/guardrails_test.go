package tutor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runInputGuardrails(question string) RequestState {
	s := RequestState{Question: question}
	applyInputGuardrails(&s, 0)
	return s
}

func TestInputGuardrailTooShort(t *testing.T) {
	for _, q := range []string{"", "  ", "x=", " x \t"} {
		s := runInputGuardrails(q)
		assert.False(t, s.GuardrailPassed, "question %q", q)
		assert.Equal(t, msgTooShort, s.ErrorMessage)
	}

	// Exactly three trimmed characters passes the length rule.
	s := runInputGuardrails("x=1")
	assert.True(t, s.GuardrailPassed)
}

func TestInputGuardrailTooLong(t *testing.T) {
	s := runInputGuardrails("solve " + strings.Repeat("x", 995))
	assert.False(t, s.GuardrailPassed)
	assert.Equal(t, "Question is too long. Please keep it under 1000 characters.", s.ErrorMessage)

	// Exactly 1000 characters is allowed.
	q := "solve " + strings.Repeat("x", 994)
	assert.Len(t, q, 1000)
	assert.True(t, runInputGuardrails(q).GuardrailPassed)
}

func TestInputGuardrailInappropriateContent(t *testing.T) {
	s := runInputGuardrails("how do I hack the equation grading system")
	assert.False(t, s.GuardrailPassed)
	assert.Equal(t, msgBlocked, s.ErrorMessage)

	// Case-insensitive matching.
	s = runInputGuardrails("solve this ILLEGAL equation")
	assert.False(t, s.GuardrailPassed)
	assert.Equal(t, msgBlocked, s.ErrorMessage)
}

func TestInputGuardrailRequiresMathIndicator(t *testing.T) {
	s := runInputGuardrails("tell me about the weather in Paris")
	assert.False(t, s.GuardrailPassed)
	assert.Equal(t, msgNotMath, s.ErrorMessage)

	for _, q := range []string{
		"solve the quadratic",
		"what is 2 + 2",
		"explain the pythagorean theorem",
		"√16 is what",
	} {
		assert.True(t, runInputGuardrails(q).GuardrailPassed, "question %q", q)
	}
}

func TestInputGuardrailOrderShortBeforeBlocked(t *testing.T) {
	// Two rules violated at once; the earlier one reports.
	s := runInputGuardrails("h")
	assert.Equal(t, msgTooShort, s.ErrorMessage)

	s = runInputGuardrails("hack " + strings.Repeat("x", 1000))
	assert.Equal(t, "Question is too long. Please keep it under 1000 characters.", s.ErrorMessage)
}

func TestInputGuardrailCountsCharactersNotBytes(t *testing.T) {
	// 1000 characters of multibyte math symbols must pass the length rule
	// even though the byte count is far larger.
	q := "solve " + strings.Repeat("²", 994)
	assert.Equal(t, 1000, len([]rune(q)))
	assert.Greater(t, len(q), 1000)
	assert.True(t, runInputGuardrails(q).GuardrailPassed)

	// "√=" trims to two characters: still too short.
	s := runInputGuardrails(" √= ")
	assert.False(t, s.GuardrailPassed)
	assert.Equal(t, msgTooShort, s.ErrorMessage)
}

func TestInputGuardrailCustomMaxLength(t *testing.T) {
	s := RequestState{Question: "solve " + strings.Repeat("x", 200)}
	applyInputGuardrails(&s, 100)
	assert.False(t, s.GuardrailPassed)
	assert.Equal(t, "Question is too long. Please keep it under 100 characters.", s.ErrorMessage)
}

func TestOutputGuardrailShortSolutionReplaced(t *testing.T) {
	s := RequestState{Solution: "x = 4", Confidence: 0.9}
	applyOutputGuardrails(&s)

	assert.Equal(t, tooShortSolutionReplacement, s.Solution)
	assert.InDelta(t, 0.2, s.Confidence, 1e-9)
}

func TestOutputGuardrailFailurePhraseDowngraded(t *testing.T) {
	s := RequestState{
		Solution:   "Step 1: I apologize, this is partially worked.\nStep 2: done anyway",
		Confidence: 0.9,
	}
	applyOutputGuardrails(&s)

	assert.InDelta(t, 0.1, s.Confidence, 1e-9)
	// Solution text itself is kept.
	assert.Contains(t, s.Solution, "partially worked")
}

func TestOutputGuardrailKeepsReviewFlag(t *testing.T) {
	// The review flag belongs to the generator; a confidence override
	// must not retroactively change it.
	s := RequestState{
		Solution:           "Step 1: We cannot factor this directly.\nStep 2: Complete the square instead.",
		Confidence:         0.9,
		NeedsHumanFeedback: false,
	}
	applyOutputGuardrails(&s)
	assert.InDelta(t, 0.1, s.Confidence, 1e-9)
	assert.False(t, s.NeedsHumanFeedback)

	s = RequestState{Solution: "x = 4", Confidence: 0.6, NeedsHumanFeedback: true}
	applyOutputGuardrails(&s)
	assert.InDelta(t, 0.2, s.Confidence, 1e-9)
	assert.True(t, s.NeedsHumanFeedback)
}

func TestOutputGuardrailWrapsUnstructuredSolution(t *testing.T) {
	body := strings.Repeat("the answer follows from the definition of a derivative ", 3)
	s := RequestState{Solution: body, Confidence: 0.8}
	applyOutputGuardrails(&s)

	assert.True(t, strings.HasPrefix(s.Solution, "**Mathematical Solution:**"))
	assert.Contains(t, s.Solution, body)
	assert.Contains(t, s.Solution, "**Note:**")
	// Confidence untouched by the formatting rule alone.
	assert.InDelta(t, 0.8, s.Confidence, 1e-9)
}

func TestOutputGuardrailDowngradeAndWrapAreIndependent(t *testing.T) {
	// No "step", long, and containing a failure phrase: both rules apply.
	body := "I am unable to fully verify this, but the result equals the limit of the sequence as n grows without bound."
	s := RequestState{Solution: body, Confidence: 0.9}
	applyOutputGuardrails(&s)

	assert.InDelta(t, 0.1, s.Confidence, 1e-9)
	assert.True(t, strings.HasPrefix(s.Solution, "**Mathematical Solution:**"))
}

func TestOutputGuardrailCleanSolutionUntouched(t *testing.T) {
	solution := "**Step-by-Step Solution:**\nStep 1: Factor the quadratic.\nStep 2: Set each factor to zero.\n**Final Answer:** x = -2 or x = -3"
	s := RequestState{Solution: solution, Confidence: 1.0, NeedsHumanFeedback: false}
	applyOutputGuardrails(&s)

	assert.Equal(t, solution, s.Solution)
	assert.InDelta(t, 1.0, s.Confidence, 1e-9)
	assert.False(t, s.NeedsHumanFeedback)
}
