package tutor

import (
	"strings"
	"unicode/utf8"

	"mathtutor/pkg/retrieval"
)

const (
	kbSectionHeader  = "=== SIMILAR PROBLEMS FROM KNOWLEDGE BASE ==="
	webSectionHeader = "=== CURRENT INFORMATION FROM WEB ==="

	// limitedContextFallback stands in when no source produced anything.
	// The confidence heuristic keys off this sentence.
	limitedContextFallback = "Limited context available. Will use mathematical knowledge to solve."

	truncationMarker = "\n...[context truncated for efficiency]"
)

// combineContext merges retrieval results into the generator context. Only
// usable results contribute; empty and failed sources are silently dropped.
// The combined text is truncated at maxLength to control generation cost.
func combineContext(kb, web retrieval.Result, maxLength int) string {
	var parts []string

	if kb.Usable() {
		parts = append(parts, kbSectionHeader, kb.Text)
	}

	if web.Usable() {
		parts = append(parts, webSectionHeader, web.Text)
	}

	context := limitedContextFallback
	if len(parts) > 0 {
		context = strings.Join(parts, "\n\n")
	}

	// Truncate on rune boundaries; a byte cut could split a math symbol
	// and hand the generator invalid UTF-8.
	if maxLength > 0 && utf8.RuneCountInString(context) > maxLength {
		context = string([]rune(context)[:maxLength]) + truncationMarker
	}

	return context
}
