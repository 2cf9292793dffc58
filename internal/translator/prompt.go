package translator

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultStyleGuide constrains tone and structure of every translation.
const DefaultStyleGuide = `
- Tone: Professional and serious.
- Structure: Keep sentence lengths as close to the original as possible.
- Constraint: Do not add, remove, or summarize sentences.
`

// BuildPrompt assembles the instruction sent alongside each segment. The
// glossary, when present, is rendered in a stable order so the prompt is
// identical across runs.
func BuildPrompt(targetLang, styleGuide string, glossary map[string]string) string {
	if styleGuide == "" {
		styleGuide = DefaultStyleGuide
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Translate the following to %s.\n\n", targetLang))
	sb.WriteString("STYLE GUIDE:\n")
	sb.WriteString(styleGuide)
	sb.WriteString("\n\n")

	if len(glossary) > 0 {
		terms := make([]string, 0, len(glossary))
		for src := range glossary {
			terms = append(terms, src)
		}
		sort.Strings(terms)

		sb.WriteString("TERMINOLOGY (use these exact translations):\n")
		for _, src := range terms {
			sb.WriteString(fmt.Sprintf("  %s → %s\n", src, glossary[src]))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("CONTENT:\n")
	return sb.String()
}
