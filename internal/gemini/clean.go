package gemini

import "strings"

var markdownCleaner = strings.NewReplacer("*", "", "#", "", "_", "", "-", " ")

// cleanResponse strips the markdown markers the model sometimes emits in
// spite of its instructions.
func cleanResponse(text string) string {
	return strings.TrimSpace(markdownCleaner.Replace(text))
}
