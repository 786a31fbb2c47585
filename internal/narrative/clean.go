package narrative

import (
	"regexp"
	"strings"
)

// emojiRE covers the pictograph, dingbat and flag blocks. CJK is left alone
// so player names survive.
var emojiRE = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2702}-\x{27B0}\x{1F900}-\x{1F9FF}\x{1FA00}-\x{1FAFF}\x{2600}-\x{26FF}\x{FE0F}\x{200D}]+`)

// Clean strips surrounding quotes and emoji from generated text and trims it.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	s = strings.Trim(s, `'`)
	s = emojiRE.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "—", ", ")
	return strings.TrimSpace(s)
}

// extractJSON pulls the JSON body out of a response that may wrap it in a
// markdown code fence.
func extractJSON(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	s = strings.TrimSpace(s)
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return s
}
