package agent

import (
	"regexp"
	"strings"
)

var triggerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)@sora`),
	regexp.MustCompile(`(?i)generate video:?`),
	regexp.MustCompile(`(?i)create video:?`),
}

// testModePrefix selects the cheap sample path instead of real generation.
var testModePrefix = regexp.MustCompile(`(?i)^test\b[: ]*`)

// IsVideoRequest reports whether text contains a video generation trigger.
func IsVideoRequest(text string) bool {
	for _, p := range triggerPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// ExtractPrompt strips the trigger words from text and reports whether the
// remainder asks for the test path. An empty prompt means the user sent a
// bare trigger.
func ExtractPrompt(text string) (prompt string, testMode bool) {
	prompt = text
	for _, p := range triggerPatterns {
		prompt = p.ReplaceAllString(prompt, "")
	}
	prompt = strings.TrimSpace(prompt)

	if testModePrefix.MatchString(prompt) {
		testMode = true
		prompt = strings.TrimSpace(testModePrefix.ReplaceAllString(prompt, ""))
	}

	return prompt, testMode
}
