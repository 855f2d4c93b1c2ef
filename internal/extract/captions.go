package extract

import (
	"regexp"
	"strings"
)

var (
	cueTimingRe = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?[.,]\d{3}\s+-->\s+\d{1,2}:\d{2}(:\d{2})?[.,]\d{3}`)
	cueNumberRe = regexp.MustCompile(`^\d+$`)
	voiceTagRe  = regexp.MustCompile(`^<v(?:\.[^ >]*)?\s+([^>]+)>`)
	markupRe    = regexp.MustCompile(`</?[^>]+>`)
)

// extractCaptions reduces WebVTT or SubRip text to one line per cue. Consecutive
// cues from the same speaker are kept as separate lines.
func extractCaptions(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	skipBlock := false
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			skipBlock = false
			continue
		}
		if skipBlock {
			continue
		}
		switch {
		case strings.HasPrefix(line, "WEBVTT"):
			skipBlock = true
			continue
		case strings.HasPrefix(line, "NOTE"), line == "STYLE", line == "REGION":
			skipBlock = true
			continue
		case cueNumberRe.MatchString(line), cueTimingRe.MatchString(line):
			continue
		}
		speaker := ""
		if m := voiceTagRe.FindStringSubmatch(line); m != nil {
			speaker = strings.TrimSpace(m[1])
		}
		line = strings.TrimSpace(markupRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if speaker != "" {
			line = speaker + ": " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
