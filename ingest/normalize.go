package ingest

import (
	"regexp"
	"strings"
)

var (
	spaceRuns  = regexp.MustCompile(` {2,}`)
	dotBullet  = regexp.MustCompile(`(\S)\s+•\s*`)
	dashBullet = regexp.MustCompile(`(\S)\s+-\s+`)
)

// Normalize cleans raw extracted text before chunking: line endings are
// unified, runs of spaces collapsed, and bullet markers forced onto their
// own lines so the splitter sees them as boundaries.
func Normalize(text string) string {
	t := strings.ReplaceAll(text, "\r\n", "\n")
	t = spaceRuns.ReplaceAllString(t, " ")
	t = dotBullet.ReplaceAllString(t, "$1\n• ")
	t = dashBullet.ReplaceAllString(t, "$1\n- ")
	return t
}
