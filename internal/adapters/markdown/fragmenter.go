package markdown

import (
	"strings"
	"unicode/utf8"
)

// FragmentSize measures the posting size of a chunk: media references are
// removed, link markup collapses to its target URL, quote-block lines and
// separator markers do not count.
func FragmentSize(chunk string) int {
	text := patternMedia.ReplaceAllString(chunk, "")
	text = patternLink.ReplaceAllString(text, "$1")
	text = patternQuoteLine.ReplaceAllString(text, "")
	text = strings.TrimPrefix(text, Separator)
	return utf8.RuneCountInString(text)
}

// AutoFragment rewrites text so no fragment exceeds limit: existing
// separators are removed first, then a separator marker is inserted at the
// start of the last line before the accumulating fragment would overflow.
// Quote-block lines are ignored in the running count. StripSeparators on
// the result reproduces the input content.
func AutoFragment(text string, limit int, separator string) string {
	text = StripSeparators(text, separator)
	lines := strings.Split(text, "\n")
	count := 0
	for i, line := range lines {
		if strings.HasPrefix(line, ">") {
			continue
		}
		size := lineSize(line)
		count += size + 1
		if count > limit {
			lines[i] = separator + line
			count = size + 1
		}
	}
	return strings.Join(lines, "\n")
}

// StripSeparators removes the leading separator marker from every
// boundary line.
func StripSeparators(text, separator string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, separator) {
			lines[i] = strings.TrimPrefix(line, separator)
		}
	}
	return strings.Join(lines, "\n")
}

// lineSize is the size contribution of a single line: media references
// removed, links collapsed to their targets.
func lineSize(line string) int {
	line = patternMedia.ReplaceAllString(line, " ")
	line = patternLink.ReplaceAllString(line, "$1")
	return utf8.RuneCountInString(line)
}
