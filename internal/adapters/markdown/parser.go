// Package markdown turns editor text into thread fragments. Everything in
// this package is pure text transformation: no I/O, deterministic given
// the input text and separator.
package markdown

import (
	"regexp"
	"strings"
)

// Separator is the reserved marker that opens a fragment boundary line.
const Separator = "§"

var (
	// patternMedia captures an embedded media reference: the display path
	// with its extension, an optional size suffix after a pipe, and the
	// consecutive quote-prefixed description lines directly below it.
	patternMedia = regexp.MustCompile(`!\[\[([^\[\]|\n]+\.([A-Za-z0-9]+))(\|[^]\n]*)?]][ \t]*((?:\n>[^\n]*)*)`)

	// patternLink matches markdown link markup; bodies keep the target URL.
	patternLink = regexp.MustCompile(`\[[^]\n]*]\((https?://[^)\s]+)\)`)

	// patternWarning matches the inline content-warning marker.
	patternWarning = regexp.MustCompile(`%%cw:[ \t]*([^%\n]+?)[ \t]*%%`)

	// patternQuoteLine matches quote-block lines, excluded from bodies.
	patternQuoteLine = regexp.MustCompile(`(?m)^>[^\n]*\n?`)

	// patternURL finds bare URLs in a cleaned body, used for quote lookup.
	patternURL = regexp.MustCompile(`https?://[-a-zA-Z0-9@:%._+~#=]+\.[a-zA-Z]{2,}[-a-zA-Z0-9()@:%_+.~#?&/=]*`)

	descPrefix = regexp.MustCompile(`(?m)^> ?`)
)

// MediaRef is one media reference extracted from a fragment chunk.
type MediaRef struct {
	Path        string // As written in the document
	Ext         string // File extension, lower-cased
	Description string // Joined description lines, possibly empty
}

// Parsed is the structured form of one fragment chunk, not yet validated.
type Parsed struct {
	Body    string
	Warning string
	Media   []MediaRef
}

// Split cuts raw text into ordered fragment chunks. A line whose content
// begins with the separator marker opens a new chunk; the marker itself is
// stripped and the rest of the line belongs to the new chunk. N separator
// lines yield N+1 chunks.
func Split(text, separator string) []string {
	lines := strings.Split(text, "\n")
	var chunks []string
	var current []string
	for _, line := range lines {
		if strings.HasPrefix(line, separator) {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = []string{strings.TrimPrefix(line, separator)}
			continue
		}
		current = append(current, line)
	}
	return append(chunks, strings.Join(current, "\n"))
}

// LastChunk returns the content after the last separator in a selected
// range. Publishing a selection only considers that final chunk.
func LastChunk(selection, separator string) string {
	chunks := Split(selection, separator)
	return chunks[len(chunks)-1]
}

// ParseFragment extracts the structured sub-elements of one chunk and
// produces the cleaned body: media references and their description blocks
// removed, link markup collapsed to its target, warning and quote blocks
// removed, whitespace trimmed.
func ParseFragment(chunk string) Parsed {
	var p Parsed

	for _, m := range patternMedia.FindAllStringSubmatch(chunk, -1) {
		p.Media = append(p.Media, MediaRef{
			Path:        m[1],
			Ext:         strings.ToLower(m[2]),
			Description: cleanDescription(m[4]),
		})
	}

	if w := patternWarning.FindStringSubmatch(chunk); w != nil {
		p.Warning = w[1]
	}

	body := patternMedia.ReplaceAllString(chunk, " ")
	body = patternLink.ReplaceAllString(body, "$1")
	body = patternWarning.ReplaceAllString(body, "")
	body = patternQuoteLine.ReplaceAllString(body, "")
	p.Body = strings.TrimSpace(body)

	return p
}

// FindURLs returns the bare URLs embedded in a cleaned body, in order.
func FindURLs(body string) []string {
	return patternURL.FindAllString(body, -1)
}

// cleanDescription strips the quote markers from captured description
// lines and joins them with newlines.
func cleanDescription(block string) string {
	if block == "" {
		return ""
	}
	return strings.TrimSpace(descPrefix.ReplaceAllString(block, ""))
}
