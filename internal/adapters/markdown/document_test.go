package markdown_test

import (
	"strings"
	"testing"

	"mastothread/internal/adapters/markdown"
	"mastothread/test/fixtures"
)

func TestParseFullThreadDocument(t *testing.T) {
	chunks := markdown.Split(fixtures.ThreadDocument(), markdown.Separator)
	if len(chunks) != 3 {
		t.Fatalf("chunks: got %d, want 3", len(chunks))
	}

	first := markdown.ParseFragment(chunks[0])
	if len(first.Media) != 1 {
		t.Fatalf("first media: got %d, want 1", len(first.Media))
	}
	if first.Media[0].Path != "sunset.jpg" {
		t.Errorf("media path: got %q, want sunset.jpg", first.Media[0].Path)
	}
	if first.Media[0].Description != "golden light over the bay" {
		t.Errorf("description: got %q", first.Media[0].Description)
	}
	if strings.Contains(first.Body, "![[") {
		t.Errorf("media reference left in body: %q", first.Body)
	}

	second := markdown.ParseFragment(chunks[1])
	if second.Warning != "food" {
		t.Errorf("warning: got %q, want food", second.Warning)
	}
	if strings.Contains(second.Body, "%%") {
		t.Errorf("warning marker left in body: %q", second.Body)
	}

	third := markdown.ParseFragment(chunks[2])
	urls := markdown.FindURLs(third.Body)
	if len(urls) != 1 || urls[0] != "https://mastodon.example/@ana/114" {
		t.Errorf("urls: got %v", urls)
	}
}

func TestParseMediaHeavyDocument(t *testing.T) {
	chunks := markdown.Split(fixtures.MediaHeavyDocument(), markdown.Separator)
	if len(chunks) != 1 {
		t.Fatalf("chunks: got %d, want 1", len(chunks))
	}

	parsed := markdown.ParseFragment(chunks[0])
	if len(parsed.Media) != 3 {
		t.Fatalf("media: got %d, want 3", len(parsed.Media))
	}
	if parsed.Media[2].Description != "" {
		t.Errorf("third description: got %q, want empty", parsed.Media[2].Description)
	}
}

func TestAutoFragmentOversizedDocument(t *testing.T) {
	out := markdown.AutoFragment(fixtures.OversizedDocument(), 500, markdown.Separator)

	for i, chunk := range markdown.Split(out, markdown.Separator) {
		if size := markdown.FragmentSize(chunk); size > 500 {
			t.Errorf("fragment %d: size %d exceeds 500", i+1, size)
		}
	}
}
