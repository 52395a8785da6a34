// Package fixtures provides markdown documents for exercising the
// fragment pipeline.
package fixtures

// ThreadDocument returns a three-fragment document with media, a content
// warning and a quotable link.
func ThreadDocument() string {
	return `The opening post of the thread.

![[sunset.jpg|400]]
> golden light over the bay
§
%%cw: food%%
Second post, behind a warning.
§
Closing post, quoting https://mastodon.example/@ana/114 for context.`
}

// MediaHeavyDocument returns a single fragment referencing several images,
// one of them without a description.
func MediaHeavyDocument() string {
	return `Gallery dump.

![[one.png]]
> first picture
![[two.png]]
> second picture
![[three.png]]`
}

// OversizedDocument returns a document whose single fragment exceeds any
// reasonable post limit.
func OversizedDocument() string {
	body := make([]byte, 0, 6000)
	for i := 0; i < 600; i++ {
		body = append(body, "a line of text\n"...)
	}
	return string(body)
}
