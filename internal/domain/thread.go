// Package domain contains the core business entities and rules.
package domain

// MediaKind classifies an attachment. A fragment never mixes kinds.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Visibility is the audience setting applied to a created post.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Attachment references a local file to be uploaded alongside a fragment.
type Attachment struct {
	SourceRef string    // Path as written in the document
	AltText   string    // Description, possibly empty
	Kind      MediaKind
	RemoteID  string // Set exactly once, on successful upload
}

// Fragment is one unit of text destined to become a single post.
type Fragment struct {
	Text          string        // Body after structural markup is stripped
	Warning       string        // Content warning, empty when absent
	Attachments   []*Attachment // Insertion order determines upload order
	QuoteTargetID string        // Resolved quoted post, at most one per fragment
}

// ThreadPlan is an ordered sequence of fragments plus thread-wide metadata.
// It is built once per invocation and immutable after validation passes;
// only Attachment.RemoteID is filled in later, during publication.
type ThreadPlan struct {
	Fragments       []*Fragment
	Language        string
	VisibilityFirst Visibility
	VisibilityRest  Visibility

	// RequestEstimate counts the network calls publication will need:
	// one per media upload, one per status creation, plus one per quote
	// lookup already spent during composition.
	RequestEstimate int

	// MissingDescriptions is true when at least one attachment has no alt
	// text. The caller may use it as a soft confirmation gate; it never
	// blocks publication by itself.
	MissingDescriptions bool
}

// AttachmentsInOrder returns every attachment across the whole plan in
// insertion order. Uploads run in this order, before any post is created.
func (p *ThreadPlan) AttachmentsInOrder() []*Attachment {
	var all []*Attachment
	for _, f := range p.Fragments {
		all = append(all, f.Attachments...)
	}
	return all
}
