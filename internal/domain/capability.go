package domain

// RateUnknown marks an absent rate-limit reading. A missing value disables
// the pre-flight admission check but never the in-flight one.
const RateUnknown = -1

// Capability is the server-declared limit snapshot a composition and
// publication cycle runs against. It is read-only during a cycle and safe
// to cache across cycles within a freshness deadline.
type Capability struct {
	MaxPostChars        int      `json:"max_post_chars"`
	MaxAttachments      int      `json:"max_attachments"`
	MaxImageBytes       int64    `json:"max_image_bytes"`
	MaxVideoBytes       int64    `json:"max_video_bytes"`
	MaxDescriptionChars int      `json:"max_description_chars"`
	MimeTypes           []string `json:"mime_types"`
	SupportsQuotes      bool     `json:"supports_quotes"`

	// RateRemaining is the caller's remaining request budget as reported
	// by the server at snapshot time, or RateUnknown.
	RateRemaining int `json:"rate_remaining"`
}

// DefaultCapability returns the limits assumed before a server has ever
// been queried. Values match mainline Mastodon defaults.
func DefaultCapability() Capability {
	return Capability{
		MaxPostChars:        500,
		MaxAttachments:      4,
		MaxImageBytes:       10485760,
		MaxVideoBytes:       103809024,
		MaxDescriptionChars: 1500,
		MimeTypes: []string{
			"image/jpeg",
			"image/png",
			"image/gif",
			"image/heic",
			"image/heif",
			"image/webp",
		},
		SupportsQuotes: true,
		RateRemaining:  RateUnknown,
	}
}

// AllowsMime reports whether the server accepts the given mime type.
func (c Capability) AllowsMime(mimeType string) bool {
	for _, m := range c.MimeTypes {
		if m == mimeType {
			return true
		}
	}
	return false
}

// MaxBytesFor returns the per-file size cap for a media kind.
func (c Capability) MaxBytesFor(kind MediaKind) int64 {
	if kind == MediaVideo {
		return c.MaxVideoBytes
	}
	return c.MaxImageBytes
}

// EffectiveMaxPost is the post size limit actually enforced: the smaller
// of the user's preference and the server's declared maximum. A user limit
// of zero means "server limit only".
func (c Capability) EffectiveMaxPost(userMax int) int {
	if userMax > 0 && userMax < c.MaxPostChars {
		return userMax
	}
	return c.MaxPostChars
}
