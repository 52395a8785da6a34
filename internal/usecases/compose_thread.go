package usecases

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"mastothread/internal/adapters/markdown"
	"mastothread/internal/domain"
	"mastothread/pkg/log"
)

// FileStore resolves document references to files on disk.
type FileStore interface {
	Resolve(ref string) (domain.MediaFile, error)
}

// StatusSearcher looks up a remote status by URL and reports its id when
// the status exists and may be quoted by the current user.
type StatusSearcher interface {
	SearchStatus(ctx context.Context, query string) (string, error)
}

// ComposeRequest carries the raw document text and per-thread overrides.
type ComposeRequest struct {
	Text            string
	Selection       string
	Language        string
	VisibilityFirst string
	VisibilityRest  string
}

// ComposeThreadUseCase turns markdown into a validated thread plan.
type ComposeThreadUseCase struct {
	files FileStore
}

// NewComposeThreadUseCase creates a new ComposeThreadUseCase.
func NewComposeThreadUseCase(files FileStore) *ComposeThreadUseCase {
	return &ComposeThreadUseCase{files: files}
}

// TypeByExtension has no registrations for a few extensions Mastodon
// servers commonly accept, so those are resolved locally first.
var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
}

func mimeForExt(ext string) string {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if mt, ok := mimeByExt[ext]; ok {
		return mt
	}
	mt := mime.TypeByExtension(ext)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	return mt
}

func kindForMime(mt string) domain.MediaKind {
	if strings.HasPrefix(mt, "video/") {
		return domain.MediaVideo
	}
	return domain.MediaImage
}

// Execute splits the document, validates every fragment against the server
// capability snapshot and returns the ready-to-publish plan. The searcher is
// only consulted when a fragment contains a quotable URL and the server
// supports quote posts.
func (uc *ComposeThreadUseCase) Execute(ctx context.Context, searcher StatusSearcher, req ComposeRequest, prefs domain.Settings, snap domain.Capability) (*domain.ThreadPlan, error) {
	text := req.Text
	if req.Selection != "" {
		// a selection publishes only its content past the last separator
		text = markdown.LastChunk(req.Selection, markdown.Separator)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrNoText
	}

	chunks := markdown.Split(text, markdown.Separator)

	plan := &domain.ThreadPlan{
		Language:        firstNonEmpty(req.Language, prefs.Language),
		VisibilityFirst: domain.Visibility(firstNonEmpty(req.VisibilityFirst, string(prefs.FirstPost))),
		VisibilityRest:  domain.Visibility(firstNonEmpty(req.VisibilityRest, string(prefs.RestOfThread))),
	}

	maxChars := snap.EffectiveMaxPost(prefs.MaxPost)
	requests := 0

	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			return nil, fmt.Errorf("%w: fragment %d", domain.ErrEmptyFragment, i+1)
		}
		parsed := markdown.ParseFragment(chunk)

		frag := &domain.Fragment{Text: parsed.Body, Warning: parsed.Warning}

		for _, ref := range parsed.Media {
			att, err := uc.checkMedia(ref, frag.Attachments, snap)
			if err != nil {
				return nil, err
			}
			if att.AltText == "" {
				plan.MissingDescriptions = true
			}
			frag.Attachments = append(frag.Attachments, att)
		}

		if len(frag.Attachments) > snap.MaxAttachments {
			return nil, fmt.Errorf("%w: fragment %d has %d attachments, server allows %d",
				domain.ErrTooManyAttachments, i+1, len(frag.Attachments), snap.MaxAttachments)
		}

		if snap.SupportsQuotes && prefs.QuoteLinks && searcher != nil {
			uc.resolveQuote(ctx, searcher, frag, &requests)
		}

		if prefs.PostCounter && len(chunks) > 1 {
			frag.Text = fmt.Sprintf("%s\n\n[%d/%d]", frag.Text, i+1, len(chunks))
		}

		size := len([]rune(frag.Text))
		if frag.Warning != "" {
			size += len([]rune(frag.Warning))
		}
		if frag.Text == "" && len(frag.Attachments) == 0 {
			return nil, fmt.Errorf("%w: fragment %d", domain.ErrEmptyFragment, i+1)
		}
		if size > maxChars {
			return nil, fmt.Errorf("%w: fragment %d is %d characters, limit is %d",
				domain.ErrPostTooLong, i+1, size, maxChars)
		}

		requests++ // one status creation per fragment
		plan.Fragments = append(plan.Fragments, frag)
	}

	requests += len(plan.AttachmentsInOrder())
	plan.RequestEstimate = requests

	if snap.RateRemaining != domain.RateUnknown && requests > snap.RateRemaining {
		return nil, fmt.Errorf("%w: thread needs %d requests, %d remain in the current window",
			domain.ErrRateLimited, requests, snap.RateRemaining)
	}

	log.GlobalDebugCtx(ctx, "thread composed",
		"fragments", len(plan.Fragments),
		"attachments", len(plan.AttachmentsInOrder()),
		"requests", requests)

	return plan, nil
}

func (uc *ComposeThreadUseCase) checkMedia(ref markdown.MediaRef, existing []*domain.Attachment, snap domain.Capability) (*domain.Attachment, error) {
	mt := mimeForExt(ref.Ext)
	if mt == "" || !snap.AllowsMime(mt) {
		return nil, &domain.MediaError{Path: ref.Path, Reason: domain.MediaDisallowedType}
	}
	kind := kindForMime(mt)

	// Servers reject mixed posts: a video must travel alone, and images
	// cannot join a post that already carries a video.
	for _, prev := range existing {
		if kind == domain.MediaVideo || prev.Kind == domain.MediaVideo {
			return nil, &domain.MediaError{Path: ref.Path, Reason: domain.MediaMixedKinds}
		}
	}

	file, err := uc.files.Resolve(ref.Path)
	if err != nil {
		return nil, err
	}
	if max := snap.MaxBytesFor(kind); max > 0 && file.Size > max {
		return nil, &domain.MediaError{Path: ref.Path, Reason: domain.MediaFileTooLarge}
	}
	if snap.MaxDescriptionChars > 0 && len([]rune(ref.Description)) > snap.MaxDescriptionChars {
		return nil, fmt.Errorf("%w: %s", domain.ErrDescriptionTooLong, ref.Path)
	}

	return &domain.Attachment{SourceRef: ref.Path, AltText: ref.Description, Kind: kind}, nil
}

// resolveQuote scans the fragment body for URLs and attaches the first one
// that resolves to a quotable status, removing it from the text.
func (uc *ComposeThreadUseCase) resolveQuote(ctx context.Context, searcher StatusSearcher, frag *domain.Fragment, requests *int) {
	for _, url := range markdown.FindURLs(frag.Text) {
		*requests++
		id, err := searcher.SearchStatus(ctx, url)
		if err != nil {
			log.GlobalWarnCtx(ctx, "quote lookup failed", "url", url, "error", err)
			continue
		}
		if id == "" {
			continue
		}
		frag.QuoteTargetID = id
		frag.Text = strings.TrimSpace(strings.Replace(frag.Text, url, "", 1))
		return
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
