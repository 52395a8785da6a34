package domain

import "path/filepath"

// MediaFile is a resolved local media file ready for upload.
type MediaFile struct {
	Path string
	Size int64
}

// Name returns the base file name, used as the upload filename.
func (f MediaFile) Name() string {
	return filepath.Base(f.Path)
}

// AppCredentials identify an OAuth application registered on a server.
type AppCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// StatusDraft is the payload for one post of a thread.
type StatusDraft struct {
	Text                string
	Warning             string
	Visibility          Visibility
	ReplyTo             string
	MediaIDs            []string
	Language            string
	QuoteTarget         string
	QuoteApprovalPolicy string // "default" or empty means the server decides

	// IdempotencyKey deduplicates retried creations server-side.
	IdempotencyKey string
}

// UploadReceipt is a stored media id plus the remaining request budget
// the server reported on that response.
type UploadReceipt struct {
	MediaID       string
	RateRemaining int
}

// CreateReceipt is a created post id plus the remaining request budget
// the server reported on that response.
type CreateReceipt struct {
	ID            string
	RateRemaining int
}
