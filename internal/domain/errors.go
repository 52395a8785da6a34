package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoText is returned when there is nothing to post.
	ErrNoText = errors.New("nothing to post")

	// ErrEmptyFragment is returned when a fragment is blank after trimming.
	// The whole operation aborts; nothing is posted.
	ErrEmptyFragment = errors.New("empty fragment")

	// ErrPostTooLong is returned when a cleaned fragment body exceeds the
	// effective post size limit.
	ErrPostTooLong = errors.New("post exceeds size limit")

	// ErrTooManyAttachments is returned when a fragment references more
	// media than the server allows per post.
	ErrTooManyAttachments = errors.New("too many attachments")

	// ErrDescriptionTooLong is returned when a media description exceeds
	// the server's limit.
	ErrDescriptionTooLong = errors.New("media description too long")

	// ErrRateLimited is returned both pre-flight (estimated requests exceed
	// the known remaining budget) and mid-flight (observed remaining budget
	// insufficient for the remaining work). Mid-flight, completed uploads
	// and posts are left in place.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotAuthenticated is returned when credentials are missing or
	// rejected, before any parsing or validation work is attempted.
	ErrNotAuthenticated = errors.New("not connected to a server")

	// ErrPostingFailed is returned on a network or server failure during
	// upload or status creation. The sequence stops where it is; a partial
	// thread is an accepted outcome.
	ErrPostingFailed = errors.New("posting failed")

	// ErrPublishInProgress is returned when a publication cycle is already
	// running. Cycles never race over the same session state.
	ErrPublishInProgress = errors.New("a publication is already in progress")
)

// MediaReason identifies why a media reference was rejected.
type MediaReason string

const (
	MediaDisallowedType MediaReason = "disallowed media type"
	MediaMixedKinds     MediaReason = "mixed media kinds"
	MediaFileNotFound   MediaReason = "file not found"
	MediaFileTooLarge   MediaReason = "file too large"
)

// MediaError reports a rejected media reference together with the
// offending path from the document.
type MediaError struct {
	Path   string
	Reason MediaReason
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

// IsMediaError returns the MediaError wrapped in err, if any.
func IsMediaError(err error) (*MediaError, bool) {
	var me *MediaError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}
