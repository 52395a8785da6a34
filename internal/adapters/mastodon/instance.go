package mastodon

import (
	"context"
	"strconv"
	"strings"

	"mastothread/internal/domain"
)

type instanceResponse struct {
	Version       string `json:"version"`
	Configuration struct {
		Statuses struct {
			MaxCharacters       int `json:"max_characters"`
			MaxMediaAttachments int `json:"max_media_attachments"`
		} `json:"statuses"`
		MediaAttachments struct {
			SupportedMimeTypes []string `json:"supported_mime_types"`
			ImageSizeLimit     int64    `json:"image_size_limit"`
			VideoSizeLimit     int64    `json:"video_size_limit"`
			DescriptionLimit   int      `json:"description_limit"`
		} `json:"media_attachments"`
	} `json:"configuration"`
}

// Instance fetches the server configuration and normalizes it into a
// capability snapshot. Fields the server leaves out keep their defaults;
// the snapshot carries the rate-limit remaining reading of this call.
func (c *Client) Instance(ctx context.Context) (domain.Capability, error) {
	var info instanceResponse
	remaining, err := c.getJSON(ctx, "/api/v2/instance", &info)
	if err != nil {
		return domain.Capability{}, err
	}

	snap := domain.DefaultCapability()
	cfg := info.Configuration
	if cfg.Statuses.MaxCharacters > 0 {
		snap.MaxPostChars = cfg.Statuses.MaxCharacters
	}
	if cfg.Statuses.MaxMediaAttachments > 0 {
		snap.MaxAttachments = cfg.Statuses.MaxMediaAttachments
	}
	if cfg.MediaAttachments.ImageSizeLimit > 0 {
		snap.MaxImageBytes = cfg.MediaAttachments.ImageSizeLimit
	}
	if cfg.MediaAttachments.VideoSizeLimit > 0 {
		snap.MaxVideoBytes = cfg.MediaAttachments.VideoSizeLimit
	}
	if cfg.MediaAttachments.DescriptionLimit > 0 {
		snap.MaxDescriptionChars = cfg.MediaAttachments.DescriptionLimit
	}
	if len(cfg.MediaAttachments.SupportedMimeTypes) > 0 {
		snap.MimeTypes = cfg.MediaAttachments.SupportedMimeTypes
	}
	snap.SupportsQuotes = supportsQuotes(info.Version)
	snap.RateRemaining = remaining
	return snap, nil
}

// supportsQuotes reports whether the server version carries the quote
// API, introduced in 4.5.
func supportsQuotes(version string) bool {
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minor, err := strconv.Atoi(strings.TrimFunc(parts[1], func(r rune) bool {
		return r < '0' || r > '9'
	}))
	if err != nil {
		return false
	}
	return major > 4 || (major == 4 && minor >= 5)
}
