package usecases

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"mastothread/internal/domain"
	"mastothread/pkg/log"
)

// Phase names a stage of the publication sequence.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading_media"
	PhaseCreating  Phase = "creating_posts"
	PhaseDone      Phase = "done"
	PhaseAborted   Phase = "aborted"
)

// Poster is the slice of the server API that publication needs.
type Poster interface {
	UploadMedia(ctx context.Context, file io.Reader, filename, description string) (domain.UploadReceipt, error)
	CreateStatus(ctx context.Context, draft domain.StatusDraft) (domain.CreateReceipt, error)
}

// FileOpener opens a resolved media file for reading.
type FileOpener interface {
	Resolve(ref string) (domain.MediaFile, error)
	Open(file domain.MediaFile) (io.ReadCloser, error)
}

// Notice is a user-facing progress message.
type Notice struct {
	Code    string
	Message string
}

// Notifier receives progress notices during a publication cycle. A nil
// notifier is valid and silences them.
type Notifier interface {
	Notify(notice Notice)
}

// PublishResult reports what actually reached the server. It is returned
// even when publication aborts partway, so callers can show which posts
// made it out.
type PublishResult struct {
	PostIDs  []string
	Uploaded int
	State    Phase
}

// PublishThreadUseCase drives a composed plan through media upload and
// status creation. Only one cycle may run at a time.
type PublishThreadUseCase struct {
	files FileOpener
	mu    sync.Mutex
}

// NewPublishThreadUseCase creates a new PublishThreadUseCase.
func NewPublishThreadUseCase(files FileOpener) *PublishThreadUseCase {
	return &PublishThreadUseCase{files: files}
}

// Execute uploads every attachment, then creates every status in order,
// threading each one onto the previous. Work stops at the first failure;
// whatever was already published stays published.
func (uc *PublishThreadUseCase) Execute(ctx context.Context, poster Poster, plan *domain.ThreadPlan, prefs domain.Settings, notifier Notifier) (*PublishResult, error) {
	if !uc.mu.TryLock() {
		return nil, domain.ErrPublishInProgress
	}
	defer uc.mu.Unlock()

	result := &PublishResult{State: PhaseUploading}

	attachments := plan.AttachmentsInOrder()
	for i, att := range attachments {
		if err := uc.upload(ctx, poster, att, result, len(attachments)-(i+1)+len(plan.Fragments)); err != nil {
			result.State = PhaseAborted
			return result, err
		}
	}

	result.State = PhaseCreating
	replyTo := ""
	for i, frag := range plan.Fragments {
		receipt, err := uc.post(ctx, poster, plan, frag, i, replyTo, prefs)
		if err != nil {
			result.State = PhaseAborted
			return result, err
		}
		replyTo = receipt.ID
		result.PostIDs = append(result.PostIDs, receipt.ID)

		if notifier != nil && len(plan.Fragments) > 10 && (i+1)%10 == 0 && i+1 < len(plan.Fragments) {
			notifier.Notify(Notice{
				Code:    "progress",
				Message: fmt.Sprintf("Posted %d of %d", i+1, len(plan.Fragments)),
			})
		}

		if remaining := receipt.RateRemaining; remaining != domain.RateUnknown {
			if left := len(plan.Fragments) - (i + 1); remaining < left {
				result.State = PhaseAborted
				return result, fmt.Errorf("%w: %d posts remain but only %d requests do",
					domain.ErrRateLimited, left, remaining)
			}
		}
	}

	result.State = PhaseDone
	if notifier != nil {
		if len(result.PostIDs) == 1 {
			notifier.Notify(Notice{Code: "posted", Message: "Posted to Mastodon"})
		} else {
			notifier.Notify(Notice{
				Code:    "thread-posted",
				Message: fmt.Sprintf("Posted a thread of %d", len(result.PostIDs)),
			})
		}
	}
	log.GlobalInfoCtx(ctx, "thread published", "posts", len(result.PostIDs), "uploads", result.Uploaded)
	return result, nil
}

// upload pushes one attachment and records the media id on it. The rate
// budget must still cover the remaining uploads and every status creation.
func (uc *PublishThreadUseCase) upload(ctx context.Context, poster Poster, att *domain.Attachment, result *PublishResult, needed int) error {
	file, err := uc.files.Resolve(att.SourceRef)
	if err != nil {
		return err
	}
	r, err := uc.files.Open(file)
	if err != nil {
		return err
	}
	defer r.Close()

	receipt, err := poster.UploadMedia(ctx, r, file.Name(), att.AltText)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return err
		}
		return fmt.Errorf("%w: upload %s: %v", domain.ErrPostingFailed, att.SourceRef, err)
	}
	att.RemoteID = receipt.MediaID
	result.Uploaded++

	if receipt.RateRemaining != domain.RateUnknown && receipt.RateRemaining < needed {
		return fmt.Errorf("%w: %d requests remain but %d are still needed",
			domain.ErrRateLimited, receipt.RateRemaining, needed)
	}
	return nil
}

func (uc *PublishThreadUseCase) post(ctx context.Context, poster Poster, plan *domain.ThreadPlan, frag *domain.Fragment, index int, replyTo string, prefs domain.Settings) (domain.CreateReceipt, error) {
	visibility := plan.VisibilityRest
	if index == 0 {
		visibility = plan.VisibilityFirst
	}

	draft := domain.StatusDraft{
		Text:           frag.Text,
		Warning:        frag.Warning,
		Visibility:     visibility,
		ReplyTo:        replyTo,
		Language:       plan.Language,
		IdempotencyKey: uuid.NewString(),
	}
	for _, att := range frag.Attachments {
		draft.MediaIDs = append(draft.MediaIDs, att.RemoteID)
	}
	if frag.QuoteTargetID != "" {
		draft.QuoteTarget = frag.QuoteTargetID
		draft.QuoteApprovalPolicy = prefs.QuoteApproval
	}

	receipt, err := poster.CreateStatus(ctx, draft)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			return domain.CreateReceipt{}, err
		}
		return domain.CreateReceipt{}, fmt.Errorf("%w: status %d: %v", domain.ErrPostingFailed, index+1, err)
	}
	return receipt, nil
}
