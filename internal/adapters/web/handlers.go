package web

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"mastothread/internal/adapters/markdown"
	"mastothread/internal/adapters/settings"
	"mastothread/internal/domain"
	"mastothread/internal/usecases"
	"mastothread/pkg/log"
)

// ServerClient is everything a handler may ask of a Mastodon server.
type ServerClient interface {
	usecases.Poster
	usecases.StatusSearcher
	usecases.CapabilitySource
	usecases.OAuthClient
}

// ClientFactory builds a client for a server, with or without a token.
type ClientFactory func(server, token string) ServerClient

// Handlers contains the HTTP handlers for the thread API.
type Handlers struct {
	compose     *usecases.ComposeThreadUseCase
	publish     *usecases.PublishThreadUseCase
	caps        *usecases.RefreshCapabilitiesUseCase
	auth        *usecases.AuthorizeUseCase
	store       usecases.SettingsStore
	clients     ClientFactory
	redirectURI string
	validate    *validator.Validate
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	compose *usecases.ComposeThreadUseCase,
	publish *usecases.PublishThreadUseCase,
	caps *usecases.RefreshCapabilitiesUseCase,
	auth *usecases.AuthorizeUseCase,
	store usecases.SettingsStore,
	clients ClientFactory,
	redirectURI string,
) *Handlers {
	return &Handlers{
		compose:     compose,
		publish:     publish,
		caps:        caps,
		auth:        auth,
		store:       store,
		clients:     clients,
		redirectURI: redirectURI,
		validate:    validator.New(),
	}
}

type threadRequest struct {
	Text            string `json:"text" validate:"required"`
	Selection       string `json:"selection"`
	Language        string `json:"language" validate:"omitempty,bcp47_language_tag"`
	VisibilityFirst string `json:"visibility_first" validate:"omitempty,oneof=public unlisted private"`
	VisibilityRest  string `json:"visibility_rest" validate:"omitempty,oneof=public unlisted private"`

	// AckMissingDescriptions lets a publish proceed when some media carry
	// no description. Preview reports the flag; publish enforces it.
	AckMissingDescriptions bool `json:"ack_missing_descriptions"`
}

type fragmentsRequest struct {
	Text     string `json:"text" validate:"required"`
	MaxChars int    `json:"max_chars" validate:"omitempty,min=1"`
}

type connectRequest struct {
	Server string `json:"server" validate:"required"`
}

type attachmentView struct {
	Ref     string `json:"ref"`
	AltText string `json:"alt_text"`
	Kind    string `json:"kind"`
}

type fragmentView struct {
	Text        string           `json:"text"`
	Warning     string           `json:"warning,omitempty"`
	Attachments []attachmentView `json:"attachments,omitempty"`
	QuoteTarget string           `json:"quote_target_id,omitempty"`
}

type planView struct {
	Fragments           []fragmentView `json:"fragments"`
	RequestEstimate     int            `json:"request_estimate"`
	MissingDescriptions bool           `json:"missing_descriptions"`
}

// Healthz reports process liveness.
func (h *Handlers) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Capabilities returns the current server limits, cached per server.
func (h *Handlers) Capabilities(c *fiber.Ctx) error {
	prefs, err := h.store.Load()
	if err != nil {
		return h.respondError(c, err)
	}
	if prefs.Server == "" {
		return h.respondError(c, domain.ErrNotAuthenticated)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	snap, err := h.caps.Execute(ctx, h.clients(prefs.Server, prefs.AccessToken), prefs.Server)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(snap)
}

// PreviewThread composes and validates a thread without publishing it.
func (h *Handlers) PreviewThread(c *fiber.Ctx) error {
	var req threadRequest
	if err := h.parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 30*time.Second)
	defer cancel()

	plan, _, err := h.composePlan(ctx, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(viewOfPlan(plan))
}

// PublishThread composes a thread and posts it to the connected server.
func (h *Handlers) PublishThread(c *fiber.Ctx) error {
	var req threadRequest
	if err := h.parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Minute)
	defer cancel()

	plan, prefs, err := h.composePlan(ctx, req)
	if err != nil {
		return h.respondError(c, err)
	}
	if plan.MissingDescriptions && !req.AckMissingDescriptions {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"condition": "missing_descriptions",
			"error":     "Some media carry no description. Confirm to publish anyway.",
		})
	}

	notifier := &noticeCollector{}
	client := h.clients(prefs.Server, prefs.AccessToken)
	result, err := h.publish.Execute(ctx, client, plan, prefs, notifier)
	if err != nil {
		log.GlobalErrorCtx(ctx, "publish failed", "error", err)
		// a partial thread is reported alongside the failure
		return c.Status(h.statusOf(err)).JSON(fiber.Map{
			"condition": conditionOf(err),
			"error":     h.friendlyError(err),
			"post_ids":  postIDs(result),
			"state":     stateOf(result),
		})
	}

	return c.JSON(fiber.Map{
		"post_ids": result.PostIDs,
		"uploaded": result.Uploaded,
		"state":    result.State,
		"notices":  notifier.notices,
	})
}

// InsertFragments rewrites the document with separators so every fragment
// fits the size limit.
func (h *Handlers) InsertFragments(c *fiber.Ctx) error {
	var req fragmentsRequest
	if err := h.parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	maxChars := req.MaxChars
	if maxChars == 0 {
		prefs, err := h.store.Load()
		if err != nil {
			return h.respondError(c, err)
		}
		maxChars = prefs.MaxPost
	}
	return c.JSON(fiber.Map{"text": markdown.AutoFragment(req.Text, maxChars, markdown.Separator)})
}

// RemoveFragments strips every separator from the document.
func (h *Handlers) RemoveFragments(c *fiber.Ctx) error {
	var req fragmentsRequest
	if err := h.parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	return c.JSON(fiber.Map{"text": markdown.StripSeparators(req.Text, markdown.Separator)})
}

// AuthStatus reports the stored connection and whether the server still
// accepts the token.
func (h *Handlers) AuthStatus(c *fiber.Ctx) error {
	prefs, err := h.store.Load()
	if err != nil {
		return h.respondError(c, err)
	}
	var client usecases.OAuthClient
	if prefs.Connected() {
		client = h.clients(prefs.Server, prefs.AccessToken)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	prefs, connected, err := h.auth.Status(ctx, client)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"connected": connected, "server": prefs.Server})
}

// AuthConnect registers the application on a server and returns the URL
// the user must open to approve it.
func (h *Handlers) AuthConnect(c *fiber.Ctx) error {
	var req connectRequest
	if err := h.parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	server := settings.NormalizeServer(req.Server)

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	url, err := h.auth.Connect(ctx, h.clients(server, ""), server, h.redirectURI)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"authorize_url": url})
}

// AuthCallback completes the OAuth flow with the code the server handed
// back after approval.
func (h *Handlers) AuthCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing authorization code"})
	}
	prefs, err := h.store.Load()
	if err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 15*time.Second)
	defer cancel()

	if err := h.auth.Callback(ctx, h.clients(prefs.Server, ""), code, h.redirectURI); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(fiber.Map{"connected": true, "server": prefs.Server})
}

// AuthDisconnect drops the stored credentials.
func (h *Handlers) AuthDisconnect(c *fiber.Ctx) error {
	if err := h.auth.Disconnect(c.UserContext()); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// parseBody decodes and validates the request body. Callers must respond
// with badRequest and stop when it returns an error.
func (h *Handlers) parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return errors.New("malformed request body")
	}
	return h.validate.Struct(out)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"condition": "bad_request",
		"error":     err.Error(),
	})
}

// composePlan loads settings, refreshes capabilities and runs composition.
// Publication requires a connected account; preview shares the same path.
func (h *Handlers) composePlan(ctx context.Context, req threadRequest) (*domain.ThreadPlan, domain.Settings, error) {
	prefs, err := h.store.Load()
	if err != nil {
		return nil, domain.Settings{}, err
	}
	if !prefs.Connected() {
		return nil, domain.Settings{}, domain.ErrNotAuthenticated
	}

	client := h.clients(prefs.Server, prefs.AccessToken)
	snap, err := h.caps.Execute(ctx, client, prefs.Server)
	if err != nil {
		return nil, domain.Settings{}, err
	}

	plan, err := h.compose.Execute(ctx, client, usecases.ComposeRequest{
		Text:            req.Text,
		Selection:       req.Selection,
		Language:        req.Language,
		VisibilityFirst: req.VisibilityFirst,
		VisibilityRest:  req.VisibilityRest,
	}, prefs, snap)
	if err != nil {
		return nil, domain.Settings{}, err
	}
	return plan, prefs, nil
}

func (h *Handlers) respondError(c *fiber.Ctx, err error) error {
	status := h.statusOf(err)
	if status >= fiber.StatusInternalServerError {
		log.GlobalErrorCtx(c.UserContext(), "request failed", "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"condition": conditionOf(err),
		"error":     h.friendlyError(err),
	})
}

// conditionOf maps an error to its machine-readable condition code.
func conditionOf(err error) string {
	if me, ok := domain.IsMediaError(err); ok {
		switch me.Reason {
		case domain.MediaDisallowedType:
			return "media_disallowed_type"
		case domain.MediaMixedKinds:
			return "media_mixed_kinds"
		case domain.MediaFileNotFound:
			return "media_file_not_found"
		case domain.MediaFileTooLarge:
			return "media_file_too_large"
		}
	}
	switch {
	case errors.Is(err, domain.ErrNoText):
		return "no_text"
	case errors.Is(err, domain.ErrEmptyFragment):
		return "empty_fragment"
	case errors.Is(err, domain.ErrPostTooLong):
		return "post_too_long"
	case errors.Is(err, domain.ErrTooManyAttachments):
		return "too_many_attachments"
	case errors.Is(err, domain.ErrDescriptionTooLong):
		return "description_too_long"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, domain.ErrPublishInProgress):
		return "publish_in_progress"
	case errors.Is(err, domain.ErrPostingFailed):
		return "posting_failed"
	default:
		return "internal"
	}
}

func (h *Handlers) statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrPublishInProgress):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, domain.ErrNoText),
		errors.Is(err, domain.ErrEmptyFragment),
		errors.Is(err, domain.ErrPostTooLong),
		errors.Is(err, domain.ErrTooManyAttachments),
		errors.Is(err, domain.ErrDescriptionTooLong):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPostingFailed):
		return fiber.StatusBadGateway
	default:
		if _, ok := domain.IsMediaError(err); ok {
			return fiber.StatusUnprocessableEntity
		}
		return fiber.StatusInternalServerError
	}
}

// friendlyError returns a neutral, non-blaming error message.
func (h *Handlers) friendlyError(err error) string {
	if me, ok := domain.IsMediaError(err); ok {
		switch me.Reason {
		case domain.MediaDisallowedType:
			return "The server doesn't accept this kind of file: " + me.Path
		case domain.MediaMixedKinds:
			return "A post can carry images or one video, not both: " + me.Path
		case domain.MediaFileNotFound:
			return "This file couldn't be found: " + me.Path
		case domain.MediaFileTooLarge:
			return "This file is too large for the server: " + me.Path
		}
	}
	switch {
	case errors.Is(err, domain.ErrNoText):
		return "There's nothing to post yet. Write something first."
	case errors.Is(err, domain.ErrEmptyFragment):
		return "One of the fragments is empty. Remove the extra separator or add text."
	case errors.Is(err, domain.ErrPostTooLong):
		return "A fragment is longer than the server allows. Split it with a separator."
	case errors.Is(err, domain.ErrTooManyAttachments):
		return "A fragment references more media than the server allows per post."
	case errors.Is(err, domain.ErrDescriptionTooLong):
		return "A media description is longer than the server allows."
	case errors.Is(err, domain.ErrRateLimited):
		return "The server is rate limiting requests. Wait a moment and try again."
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "Not connected to a server. Connect your account first."
	case errors.Is(err, domain.ErrPublishInProgress):
		return "A publication is already running. Wait for it to finish."
	case errors.Is(err, domain.ErrPostingFailed):
		return "The server couldn't complete the request. Anything already posted stays up."
	default:
		return "Something went wrong. Please try again in a moment."
	}
}

// noticeCollector gathers progress notices for the response body.
type noticeCollector struct {
	notices []usecases.Notice
}

func (n *noticeCollector) Notify(notice usecases.Notice) {
	n.notices = append(n.notices, notice)
}

func viewOfPlan(plan *domain.ThreadPlan) planView {
	view := planView{
		Fragments:           make([]fragmentView, 0, len(plan.Fragments)),
		RequestEstimate:     plan.RequestEstimate,
		MissingDescriptions: plan.MissingDescriptions,
	}
	for _, frag := range plan.Fragments {
		fv := fragmentView{
			Text:        frag.Text,
			Warning:     frag.Warning,
			QuoteTarget: frag.QuoteTargetID,
		}
		for _, att := range frag.Attachments {
			fv.Attachments = append(fv.Attachments, attachmentView{
				Ref:     att.SourceRef,
				AltText: att.AltText,
				Kind:    string(att.Kind),
			})
		}
		view.Fragments = append(view.Fragments, fv)
	}
	return view
}

func postIDs(result *usecases.PublishResult) []string {
	if result == nil {
		return nil
	}
	return result.PostIDs
}

func stateOf(result *usecases.PublishResult) usecases.Phase {
	if result == nil {
		return usecases.PhaseIdle
	}
	return result.State
}
