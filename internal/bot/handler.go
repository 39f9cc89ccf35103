package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"fetchbot/internal/deliver"
	"fetchbot/internal/httputil"
	"fetchbot/internal/logging"
	"fetchbot/internal/media"
	"fetchbot/internal/policy"
	"fetchbot/internal/resolver"
	"fetchbot/internal/session"
	"fetchbot/internal/store"
)

// Resolver turns a submitted URL into a descriptor.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (*media.Descriptor, error)
}

// Deliverer performs a delivery.
type Deliverer interface {
	Deliver(ctx context.Context, req deliver.Request) media.Outcome
}

// Options configures a Handler.
type Options struct {
	Gate      *policy.Gate
	Lists     *policy.Lists
	Resolver  Resolver
	Sessions  *session.Store
	Deliverer Deliverer
	Transport Transport
	Store     Store
	AdminIDs  []int64
	MaxBytes  int64
	// Timeout bounds the work for a single event. Zero means no bound.
	Timeout time.Duration
	Log     logging.Logger
}

// Handler processes inbound chat events.
type Handler struct {
	gate     *policy.Gate
	lists    *policy.Lists
	resolver Resolver
	sessions *session.Store
	pipeline Deliverer
	tr       Transport
	store    Store
	rec      *Recorder
	admins   map[int64]bool
	maxBytes int64
	timeout  time.Duration
	log      logging.Logger

	wg sync.WaitGroup
}

// New creates a Handler.
func New(opts Options) *Handler {
	admins := make(map[int64]bool, len(opts.AdminIDs))
	for _, id := range opts.AdminIDs {
		admins[id] = true
	}
	return &Handler{
		gate:     opts.Gate,
		lists:    opts.Lists,
		resolver: opts.Resolver,
		sessions: opts.Sessions,
		pipeline: opts.Deliverer,
		tr:       opts.Transport,
		store:    opts.Store,
		rec:      NewRecorder(opts.Store, opts.Log),
		admins:   admins,
		maxBytes: opts.MaxBytes,
		timeout:  opts.Timeout,
		log:      opts.Log.With().Str("component", "bot").Logger(),
	}
}

// Dispatch handles u on its own goroutine so slow resolutions and
// deliveries never hold up other users. Submissions claim their place in
// the session store before the goroutine starts, so the last link a user
// sent is the one whose session survives.
func (h *Handler) Dispatch(ctx context.Context, u Update) {
	ticket := h.claim(u)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.handle(ctx, u, ticket)
	}()
}

// Wait blocks until every dispatched event has been handled.
func (h *Handler) Wait() {
	h.wg.Wait()
}

// Handle processes u synchronously. A panic is logged and never escapes.
func (h *Handler) Handle(ctx context.Context, u Update) {
	h.handle(ctx, u, h.claim(u))
}

func (h *Handler) handle(ctx context.Context, u Update, ticket uint64) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("handling update")
		}
	}()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	switch {
	case u.Message != nil:
		h.handleMessage(ctx, *u.Message, ticket)
	case u.Callback != nil:
		h.HandleCallback(ctx, *u.Callback)
	}
}

// claim reserves a session ticket when u is a link submission.
func (h *Handler) claim(u Update) uint64 {
	if u.Message == nil {
		return 0
	}
	if cmd, _, ok := parseCommand(strings.TrimSpace(u.Message.Text)); ok && h.isCommand(cmd) {
		return 0
	}
	return h.sessions.Claim(u.Message.From.ID)
}

// HandleMessage processes a text message: a command or a link submission.
func (h *Handler) HandleMessage(ctx context.Context, m Message) {
	h.handleMessage(ctx, m, h.claim(Update{Message: &m}))
}

func (h *Handler) handleMessage(ctx context.Context, m Message, ticket uint64) {
	text := strings.TrimSpace(m.Text)
	if cmd, args, ok := parseCommand(text); ok && h.isCommand(cmd) {
		h.runCommand(ctx, m, cmd, args)
		return
	}
	defer h.sessions.Release(m.From.ID, ticket)
	h.submit(ctx, m, text, ticket)
}

// submit admits, resolves and opens a session for rawURL.
func (h *Handler) submit(ctx context.Context, m Message, rawURL string, ticket uint64) {
	log := h.log.With().Int64("user", m.From.ID).Str("url", rawURL).Logger()

	err := h.gate.Check(m.From.ID, rawURL)
	if media.ReasonOf(err) == media.ReasonIdentityBanned {
		log.Debug().Msg("banned identity")
		h.say(ctx, m.ChatID, textBanned)
		return
	}

	userRef := h.rec.User(ctx, m.From)
	domain := ""
	if !errors.Is(err, policy.ErrMalformedURL) {
		domain = httputil.Hostname(rawURL)
	}
	record := func(action, status, detail string) {
		h.rec.Request(ctx, store.Request{
			UserID: userRef,
			URL:    rawURL,
			Domain: domain,
			Action: action,
			Status: status,
			Error:  detail,
		})
	}

	switch media.ReasonOf(err) {
	case "":
	case media.ReasonMalformedURL:
		h.say(ctx, m.ChatID, textMalformed)
		record("invalid", "fail", "invalid_url")
		return
	case media.ReasonDomainBlocked:
		log.Info().Msg("blocked domain")
		h.say(ctx, m.ChatID, textBlocked)
		record("blocked", "fail", "blocked_domain")
		return
	default:
		log.Error().Err(err).Msg("admission check")
		h.say(ctx, m.ChatID, textUnexpected)
		record("unknown", "fail", err.Error())
		return
	}

	wait, err := h.tr.SendText(ctx, m.ChatID, textAnalyzing, nil)
	if err != nil {
		log.Warn().Err(err).Msg("sending progress message")
		wait = MessageRef{}
	}
	show := func(text string, keyboard [][]Button) {
		if wait.MessageID != 0 && h.tr.EditText(ctx, wait, text, keyboard) == nil {
			return
		}
		if _, err := h.tr.SendText(ctx, m.ChatID, text, keyboard); err != nil {
			log.Warn().Err(err).Msg("sending message")
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("handling submission")
			show(textUnexpected, nil)
			record("unknown", "fail", fmt.Sprint(r))
		}
	}()

	d, err := h.resolver.Resolve(ctx, rawURL)
	if err != nil {
		log.Info().Err(err).Msg("resolution failed")
		show(resolutionFailed(err), nil)
		record("unknown", "fail", detail(err))
		return
	}

	platform := resolver.DisplayName(d)
	opened := h.sessions.PutClaimed(m.From.ID, ticket, &session.Session{
		SourceURL:  rawURL,
		Descriptor: d,
		Platform:   platform,
		UserRef:    userRef,
	})
	if !opened {
		log.Debug().Msg("superseded by a newer submission")
		show(textSuperseded, nil)
		return
	}
	log.Debug().Str("platform", platform).Int("variants", len(d.Variants)).Msg("session opened")

	show(Summary(d, platform)+"\n"+textChooseType, typeKeyboard())
}

// HandleCallback processes a button press.
func (h *Handler) HandleCallback(ctx context.Context, cb Callback) {
	log := h.log.With().Int64("user", cb.From.ID).Str("data", cb.Data).Logger()

	ev, choice, ok := parseToken(cb.Data)
	if !ok {
		h.answer(ctx, cb, textStale, true)
		return
	}

	before, t, err := h.sessions.Advance(cb.From.ID, ev)
	switch {
	case errors.Is(err, session.ErrExpired):
		log.Debug().Msg("callback without a session")
		h.answer(ctx, cb, textExpired, true)
		return
	case errors.Is(err, session.ErrBusy):
		h.answer(ctx, cb, textBusy, true)
		return
	case err != nil:
		log.Debug().Err(err).Msg("rejected callback")
		h.answer(ctx, cb, textStale, true)
		return
	}
	h.answer(ctx, cb, "", false)

	if !t.Terminal() {
		h.edit(ctx, cb.Message, textChooseVideo, qualityKeyboard(before.Descriptor))
		return
	}

	switch {
	case choice.Audio:
		h.edit(ctx, cb.Message, textPrepareAudio, nil)
	case ev == session.ChooseVideo:
		h.edit(ctx, cb.Message, textSingleVideo, nil)
	default:
		h.edit(ctx, cb.Message, qualityNotice(choice.Height), nil)
	}

	h.deliver(ctx, cb.From.ID, cb.Message.ChatID, before, choice)
}

// deliver runs the pipeline for s, reports a failure to the user and
// records the outcome. The session is finished on every path.
func (h *Handler) deliver(ctx context.Context, identity, chatID int64, s session.Session, choice media.Choice) {
	defer h.sessions.Finish(identity, s)

	d := s.Descriptor
	domain := httputil.Hostname(s.SourceURL)
	title := d.Title
	if title == "" {
		title = "Video"
	}
	page := d.WebpageURL
	if page == "" {
		page = s.SourceURL
	}
	h.rec.VideoUsage(ctx, title, page, domain)

	out := h.runPipeline(ctx, deliver.Request{
		ChatID:     chatID,
		SourceURL:  s.SourceURL,
		Descriptor: d,
		Platform:   s.Platform,
		Choice:     choice,
	})

	log := h.log.With().Int64("user", identity).Str("url", s.SourceURL).Str("quality", choice.Quality()).Logger()
	if out.Status == media.Succeeded {
		log.Info().Int64("bytes", out.Bytes).Bool("direct", out.Direct).Msg("delivered")
	} else {
		ev := log.Warn()
		if out.Reason == media.ReasonUnexpected {
			ev = log.Error()
		}
		ev.Err(out.Err).Str("reason", string(out.Reason)).Msg("delivery failed")
		h.say(ctx, chatID, failureText(out, choice.Audio, h.maxBytes))
	}

	h.rec.Request(ctx, store.Request{
		UserID:  s.UserRef,
		URL:     s.SourceURL,
		Domain:  domain,
		Action:  choice.Action(),
		Quality: choice.Quality(),
		Status:  out.Status.String(),
		Error:   out.Detail(),
	})
}

// runPipeline converts a panic in the pipeline or transport into an
// unexpected failure.
func (h *Handler) runPipeline(ctx context.Context, req deliver.Request) (out media.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("delivering")
			out = media.FailureOutcome(media.Fail(media.ReasonUnexpected, fmt.Errorf("panic: %v", r)))
		}
	}()
	return h.pipeline.Deliver(ctx, req)
}

func (h *Handler) say(ctx context.Context, chatID int64, text string) {
	if _, err := h.tr.SendText(ctx, chatID, text, nil); err != nil {
		h.log.Warn().Err(err).Int64("chat", chatID).Msg("sending message")
	}
}

func (h *Handler) edit(ctx context.Context, ref MessageRef, text string, keyboard [][]Button) {
	if err := h.tr.EditText(ctx, ref, text, keyboard); err != nil {
		h.log.Debug().Err(err).Msg("editing message")
	}
}

func (h *Handler) answer(ctx context.Context, cb Callback, text string, alert bool) {
	if err := h.tr.AnswerCallback(ctx, cb.ID, text, alert); err != nil {
		h.log.Debug().Err(err).Msg("answering callback")
	}
}

// ActiveSessions reports how many sessions are currently held.
func (h *Handler) ActiveSessions() int {
	return h.sessions.Len()
}
