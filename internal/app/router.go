package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

const (
	// maxControlIDLength bounds raw control identifiers before parsing.
	maxControlIDLength = 100
	// inflightTTL is how long a one-time callback id stays marked.
	inflightTTL = 5 * time.Minute
	// watchdogDelay is the grace period before an unanswered callback is
	// auto-acknowledged so the client does not show a timeout.
	watchdogDelay = 2 * time.Second
)

var (
	errBadControl  = errors.New("malformed control identifier")
	errUnknownMode = errors.New("unknown control mode")
)

// Callback is one inbound UI interaction, already stripped to the fields
// the router needs.
type Callback struct {
	// CallbackID is the platform's one-time interaction identifier.
	CallbackID string
	// ControlID is the raw control identifier carried by the component.
	ControlID string
	ActorID   string
	GuildID   string
}

// ResponseSurface is the reply channel of one callback. Respond may be
// called only before Ack reached the platform; Followup covers the rest.
// Update rewrites the panel message carrying the control; Disable greys
// out its controls in place.
type ResponseSurface interface {
	Ack(ctx context.Context) error
	Respond(ctx context.Context, content string) error
	Followup(ctx context.Context, content string) error
	Update(ctx context.Context, content string, buttons []ui.Button) error
	Disable(ctx context.Context) error
}

// Reply wraps a surface and guarantees at most one user-visible message
// per callback regardless of how many paths try to answer.
type Reply struct {
	surface ResponseSurface
	logger  *slog.Logger

	mu    sync.Mutex
	sent  bool
	acked bool
}

func newReply(surface ResponseSurface, logger *slog.Logger) *Reply {
	return &Reply{surface: surface, logger: logger}
}

// Ack acknowledges the callback without content. It is a no-op once any
// response went out.
func (r *Reply) Ack(ctx context.Context) {
	r.mu.Lock()
	if r.sent || r.acked {
		r.mu.Unlock()
		return
	}
	r.acked = true
	r.mu.Unlock()

	if err := r.surface.Ack(ctx); err != nil {
		r.logger.Debug("ack callback", "error", err)
	}
}

// Send delivers the single user-visible message. Later calls are dropped.
func (r *Reply) Send(ctx context.Context, content string) {
	r.mu.Lock()
	if r.sent {
		r.mu.Unlock()
		return
	}
	r.sent = true
	acked := r.acked
	r.mu.Unlock()

	var err error
	if acked {
		err = r.surface.Followup(ctx, content)
	} else {
		err = r.surface.Respond(ctx, content)
	}
	if err != nil {
		r.logger.Warn("send callback response", "error", err)
	}
}

// Update rewrites the panel that carries the control, re-binding its
// buttons. It counts as the callback's single visible response.
func (r *Reply) Update(ctx context.Context, content string, buttons []ui.Button) {
	r.mu.Lock()
	if r.sent {
		r.mu.Unlock()
		return
	}
	r.sent = true
	r.acked = true
	r.mu.Unlock()

	if err := r.surface.Update(ctx, content, buttons); err != nil {
		r.logger.Warn("update panel", "error", err)
	}
}

// Disable greys out the panel's controls in place. It doubles as the
// acknowledgement but leaves the visible-response slot open.
func (r *Reply) Disable(ctx context.Context) {
	r.mu.Lock()
	if r.sent || r.acked {
		r.mu.Unlock()
		return
	}
	r.acked = true
	r.mu.Unlock()

	if err := r.surface.Disable(ctx); err != nil {
		r.logger.Debug("disable panel controls", "error", err)
	}
}

func (r *Reply) answered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent
}

// Inflight marks one-time callback identifiers for idempotency.
type Inflight interface {
	MarkOnce(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// FlowStore reads the actor's stored flow context.
type FlowStore interface {
	Get(ctx context.Context, actorID string) (model.FlowContext, bool, error)
}

// Handler processes one parsed callback. It must answer through reply; the
// router's watchdog covers handlers that do not.
type Handler func(ctx context.Context, cb Callback, control model.ControlID, reply *Reply)

// BotAuthorizer is the extra privilege check for bot-level settings.
type BotAuthorizer func(ctx context.Context, guildID, actorID string) (bool, error)

type Router struct {
	inflight Inflight
	flows    FlowStore
	logger   *slog.Logger

	handlers     map[enums.FlowMode]Handler
	initHandlers map[enums.SetupFlow]Handler
	botAuth      BotAuthorizer

	watchdogDelay time.Duration
}

func NewRouter(inflight Inflight, flows FlowStore, botAuth BotAuthorizer, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		inflight:      inflight,
		flows:         flows,
		logger:        logger,
		handlers:      make(map[enums.FlowMode]Handler),
		initHandlers:  make(map[enums.SetupFlow]Handler),
		botAuth:       botAuth,
		watchdogDelay: watchdogDelay,
	}
}

// Handle registers the handler for one flow mode.
func (r *Router) Handle(mode enums.FlowMode, handler Handler) {
	r.handlers[mode] = handler
}

// HandleInit registers the handler for one init sub-flow. The general
// sub-flow doubles as the default when no context is stored.
func (r *Router) HandleInit(flow enums.SetupFlow, handler Handler) {
	r.initHandlers[flow] = handler
}

// Dispatch routes one callback. Every path out of here produces at most
// one user-visible message and at least an acknowledgement.
func (r *Router) Dispatch(ctx context.Context, cb Callback, surface ResponseSurface) {
	reply := newReply(surface, r.logger)

	watchdog := time.AfterFunc(r.watchdogDelay, func() {
		ackCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		reply.Ack(ackCtx)
	})
	defer watchdog.Stop()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("callback handler panic", "panic", fmt.Sprint(rec), "control_id", cb.ControlID)
			reply.Send(ctx, ui.MsgUnexpected())
		}
	}()

	control, err := parseControlID(cb.ControlID)
	if errors.Is(err, errUnknownMode) {
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}
	if err != nil {
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}

	inserted, err := r.inflight.MarkOnce(ctx, cb.CallbackID, inflightTTL)
	if err != nil {
		// Losing dedup is better than losing the interaction.
		r.logger.Warn("mark callback inflight", "error", err, "callback_id", cb.CallbackID)
		inserted = true
	}
	if !inserted {
		watchdog.Stop()
		return
	}

	if cb.ActorID != control.OwnerID {
		reply.Send(ctx, ui.MsgNotYourPanel)
		return
	}

	switch control.Mode {
	case enums.FlowInit:
		r.dispatchInit(ctx, cb, control, reply)
	case enums.FlowBot:
		r.dispatchBot(ctx, cb, control, reply)
	default:
		handler, ok := r.handlers[control.Mode]
		if !ok {
			reply.Send(ctx, ui.MsgUnexpected())
			return
		}
		handler(ctx, cb, control, reply)
	}

	if !reply.answered() {
		reply.Ack(ctx)
	}
}

// dispatchInit picks the init sub-flow from the actor's stored context and
// falls back to the general flow when none is active.
func (r *Router) dispatchInit(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	sub := enums.SetupGeneral
	if r.flows != nil {
		flow, active, err := r.flows.Get(ctx, cb.ActorID)
		if err != nil {
			r.logger.Warn("load flow context", "error", err, "actor_id", cb.ActorID)
		} else if active {
			sub = flow.Flow
		}
	}

	handler, ok := r.initHandlers[sub]
	if !ok {
		handler, ok = r.initHandlers[enums.SetupGeneral]
	}
	if !ok {
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}
	handler(ctx, cb, control, reply)
}

// dispatchBot re-checks privilege beyond ownership before the handler runs.
func (r *Router) dispatchBot(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	if r.botAuth == nil {
		reply.Send(ctx, ui.MsgNotAllowed)
		return
	}

	allowed, err := r.botAuth(ctx, cb.GuildID, cb.ActorID)
	if err != nil {
		r.logger.Warn("bot settings authorization", "error", err, "actor_id", cb.ActorID)
		reply.Send(ctx, ui.MsgNotAllowed)
		return
	}
	if !allowed {
		reply.Send(ctx, ui.MsgNotAllowed)
		return
	}

	handler, ok := r.handlers[enums.FlowBot]
	if !ok {
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}
	handler(ctx, cb, control, reply)
}

// parseControlID validates and splits a raw control identifier. The format
// is mode:action:ownerID[:args...] with a bounded length, a restricted
// character set and a numeric owner field. Identifiers failing any check
// are never partially trusted.
func parseControlID(raw string) (model.ControlID, error) {
	if raw == "" || len(raw) > maxControlIDLength {
		return model.ControlID{}, errBadControl
	}
	if !validControlChars(raw) {
		return model.ControlID{}, errBadControl
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return model.ControlID{}, errBadControl
	}
	for _, part := range parts[:3] {
		if part == "" {
			return model.ControlID{}, errBadControl
		}
	}
	if !allDigits(parts[2]) {
		return model.ControlID{}, errBadControl
	}

	mode, known := enums.ParseFlowMode(parts[0])
	if !known {
		return model.ControlID{}, errUnknownMode
	}

	control := model.ControlID{
		Mode:    mode,
		Action:  parts[1],
		OwnerID: parts[2],
	}
	if len(parts) > 3 {
		control.Args = parts[3:]
	}
	return control, nil
}

func validControlChars(raw string) bool {
	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == ':' || c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
