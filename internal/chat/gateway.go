package chat

import (
	"context"
	"errors"
	"fmt"

	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// MembershipOracle answers whether a user belongs to a project. An error
// means the answer is unknown, never "no".
type MembershipOracle interface {
	IsMember(ctx context.Context, userID, projectID uint) (bool, error)
}

// MessageStore is the append-only message log
type MessageStore interface {
	// Append persists d and returns it with id and timestamp assigned
	Append(ctx context.Context, d Draft) (*ChatMessage, error)
	// ListByProject returns the project's messages oldest first, ties by id
	ListByProject(ctx context.Context, projectID uint) ([]ChatMessage, error)
}

// UserDirectory resolves display names
type UserDirectory interface {
	DisplayName(ctx context.Context, userID uint) (string, error)
}

// Options tunes gateway policy
type Options struct {
	// NackRejected echoes NOT_A_MEMBER and ORACLE_UNAVAILABLE to the sender
	NackRejected bool
	// HistoryOnJoin sends the room history right after a join
	HistoryOnJoin bool
	// FallbackSenderName labels messages whose sender cannot be resolved
	FallbackSenderName string
}

// Deps are the collaborators a Gateway needs. Metrics and Tracer are optional.
type Deps struct {
	Registry    *Registry
	Oracle      MembershipOracle
	Store       MessageStore
	Directory   UserDirectory
	Broadcaster Broadcaster
	Logger      *logger.Logger
	Metrics     *observability.ChatMetrics
	Tracer      trace.Tracer
}

// Gateway runs the per-connection state machine: connect, join, leave,
// publish and disconnect. It is safe for concurrent use by many connections;
// each connection must deliver its own events sequentially.
type Gateway struct {
	registry    *Registry
	oracle      MembershipOracle
	store       MessageStore
	directory   UserDirectory
	broadcaster Broadcaster
	log         *logger.Logger
	metrics     *observability.ChatMetrics
	tracer      trace.Tracer
	opts        Options
}

// NewGateway wires a gateway
func NewGateway(deps Deps, opts Options) *Gateway {
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = logger.GetGlobal()
	}
	if deps.Broadcaster == nil {
		deps.Broadcaster = NewLocalBroadcaster(deps.Registry, deps.Logger, deps.Metrics)
	}
	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("chat")
	}
	if opts.FallbackSenderName == "" {
		opts.FallbackSenderName = "Unknown"
	}

	return &Gateway{
		registry:    deps.Registry,
		oracle:      deps.Oracle,
		store:       deps.Store,
		directory:   deps.Directory,
		broadcaster: deps.Broadcaster,
		log:         deps.Logger,
		metrics:     deps.Metrics,
		tracer:      deps.Tracer,
		opts:        opts,
	}
}

// Registry exposes the connection registry
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Connect registers c. No membership check happens here.
func (g *Gateway) Connect(ctx context.Context, c Conn) {
	g.registry.Register(c)
	g.metrics.ConnectionOpened(ctx)

	uid, authed := c.UserID()
	g.log.Debug("Chat connection registered", "conn_id", c.ID(), "user_id", uid, "authenticated", authed)
}

// Handle dispatches one inbound event. Replies to the originating connection
// (joined, history, error frames) are sent from here; the returned error is
// for the caller's logging only.
func (g *Gateway) Handle(ctx context.Context, c Conn, ev Event) error {
	switch e := ev.(type) {
	case JoinEvent:
		return g.Join(ctx, c, e.ProjectID)
	case LeaveEvent:
		return g.Leave(ctx, c, e.ProjectID)
	case PublishEvent:
		_, err := g.Publish(ctx, c, e)
		return err
	case DisconnectEvent:
		g.Disconnect(ctx, c)
		return nil
	default:
		err := ErrMalformedFrame.WithDetails(fmt.Sprintf("unsupported event %T", ev))
		g.reply(c, EncodeError(err))
		return err
	}
}

// Join subscribes c to the project room. Observation needs no membership;
// only publishing does.
func (g *Gateway) Join(ctx context.Context, c Conn, projectID uint) error {
	if projectID == 0 {
		err := ErrMalformedFrame.WithDetails("projectId is required")
		g.reply(c, EncodeError(err))
		return err
	}

	if err := g.registry.Subscribe(c, projectID); err != nil {
		return err
	}
	g.log.Debug("Joined project room", "conn_id", c.ID(), "project_id", projectID)
	g.reply(c, encodeRoom(FrameJoined, projectID))

	if !g.opts.HistoryOnJoin {
		return nil
	}

	history, err := g.History(ctx, projectID)
	if err != nil {
		g.log.LogError(err, "History on join failed", "conn_id", c.ID(), "project_id", projectID)
		g.reply(c, EncodeError(err))
		return nil
	}

	frame, err := encodeHistory(projectID, history)
	if err != nil {
		return err
	}
	g.reply(c, frame)
	return nil
}

// Leave drops one subscription. Leaving a room that was never joined is a no-op.
func (g *Gateway) Leave(ctx context.Context, c Conn, projectID uint) error {
	if g.registry.Unsubscribe(c, projectID) {
		g.log.Debug("Left project room", "conn_id", c.ID(), "project_id", projectID)
	}
	g.reply(c, encodeRoom(FrameLeft, projectID))
	return nil
}

// Publish validates, authorizes, persists and fans out one message. On
// success the delivered form is returned. Once the store has been called the
// publish runs on a context detached from ctx's cancellation.
func (g *Gateway) Publish(ctx context.Context, c Conn, ev PublishEvent) (*Delivered, error) {
	ctx, span := g.tracer.Start(ctx, "chat.publish", trace.WithAttributes(
		attribute.Int64("project.id", int64(ev.ProjectID)),
		attribute.String("conn.id", c.ID()),
	))
	defer span.End()

	delivered, err := g.publish(ctx, c, ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, reasonOf(err))
		g.reject(ctx, c, ev, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("message.id", int64(delivered.ID)))
	return delivered, nil
}

func (g *Gateway) publish(ctx context.Context, c Conn, ev PublishEvent) (*Delivered, error) {
	draft := Draft{
		ProjectID:  ev.ProjectID,
		SenderID:   ev.SenderID,
		Text:       ev.Text,
		Attachment: ev.Attachment,
	}.Normalized()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	uid, authed := c.UserID()
	if !authed {
		return nil, ErrNotAMember.WithDetails("anonymous connections cannot publish")
	}
	if ev.SenderID != 0 && ev.SenderID != uid {
		return nil, ErrNotAMember.WithDetails("senderId does not match the authenticated user")
	}
	draft.SenderID = uid

	member, err := g.oracle.IsMember(ctx, uid, draft.ProjectID)
	if err != nil {
		if errors.Is(err, ErrOracleUnavailable) {
			return nil, err
		}
		return nil, ErrOracleUnavailable.Wrap(err)
	}
	if !member {
		return nil, ErrNotAMember
	}

	// past this point a dropped connection must not abort the publish
	ctx = context.WithoutCancel(ctx)

	msg, err := g.store.Append(ctx, draft)
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			return nil, err
		}
		return nil, ErrPersistence.Wrap(err)
	}

	delivered := &Delivered{ChatMessage: *msg, SenderName: g.displayName(ctx, msg.SenderID)}

	if err := g.broadcaster.Broadcast(ctx, msg.ProjectID, delivered); err != nil {
		g.log.Warn("Broadcast incomplete",
			"project_id", msg.ProjectID,
			"message_id", msg.ID,
			"error", err.Error(),
		)
	}

	g.metrics.Published(ctx)
	return delivered, nil
}

func (g *Gateway) displayName(ctx context.Context, userID uint) string {
	name, err := g.directory.DisplayName(ctx, userID)
	if err != nil || name == "" {
		if err != nil {
			g.log.Warn("Sender name unavailable", "user_id", userID, "error", err.Error())
		}
		return g.opts.FallbackSenderName
	}
	return name
}

// reject logs a refused publish at the level its kind deserves and decides
// whether the sender hears about it.
func (g *Gateway) reject(ctx context.Context, c Conn, ev PublishEvent, err error) {
	g.metrics.Rejected(ctx, reasonOf(err))

	uid, _ := c.UserID()
	attrs := []any{
		"conn_id", c.ID(),
		"user_id", uid,
		"project_id", ev.ProjectID,
		"error", err.Error(),
	}

	nack := true
	switch {
	case errors.Is(err, ErrInvalidMessage):
		g.log.Debug("Publish rejected: invalid message", attrs...)
	case errors.Is(err, ErrNotAMember):
		g.log.Warn("Publish rejected: sender is not a project member", attrs...)
		nack = g.opts.NackRejected
	case errors.Is(err, ErrOracleUnavailable):
		g.log.Warn("Publish rejected: membership oracle unavailable", attrs...)
		nack = g.opts.NackRejected
	case errors.Is(err, ErrPersistence):
		g.log.Error("Publish failed: message not persisted", attrs...)
	default:
		g.log.Error("Publish failed", attrs...)
	}

	if nack {
		g.reply(c, EncodeError(err))
	}
}

// Disconnect removes c from every room. Terminal: later joins fail with
// ErrConnectionClosed.
func (g *Gateway) Disconnect(ctx context.Context, c Conn) {
	rooms, existed := g.registry.UnsubscribeAll(c)
	if !existed {
		return
	}
	g.metrics.ConnectionClosed(ctx)
	g.log.Debug("Chat connection closed", "conn_id", c.ID(), "rooms", rooms)
}

// History returns the project's messages oldest first with sender names
// resolved. Each distinct sender is looked up once.
func (g *Gateway) History(ctx context.Context, projectID uint) ([]Delivered, error) {
	msgs, err := g.store.ListByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, ErrPersistence) {
			return nil, err
		}
		return nil, ErrPersistence.Wrap(err)
	}

	names := make(map[uint]string)
	out := make([]Delivered, 0, len(msgs))
	for _, m := range msgs {
		name, ok := names[m.SenderID]
		if !ok {
			name = g.displayName(ctx, m.SenderID)
			names[m.SenderID] = name
		}
		out = append(out, Delivered{ChatMessage: m, SenderName: name})
	}
	return out, nil
}

// reply sends a frame to one connection; a gone connection is not an error
func (g *Gateway) reply(c Conn, frame []byte) {
	if err := c.Send(frame); err != nil {
		g.log.Debug("Reply dropped", "conn_id", c.ID(), "error", err.Error())
	}
}
