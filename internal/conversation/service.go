package conversation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/whatsapp-intake-agent/internal/events"
	"github.com/wolfman30/whatsapp-intake-agent/internal/observability/metrics"
	"github.com/wolfman30/whatsapp-intake-agent/internal/session"
	"github.com/wolfman30/whatsapp-intake-agent/pkg/logging"
)

var serviceTracer = otel.Tracer("intake.internal.conversation")

const processedProvider = "whatsapp"

// ErrMissingUser is returned for events without a sender identifier.
var ErrMissingUser = errors.New("conversation: event has no user id")

// Dispatcher hands a reply to the delivery layer. Implementations must not
// block on the network call.
type Dispatcher interface {
	Dispatch(ctx context.Context, routingID string, action Action)
}

// Service runs inbound events through the engine with at most one in-flight
// transition per user.
type Service struct {
	store      session.Store
	locks      *session.KeyedMutex
	engine     *Engine
	dispatcher Dispatcher
	processed  events.ProcessedStore
	metrics    *metrics.IntakeMetrics
	logger     *logging.Logger
}

// NewService wires the engine to a session store and a dispatcher.
func NewService(store session.Store, engine *Engine, dispatcher Dispatcher, logger *logging.Logger) *Service {
	if store == nil {
		panic("conversation: session store required")
	}
	if engine == nil {
		engine = NewEngine()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:      store,
		locks:      session.NewKeyedMutex(),
		engine:     engine,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// WithProcessedStore drops events whose message id was already handled.
func (s *Service) WithProcessedStore(store events.ProcessedStore) *Service {
	s.processed = store
	return s
}

func (s *Service) WithMetrics(m *metrics.IntakeMetrics) *Service {
	s.metrics = m
	return s
}

// HandleEvent advances the sender's session and dispatches the reply, if any.
// The transition is saved before the reply is handed off; delivery failures
// never roll it back.
func (s *Service) HandleEvent(ctx context.Context, ev InboundEvent) (*Action, error) {
	if ev.UserID == "" {
		return nil, ErrMissingUser
	}
	ctx, span := serviceTracer.Start(ctx, "conversation.handle_event")
	defer span.End()
	span.SetAttributes(
		attribute.String("intake.event_kind", string(ev.Kind)),
		attribute.String("intake.routing_id", ev.RoutingID),
	)

	unlock := s.locks.Lock(ev.UserID)
	defer unlock()

	if s.isDuplicate(ctx, ev) {
		s.metrics.ObserveInbound(string(ev.Kind), "duplicate")
		s.logger.Info("duplicate inbound message dropped", "user_id", ev.UserID, "message_id", ev.MessageID)
		return nil, nil
	}

	sess, err := s.store.GetOrCreate(ctx, ev.UserID)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveInbound(string(ev.Kind), "store_error")
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	t := s.engine.Decide(sess, ev)
	if t.Corrupt {
		s.logger.Warn("session held unknown state, resetting", "user_id", ev.UserID, "state", t.From)
	}
	if t.Action == nil && !t.Changed() {
		s.markProcessed(ctx, ev)
		s.metrics.ObserveInbound(string(ev.Kind), "ignored")
		s.logger.Debug("event ignored", "user_id", ev.UserID, "state", sess.State, "kind", ev.Kind)
		return nil, nil
	}

	Apply(sess, t)
	if err := s.store.Save(ctx, sess); err != nil {
		span.RecordError(err)
		s.metrics.ObserveInbound(string(ev.Kind), "store_error")
		return nil, fmt.Errorf("conversation: save session: %w", err)
	}
	s.markProcessed(ctx, ev)

	s.metrics.ObserveInbound(string(ev.Kind), "processed")
	s.metrics.ObserveTransition(t.From.String(), t.To.String())
	logArgs := []any{"user_id", ev.UserID, "from", t.From, "to", t.To}
	if t.Experience != "" {
		logArgs = append(logArgs, "experience", t.Experience)
	}
	s.logger.Info("conversation advanced", logArgs...)

	if t.Action != nil && s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, ev.RoutingID, *t.Action)
	}
	return t.Action, nil
}

// isDuplicate only reads the marker; the id is recorded once the transition
// has been saved so a failed load or save can be redelivered.
func (s *Service) isDuplicate(ctx context.Context, ev InboundEvent) bool {
	if s.processed == nil || ev.MessageID == "" {
		return false
	}
	seen, err := s.processed.IsProcessed(ctx, processedProvider, ev.MessageID)
	if err != nil {
		s.logger.Warn("processed store unavailable, handling message anyway", "error", err, "message_id", ev.MessageID)
		return false
	}
	return seen
}

func (s *Service) markProcessed(ctx context.Context, ev InboundEvent) {
	if s.processed == nil || ev.MessageID == "" {
		return
	}
	if _, err := s.processed.MarkProcessed(ctx, processedProvider, ev.MessageID); err != nil {
		s.logger.Warn("failed to record processed message", "error", err, "message_id", ev.MessageID)
	}
}
