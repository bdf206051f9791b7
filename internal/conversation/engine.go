package conversation

import "github.com/wolfman30/whatsapp-intake-agent/internal/session"

// Transition is the engine's complete decision for one event. It is computed
// without touching the session, then applied in one step.
type Transition struct {
	From    session.State
	To      session.State
	Context session.Context
	// Action is nil when the event is ignored.
	Action *Action
	// Experience is the label chosen from the experience menu, if any.
	Experience string
	// Corrupt is set when the session held a state outside the funnel.
	Corrupt bool
}

// Changed reports whether applying t alters the session state.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Option configures an Engine.
type Option func(*Engine)

// WithUnexpectedInputFeedback makes the engine answer mismatched reply kinds
// (e.g. text while a button is expected) with a short hint instead of staying silent.
func WithUnexpectedInputFeedback(enabled bool) Option {
	return func(e *Engine) { e.feedback = enabled }
}

// WithExperienceCapture stores the selected experience label in the session context.
func WithExperienceCapture(enabled bool) Option {
	return func(e *Engine) { e.captureExperience = enabled }
}

// Engine is the intake funnel:
// greeting -> consent -> name -> email -> experience -> back to INITIAL.
type Engine struct {
	feedback          bool
	captureExperience bool
}

// NewEngine builds an engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Advance decides the reply for ev and applies the resulting state and
// context to s. It returns nil when no reply should be sent.
func (e *Engine) Advance(s *session.Session, ev InboundEvent) *Action {
	t := e.Decide(s, ev)
	Apply(s, t)
	return t.Action
}

// Apply commits a transition to the session.
func Apply(s *session.Session, t Transition) {
	s.State = t.To
	s.Context = t.Context
}

// Decide computes the transition for ev without mutating s.
func (e *Engine) Decide(s *session.Session, ev InboundEvent) Transition {
	t := Transition{
		From:    s.State,
		To:      s.State,
		Context: s.Context.Clone(),
	}
	if ev.Kind == EventUnrecognized {
		return t
	}

	reply := func(body string, prompt Prompt) {
		t.Action = &Action{Recipient: s.ID, Body: body, Prompt: prompt}
	}

	switch s.State {
	case session.StateInitial:
		if ev.Kind == EventText && isGreeting(ev.Payload) {
			reply(msgGreeting, greetingPrompt())
			t.To = session.StateAwaitingResponse
		}

	case session.StateAwaitingResponse:
		if ev.Kind != EventButtonReply {
			e.hint(&t, s.ID, msgUseButtons)
			break
		}
		switch ev.Payload {
		case ButtonApplyYes:
			reply(msgAskName, nil)
			t.To = session.StateAwaitingName
		case ButtonApplyNo:
			reply(msgDeclined, nil)
			t.To = session.StateInitial
		default:
			e.hint(&t, s.ID, msgUseButtons)
		}

	case session.StateAwaitingName:
		if ev.Kind != EventText {
			e.hint(&t, s.ID, msgTypeReply)
			break
		}
		if !ValidName(ev.Payload) {
			reply(msgInvalidName, nil)
			break
		}
		name := ev.Payload
		t.Context.Name = &name
		reply(msgAskEmail, nil)
		t.To = session.StateAwaitingEmail

	case session.StateAwaitingEmail:
		if ev.Kind != EventText {
			e.hint(&t, s.ID, msgTypeReply)
			break
		}
		if !ValidEmail(ev.Payload) {
			reply(msgInvalidEmail, nil)
			break
		}
		email := ev.Payload
		t.Context.Email = &email
		reply(msgAskExperience, experiencePrompt())
		t.To = session.StateAwaitingExperience

	case session.StateAwaitingExperience:
		if ev.Kind != EventListReply || ev.Payload == "" {
			e.hint(&t, s.ID, msgUseList)
			break
		}
		label, ok := ExperienceLabel(ev.Payload)
		if !ok {
			label = ev.Payload
		}
		t.Experience = label
		if e.captureExperience {
			t.Context.Experience = &label
		}
		reply(msgThanks, nil)
		t.To = session.StateInitial

	default:
		t.Corrupt = true
		reply(msgNotUnderstood, nil)
		t.To = session.StateInitial
	}
	return t
}

func (e *Engine) hint(t *Transition, recipient, body string) {
	if !e.feedback {
		return
	}
	t.Action = &Action{Recipient: recipient, Body: body}
}
