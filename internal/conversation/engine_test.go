package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/whatsapp-intake-agent/internal/session"
)

func strPtr(s string) *string { return &s }

func sessionIn(state session.State) *session.Session {
	s := session.New("15550001111")
	s.State = state
	return s
}

func TestInitialOnlyGreetingAdvances(t *testing.T) {
	engine := NewEngine()

	for _, greeting := range []string{"hi", "Hi", "HI", "hI"} {
		t.Run(greeting, func(t *testing.T) {
			s := sessionIn(session.StateInitial)
			action := engine.Advance(s, TextEvent(s.ID, greeting))
			require.NotNil(t, action)
			assert.Equal(t, session.StateAwaitingResponse, s.State)
			assert.Equal(t, "Hi! Are you here to apply for the Internship?", action.Body)
			assert.Equal(t, s.ID, action.Recipient)

			prompt, ok := action.Prompt.(ButtonPrompt)
			require.True(t, ok, "greeting should offer buttons")
			assert.Equal(t, []Button{{ID: "APPLY_YES", Title: "Yes"}, {ID: "APPLY_NO", Title: "No"}}, prompt.Buttons)
		})
	}

	ignored := []InboundEvent{
		TextEvent("u", "hello"),
		TextEvent("u", " hi"),
		TextEvent("u", "hi there"),
		TextEvent("u", ""),
		ButtonEvent("u", ButtonApplyYes),
		ListEvent("u", "3"),
		{UserID: "u", Kind: EventUnrecognized},
	}
	for _, ev := range ignored {
		t.Run(string(ev.Kind)+":"+ev.Payload, func(t *testing.T) {
			s := sessionIn(session.StateInitial)
			action := engine.Advance(s, ev)
			assert.Nil(t, action)
			assert.Equal(t, session.StateInitial, s.State)
			assert.Equal(t, session.Context{}, s.Context)
		})
	}
}

func TestAwaitingResponse(t *testing.T) {
	engine := NewEngine()

	t.Run("yes asks for name", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingResponse)
		action := engine.Advance(s, ButtonEvent(s.ID, ButtonApplyYes))
		require.NotNil(t, action)
		assert.Equal(t, "Please enter your name:", action.Body)
		assert.Nil(t, action.Prompt)
		assert.Equal(t, session.StateAwaitingName, s.State)
	})

	t.Run("no closes and resets", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingResponse)
		action := engine.Advance(s, ButtonEvent(s.ID, ButtonApplyNo))
		require.NotNil(t, action)
		assert.Contains(t, action.Body, "Thank you for letting us know")
		assert.Equal(t, session.StateInitial, s.State)
	})

	for _, ev := range []InboundEvent{TextEvent("u", "yes"), ButtonEvent("u", "MAYBE"), ListEvent("u", "1")} {
		s := sessionIn(session.StateAwaitingResponse)
		assert.Nil(t, engine.Advance(s, ev))
		assert.Equal(t, session.StateAwaitingResponse, s.State)
	}
}

func TestAwaitingName(t *testing.T) {
	engine := NewEngine()

	t.Run("digit rejected", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingName)
		action := engine.Advance(s, TextEvent(s.ID, "R2D2"))
		require.NotNil(t, action)
		assert.Equal(t, "Invalid name. Please enter your name:", action.Body)
		assert.Equal(t, session.StateAwaitingName, s.State)
		assert.Nil(t, s.Context.Name)
	})

	t.Run("digit free accepted verbatim", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingName)
		action := engine.Advance(s, TextEvent(s.ID, "  Jane Doe "))
		require.NotNil(t, action)
		assert.Equal(t, "Please enter your email ID:", action.Body)
		assert.Equal(t, session.StateAwaitingEmail, s.State)
		require.NotNil(t, s.Context.Name)
		assert.Equal(t, "  Jane Doe ", *s.Context.Name)
	})

	t.Run("button ignored", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingName)
		assert.Nil(t, engine.Advance(s, ButtonEvent(s.ID, ButtonApplyYes)))
		assert.Equal(t, session.StateAwaitingName, s.State)
		assert.Nil(t, s.Context.Name)
	})
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@b.co", true},
		{"jane@x.com", true},
		{"first.last@sub.example.org", true},
		{"a@b", false},
		{"a b@c.com", false},
		{"abc", false},
		{"@b.co", false},
		{"a@.co", false},
		{"a@b.", false},
		{"a@@b.co", false},
		{"a@b.co\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.email))
		})
	}
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("Jane Doe"))
	assert.True(t, ValidName("Zoë O'Brien-Smith"))
	assert.False(t, ValidName("Agent 47"))
	assert.False(t, ValidName("0"))
}

func TestAwaitingEmail(t *testing.T) {
	engine := NewEngine()

	t.Run("invalid re-prompts", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingEmail)
		s.Context.Name = strPtr("Jane")
		action := engine.Advance(s, TextEvent(s.ID, "jane at example"))
		require.NotNil(t, action)
		assert.Equal(t, "Invalid email ID. Please enter your email ID:", action.Body)
		assert.Equal(t, session.StateAwaitingEmail, s.State)
		assert.Nil(t, s.Context.Email)
	})

	t.Run("valid offers experience menu", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingEmail)
		action := engine.Advance(s, TextEvent(s.ID, "jane@x.com"))
		require.NotNil(t, action)
		assert.Equal(t, session.StateAwaitingExperience, s.State)
		require.NotNil(t, s.Context.Email)
		assert.Equal(t, "jane@x.com", *s.Context.Email)

		list, ok := action.Prompt.(ListPrompt)
		require.True(t, ok, "expected a list prompt")
		assert.Equal(t, "Experience", list.Header)
		assert.Equal(t, "Choose", list.Footer)
		assert.Equal(t, "View More", list.ButtonLabel)
		require.Len(t, list.Sections, 1)
		rows := list.Sections[0].Rows
		require.Len(t, rows, 5)
		assert.Equal(t, ListRow{ID: "1", Title: "1 year"}, rows[0])
		assert.Equal(t, ListRow{ID: "5", Title: "5 years"}, rows[4])
	})
}

func TestAwaitingExperience(t *testing.T) {
	t.Run("selection closes without persisting by default", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingExperience)
		tr := NewEngine().Decide(s, ListEvent(s.ID, "3"))
		require.NotNil(t, tr.Action)
		assert.Equal(t, "Thanks for connecting. We will get back to you shortly!", tr.Action.Body)
		assert.Equal(t, session.StateInitial, tr.To)
		assert.Equal(t, "3 years", tr.Experience)
		assert.Nil(t, tr.Context.Experience)
	})

	t.Run("capture stores label", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingExperience)
		NewEngine(WithExperienceCapture(true)).Advance(s, ListEvent(s.ID, "2"))
		require.NotNil(t, s.Context.Experience)
		assert.Equal(t, "2 years", *s.Context.Experience)
	})

	t.Run("unknown row id still closes", func(t *testing.T) {
		s := sessionIn(session.StateAwaitingExperience)
		action := NewEngine().Advance(s, ListEvent(s.ID, "10"))
		require.NotNil(t, action)
		assert.Equal(t, session.StateInitial, s.State)
	})

	t.Run("empty id and text ignored", func(t *testing.T) {
		engine := NewEngine()
		for _, ev := range []InboundEvent{ListEvent("u", ""), TextEvent("u", "3")} {
			s := sessionIn(session.StateAwaitingExperience)
			assert.Nil(t, engine.Advance(s, ev))
			assert.Equal(t, session.StateAwaitingExperience, s.State)
		}
	})
}

func TestCorruptStateResets(t *testing.T) {
	s := sessionIn(session.State("AWAITING_PHONE"))
	s.Context.Name = strPtr("Jane")
	action := NewEngine().Advance(s, TextEvent(s.ID, "anything"))
	require.NotNil(t, action)
	assert.Equal(t, "Sorry, I didn't understand that. Please try again.", action.Body)
	assert.Equal(t, session.StateInitial, s.State)
}

func TestUnrecognizedIsNoOpEvenForCorruptState(t *testing.T) {
	s := sessionIn(session.State("???"))
	assert.Nil(t, NewEngine().Advance(s, InboundEvent{UserID: s.ID, Kind: EventUnrecognized}))
	assert.Equal(t, session.State("???"), s.State)
}

func TestDecideDoesNotMutate(t *testing.T) {
	s := sessionIn(session.StateAwaitingName)
	before := s.Clone()
	tr := NewEngine().Decide(s, TextEvent(s.ID, "Jane"))
	assert.Equal(t, before, s)
	assert.Equal(t, session.StateAwaitingEmail, tr.To)
	require.NotNil(t, tr.Context.Name)
}

func TestUnexpectedInputFeedback(t *testing.T) {
	engine := NewEngine(WithUnexpectedInputFeedback(true))

	cases := []struct {
		state session.State
		ev    InboundEvent
		body  string
	}{
		{session.StateAwaitingResponse, TextEvent("u", "yes"), msgUseButtons},
		{session.StateAwaitingName, ButtonEvent("u", ButtonApplyYes), msgTypeReply},
		{session.StateAwaitingEmail, ListEvent("u", "1"), msgTypeReply},
		{session.StateAwaitingExperience, TextEvent("u", "3 years"), msgUseList},
	}
	for _, tc := range cases {
		t.Run(string(tc.state), func(t *testing.T) {
			s := sessionIn(tc.state)
			action := engine.Advance(s, tc.ev)
			require.NotNil(t, action)
			assert.Equal(t, tc.body, action.Body)
			assert.Equal(t, tc.state, s.State)
		})
	}

	s := sessionIn(session.StateInitial)
	assert.Nil(t, engine.Advance(s, TextEvent(s.ID, "hello")), "INITIAL stays silent")
}

func TestFullFunnel(t *testing.T) {
	engine := NewEngine()
	s := session.New("15550001111")

	steps := []InboundEvent{
		TextEvent(s.ID, "hi"),
		ButtonEvent(s.ID, ButtonApplyYes),
		TextEvent(s.ID, "Jane Doe"),
		TextEvent(s.ID, "jane@x.com"),
		ListEvent(s.ID, "3"),
	}
	for _, ev := range steps {
		require.NotNil(t, engine.Advance(s, ev), "step %s %q", ev.Kind, ev.Payload)
	}

	assert.Equal(t, session.StateInitial, s.State)
	assert.Equal(t, session.Context{Name: strPtr("Jane Doe"), Email: strPtr("jane@x.com")}, s.Context)
}
