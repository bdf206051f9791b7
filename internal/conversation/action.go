package conversation

// Action is the engine's reply decision for one inbound event.
type Action struct {
	Recipient string
	Body      string
	// Prompt is nil for a plain text reply.
	Prompt Prompt
}

// Prompt is an interactive element attached to an Action: either a
// ButtonPrompt or a ListPrompt, never both.
type Prompt interface {
	isPrompt()
}

// Button is a single quick-reply button.
type Button struct {
	ID    string
	Title string
}

// ButtonPrompt offers one or more reply buttons.
type ButtonPrompt struct {
	Buttons []Button
}

func (ButtonPrompt) isPrompt() {}

// ListRow is one selectable row of a list menu.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups rows under a title.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// ListPrompt is a sectioned menu opened from a single button.
type ListPrompt struct {
	Header      string
	Footer      string
	ButtonLabel string
	Sections    []ListSection
}

func (ListPrompt) isPrompt() {}
