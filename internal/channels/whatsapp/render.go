package whatsapp

import (
	"errors"
	"fmt"

	"github.com/wolfman30/whatsapp-intake-agent/internal/conversation"
)

const (
	messagingProduct    = "whatsapp"
	recipientIndividual = "individual"
	maxReplyButtons     = 3
	maxListRows         = 10
	messageTypeText     = "text"
	messageTypeInteract = "interactive"
	interactiveButton   = "button"
	interactiveList     = "list"
	replyButtonType     = "reply"
	headerTypeText      = "text"
)

// ErrInvalidPrompt is returned when an action's prompt cannot be expressed on the wire.
var ErrInvalidPrompt = errors.New("whatsapp: invalid prompt")

// Render maps an abstract action onto a text, button or list message.
func Render(action conversation.Action) (OutboundMessage, error) {
	if action.Recipient == "" {
		return OutboundMessage{}, errors.New("whatsapp: recipient required")
	}
	msg := OutboundMessage{
		MessagingProduct: messagingProduct,
		RecipientType:    recipientIndividual,
		To:               action.Recipient,
	}

	switch p := action.Prompt.(type) {
	case nil:
		msg.Type = messageTypeText
		msg.Text = &TextBody{Body: action.Body}
	case conversation.ButtonPrompt:
		interactive, err := renderButtons(action.Body, p)
		if err != nil {
			return OutboundMessage{}, err
		}
		msg.Type = messageTypeInteract
		msg.Interactive = interactive
	case *conversation.ButtonPrompt:
		if p == nil {
			return OutboundMessage{}, fmt.Errorf("%w: nil button prompt", ErrInvalidPrompt)
		}
		return Render(conversation.Action{Recipient: action.Recipient, Body: action.Body, Prompt: *p})
	case conversation.ListPrompt:
		interactive, err := renderList(action.Body, p)
		if err != nil {
			return OutboundMessage{}, err
		}
		msg.Type = messageTypeInteract
		msg.Interactive = interactive
	case *conversation.ListPrompt:
		if p == nil {
			return OutboundMessage{}, fmt.Errorf("%w: nil list prompt", ErrInvalidPrompt)
		}
		return Render(conversation.Action{Recipient: action.Recipient, Body: action.Body, Prompt: *p})
	default:
		return OutboundMessage{}, fmt.Errorf("%w: unsupported prompt %T", ErrInvalidPrompt, p)
	}
	return msg, nil
}

func renderButtons(body string, p conversation.ButtonPrompt) (*Interactive, error) {
	if len(p.Buttons) == 0 || len(p.Buttons) > maxReplyButtons {
		return nil, fmt.Errorf("%w: %d buttons, want 1..%d", ErrInvalidPrompt, len(p.Buttons), maxReplyButtons)
	}
	buttons := make([]ReplyButton, 0, len(p.Buttons))
	for _, b := range p.Buttons {
		if b.ID == "" || b.Title == "" {
			return nil, fmt.Errorf("%w: button needs id and title", ErrInvalidPrompt)
		}
		buttons = append(buttons, ReplyButton{
			Type:  replyButtonType,
			Reply: ReplyRef{ID: b.ID, Title: b.Title},
		})
	}
	return &Interactive{
		Type:   interactiveButton,
		Body:   InteractiveText{Text: body},
		Action: InteractiveAction{Buttons: buttons},
	}, nil
}

func renderList(body string, p conversation.ListPrompt) (*Interactive, error) {
	if len(p.Sections) == 0 {
		return nil, fmt.Errorf("%w: list needs at least one section", ErrInvalidPrompt)
	}
	if p.ButtonLabel == "" {
		return nil, fmt.Errorf("%w: list needs a button label", ErrInvalidPrompt)
	}
	total := 0
	sections := make([]Section, 0, len(p.Sections))
	for _, s := range p.Sections {
		if len(s.Rows) == 0 {
			return nil, fmt.Errorf("%w: section %q has no rows", ErrInvalidPrompt, s.Title)
		}
		rows := make([]Row, 0, len(s.Rows))
		for _, r := range s.Rows {
			if r.ID == "" || r.Title == "" {
				return nil, fmt.Errorf("%w: row needs id and title", ErrInvalidPrompt)
			}
			rows = append(rows, Row{ID: r.ID, Title: r.Title, Description: r.Description})
		}
		total += len(rows)
		sections = append(sections, Section{Title: s.Title, Rows: rows})
	}
	if total > maxListRows {
		return nil, fmt.Errorf("%w: %d rows exceeds %d", ErrInvalidPrompt, total, maxListRows)
	}

	interactive := &Interactive{
		Type: interactiveList,
		Body: InteractiveText{Text: body},
		Action: InteractiveAction{
			Button:   p.ButtonLabel,
			Sections: sections,
		},
	}
	if p.Header != "" {
		interactive.Header = &Header{Type: headerTypeText, Text: p.Header}
	}
	if p.Footer != "" {
		interactive.Footer = &InteractiveText{Text: p.Footer}
	}
	return interactive, nil
}
