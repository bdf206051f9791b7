package whatsapp

import "encoding/json"

// WebhookPayload is the top-level structure received from the WhatsApp Cloud API webhook.
type WebhookPayload struct {
	// Object is usually "whatsapp_business_account"; any truthy value is accepted.
	Object json.RawMessage `json:"object"`
	Entry  []Entry         `json:"entry"`
}

// Entry is one business account entry.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is a single field change notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries messages or delivery statuses.
type ChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         Metadata          `json:"metadata"`
	Contacts         []Contact         `json:"contacts,omitempty"`
	Messages         []InboundMessage  `json:"messages,omitempty"`
	Statuses         []json.RawMessage `json:"statuses,omitempty"`
}

// Metadata identifies the business phone number that received the message.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender profile.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// InboundMessage is one user message.
type InboundMessage struct {
	From        string              `json:"from"`
	ID          string              `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Type        string              `json:"type"`
	Text        *TextBody           `json:"text,omitempty"`
	Interactive *InboundInteractive `json:"interactive,omitempty"`
}

// TextBody is the payload of a text message.
type TextBody struct {
	Body string `json:"body"`
}

// InboundInteractive is the payload of a reply to an interactive message.
type InboundInteractive struct {
	Type        string     `json:"type"`
	ButtonReply *ReplyRef  `json:"button_reply,omitempty"`
	ListReply   *ListReply `json:"list_reply,omitempty"`
}

// ReplyRef identifies a reply button.
type ReplyRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ListReply identifies the chosen list row.
type ListReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// OutboundMessage is the payload posted to /{phone_number_id}/messages.
type OutboundMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *TextBody    `json:"text,omitempty"`
	Interactive      *Interactive `json:"interactive,omitempty"`
}

// Interactive is a button or list message.
type Interactive struct {
	Type   string            `json:"type"`
	Header *Header           `json:"header,omitempty"`
	Body   InteractiveText   `json:"body"`
	Footer *InteractiveText  `json:"footer,omitempty"`
	Action InteractiveAction `json:"action"`
}

// Header is the optional interactive header.
type Header struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// InteractiveText is a body or footer block.
type InteractiveText struct {
	Text string `json:"text"`
}

// InteractiveAction holds reply buttons or the list menu.
type InteractiveAction struct {
	Button   string        `json:"button,omitempty"`
	Buttons  []ReplyButton `json:"buttons,omitempty"`
	Sections []Section     `json:"sections,omitempty"`
}

// ReplyButton is one quick-reply button.
type ReplyButton struct {
	Type  string   `json:"type"`
	Reply ReplyRef `json:"reply"`
}

// Section is a titled group of list rows.
type Section struct {
	Title string `json:"title,omitempty"`
	Rows  []Row  `json:"rows"`
}

// Row is one list entry.
type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// SendResponse is the Graph API response after sending a message.
type SendResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts,omitempty"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages,omitempty"`
	Error *SendError `json:"error,omitempty"`
}

// MessageID returns the id of the first accepted message, if any.
func (r *SendResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

// SendError represents an error returned by the Graph API.
type SendError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}
