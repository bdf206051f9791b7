package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/wolfman30/whatsapp-intake-agent/internal/conversation"
)

var (
	// ErrInvalidPayload means the body is not JSON at all.
	ErrInvalidPayload = errors.New("whatsapp: payload is not valid JSON")
	// ErrNotPlatformEvent means the object marker is absent.
	ErrNotPlatformEvent = errors.New("whatsapp: payload has no object marker")
	// ErrMalformedEvent means the marker is present but the entry/change/message
	// structure is incomplete. No event is produced.
	ErrMalformedEvent = errors.New("whatsapp: malformed event")
)

// Only the first entry, change and message are read, so the schema uses
// tuple-form "items" to constrain exactly those.
const inboundSchema = `{
  "type": "object",
  "required": ["object", "entry"],
  "properties": {
    "entry": {
      "type": "array",
      "minItems": 1,
      "items": [{
        "type": "object",
        "required": ["changes"],
        "properties": {
          "changes": {
            "type": "array",
            "minItems": 1,
            "items": [{
              "type": "object",
              "required": ["value"],
              "properties": {
                "value": {
                  "type": "object",
                  "required": ["metadata", "messages"],
                  "properties": {
                    "metadata": {
                      "type": "object",
                      "required": ["phone_number_id"],
                      "properties": {"phone_number_id": {"type": "string", "minLength": 1}}
                    },
                    "messages": {
                      "type": "array",
                      "minItems": 1,
                      "items": [{
                        "type": "object",
                        "required": ["from", "type"],
                        "properties": {
                          "from": {"type": "string", "minLength": 1},
                          "id": {"type": "string"},
                          "type": {"type": "string"},
                          "text": {"type": "object"},
                          "interactive": {"type": "object"}
                        }
                      }]
                    }
                  }
                }
              }
            }]
          }
        }
      }]
    }
  }
}`

// Normalizer turns raw webhook bodies into conversation events.
type Normalizer struct {
	schema *gojsonschema.Schema
}

// NewNormalizer compiles the inbound payload schema.
func NewNormalizer() (*Normalizer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(inboundSchema))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: compile inbound schema: %w", err)
	}
	return &Normalizer{schema: schema}, nil
}

// MustNewNormalizer is NewNormalizer for package-level wiring; the schema is a constant.
func MustNewNormalizer() *Normalizer {
	n, err := NewNormalizer()
	if err != nil {
		panic(err)
	}
	return n
}

// Normalize validates body and extracts the first message as an InboundEvent.
func (n *Normalizer) Normalize(body []byte) (conversation.InboundEvent, error) {
	if !json.Valid(body) {
		return conversation.InboundEvent{}, ErrInvalidPayload
	}
	if !hasObjectMarker(body) {
		return conversation.InboundEvent{}, ErrNotPlatformEvent
	}

	result, err := n.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return conversation.InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return conversation.InboundEvent{}, fmt.Errorf("%w: %s", ErrMalformedEvent, strings.Join(problems, "; "))
	}

	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return conversation.InboundEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	value := payload.Entry[0].Changes[0].Value
	msg := value.Messages[0]
	ev := conversation.InboundEvent{
		UserID:    msg.From,
		RoutingID: value.Metadata.PhoneNumberID,
		MessageID: msg.ID,
	}
	ev.Kind, ev.Payload = classify(msg)
	return ev, nil
}

func classify(msg InboundMessage) (conversation.EventKind, string) {
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			return conversation.EventText, msg.Text.Body
		}
	case "interactive":
		if msg.Interactive == nil {
			break
		}
		switch msg.Interactive.Type {
		case "button_reply":
			if msg.Interactive.ButtonReply != nil {
				return conversation.EventButtonReply, msg.Interactive.ButtonReply.ID
			}
		case "list_reply":
			if msg.Interactive.ListReply != nil {
				return conversation.EventListReply, msg.Interactive.ListReply.ID
			}
		}
	}
	return conversation.EventUnrecognized, ""
}

// hasObjectMarker accepts any present marker that is not null, false, 0 or "".
func hasObjectMarker(body []byte) bool {
	var probe map[string]any
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	switch v := probe["object"].(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
