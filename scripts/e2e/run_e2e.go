// Package main drives the intake funnel end to end against a running API.
//
// The script plays both sides of WhatsApp: it posts signed webhook payloads
// to the API and runs a stand-in Graph API that captures the replies. Start
// the API with WHATSAPP_GRAPH_API_BASE pointing at GRAPH_LISTEN_ADDR.
//
// Usage:
//
//	API_BASE_URL=http://localhost:8080 GRAPH_LISTEN_ADDR=:9099 WHATSAPP_APP_SECRET=... go run scripts/e2e/run_e2e.go [scenario-name]
package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/whatsapp-intake-agent/internal/channels/whatsapp"
)

const (
	phoneNumberID = "PNID_E2E"
	replyWait     = 10 * time.Second
)

var (
	apiBase   string
	appSecret string
	userSeq   atomic.Int64
)

var replies = make(chan whatsapp.OutboundMessage, 64)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	user   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
		return
	}
	fmt.Printf("    FAIL: %s\n", name)
	t.failed++
}

func main() {
	apiBase = strings.TrimRight(envOr("API_BASE_URL", "http://localhost:8080"), "/")
	appSecret = os.Getenv("WHATSAPP_APP_SECRET")
	listen := envOr("GRAPH_LISTEN_ADDR", ":9099")

	go func() {
		if err := http.ListenAndServe(listen, http.HandlerFunc(captureReply)); err != nil {
			fmt.Fprintf(os.Stderr, "graph stand-in failed: %v\n", err)
			os.Exit(1)
		}
	}()
	time.Sleep(200 * time.Millisecond)

	scenarios := []scenario{
		{"happy-path", happyPath},
		{"decline", decline},
		{"invalid-input", invalidInput},
		{"redelivery", redelivery},
	}

	var only string
	if len(os.Args) > 1 {
		only = os.Args[1]
	}

	totalPassed, totalFailed := 0, 0
	for _, s := range scenarios {
		if only != "" && s.Name != only {
			continue
		}
		fmt.Printf("== %s\n", s.Name)
		t := &T{user: fmt.Sprintf("1555%06d%02d", time.Now().Unix()%1000000, userSeq.Add(1))}
		s.Fn(t)
		totalPassed += t.passed
		totalFailed += t.failed
	}

	fmt.Printf("\n%d passed, %d failed\n", totalPassed, totalFailed)
	if totalFailed > 0 {
		os.Exit(1)
	}
}

func happyPath(t *T) {
	t.send(textMessage(t.user, "Hi"))
	r := t.expectReply()
	t.check("greeting offers buttons", r.Interactive != nil && r.Interactive.Type == "button")

	t.send(buttonReply(t.user, "APPLY_YES"))
	r = t.expectReply()
	t.check("asks for name", bodyOf(r) == "Please enter your name:")

	t.send(textMessage(t.user, "Jane Doe"))
	r = t.expectReply()
	t.check("asks for email", bodyOf(r) == "Please enter your email ID:")

	t.send(textMessage(t.user, "jane@example.com"))
	r = t.expectReply()
	t.check("offers experience list", r.Interactive != nil && r.Interactive.Type == "list")

	t.send(listReply(t.user, "3"))
	r = t.expectReply()
	t.check("closes conversation", bodyOf(r) == "Thanks for connecting. We will get back to you shortly!")
}

func decline(t *T) {
	t.send(textMessage(t.user, "hi"))
	t.expectReply()
	t.send(buttonReply(t.user, "APPLY_NO"))
	r := t.expectReply()
	t.check("declined message", strings.HasPrefix(bodyOf(r), "Thank you for letting us know."))
}

func invalidInput(t *T) {
	t.send(textMessage(t.user, "hi"))
	t.expectReply()
	t.send(buttonReply(t.user, "APPLY_YES"))
	t.expectReply()

	t.send(textMessage(t.user, "R2D2"))
	r := t.expectReply()
	t.check("rejects name with digits", bodyOf(r) == "Invalid name. Please enter your name:")

	t.send(textMessage(t.user, "Jane"))
	t.expectReply()
	t.send(textMessage(t.user, "not-an-email"))
	r = t.expectReply()
	t.check("rejects malformed email", bodyOf(r) == "Invalid email ID. Please enter your email ID:")
}

func redelivery(t *T) {
	payload := textMessage(t.user, "hi")
	t.send(payload)
	t.expectReply()
	t.send(payload)
	t.check("redelivered webhook does not reply twice", t.noReply(2*time.Second))
}

func (t *T) send(payload []byte) {
	req, err := http.NewRequest(http.MethodPost, apiBase+"/webhook", bytes.NewReader(payload))
	if err != nil {
		t.check("build request", false)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if appSecret != "" {
		mac := hmac.New(sha256.New, []byte(appSecret))
		mac.Write(payload)
		req.Header.Set("X-Hub-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("    webhook post failed: %v\n", err)
		t.check("webhook reachable", false)
		return
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.check(fmt.Sprintf("webhook accepted (status %d)", resp.StatusCode), false)
	}
}

func (t *T) expectReply() whatsapp.OutboundMessage {
	deadline := time.After(replyWait)
	for {
		select {
		case msg := <-replies:
			if msg.To != t.user {
				continue
			}
			return msg
		case <-deadline:
			t.check("reply received", false)
			return whatsapp.OutboundMessage{}
		}
	}
}

func (t *T) noReply(wait time.Duration) bool {
	deadline := time.After(wait)
	for {
		select {
		case msg := <-replies:
			if msg.To == t.user {
				return false
			}
		case <-deadline:
			return true
		}
	}
}

func captureReply(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var msg whatsapp.OutboundMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	replies <- msg
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"messaging_product":"whatsapp","messages":[{"id":"wamid.%s"}]}`, uuid.NewString())
}

func bodyOf(msg whatsapp.OutboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}
	if msg.Interactive != nil {
		return msg.Interactive.Body.Text
	}
	return ""
}

func envelope(from string, message map[string]any) []byte {
	message["from"] = from
	message["id"] = "wamid." + uuid.NewString()
	message["timestamp"] = fmt.Sprint(time.Now().Unix())
	payload := map[string]any{
		"object": "whatsapp_business_account",
		"entry": []any{map[string]any{
			"id": "WABA_E2E",
			"changes": []any{map[string]any{
				"field": "messages",
				"value": map[string]any{
					"messaging_product": "whatsapp",
					"metadata":          map[string]any{"phone_number_id": phoneNumberID},
					"messages":          []any{message},
				},
			}},
		}},
	}
	out, _ := json.Marshal(payload)
	return out
}

func textMessage(from, body string) []byte {
	return envelope(from, map[string]any{"type": "text", "text": map[string]any{"body": body}})
}

func buttonReply(from, id string) []byte {
	return envelope(from, map[string]any{"type": "interactive", "interactive": map[string]any{
		"type":         "button_reply",
		"button_reply": map[string]any{"id": id, "title": id},
	}})
}

func listReply(from, id string) []byte {
	return envelope(from, map[string]any{"type": "interactive", "interactive": map[string]any{
		"type":       "list_reply",
		"list_reply": map[string]any{"id": id, "title": id},
	}})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
