// Package chat keeps the assistant conversation for a session and renders
// replies as sanitised Markdown.
package chat

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
)

// MaxMessages bounds the stored conversation; the oldest messages go first.
const MaxMessages = 40

const (
	SenderBot  = "bot"
	SenderUser = "user"
)

const (
	Greeting = "Hello! I'm your AI assistant. I can help you with attendance queries, leave requests, and other HR-related questions. How can I assist you today?"
	Fallback = "I apologize, but I'm currently unable to process your request. Please try again later."
	empty    = "I apologize, but I encountered an error processing your request."
)

// Suggestions are offered while the conversation holds only the greeting.
var Suggestions = []string{
	"How many hours did I work this week?",
	"When was my last check-in?",
	"How can I request leave?",
	"What are my attendance statistics?",
	"How do I register my face?",
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Linkify))

type Message struct {
	Sender string    `json:"sender"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

func (m Message) FromBot() bool { return m.Sender == SenderBot }

// HTML renders the message. Bot replies are Markdown with raw HTML dropped;
// user text is escaped.
func (m Message) HTML() template.HTML {
	if !m.FromBot() {
		return template.HTML(template.HTMLEscapeString(m.Text))
	}
	return Render(m.Text)
}

// Render converts Markdown to HTML. goldmark omits raw HTML and dangerous
// link targets unless configured otherwise.
func Render(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

type Conversation struct {
	Messages []Message `json:"messages"`
}

// Start returns a conversation holding only the greeting.
func Start(now time.Time) Conversation {
	return Conversation{Messages: []Message{{Sender: SenderBot, Text: Greeting, At: now}}}
}

func (c *Conversation) add(sender, text string, at time.Time) {
	c.Messages = append(c.Messages, Message{Sender: sender, Text: text, At: at})
	if over := len(c.Messages) - MaxMessages; over > 0 {
		c.Messages = append([]Message(nil), c.Messages[over:]...)
	}
}

// Fresh reports whether only the greeting has been exchanged.
func (c *Conversation) Fresh() bool {
	return len(c.Messages) <= 1
}

// Asker sends a message to the assistant backend.
type Asker interface {
	Chat(ctx context.Context, message string) (*apiclient.ChatReply, error)
}

var ErrEmptyMessage = apperror.RequiredField("Message")

// Ask appends the user's message and the assistant's reply. On a backend
// failure the apology is appended and the error returned for a toast.
func (c *Conversation) Ask(ctx context.Context, api Asker, text string, now func() time.Time) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if len(c.Messages) == 0 {
		*c = Start(now())
	}
	c.add(SenderUser, text, now())

	reply, err := api.Chat(ctx, text)
	if err != nil {
		c.add(SenderBot, Fallback, now())
		return err
	}
	answer := strings.TrimSpace(reply.Response)
	if answer == "" {
		answer = empty
	}
	c.add(SenderBot, answer, now())
	return nil
}
