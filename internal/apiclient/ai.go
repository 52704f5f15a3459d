package apiclient

import (
	"context"
	"net/http"
)

// ChatReply is the chatbot's answer to one message.
type ChatReply struct {
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp Timestamp `json:"timestamp"`
}

// Chat sends one message to the assistant.
func (c *Client) Chat(ctx context.Context, message string) (*ChatReply, error) {
	var out ChatReply
	payload := map[string]string{"message": message}
	if err := c.sendJSON(ctx, http.MethodPost, "/api/ai/chatbot", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
