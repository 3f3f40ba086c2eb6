package models

import (
	"encoding/json"
	"strconv"
)

// ResponseMode selects how the backend delivers an answer.
type ResponseMode string

const (
	ModeStreaming ResponseMode = "streaming"
	ModeBlocking  ResponseMode = "blocking"
)

// ChatRequest is a single logical chat call issued by a caller.
type ChatRequest struct {
	Query          string         `json:"query"`
	ConversationID string         `json:"conversation_id,omitempty"`
	User           string         `json:"user,omitempty"`
	Inputs         map[string]any `json:"inputs,omitempty"`
}

// ChatResult is the normalized outcome of a completed chat call.
type ChatResult struct {
	FullMessage    string `json:"full_message"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	LatencyMs      int64  `json:"latency_ms"`
	TokenEstimate  int    `json:"token_estimate"`
}

// ChatPayload is the JSON body posted to the chat endpoint.
type ChatPayload struct {
	Query          string         `json:"query"`
	ResponseMode   ResponseMode   `json:"response_mode"`
	User           string         `json:"user"`
	Inputs         map[string]any `json:"inputs"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

// BlockingResponse is the single JSON object returned in blocking mode.
type BlockingResponse struct {
	Answer         string `json:"answer"`
	ConversationID Ident  `json:"conversation_id"`
	MessageID      Ident  `json:"message_id"`
	ID             Ident  `json:"id"`
}

// StreamPayload is one decoded `data:` line of the event stream. Unknown
// fields are ignored, and identifier or status fields of an unexpected JSON
// type decode to their zero value instead of failing the line.
type StreamPayload struct {
	Event          string          `json:"event"`
	Answer         string          `json:"answer"`
	ConversationID Ident           `json:"conversation_id"`
	MessageID      Ident           `json:"message_id"`
	ID             Ident           `json:"id"`
	Status         StatusCode      `json:"status"`
	Code           Ident           `json:"code"`
	Message        string          `json:"message"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// Ident is an identifier sent as a JSON string or number. Any other JSON
// value decodes to "".
type Ident string

// UnmarshalJSON implements json.Unmarshaler.
func (i *Ident) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = Ident(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*i = Ident(n.String())
		return nil
	}
	*i = ""
	return nil
}

// StatusCode is an HTTP-like status sent as a JSON number or numeric string.
// Any other JSON value decodes to 0.
type StatusCode int

// UnmarshalJSON implements json.Unmarshaler.
func (c *StatusCode) UnmarshalJSON(data []byte) error {
	var s Ident
	_ = s.UnmarshalJSON(data)
	n, err := strconv.Atoi(string(s))
	if err != nil {
		*c = 0
		return nil
	}
	*c = StatusCode(n)
	return nil
}

// ResolvedMessageID prefers message_id and falls back to id.
func (p *StreamPayload) ResolvedMessageID() string {
	if p.MessageID != "" {
		return string(p.MessageID)
	}
	return string(p.ID)
}

// ResolvedMessageID prefers message_id and falls back to id.
func (r *BlockingResponse) ResolvedMessageID() string {
	if r.MessageID != "" {
		return string(r.MessageID)
	}
	return string(r.ID)
}
