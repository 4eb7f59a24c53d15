// Package ws implements the real-time layer of the CodeCollab backend: a
// registry of live WebSocket sessions keyed by user, room-scoped broadcast,
// per-user sliding-window rate limiting, and a relay that streams AI
// generations to their recipients as they are produced.
package ws

import (
	"encoding/json"
	"time"
)

// Outbound frame types. Each type has a fixed payload shape; frames are
// immutable once encoded.
const (
	typeStart      = "start"
	typeChunk      = "chunk"
	typeComplete   = "complete"
	typeChatSaved  = "chat_saved"
	typeError      = "error"
	typeAIStart    = "ai_start"
	typeAIChunk    = "ai_chunk"
	typeAIComplete = "ai_complete"
	typeUserJoined = "user_joined"
	typeUserLeft   = "user_left"
	typeMessage    = "message"

	// Inbound room frame types.
	typeAIPrompt = "ai_prompt"
)

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type statusFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type chunkFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type chatSavedFrame struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
}

type aiStartFrame struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Prompt   string `json:"prompt"`
}

type aiChunkFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

type aiCompleteFrame struct {
	Type         string `json:"type"`
	UserID       string `json:"user_id"`
	FullResponse string `json:"full_response"`
}

type presenceFrame struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

type messageFrame struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// promptRequest is the inbound direct-mode frame.
type promptRequest struct {
	Prompt      string `json:"prompt"`
	Mode        string `json:"mode"`
	CodeContext string `json:"code_context"`
}

// roomRequest is the inbound team-mode frame. An absent type means a plain
// chat message.
type roomRequest struct {
	Type        string `json:"type"`
	Prompt      string `json:"prompt"`
	Mode        string `json:"mode"`
	CodeContext string `json:"code_context"`
	Content     string `json:"content"`
}

// encode marshals an outbound frame. The frame structs carry only strings,
// so marshaling cannot fail; the fallback keeps the wire contract anyway.
func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"type":"error","message":"internal encoding error"}`)
	}
	return b
}

func wireTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
